package handler

import (
	"log"
	"net/http"

	"github.com/aulahub/console/models"
	"github.com/aulahub/console/service"
	"github.com/gin-gonic/gin"
)

type DraftHandler struct {
	reconcile service.ReconcileService
	modules   service.ModuleService
}

func NewDraftHandler(reconcile service.ReconcileService, modules service.ModuleService) *DraftHandler {
	return &DraftHandler{reconcile: reconcile, modules: modules}
}

// ResolveSubject loads a persisted subject and its modules for the module
// page (edit-existing flow).
// GET /api/materias/:id/modulos
func (h *DraftHandler) ResolveSubject(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	wctx, err := h.reconcile.Resolve(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		log.Printf("ResolveSubject error: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wctx)
}

// ResolveDraft answers which mode the module page is in when no subject id
// was given: a resumable draft, or the recoverable no-context state.
// GET /api/draft
func (h *DraftHandler) ResolveDraft(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	wctx, err := h.reconcile.Resolve(c.Request.Context(), owner, "")
	if err != nil {
		log.Printf("ResolveDraft error: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, wctx)
}

// SaveDraft mirrors the console's in-memory draft into the slot, overwriting
// whatever was there.
// PUT /api/draft
func (h *DraftHandler) SaveDraft(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	var draft models.PendingDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		respondBindError(c, err)
		return
	}
	warnings, err := h.reconcile.SaveDraft(c.Request.Context(), owner, &draft)
	if err != nil {
		log.Printf("SaveDraft error: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"warnings": warnings})
}

// CreateDraftModule adds a module to the draft under a placeholder id.
// Attachments are uploaded to blob storage right away; only the backend
// entity is deferred until finish.
// POST /api/draft/modulos
func (h *DraftHandler) CreateDraftModule(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	input, files, closeFiles, err := moduleInputFromForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form", "detail": err.Error()})
		return
	}
	defer closeFiles()

	scope := service.Scope{OwnerID: owner, Draft: true}
	result, err := h.modules.CreateModule(c.Request.Context(), scope, input, files)
	if err != nil {
		log.Printf("CreateDraftModule error: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// UpdateDraftModule edits a draft module in place.
// PUT /api/draft/modulos/:id
func (h *DraftHandler) UpdateDraftModule(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	input, files, closeFiles, err := moduleInputFromForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form", "detail": err.Error()})
		return
	}
	defer closeFiles()

	scope := service.Scope{OwnerID: owner, Draft: true}
	id := models.ParseModuleID(c.Param("id"))
	result, err := h.modules.UpdateModule(c.Request.Context(), scope, id, input, files)
	if err != nil {
		log.Printf("UpdateDraftModule error: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteDraftModule removes a draft module from local state only.
// DELETE /api/draft/modulos/:id
func (h *DraftHandler) DeleteDraftModule(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	scope := service.Scope{OwnerID: owner, Draft: true}
	id := models.ParseModuleID(c.Param("id"))
	result, err := h.modules.DeleteModule(c.Request.Context(), scope, id)
	if err != nil {
		log.Printf("DeleteDraftModule error: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ReorderDraftModule moves an attachment or video inside a draft module.
// POST /api/draft/modulos/:id/reorder
func (h *DraftHandler) ReorderDraftModule(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	scope := service.Scope{OwnerID: owner, Draft: true}
	id := models.ParseModuleID(c.Param("id"))
	fields, warnings, err := h.modules.ReorderAttachments(c.Request.Context(), scope, id, req.Kind, req.From, req.To)
	if err != nil {
		log.Printf("ReorderDraftModule error: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": fields, "warnings": warnings})
}

// Finish commits the draft: modules created in sequence, subject created or
// updated with the final module list, slot cleared.
// POST /api/draft/finish
func (h *DraftHandler) Finish(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	result, err := h.reconcile.Finish(c.Request.Context(), owner)
	if err != nil {
		log.Printf("Finish error: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Cancel discards the draft and deletes an orphaned server-side subject if
// one was created during the draft's lifetime.
// POST /api/draft/cancel
func (h *DraftHandler) Cancel(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	result, err := h.reconcile.Cancel(c.Request.Context(), owner)
	if err != nil {
		log.Printf("Cancel error: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
