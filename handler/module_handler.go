package handler

import (
	"log"
	"mime/multipart"
	"net/http"

	"github.com/aulahub/console/models"
	"github.com/aulahub/console/service"
	"github.com/gin-gonic/gin"
)

type ModuleHandler struct {
	modules service.ModuleService
}

func NewModuleHandler(modules service.ModuleService) *ModuleHandler {
	return &ModuleHandler{modules: modules}
}

// CreateModule creates a module under a persisted subject. Multipart form:
// text fields plus any number of "files" parts for new attachments.
// POST /api/materias/:id/modulos
func (h *ModuleHandler) CreateModule(c *gin.Context) {
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

	scope := service.Scope{OwnerID: owner, SubjectID: c.Param("id")}
	result, err := h.modules.CreateModule(c.Request.Context(), scope, input, files)
	if err != nil {
		log.Printf("CreateModule error: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// UpdateModule edits a persisted module. The parent subject rides in the
// "materia" query param.
// PUT /api/modulos/:id
func (h *ModuleHandler) UpdateModule(c *gin.Context) {
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

	scope := service.Scope{OwnerID: owner, SubjectID: c.Query("materia")}
	id := models.ParseModuleID(c.Param("id"))
	result, err := h.modules.UpdateModule(c.Request.Context(), scope, id, input, files)
	if err != nil {
		log.Printf("UpdateModule error: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteModule deletes a persisted module and keeps the parent subject's
// module list in sync.
// DELETE /api/modulos/:id
func (h *ModuleHandler) DeleteModule(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	scope := service.Scope{OwnerID: owner, SubjectID: c.Query("materia")}
	id := models.ParseModuleID(c.Param("id"))
	result, err := h.modules.DeleteModule(c.Request.Context(), scope, id)
	if err != nil {
		log.Printf("DeleteModule error: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type reorderRequest struct {
	Kind string `json:"kind" binding:"required"`
	From int    `json:"from" binding:"min=0"`
	To   int    `json:"to" binding:"min=0"`
}

// ReorderAttachments persists a drag-and-drop move on a module's attachment
// or video list.
// POST /api/modulos/:id/reorder
func (h *ModuleHandler) ReorderAttachments(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	scope := service.Scope{OwnerID: owner, SubjectID: c.Query("materia")}
	id := models.ParseModuleID(c.Param("id"))
	fields, warnings, err := h.modules.ReorderAttachments(c.Request.Context(), scope, id, req.Kind, req.From, req.To)
	if err != nil {
		log.Printf("ReorderAttachments error: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": fields, "warnings": warnings})
}

type validateVideoRequest struct {
	URL      string   `json:"url" binding:"required"`
	Existing []string `json:"existing"`
}

// ValidateVideo checks a video URL before the console adds it to the form.
// POST /api/videos/validate
func (h *ModuleHandler) ValidateVideo(c *gin.Context) {
	var req validateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := h.modules.ValidateVideoURL(c.Request.Context(), req.URL, req.Existing); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// moduleInputFromForm reads the multipart module form. Returned files must be
// closed by the caller once the upload batch is done with them.
func moduleInputFromForm(c *gin.Context) (service.ModuleInput, []service.UploadFile, func(), error) {
	input := service.ModuleInput{
		Titulo:       c.PostForm("titulo"),
		Descripcion:  c.PostForm("descripcion"),
		Bibliografia: c.PostForm("bibliografia"),
		URLMiniatura: c.PostForm("url_miniatura"),
		ExistingURLs: c.PostFormArray("url_archivo"),
		URLVideo:     c.PostFormArray("url_video"),
	}

	form, err := c.MultipartForm()
	if err != nil && err != http.ErrNotMultipart {
		return service.ModuleInput{}, nil, nil, err
	}

	var headers []*multipart.FileHeader
	if form != nil {
		headers = form.File["files"]
	}
	files := make([]service.UploadFile, 0, len(headers))
	var opened []multipart.File
	closeFiles := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeFiles()
			return service.ModuleInput{}, nil, nil, err
		}
		opened = append(opened, f)
		files = append(files, service.UploadFile{Name: fh.Filename, Size: fh.Size, Data: f})
	}
	return input, files, closeFiles, nil
}
