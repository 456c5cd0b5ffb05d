package handler

import (
	"log"
	"net/http"

	"github.com/aulahub/console/service"
	"github.com/gin-gonic/gin"
)

type SubjectHandler struct {
	wizard service.WizardService
}

func NewSubjectHandler(wizard service.WizardService) *SubjectHandler {
	return &SubjectHandler{wizard: wizard}
}

// ListCourses returns the full course catalog for the wizard's association
// picker.
// GET /api/cursos
func (h *SubjectHandler) ListCourses(c *gin.Context) {
	courses, err := h.wizard.ListCourses(c.Request.Context())
	if err != nil {
		log.Printf("ListCourses error: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cursos": courses})
}

// CreateSubject saves the wizard's first step. With manage_modules set, the
// draft slot is opened so the module manager can take over.
// POST /api/materias
func (h *SubjectHandler) CreateSubject(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	var input service.SubjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.wizard.CreateSubject(c.Request.Context(), owner, input)
	if err != nil {
		log.Printf("CreateSubject error: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// UpdateSubject rewrites an existing subject's name and course associations.
// PUT /api/materias/:id
func (h *SubjectHandler) UpdateSubject(c *gin.Context) {
	var input service.SubjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.wizard.UpdateSubject(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		log.Printf("UpdateSubject error: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
