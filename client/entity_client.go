package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aulahub/console/config"
	"github.com/aulahub/console/models"
	"github.com/aulahub/console/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when the backend answers 404 for an entity lookup.
var ErrNotFound = errors.New("entity not found")

// EntityClient is the console's view of the platform's course/subject/module
// REST backend.
type EntityClient interface {
	CreateSubject(ctx context.Context, nombre string, idCursos, modulos []string) (*models.Subject, error)
	UpdateSubject(ctx context.Context, subject *models.Subject) error
	DeleteSubject(ctx context.Context, id string) error
	GetSubjectByID(ctx context.Context, id string) (*models.Subject, error)
	CreateModule(ctx context.Context, idMateria string, fields models.ModuleFields) (string, error)
	UpdateModule(ctx context.Context, id, idMateria string, fields models.ModuleFields) error
	DeleteModule(ctx context.Context, id string) error
	GetModulesByIDs(ctx context.Context, ids []string) ([]models.Module, error)
	ListCourses(ctx context.Context) ([]models.Course, error)
}

// subjectDTO / moduleDTO are the backend wire shapes. url_archivo is the
// legacy delimiter-packed string; it is decoded/encoded only here, business
// code always sees a true list.
type subjectDTO struct {
	ID       string   `json:"id,omitempty"`
	Nombre   string   `json:"nombre"`
	IDCursos []string `json:"id_cursos"`
	Modulos  []string `json:"modulos"`
}

type moduleDTO struct {
	ID            string   `json:"id,omitempty"`
	Titulo        string   `json:"titulo"`
	Descripcion   string   `json:"descripcion"`
	IDMateria     string   `json:"id_materia"`
	TipoContenido string   `json:"tipo_contenido"`
	Bibliografia  string   `json:"bibliografia"`
	URLMiniatura  string   `json:"url_miniatura"`
	URLArchivo    string   `json:"url_archivo"`
	URLVideo      []string `json:"url_video"`
}

type HTTPEntityClient struct {
	baseURL string
	http    *http.Client
	logger  *logrus.Logger
}

func NewHTTPEntityClient(cfg *config.Config, logger *logrus.Logger) *HTTPEntityClient {
	return &HTTPEntityClient{
		baseURL: strings.TrimRight(cfg.Backend.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Backend.Timeout},
		logger:  logger,
	}
}

func (c *HTTPEntityClient) CreateSubject(ctx context.Context, nombre string, idCursos, modulos []string) (*models.Subject, error) {
	body := subjectDTO{Nombre: nombre, IDCursos: emptyIfNil(idCursos), Modulos: emptyIfNil(modulos)}
	var out subjectDTO
	if err := c.do(ctx, "createSubject", http.MethodPost, "/materias", body, &out); err != nil {
		return nil, err
	}
	return subjectFromDTO(out), nil
}

func (c *HTTPEntityClient) UpdateSubject(ctx context.Context, subject *models.Subject) error {
	body := subjectDTO{
		ID:       subject.ID,
		Nombre:   subject.Nombre,
		IDCursos: emptyIfNil(subject.IDCursos),
		Modulos:  emptyIfNil(subject.Modulos),
	}
	return c.do(ctx, "updateSubject", http.MethodPut, "/materias/"+url.PathEscape(subject.ID), body, nil)
}

func (c *HTTPEntityClient) DeleteSubject(ctx context.Context, id string) error {
	return c.do(ctx, "deleteSubject", http.MethodDelete, "/materias/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPEntityClient) GetSubjectByID(ctx context.Context, id string) (*models.Subject, error) {
	var out subjectDTO
	if err := c.do(ctx, "getSubjectById", http.MethodGet, "/materias/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return subjectFromDTO(out), nil
}

func (c *HTTPEntityClient) CreateModule(ctx context.Context, idMateria string, fields models.ModuleFields) (string, error) {
	body := moduleToDTO("", idMateria, fields)
	var out moduleDTO
	if err := c.do(ctx, "createModule", http.MethodPost, "/modulos", body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("createModule: backend returned no id")
	}
	return out.ID, nil
}

func (c *HTTPEntityClient) UpdateModule(ctx context.Context, id, idMateria string, fields models.ModuleFields) error {
	body := moduleToDTO(id, idMateria, fields)
	return c.do(ctx, "updateModule", http.MethodPut, "/modulos/"+url.PathEscape(id), body, nil)
}

func (c *HTTPEntityClient) DeleteModule(ctx context.Context, id string) error {
	return c.do(ctx, "deleteModule", http.MethodDelete, "/modulos/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPEntityClient) GetModulesByIDs(ctx context.Context, ids []string) ([]models.Module, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []moduleDTO
	path := "/modulos?ids=" + url.QueryEscape(strings.Join(ids, ","))
	if err := c.do(ctx, "getModulesByIds", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	mods := make([]models.Module, 0, len(out))
	for _, dto := range out {
		mods = append(mods, moduleFromDTO(dto))
	}
	return mods, nil
}

func (c *HTTPEntityClient) ListCourses(ctx context.Context) ([]models.Course, error) {
	var out []models.Course
	if err := c.do(ctx, "listCourses", http.MethodGet, "/cursos", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPEntityClient) do(ctx context.Context, operation, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordBackendCall(operation, "transport_error")
		c.logger.WithError(err).WithField("operation", operation).Error("backend call failed")
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		metrics.RecordBackendCall(operation, "not_found")
		return fmt.Errorf("%s: %w", operation, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordBackendCall(operation, fmt.Sprintf("%d", resp.StatusCode))
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.WithFields(logrus.Fields{
			"operation": operation,
			"status":    resp.StatusCode,
			"detail":    string(detail),
		}).Error("backend returned error status")
		return fmt.Errorf("%s: backend status %d", operation, resp.StatusCode)
	}

	metrics.RecordBackendCall(operation, "ok")
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decode response: %w", operation, err)
		}
	}
	return nil
}

func subjectFromDTO(dto subjectDTO) *models.Subject {
	return &models.Subject{
		ID:       dto.ID,
		Nombre:   dto.Nombre,
		IDCursos: dto.IDCursos,
		Modulos:  dto.Modulos,
	}
}

func moduleToDTO(id, idMateria string, fields models.ModuleFields) moduleDTO {
	return moduleDTO{
		ID:            id,
		Titulo:        fields.Titulo,
		Descripcion:   fields.Descripcion,
		IDMateria:     idMateria,
		TipoContenido: models.ContentTypePDF,
		Bibliografia:  fields.Bibliografia,
		URLMiniatura:  fields.URLMiniatura,
		URLArchivo:    EncodeAttachments(fields.URLArchivo),
		URLVideo:      emptyIfNil(fields.URLVideo),
	}
}

func moduleFromDTO(dto moduleDTO) models.Module {
	return models.Module{
		ID:            dto.ID,
		Titulo:        dto.Titulo,
		Descripcion:   dto.Descripcion,
		IDMateria:     dto.IDMateria,
		TipoContenido: dto.TipoContenido,
		Bibliografia:  dto.Bibliografia,
		URLMiniatura:  dto.URLMiniatura,
		URLArchivo:    DecodeAttachments(dto.URLArchivo),
		URLVideo:      dto.URLVideo,
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
