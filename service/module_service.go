package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aulahub/console/client"
	"github.com/aulahub/console/events"
	"github.com/aulahub/console/models"
	"github.com/aulahub/console/repository"
	"github.com/sirupsen/logrus"
)

// Scope says which flavor of the module manager a mutation runs in: Draft
// targets the owner's pending draft slot (placeholder ids, nothing persisted
// to the backend), otherwise mutations hit the backend immediately and
// SubjectID names the parent subject.
type Scope struct {
	OwnerID   string
	SubjectID string
	Draft     bool
}

// ModuleInput is the form payload of a module create/edit. ExistingURLs are
// attachments already in blob storage (edit mode); new files ride separately
// through the upload batch and are appended after them.
type ModuleInput struct {
	Titulo       string   `json:"titulo"`
	Descripcion  string   `json:"descripcion"`
	Bibliografia string   `json:"bibliografia"`
	URLMiniatura string   `json:"url_miniatura"`
	ExistingURLs []string `json:"url_archivo"`
	URLVideo     []string `json:"url_video"`
}

// MutationResult reports the outcome of a module mutation, including per-file
// upload failures and non-blocking consistency warnings.
type MutationResult struct {
	ID             models.ModuleID     `json:"id"`
	Fields         models.ModuleFields `json:"fields"`
	UploadFailures []UploadFailure     `json:"upload_failures,omitempty"`
	Warnings       []string            `json:"warnings,omitempty"`
}

type ModuleService interface {
	CreateModule(ctx context.Context, scope Scope, input ModuleInput, files []UploadFile) (*MutationResult, error)
	UpdateModule(ctx context.Context, scope Scope, id models.ModuleID, input ModuleInput, files []UploadFile) (*MutationResult, error)
	DeleteModule(ctx context.Context, scope Scope, id models.ModuleID) (*MutationResult, error)
	ReorderAttachments(ctx context.Context, scope Scope, id models.ModuleID, kind string, from, to int) (*models.ModuleFields, []string, error)
	ValidateVideoURL(ctx context.Context, raw string, existing []string) error
}

type ModuleServiceImpl struct {
	entities client.EntityClient
	drafts   repository.DraftRepository
	uploader *Uploader
	prober   *VideoProber
	events   events.Publisher
	logger   *logrus.Logger
}

func NewModuleService(
	entities client.EntityClient,
	drafts repository.DraftRepository,
	uploader *Uploader,
	prober *VideoProber,
	pub events.Publisher,
	logger *logrus.Logger,
) ModuleService {
	return &ModuleServiceImpl{
		entities: entities,
		drafts:   drafts,
		uploader: uploader,
		prober:   prober,
		events:   pub,
		logger:   logger,
	}
}

func (s *ModuleServiceImpl) CreateModule(ctx context.Context, scope Scope, input ModuleInput, files []UploadFile) (*MutationResult, error) {
	if err := validateModuleInput(input, false, len(files)); err != nil {
		return nil, err
	}

	if scope.Draft {
		draft, err := s.drafts.Load(ctx, scope.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("load draft: %w", err)
		}
		fields, failures, warnings, err := s.assemble(ctx, draftSubjectID(draft), input, files)
		if err != nil {
			return &MutationResult{UploadFailures: failures}, err
		}
		id := models.NewPlaceholderID()
		draft.Modules = append(draft.Modules, models.DraftModule{ID: id, Fields: fields})
		warnings = append(warnings, s.mirror(ctx, scope.OwnerID, draft)...)
		return &MutationResult{ID: id, Fields: fields, UploadFailures: failures, Warnings: warnings}, nil
	}

	fields, failures, warnings, err := s.assemble(ctx, scope.SubjectID, input, files)
	if err != nil {
		return &MutationResult{UploadFailures: failures}, err
	}
	id, err := s.entities.CreateModule(ctx, scope.SubjectID, fields)
	if err != nil {
		return nil, fmt.Errorf("create module: %w", err)
	}
	warnings = append(warnings, s.addToSubject(ctx, scope.SubjectID, id)...)

	s.events.Publish(ctx, events.Event{Type: events.ModuleCreated, OwnerID: scope.OwnerID, SubjectID: scope.SubjectID, ModuleID: id})
	return &MutationResult{ID: models.PersistedID(id), Fields: fields, UploadFailures: failures, Warnings: warnings}, nil
}

func (s *ModuleServiceImpl) UpdateModule(ctx context.Context, scope Scope, id models.ModuleID, input ModuleInput, files []UploadFile) (*MutationResult, error) {
	if err := validateModuleInput(input, true, len(files)); err != nil {
		return nil, err
	}

	if id.IsPlaceholder() {
		draft, err := s.drafts.Load(ctx, scope.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("load draft: %w", err)
		}
		idx := draft.ModuleByID(id)
		if idx < 0 {
			return nil, ErrModuleNotFound
		}
		fields, failures, warnings, err := s.assemble(ctx, draftSubjectID(draft), input, files)
		if err != nil {
			return &MutationResult{UploadFailures: failures}, err
		}
		draft.Modules[idx].Fields = fields
		warnings = append(warnings, s.mirror(ctx, scope.OwnerID, draft)...)
		return &MutationResult{ID: id, Fields: fields, UploadFailures: failures, Warnings: warnings}, nil
	}

	fields, failures, warnings, err := s.assemble(ctx, scope.SubjectID, input, files)
	if err != nil {
		return &MutationResult{UploadFailures: failures}, err
	}
	if err := s.entities.UpdateModule(ctx, id.String(), scope.SubjectID, fields); err != nil {
		return nil, fmt.Errorf("update module: %w", err)
	}

	s.events.Publish(ctx, events.Event{Type: events.ModuleUpdated, OwnerID: scope.OwnerID, SubjectID: scope.SubjectID, ModuleID: id.String()})
	return &MutationResult{ID: id, Fields: fields, UploadFailures: failures, Warnings: warnings}, nil
}

// DeleteModule removes a placeholder from the draft, or deletes a persisted
// module and repairs the parent subject's module list. A failed repair is a
// warning, not an error: the module itself is gone and the console moves on.
func (s *ModuleServiceImpl) DeleteModule(ctx context.Context, scope Scope, id models.ModuleID) (*MutationResult, error) {
	if id.IsPlaceholder() {
		draft, err := s.drafts.Load(ctx, scope.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("load draft: %w", err)
		}
		idx := draft.ModuleByID(id)
		if idx < 0 {
			return nil, ErrModuleNotFound
		}
		draft.Modules = append(draft.Modules[:idx], draft.Modules[idx+1:]...)
		warnings := s.mirror(ctx, scope.OwnerID, draft)
		return &MutationResult{ID: id, Warnings: warnings}, nil
	}

	if err := s.entities.DeleteModule(ctx, id.String()); err != nil {
		return nil, fmt.Errorf("delete module: %w", err)
	}
	warnings := s.removeFromSubject(ctx, scope.SubjectID, id.String())

	s.events.Publish(ctx, events.Event{Type: events.ModuleDeleted, OwnerID: scope.OwnerID, SubjectID: scope.SubjectID, ModuleID: id.String()})
	return &MutationResult{ID: id, Warnings: warnings}, nil
}

// ReorderAttachments applies a drag-and-drop move on a module's attachment
// list (kind "archivo") or video list (kind "video").
func (s *ModuleServiceImpl) ReorderAttachments(ctx context.Context, scope Scope, id models.ModuleID, kind string, from, to int) (*models.ModuleFields, []string, error) {
	if kind != "archivo" && kind != "video" {
		return nil, nil, NewValidationError(errors.New("unknown attachment kind"),
			FieldError{Field: "kind", Error: "debe ser archivo o video"})
	}

	if id.IsPlaceholder() {
		draft, err := s.drafts.Load(ctx, scope.OwnerID)
		if err != nil {
			return nil, nil, fmt.Errorf("load draft: %w", err)
		}
		idx := draft.ModuleByID(id)
		if idx < 0 {
			return nil, nil, ErrModuleNotFound
		}
		fields := draft.Modules[idx].Fields
		if err := reorderFields(&fields, kind, from, to); err != nil {
			return nil, nil, err
		}
		draft.Modules[idx].Fields = fields
		warnings := s.mirror(ctx, scope.OwnerID, draft)
		return &fields, warnings, nil
	}

	mods, err := s.entities.GetModulesByIDs(ctx, []string{id.String()})
	if err != nil {
		return nil, nil, fmt.Errorf("load module: %w", err)
	}
	if len(mods) == 0 {
		return nil, nil, ErrModuleNotFound
	}
	mod := mods[0]
	fields := models.ModuleFields{
		Titulo:       mod.Titulo,
		Descripcion:  mod.Descripcion,
		Bibliografia: mod.Bibliografia,
		URLMiniatura: mod.URLMiniatura,
		URLArchivo:   mod.URLArchivo,
		URLVideo:     mod.URLVideo,
	}
	if err := reorderFields(&fields, kind, from, to); err != nil {
		return nil, nil, err
	}
	if err := s.entities.UpdateModule(ctx, id.String(), mod.IDMateria, fields); err != nil {
		return nil, nil, fmt.Errorf("persist reorder: %w", err)
	}
	return &fields, nil, nil
}

func (s *ModuleServiceImpl) ValidateVideoURL(ctx context.Context, raw string, existing []string) error {
	return s.prober.Validate(ctx, raw, existing)
}

// assemble uploads the new files and merges the resulting URLs after the
// pre-existing ones, keeping original-then-new order.
func (s *ModuleServiceImpl) assemble(ctx context.Context, subjectID string, input ModuleInput, files []UploadFile) (models.ModuleFields, []UploadFailure, []string, error) {
	uploaded, failures, err := s.uploader.UploadBatch(ctx, subjectID, files)
	if err != nil {
		return models.ModuleFields{}, failures, nil, err
	}
	fields := models.ModuleFields{
		Titulo:       strings.TrimSpace(input.Titulo),
		Descripcion:  input.Descripcion,
		Bibliografia: input.Bibliografia,
		URLMiniatura: input.URLMiniatura,
		URLArchivo:   append(append([]string{}, input.ExistingURLs...), uploaded...),
		URLVideo:     append([]string{}, input.URLVideo...),
	}
	return fields, failures, nil, nil
}

// mirror writes the draft back to the store; an unavailable store degrades to
// a warning because the in-memory session keeps working.
func (s *ModuleServiceImpl) mirror(ctx context.Context, ownerID string, draft *models.PendingDraft) []string {
	if err := s.drafts.Save(ctx, ownerID, draft); err != nil {
		if errors.Is(err, repository.ErrStoreUnavailable) {
			return []string{"el borrador no pudo guardarse; no sobrevivirá una recarga"}
		}
		s.logger.WithError(err).Error("draft mirror failed")
		return []string{"el borrador no pudo guardarse"}
	}
	return nil
}

func (s *ModuleServiceImpl) addToSubject(ctx context.Context, subjectID, moduleID string) []string {
	subject, err := s.entities.GetSubjectByID(ctx, subjectID)
	if err == nil {
		subject.Modulos = append(subject.Modulos, moduleID)
		err = s.entities.UpdateSubject(ctx, subject)
	}
	if err != nil {
		s.logger.WithError(err).WithField("subject_id", subjectID).Error("subject module-list sync failed after create")
		return []string{"el módulo se creó pero la materia no pudo actualizarse"}
	}
	return nil
}

func (s *ModuleServiceImpl) removeFromSubject(ctx context.Context, subjectID, moduleID string) []string {
	subject, err := s.entities.GetSubjectByID(ctx, subjectID)
	if err == nil {
		kept := subject.Modulos[:0]
		for _, id := range subject.Modulos {
			if id != moduleID {
				kept = append(kept, id)
			}
		}
		subject.Modulos = kept
		err = s.entities.UpdateSubject(ctx, subject)
	}
	if err != nil {
		s.logger.WithError(err).WithField("subject_id", subjectID).Error("subject module-list sync failed after delete")
		return []string{"el módulo se eliminó pero la materia no pudo actualizarse"}
	}
	return nil
}

func reorderFields(fields *models.ModuleFields, kind string, from, to int) error {
	var err error
	if kind == "archivo" {
		fields.URLArchivo, err = MoveItem(fields.URLArchivo, from, to)
	} else {
		fields.URLVideo, err = MoveItem(fields.URLVideo, from, to)
	}
	if err != nil {
		return NewValidationError(err, FieldError{Field: "orden", Error: "índice fuera de rango"})
	}
	return nil
}

func validateModuleInput(input ModuleInput, edit bool, newFiles int) error {
	var flds []FieldError
	if strings.TrimSpace(input.Titulo) == "" {
		flds = append(flds, FieldError{Field: "titulo", Error: "el título no puede estar vacío"})
	}
	if !edit && len(input.ExistingURLs)+newFiles == 0 {
		flds = append(flds, FieldError{Field: "url_archivo", Error: "se requiere al menos un archivo adjunto"})
	}
	seen := make(map[string]bool, len(input.URLVideo))
	for _, v := range input.URLVideo {
		if seen[v] {
			flds = append(flds, FieldError{Field: "url_video", Error: "la URL ya fue agregada"})
			break
		}
		seen[v] = true
	}
	if len(flds) > 0 {
		return NewValidationError(errors.New("invalid module input"), flds...)
	}
	return nil
}

func draftSubjectID(draft *models.PendingDraft) string {
	if draft.SubjectID != nil {
		return *draft.SubjectID
	}
	return ""
}
