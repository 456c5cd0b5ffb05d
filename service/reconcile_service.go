package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aulahub/console/client"
	"github.com/aulahub/console/events"
	"github.com/aulahub/console/models"
	"github.com/aulahub/console/repository"
	"github.com/sirupsen/logrus"
)

type WizardState string

const (
	// StateManagingExisting: a subject id was given, mutations persist
	// immediately, no terminal step required.
	StateManagingExisting WizardState = "managing_existing"
	// StateManagingDraft: mutations stay in the draft slot until finish.
	StateManagingDraft WizardState = "managing_draft"
	// StateNoContext: neither a subject nor a draft, recoverable dead end.
	StateNoContext WizardState = "no_context"
)

// WizardContext is what the module page gets on load: which mode it is in
// and the data for that mode.
type WizardContext struct {
	State   WizardState          `json:"state"`
	Subject *models.Subject      `json:"subject,omitempty"`
	Modules []models.Module      `json:"modules,omitempty"`
	Draft   *models.PendingDraft `json:"draft,omitempty"`
}

type FinishResult struct {
	Subject  *models.Subject `json:"subject"`
	Warnings []string        `json:"warnings,omitempty"`
}

type CancelResult struct {
	DeletedSubjectID string   `json:"deleted_subject_id,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

type ReconcileService interface {
	Resolve(ctx context.Context, ownerID, subjectID string) (*WizardContext, error)
	SaveDraft(ctx context.Context, ownerID string, draft *models.PendingDraft) ([]string, error)
	Finish(ctx context.Context, ownerID string) (*FinishResult, error)
	Cancel(ctx context.Context, ownerID string) (*CancelResult, error)
}

type ReconcileServiceImpl struct {
	entities client.EntityClient
	drafts   repository.DraftRepository
	events   events.Publisher
	logger   *logrus.Logger
	guard    actionGuard
}

func NewReconcileService(entities client.EntityClient, drafts repository.DraftRepository, pub events.Publisher, logger *logrus.Logger) ReconcileService {
	return &ReconcileServiceImpl{entities: entities, drafts: drafts, events: pub, logger: logger}
}

// Resolve decides which mode the module page is in: a subject id wins and is
// fetched together with its modules; otherwise the draft slot decides between
// resuming a draft and the recoverable no-context state.
func (s *ReconcileServiceImpl) Resolve(ctx context.Context, ownerID, subjectID string) (*WizardContext, error) {
	if subjectID != "" {
		subject, err := s.entities.GetSubjectByID(ctx, subjectID)
		if err != nil {
			return nil, fmt.Errorf("resolve subject: %w", err)
		}
		modules, err := s.entities.GetModulesByIDs(ctx, subject.Modulos)
		if err != nil {
			return nil, fmt.Errorf("resolve modules: %w", err)
		}
		return &WizardContext{State: StateManagingExisting, Subject: subject, Modules: modules}, nil
	}

	draft, err := s.drafts.Load(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNoDraft) {
			return &WizardContext{State: StateNoContext}, nil
		}
		return nil, fmt.Errorf("load draft: %w", err)
	}
	return &WizardContext{State: StateManagingDraft, Draft: draft}, nil
}

// SaveDraft overwrites the owner's slot with the given draft, no merge.
func (s *ReconcileServiceImpl) SaveDraft(ctx context.Context, ownerID string, draft *models.PendingDraft) ([]string, error) {
	if err := s.drafts.Save(ctx, ownerID, draft); err != nil {
		if errors.Is(err, repository.ErrStoreUnavailable) {
			return []string{"el borrador no pudo guardarse; no sobrevivirá una recarga"}, nil
		}
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return nil, nil
}

// Finish commits the draft: every draft module is created in sequence, then
// the subject is created (if never confirmed) or updated with the final
// module id list, and the slot is cleared. Progress is mirrored back to the
// slot after every create, so a mid-way failure resumes without duplicating
// already-created modules.
func (s *ReconcileServiceImpl) Finish(ctx context.Context, ownerID string) (*FinishResult, error) {
	if !s.guard.begin(ownerID + ":finish") {
		return nil, ErrActionInFlight
	}
	defer s.guard.end(ownerID + ":finish")

	draft, err := s.drafts.Load(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNoDraft) {
			return nil, ErrNoContext
		}
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if len(draft.Modules) == 0 {
		return nil, NewValidationError(ErrNoModules,
			FieldError{Field: "modulos", Error: "agrega al menos un módulo antes de finalizar"})
	}

	var warnings []string
	subjectID := draftSubjectID(draft)
	freshSubject := draft.SubjectID == nil

	moduleIDs := make([]string, 0, len(draft.Modules))
	for i := range draft.Modules {
		m := &draft.Modules[i]
		if !m.ID.IsPlaceholder() {
			moduleIDs = append(moduleIDs, m.ID.String())
			continue
		}
		id, err := s.entities.CreateModule(ctx, subjectID, m.Fields)
		if err != nil {
			s.mirrorProgress(ctx, ownerID, draft)
			return nil, fmt.Errorf("create module %q: %w", m.Fields.Titulo, err)
		}
		m.ID = models.PersistedID(id)
		moduleIDs = append(moduleIDs, id)
		s.mirrorProgress(ctx, ownerID, draft)
	}

	var subject *models.Subject
	if freshSubject {
		subject, err = s.entities.CreateSubject(ctx, draft.Nombre, draft.IDCursos, moduleIDs)
		if err != nil {
			s.mirrorProgress(ctx, ownerID, draft)
			return nil, fmt.Errorf("create subject: %w", err)
		}
		draft.SubjectID = &subject.ID
		s.mirrorProgress(ctx, ownerID, draft)
		// modules were created before the subject id existed; point them home
		warnings = append(warnings, s.repairModuleParents(ctx, subject.ID, draft.Modules)...)
	} else {
		subject = &models.Subject{
			ID:       subjectID,
			Nombre:   draft.Nombre,
			IDCursos: draft.IDCursos,
			Modulos:  moduleIDs,
		}
		if err := s.entities.UpdateSubject(ctx, subject); err != nil {
			s.mirrorProgress(ctx, ownerID, draft)
			return nil, fmt.Errorf("update subject: %w", err)
		}
	}

	if err := s.drafts.Clear(ctx, ownerID); err != nil {
		s.logger.WithError(err).Warn("draft clear failed after finish")
		warnings = append(warnings, "el borrador no pudo limpiarse")
	}

	s.events.Publish(ctx, events.Event{Type: events.SubjectFinalized, OwnerID: ownerID, SubjectID: subject.ID})
	return &FinishResult{Subject: subject, Warnings: warnings}, nil
}

// Cancel discards the draft; a subject already created server-side during
// the draft's lifetime is deleted so no module-less orphan is left behind.
// A failed orphan delete is surfaced as a warning, never blocks the user.
func (s *ReconcileServiceImpl) Cancel(ctx context.Context, ownerID string) (*CancelResult, error) {
	if !s.guard.begin(ownerID + ":cancel") {
		return nil, ErrActionInFlight
	}
	defer s.guard.end(ownerID + ":cancel")

	result := &CancelResult{}
	draft, err := s.drafts.Load(ctx, ownerID)
	if err != nil && !errors.Is(err, repository.ErrNoDraft) {
		return nil, fmt.Errorf("load draft: %w", err)
	}

	if draft != nil && draft.SubjectID != nil {
		if err := s.entities.DeleteSubject(ctx, *draft.SubjectID); err != nil {
			s.logger.WithError(err).WithField("subject_id", *draft.SubjectID).Error("orphan subject cleanup failed")
			result.Warnings = append(result.Warnings, "la materia creada no pudo eliminarse del servidor")
		} else {
			result.DeletedSubjectID = *draft.SubjectID
		}
	}

	if err := s.drafts.Clear(ctx, ownerID); err != nil {
		s.logger.WithError(err).Warn("draft clear failed on cancel")
		result.Warnings = append(result.Warnings, "el borrador no pudo limpiarse")
	}

	s.events.Publish(ctx, events.Event{Type: events.DraftCancelled, OwnerID: ownerID, SubjectID: result.DeletedSubjectID})
	return result, nil
}

func (s *ReconcileServiceImpl) repairModuleParents(ctx context.Context, subjectID string, modules []models.DraftModule) []string {
	var warnings []string
	for _, m := range modules {
		if m.ID.IsPlaceholder() {
			continue
		}
		if err := s.entities.UpdateModule(ctx, m.ID.String(), subjectID, m.Fields); err != nil {
			s.logger.WithError(err).WithField("module_id", m.ID.String()).Error("module parent repair failed")
			warnings = append(warnings, fmt.Sprintf("el módulo %q quedó sin materia asignada", m.Fields.Titulo))
		}
	}
	return warnings
}

// mirrorProgress keeps the slot in sync mid-finish; failures here only cost
// resumability, so they are logged and swallowed.
func (s *ReconcileServiceImpl) mirrorProgress(ctx context.Context, ownerID string, draft *models.PendingDraft) {
	if err := s.drafts.Save(ctx, ownerID, draft); err != nil {
		s.logger.WithError(err).Warn("draft progress mirror failed")
	}
}

// actionGuard is the per-action in-flight flag preventing double submission.
type actionGuard struct {
	mu       sync.Mutex
	inflight map[string]bool
}

func (g *actionGuard) begin(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight == nil {
		g.inflight = make(map[string]bool)
	}
	if g.inflight[key] {
		return false
	}
	g.inflight[key] = true
	return true
}

func (g *actionGuard) end(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, key)
}
