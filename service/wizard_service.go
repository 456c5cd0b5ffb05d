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

// SubjectInput is the wizard's first step: name plus course associations.
// ManageModules records the "also manage modules now" intent; when set, a
// draft slot is opened against the freshly confirmed subject id.
type SubjectInput struct {
	Nombre        string   `json:"nombre"`
	IDCursos      []string `json:"id_cursos"`
	ManageModules bool     `json:"manage_modules"`
}

// SubjectResult carries the saved subject plus non-fatal conditions the
// console shows without failing the action.
type SubjectResult struct {
	Subject  *models.Subject `json:"subject"`
	Warnings []string        `json:"warnings,omitempty"`
}

type WizardService interface {
	ListCourses(ctx context.Context) ([]models.Course, error)
	CreateSubject(ctx context.Context, ownerID string, input SubjectInput) (*SubjectResult, error)
	UpdateSubject(ctx context.Context, id string, input SubjectInput) (*SubjectResult, error)
}

type WizardServiceImpl struct {
	entities client.EntityClient
	drafts   repository.DraftRepository
	events   events.Publisher
	logger   *logrus.Logger
}

func NewWizardService(entities client.EntityClient, drafts repository.DraftRepository, pub events.Publisher, logger *logrus.Logger) WizardService {
	return &WizardServiceImpl{entities: entities, drafts: drafts, events: pub, logger: logger}
}

func (s *WizardServiceImpl) ListCourses(ctx context.Context) ([]models.Course, error) {
	return s.entities.ListCourses(ctx)
}

// CreateSubject validates and creates the subject; any backend failure leaves
// nothing client-side to lose, the console re-presents the form as entered.
func (s *WizardServiceImpl) CreateSubject(ctx context.Context, ownerID string, input SubjectInput) (*SubjectResult, error) {
	nombre, cursos, err := validateSubjectInput(input)
	if err != nil {
		return nil, err
	}

	subject, err := s.entities.CreateSubject(ctx, nombre, cursos, []string{})
	if err != nil {
		return nil, fmt.Errorf("create subject: %w", err)
	}

	result := &SubjectResult{Subject: subject}
	if input.ManageModules {
		draft := &models.PendingDraft{
			SubjectID:     &subject.ID,
			Nombre:        subject.Nombre,
			IDCursos:      subject.IDCursos,
			ManageModules: true,
		}
		if err := s.drafts.Save(ctx, ownerID, draft); err != nil {
			if errors.Is(err, repository.ErrStoreUnavailable) {
				// non-fatal: session continues in memory, draft just won't survive a reload
				result.Warnings = append(result.Warnings, "el borrador no pudo guardarse; no sobrevivirá una recarga")
			} else {
				return nil, fmt.Errorf("save draft: %w", err)
			}
		}
	}

	s.events.Publish(ctx, events.Event{Type: events.SubjectCreated, OwnerID: ownerID, SubjectID: subject.ID})
	return result, nil
}

// UpdateSubject rewrites name and course associations of an existing subject,
// preserving its module list.
func (s *WizardServiceImpl) UpdateSubject(ctx context.Context, id string, input SubjectInput) (*SubjectResult, error) {
	nombre, cursos, err := validateSubjectInput(input)
	if err != nil {
		return nil, err
	}

	existing, err := s.entities.GetSubjectByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load subject: %w", err)
	}
	existing.Nombre = nombre
	existing.IDCursos = cursos
	if err := s.entities.UpdateSubject(ctx, existing); err != nil {
		return nil, fmt.Errorf("update subject: %w", err)
	}

	s.events.Publish(ctx, events.Event{Type: events.SubjectUpdated, SubjectID: id})
	return &SubjectResult{Subject: existing}, nil
}

// validateSubjectInput trims the name and rejects empty names and duplicate
// course associations before any network call.
func validateSubjectInput(input SubjectInput) (string, []string, error) {
	nombre := strings.TrimSpace(input.Nombre)
	if nombre == "" {
		return "", nil, NewValidationError(errors.New("subject name is required"),
			FieldError{Field: "nombre", Error: "el nombre no puede estar vacío"})
	}
	seen := make(map[string]bool, len(input.IDCursos))
	cursos := make([]string, 0, len(input.IDCursos))
	for _, id := range input.IDCursos {
		if id == "" {
			continue
		}
		if seen[id] {
			return "", nil, NewValidationError(errors.New("duplicate course association"),
				FieldError{Field: "id_cursos", Error: "el curso ya está asociado"})
		}
		seen[id] = true
		cursos = append(cursos, id)
	}
	return nombre, cursos, nil
}
