package service

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aulahub/console/client"
	"github.com/aulahub/console/events"
	"github.com/aulahub/console/models"
	"github.com/aulahub/console/repository"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeEntityClient is an in-memory backend that records every call it gets.
type fakeEntityClient struct {
	mu       sync.Mutex
	subjects map[string]*models.Subject
	modules  map[string]models.Module
	calls    []string
	nextID   int
	failOn   map[string]error
}

func newFakeEntityClient() *fakeEntityClient {
	return &fakeEntityClient{
		subjects: map[string]*models.Subject{},
		modules:  map[string]models.Module{},
		failOn:   map[string]error{},
	}
}

func (f *fakeEntityClient) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.failOn[call]
}

func (f *fakeEntityClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeEntityClient) mint(prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeEntityClient) CreateSubject(ctx context.Context, nombre string, idCursos, modulos []string) (*models.Subject, error) {
	if err := f.record("CreateSubject"); err != nil {
		return nil, err
	}
	s := &models.Subject{
		ID:       f.mint("mat"),
		Nombre:   nombre,
		IDCursos: append([]string{}, idCursos...),
		Modulos:  append([]string{}, modulos...),
	}
	f.mu.Lock()
	f.subjects[s.ID] = s
	f.mu.Unlock()
	return s, nil
}

func (f *fakeEntityClient) UpdateSubject(ctx context.Context, subject *models.Subject) error {
	if err := f.record("UpdateSubject"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subjects[subject.ID]; !ok {
		return client.ErrNotFound
	}
	copied := *subject
	f.subjects[subject.ID] = &copied
	return nil
}

func (f *fakeEntityClient) DeleteSubject(ctx context.Context, id string) error {
	if err := f.record("DeleteSubject"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subjects[id]; !ok {
		return client.ErrNotFound
	}
	delete(f.subjects, id)
	return nil
}

func (f *fakeEntityClient) GetSubjectByID(ctx context.Context, id string) (*models.Subject, error) {
	if err := f.record("GetSubjectByID"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subjects[id]
	if !ok {
		return nil, client.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeEntityClient) CreateModule(ctx context.Context, idMateria string, fields models.ModuleFields) (string, error) {
	if err := f.record("CreateModule"); err != nil {
		return "", err
	}
	id := f.mint("mod")
	f.mu.Lock()
	f.modules[id] = models.Module{
		ID:            id,
		Titulo:        fields.Titulo,
		Descripcion:   fields.Descripcion,
		IDMateria:     idMateria,
		TipoContenido: models.ContentTypePDF,
		Bibliografia:  fields.Bibliografia,
		URLMiniatura:  fields.URLMiniatura,
		URLArchivo:    fields.URLArchivo,
		URLVideo:      fields.URLVideo,
	}
	f.mu.Unlock()
	return id, nil
}

func (f *fakeEntityClient) UpdateModule(ctx context.Context, id, idMateria string, fields models.ModuleFields) error {
	if err := f.record("UpdateModule"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.modules[id]; !ok {
		return client.ErrNotFound
	}
	f.modules[id] = models.Module{
		ID:            id,
		Titulo:        fields.Titulo,
		Descripcion:   fields.Descripcion,
		IDMateria:     idMateria,
		TipoContenido: models.ContentTypePDF,
		Bibliografia:  fields.Bibliografia,
		URLMiniatura:  fields.URLMiniatura,
		URLArchivo:    fields.URLArchivo,
		URLVideo:      fields.URLVideo,
	}
	return nil
}

func (f *fakeEntityClient) DeleteModule(ctx context.Context, id string) error {
	if err := f.record("DeleteModule"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.modules[id]; !ok {
		return client.ErrNotFound
	}
	delete(f.modules, id)
	return nil
}

func (f *fakeEntityClient) GetModulesByIDs(ctx context.Context, ids []string) ([]models.Module, error) {
	if err := f.record("GetModulesByIDs"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var mods []models.Module
	for _, id := range ids {
		if m, ok := f.modules[id]; ok {
			mods = append(mods, m)
		}
	}
	return mods, nil
}

func (f *fakeEntityClient) ListCourses(ctx context.Context) ([]models.Course, error) {
	if err := f.record("ListCourses"); err != nil {
		return nil, err
	}
	return []models.Course{{ID: "c1", Nombre: "Primero A"}}, nil
}

// memDrafts is an in-memory DraftRepository for service tests.
type memDrafts struct {
	mu      sync.Mutex
	slots   map[string]models.PendingDraft
	saveErr error
}

func newMemDrafts() *memDrafts {
	return &memDrafts{slots: map[string]models.PendingDraft{}}
}

func (m *memDrafts) Save(ctx context.Context, ownerID string, draft *models.PendingDraft) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *draft
	copied.Modules = append([]models.DraftModule{}, draft.Modules...)
	m.slots[ownerID] = copied
	return nil
}

func (m *memDrafts) Load(ctx context.Context, ownerID string) (*models.PendingDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.slots[ownerID]
	if !ok {
		return nil, repository.ErrNoDraft
	}
	copied := d
	copied.Modules = append([]models.DraftModule{}, d.Modules...)
	return &copied, nil
}

func (m *memDrafts) Clear(ctx context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, ownerID)
	return nil
}

func (m *memDrafts) has(ownerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.slots[ownerID]
	return ok
}

// recordingPublisher captures emitted events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
