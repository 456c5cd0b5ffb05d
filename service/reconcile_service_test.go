package service

import (
	"context"
	"testing"

	"github.com/aulahub/console/events"
	"github.com/aulahub/console/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reconcileFixture struct {
	entities *fakeEntityClient
	drafts   *memDrafts
	pub      *recordingPublisher
	svc      ReconcileService
}

func newReconcileFixture() *reconcileFixture {
	entities := newFakeEntityClient()
	drafts := newMemDrafts()
	pub := &recordingPublisher{}
	svc := NewReconcileService(entities, drafts, pub, testLogger())
	return &reconcileFixture{entities: entities, drafts: drafts, pub: pub, svc: svc}
}

func draftModule(id, titulo string) models.DraftModule {
	return models.DraftModule{
		ID: models.ParseModuleID(id),
		Fields: models.ModuleFields{
			Titulo:     titulo,
			URLArchivo: []string{"https://cdn/" + titulo + ".pdf"},
		},
	}
}

func TestResolveManagingExisting(t *testing.T) {
	fx := newReconcileFixture()
	ctx := context.Background()
	modID, err := fx.entities.CreateModule(ctx, "", models.ModuleFields{Titulo: "Unidad 1"})
	require.NoError(t, err)
	subject, err := fx.entities.CreateSubject(ctx, "Álgebra", []string{"c1"}, []string{modID})
	require.NoError(t, err)

	wc, err := fx.svc.Resolve(ctx, "user-1", subject.ID)
	require.NoError(t, err)
	assert.Equal(t, StateManagingExisting, wc.State)
	require.NotNil(t, wc.Subject)
	assert.Equal(t, subject.ID, wc.Subject.ID)
	require.Len(t, wc.Modules, 1)
	assert.Equal(t, "Unidad 1", wc.Modules[0].Titulo)
	assert.Nil(t, wc.Draft)
}

func TestResolveManagingDraft(t *testing.T) {
	fx := newReconcileFixture()
	ctx := context.Background()
	draft := &models.PendingDraft{Nombre: "Borrador", Modules: []models.DraftModule{draftModule("temp-1", "Uno")}}
	require.NoError(t, fx.drafts.Save(ctx, "user-1", draft))

	wc, err := fx.svc.Resolve(ctx, "user-1", "")
	require.NoError(t, err)
	assert.Equal(t, StateManagingDraft, wc.State)
	require.NotNil(t, wc.Draft)
	assert.Equal(t, "Borrador", wc.Draft.Nombre)
}

func TestResolveNoContext(t *testing.T) {
	fx := newReconcileFixture()
	wc, err := fx.svc.Resolve(context.Background(), "user-1", "")
	require.NoError(t, err)
	assert.Equal(t, StateNoContext, wc.State)
	assert.Nil(t, wc.Subject)
	assert.Nil(t, wc.Draft)
}

func TestFinishWithoutDraft(t *testing.T) {
	fx := newReconcileFixture()
	_, err := fx.svc.Finish(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNoContext)
}

func TestFinishRejectsEmptyDraftBeforeNetwork(t *testing.T) {
	fx := newReconcileFixture()
	ctx := context.Background()
	require.NoError(t, fx.drafts.Save(ctx, "user-1", &models.PendingDraft{Nombre: "Vacía"}))

	_, err := fx.svc.Finish(ctx, "user-1")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, ErrNoModules)
	assert.Equal(t, "modulos", verr.Fields[0].Field)
	assert.Zero(t, fx.entities.callCount())
	assert.True(t, fx.drafts.has("user-1"), "a rejected finish must not discard the draft")
}

func TestFinishFreshSubject(t *testing.T) {
	fx := newReconcileFixture()
	ctx := context.Background()
	draft := &models.PendingDraft{
		Nombre:   "Química",
		IDCursos: []string{"c1"},
		Modules: []models.DraftModule{
			draftModule("temp-1", "Uno"),
			draftModule("temp-2", "Dos"),
		},
	}
	require.NoError(t, fx.drafts.Save(ctx, "user-1", draft))

	res, err := fx.svc.Finish(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Química", res.Subject.Nombre)
	require.Len(t, res.Subject.Modulos, 2)
	assert.Empty(t, res.Warnings)

	// placeholders were replaced with backend ids
	mods, err := fx.entities.GetModulesByIDs(ctx, res.Subject.Modulos)
	require.NoError(t, err)
	require.Len(t, mods, 2)
	assert.Equal(t, "Uno", mods[0].Titulo)
	assert.Equal(t, "Dos", mods[1].Titulo)
	// the repair pass pointed them at the fresh subject
	for _, m := range mods {
		assert.Equal(t, res.Subject.ID, m.IDMateria)
	}

	assert.False(t, fx.drafts.has("user-1"))
	assert.Contains(t, fx.pub.types(), events.SubjectFinalized)
}

func TestFinishConfirmedSubject(t *testing.T) {
	fx := newReconcileFixture()
	ctx := context.Background()
	subject, err := fx.entities.CreateSubject(ctx, "Historia", []string{"c1"}, nil)
	require.NoError(t, err)
	draft := &models.PendingDraft{
		SubjectID: &subject.ID,
		Nombre:    "Historia",
		IDCursos:  []string{"c1"},
		Modules:   []models.DraftModule{draftModule("temp-1", "Uno")},
	}
	require.NoError(t, fx.drafts.Save(ctx, "user-1", draft))

	res, err := fx.svc.Finish(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, subject.ID, res.Subject.ID)
	require.Len(t, res.Subject.Modulos, 1)

	updated, err := fx.entities.GetSubjectByID(ctx, subject.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Subject.Modulos, updated.Modulos)
	assert.False(t, fx.drafts.has("user-1"))
}

func TestFinishKeepsAlreadyPersistedModules(t *testing.T) {
	fx := newReconcileFixture()
	ctx := context.Background()
	subject, err := fx.entities.CreateSubject(ctx, "Historia", nil, nil)
	require.NoError(t, err)
	existingID, err := fx.entities.CreateModule(ctx, subject.ID, models.ModuleFields{Titulo: "Ya creado"})
	require.NoError(t, err)

	draft := &models.PendingDraft{
		SubjectID: &subject.ID,
		Nombre:    "Historia",
		Modules: []models.DraftModule{
			{ID: models.PersistedID(existingID), Fields: models.ModuleFields{Titulo: "Ya creado"}},
			draftModule("temp-1", "Nuevo"),
		},
	}
	require.NoError(t, fx.drafts.Save(ctx, "user-1", draft))
	before := len(fx.entities.modules)

	res, err := fx.svc.Finish(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, res.Subject.Modulos, 2)
	assert.Equal(t, existingID, res.Subject.Modulos[0])
	// only the placeholder produced a backend create
	assert.Len(t, fx.entities.modules, before+1)
}

func TestFinishResumesAfterMidwayFailure(t *testing.T) {
	fx := newReconcileFixture()
	ctx := context.Background()
	draft := &models.PendingDraft{
		Nombre: "Química",
		Modules: []models.DraftModule{
			draftModule("temp-1", "Uno"),
			draftModule("temp-2", "Dos"),
		},
	}
	require.NoError(t, fx.drafts.Save(ctx, "user-1", draft))

	// the subject create fails after both modules were created
	fx.entities.failOn["CreateSubject"] = assert.AnError
	_, err := fx.svc.Finish(ctx, "user-1")
	require.Error(t, err)

	// progress was mirrored: both draft modules now carry persisted ids
	saved, err := fx.drafts.Load(ctx, "user-1")
	require.NoError(t, err)
	for _, m := range saved.Modules {
		assert.False(t, m.ID.IsPlaceholder())
	}

	// retry succeeds without duplicating modules
	delete(fx.entities.failOn, "CreateSubject")
	created := len(fx.entities.modules)
	res, err := fx.svc.Finish(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, fx.entities.modules, created)
	assert.Len(t, res.Subject.Modulos, 2)
}

func TestCancelDeletesOrphanSubject(t *testing.T) {
	fx := newReconcileFixture()
	ctx := context.Background()
	subject, err := fx.entities.CreateSubject(ctx, "Abandonada", []string{"c1"}, nil)
	require.NoError(t, err)
	draft := &models.PendingDraft{SubjectID: &subject.ID, Nombre: "Abandonada"}
	require.NoError(t, fx.drafts.Save(ctx, "user-1", draft))

	res, err := fx.svc.Cancel(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, subject.ID, res.DeletedSubjectID)
	assert.Empty(t, res.Warnings)

	_, err = fx.entities.GetSubjectByID(ctx, subject.ID)
	assert.Error(t, err)
	assert.False(t, fx.drafts.has("user-1"))
	assert.Contains(t, fx.pub.types(), events.DraftCancelled)
}

func TestCancelWithoutConfirmedSubject(t *testing.T) {
	fx := newReconcileFixture()
	ctx := context.Background()
	draft := &models.PendingDraft{Nombre: "Local", Modules: []models.DraftModule{draftModule("temp-1", "Uno")}}
	require.NoError(t, fx.drafts.Save(ctx, "user-1", draft))

	res, err := fx.svc.Cancel(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, res.DeletedSubjectID)
	assert.False(t, fx.drafts.has("user-1"))
	// no delete call went out
	for _, call := range fx.entities.calls {
		assert.NotEqual(t, "DeleteSubject", call)
	}
}

func TestCancelSurvivesFailedOrphanDelete(t *testing.T) {
	fx := newReconcileFixture()
	ctx := context.Background()
	subject, err := fx.entities.CreateSubject(ctx, "Abandonada", nil, nil)
	require.NoError(t, err)
	draft := &models.PendingDraft{SubjectID: &subject.ID, Nombre: "Abandonada"}
	require.NoError(t, fx.drafts.Save(ctx, "user-1", draft))

	fx.entities.failOn["DeleteSubject"] = assert.AnError
	res, err := fx.svc.Cancel(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, res.DeletedSubjectID)
	require.Len(t, res.Warnings, 1)
	assert.False(t, fx.drafts.has("user-1"))
}

func TestCancelWithNothingPending(t *testing.T) {
	fx := newReconcileFixture()
	res, err := fx.svc.Cancel(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, res.DeletedSubjectID)
	assert.Empty(t, res.Warnings)
}

func TestSaveDraftOverwrites(t *testing.T) {
	fx := newReconcileFixture()
	ctx := context.Background()
	require.NoError(t, fx.drafts.Save(ctx, "user-1", &models.PendingDraft{Nombre: "Vieja"}))

	warnings, err := fx.svc.SaveDraft(ctx, "user-1", &models.PendingDraft{Nombre: "Nueva"})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	saved, err := fx.drafts.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Nueva", saved.Nombre)
}

func TestActionGuardBlocksConcurrentFinish(t *testing.T) {
	var g actionGuard
	require.True(t, g.begin("user-1:finish"))
	assert.False(t, g.begin("user-1:finish"))
	// a different action or owner is unaffected
	assert.True(t, g.begin("user-1:cancel"))
	assert.True(t, g.begin("user-2:finish"))
	g.end("user-1:finish")
	assert.True(t, g.begin("user-1:finish"))
}
