package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aulahub/console/models"
	"github.com/aulahub/console/pkg/metrics"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNoDraft means the owner has no pending draft.
	ErrNoDraft = errors.New("no pending draft")
	// ErrStoreUnavailable means the draft could not be persisted even after
	// purging stale slots. Callers keep working with their in-memory copy.
	ErrStoreUnavailable = errors.New("draft store unavailable")
)

// staleAfter is how long an untouched draft slot survives before a failing
// save is allowed to purge it to make room.
const staleAfter = 30 * 24 * time.Hour

// WizardDraft is the single-slot draft row, one per owner.
type WizardDraft struct {
	OwnerID   string         `gorm:"type:varchar(255);primaryKey"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (WizardDraft) TableName() string {
	return "wizard_drafts"
}

type DraftRepository interface {
	Save(ctx context.Context, ownerID string, draft *models.PendingDraft) error
	Load(ctx context.Context, ownerID string) (*models.PendingDraft, error)
	Clear(ctx context.Context, ownerID string) error
}

type DraftRepositoryImpl struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewDraftRepository(db *gorm.DB, logger *logrus.Logger) DraftRepository {
	return &DraftRepositoryImpl{db: db, logger: logger}
}

// Save upserts the owner's slot; a new wizard session overwrites whatever was
// there, no merge. On a storage failure it purges stale slots and retries
// once, then reports ErrStoreUnavailable so the caller can carry on in memory.
func (r *DraftRepositoryImpl) Save(ctx context.Context, ownerID string, draft *models.PendingDraft) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	row := &WizardDraft{OwnerID: ownerID, Payload: payload, UpdatedAt: time.Now()}

	if err := r.upsert(ctx, row); err != nil {
		r.logger.WithError(err).Warn("draft save failed, purging stale slots and retrying")
		r.purgeStale(ctx)
		if err := r.upsert(ctx, row); err != nil {
			metrics.RecordDraftOp("save", "unavailable")
			r.logger.WithError(err).Error("draft save retry failed")
			return ErrStoreUnavailable
		}
	}
	metrics.RecordDraftOp("save", "ok")
	return nil
}

// Load returns ErrNoDraft for both a missing slot and an unreadable payload;
// a corrupt slot must never wedge the wizard.
func (r *DraftRepositoryImpl) Load(ctx context.Context, ownerID string) (*models.PendingDraft, error) {
	var row WizardDraft
	err := r.db.WithContext(ctx).First(&row, "owner_id = ?", ownerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoDraft
		}
		return nil, err
	}
	var draft models.PendingDraft
	if err := json.Unmarshal(row.Payload, &draft); err != nil {
		r.logger.WithError(err).WithField("owner_id", ownerID).Warn("malformed draft payload, treating as absent")
		metrics.RecordDraftOp("load", "malformed")
		return nil, ErrNoDraft
	}
	metrics.RecordDraftOp("load", "ok")
	return &draft, nil
}

func (r *DraftRepositoryImpl) Clear(ctx context.Context, ownerID string) error {
	err := r.db.WithContext(ctx).Delete(&WizardDraft{}, "owner_id = ?", ownerID).Error
	if err != nil {
		metrics.RecordDraftOp("clear", "error")
		return err
	}
	metrics.RecordDraftOp("clear", "ok")
	return nil
}

func (r *DraftRepositoryImpl) upsert(ctx context.Context, row *WizardDraft) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(row).Error
}

func (r *DraftRepositoryImpl) purgeStale(ctx context.Context) {
	cutoff := time.Now().Add(-staleAfter)
	if err := r.db.WithContext(ctx).Delete(&WizardDraft{}, "updated_at < ?", cutoff).Error; err != nil {
		r.logger.WithError(err).Warn("stale draft purge failed")
	}
}
