package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sandwich-learn/sandwich-api/internal/models"
)

// WellbeingRepository persists checkpoint counters and submitted
// check-ins.
type WellbeingRepository interface {
	GetCheckpoint(ctx context.Context, sessionRef string) (models.WellbeingCheckpoint, error)
	SaveCheckpoint(ctx context.Context, checkpoint *models.WellbeingCheckpoint) error
	IncrementCount(ctx context.Context, sessionRef string) (models.WellbeingCheckpoint, error)
	RecordCheckIn(ctx context.Context, checkIn *models.WellbeingCheckIn) error
}

type wellbeingRepository struct {
	db *gorm.DB
}

// NewWellbeingRepository constructs a repository backed by GORM.
func NewWellbeingRepository(db *gorm.DB) WellbeingRepository {
	return &wellbeingRepository{db: db}
}

func (r *wellbeingRepository) GetCheckpoint(ctx context.Context, sessionRef string) (models.WellbeingCheckpoint, error) {
	var checkpoint models.WellbeingCheckpoint
	err := r.db.WithContext(ctx).Where("session_ref = ?", sessionRef).First(&checkpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.WellbeingCheckpoint{SessionRef: sessionRef}, nil
	}
	if err != nil {
		return models.WellbeingCheckpoint{}, err
	}
	return checkpoint, nil
}

func (r *wellbeingRepository) SaveCheckpoint(ctx context.Context, checkpoint *models.WellbeingCheckpoint) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_ref"}},
			UpdateAll: true,
		}).
		Create(checkpoint).
		Error
}

func (r *wellbeingRepository) IncrementCount(ctx context.Context, sessionRef string) (models.WellbeingCheckpoint, error) {
	checkpoint, err := r.GetCheckpoint(ctx, sessionRef)
	if err != nil {
		return models.WellbeingCheckpoint{}, err
	}

	checkpoint.CheckpointCount++
	if err := r.SaveCheckpoint(ctx, &checkpoint); err != nil {
		return models.WellbeingCheckpoint{}, err
	}
	return checkpoint, nil
}

func (r *wellbeingRepository) RecordCheckIn(ctx context.Context, checkIn *models.WellbeingCheckIn) error {
	return r.db.WithContext(ctx).Create(checkIn).Error
}
