package db

import (
	"context"
	"errors"

	"identiscope/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const globalStatsID = "global"

type StatsCacheRepository struct {
	db *gorm.DB
}

func NewStatsCacheRepository(db *gorm.DB) *StatsCacheRepository {
	return &StatsCacheRepository{db: db}
}

// Get returns the cached counters row or domain.ErrNotFound.
func (r *StatsCacheRepository) Get(ctx context.Context) (domain.StatsSnapshot, error) {
	if r.db == nil {
		return domain.StatsSnapshot{}, errDBUnavailable
	}
	var model StatsCacheModel
	if err := r.db.WithContext(ctx).Where("id = ?", globalStatsID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.StatsSnapshot{}, domain.ErrNotFound
		}
		return domain.StatsSnapshot{}, err
	}
	return domain.StatsSnapshot{
		TotalFingerprints:  model.TotalFingerprints,
		UniqueFullHash:     model.UniqueFullHash,
		UniqueHardwareHash: model.UniqueHardwareHash,
		UpdatedAt:          model.UpdatedAt.UTC(),
	}, nil
}

func (r *StatsCacheRepository) Upsert(ctx context.Context, snapshot domain.StatsSnapshot) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := StatsCacheModel{
		ID:                 globalStatsID,
		TotalFingerprints:  snapshot.TotalFingerprints,
		UniqueFullHash:     snapshot.UniqueFullHash,
		UniqueHardwareHash: snapshot.UniqueHardwareHash,
		UpdatedAt:          snapshot.UpdatedAt.UTC(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_fingerprints", "unique_full_hash", "unique_hardware_hash", "updated_at"}),
	}).Create(&model).Error
}
