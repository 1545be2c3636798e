package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"identiscope/internal/domain"

	"gorm.io/gorm"
)

type VisitRepository struct {
	db *gorm.DB
}

func NewVisitRepository(db *gorm.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

func (r *VisitRepository) Insert(ctx context.Context, visit domain.VisitRecord) error {
	if r.db == nil {
		return errDBUnavailable
	}
	if visit.Hashes.Gold == "" || visit.Hashes.Silver == "" || visit.Hashes.Bronze == "" {
		return errors.New("all three lock hashes are required")
	}
	id := visit.ID
	if id == "" {
		id = NewUUID()
	}
	createdAt := visit.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	model := VisitModel{
		ID:             id,
		CreatedAt:      createdAt.UTC(),
		HardwareHash:   visit.Hashes.Gold,
		SoftwareHash:   visit.Hashes.Silver,
		FullHash:       visit.Hashes.Bronze,
		MetaBrowser:    visit.Meta.Browser,
		MetaOS:         visit.Meta.OS,
		MetaDeviceType: visit.Meta.DeviceType,
		MetaCountry:    visit.Meta.Country,
		MetaScreen:     visit.Meta.Screen,
		MetaGPUVendor:  visit.Meta.GPUVendor,
		RawJSON:        copyBytes(visit.RawJSON),
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *VisitRepository) CountByFullHash(ctx context.Context, hash string) (int64, error) {
	return r.countWhere(ctx, "full_hash = ?", hash)
}

func (r *VisitRepository) CountByHardwareHash(ctx context.Context, hash string) (int64, error) {
	return r.countWhere(ctx, "hardware_hash = ?", hash)
}

func (r *VisitRepository) CountAll(ctx context.Context) (int64, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&VisitModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *VisitRepository) countWhere(ctx context.Context, query string, hash string) (int64, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&VisitModel{}).Where(query, hash).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteByHash removes every visit whose lock column matches value and
// returns the number of rows removed. Each column has its own fixed query.
func (r *VisitRepository) DeleteByHash(ctx context.Context, column domain.HashColumn, value string) (int64, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	if value == "" {
		return 0, errors.New("hash value is required")
	}
	var query string
	switch column {
	case domain.HashColumnGold:
		query = "hardware_hash = ?"
	case domain.HashColumnSilver:
		query = "software_hash = ?"
	case domain.HashColumnBronze:
		query = "full_hash = ?"
	default:
		return 0, fmt.Errorf("%w: column %d", domain.ErrUnknownHashType, column)
	}
	res := r.db.WithContext(ctx).Where(query, value).Delete(&VisitModel{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

type aggregateRow struct {
	Total            int64
	DistinctFull     int64
	DistinctHardware int64
}

// Aggregate computes the global counters in one scan.
func (r *VisitRepository) Aggregate(ctx context.Context) (domain.StatsSnapshot, error) {
	if r.db == nil {
		return domain.StatsSnapshot{}, errDBUnavailable
	}
	var row aggregateRow
	if err := r.db.WithContext(ctx).
		Model(&VisitModel{}).
		Select("COUNT(*) AS total, COUNT(DISTINCT full_hash) AS distinct_full, COUNT(DISTINCT hardware_hash) AS distinct_hardware").
		Scan(&row).Error; err != nil {
		return domain.StatsSnapshot{}, err
	}
	return domain.StatsSnapshot{
		TotalFingerprints:  row.Total,
		UniqueFullHash:     row.DistinctFull,
		UniqueHardwareHash: row.DistinctHardware,
	}, nil
}
