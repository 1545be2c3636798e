package db

import (
	"context"
	"errors"
	"time"

	"identiscope/internal/domain"

	"gorm.io/gorm"
)

type DeletionRequestRepository struct {
	db *gorm.DB
}

func NewDeletionRequestRepository(db *gorm.DB) *DeletionRequestRepository {
	return &DeletionRequestRepository{db: db}
}

func (r *DeletionRequestRepository) Create(ctx context.Context, req domain.DeletionRequest) (domain.DeletionRequest, error) {
	if r.db == nil {
		return domain.DeletionRequest{}, errDBUnavailable
	}
	if req.HashType == "" || req.HashValue == "" {
		return domain.DeletionRequest{}, errors.New("hash_type and hash_value are required")
	}
	if req.ID == "" {
		req.ID = NewUUID()
	}
	if req.Status == "" {
		req.Status = domain.DeletionStatusPending
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	req.CreatedAt = req.CreatedAt.UTC()
	model := DeletionRequestModel{
		ID:         req.ID,
		HashType:   string(req.HashType),
		HashValue:  req.HashValue,
		Email:      stringPtrIfNotEmpty(req.Email),
		Reason:     stringPtrIfNotEmpty(req.Reason),
		Status:     string(req.Status),
		CreatedAt:  req.CreatedAt,
		RetryCount: req.RetryCount,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.DeletionRequest{}, err
	}
	return deletionFromModel(model), nil
}

// FindPending returns the oldest pending request for the target, if any.
func (r *DeletionRequestRepository) FindPending(ctx context.Context, hashType domain.HashType, hashValue string) (*domain.DeletionRequest, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model DeletionRequestModel
	err := r.db.WithContext(ctx).
		Where("hash_type = ? AND hash_value = ? AND status = ?", string(hashType), hashValue, string(domain.DeletionStatusPending)).
		Order("created_at ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := deletionFromModel(model)
	return &out, nil
}

func (r *DeletionRequestRepository) GetByID(ctx context.Context, id string) (domain.DeletionRequest, error) {
	if r.db == nil {
		return domain.DeletionRequest{}, errDBUnavailable
	}
	if id == "" {
		return domain.DeletionRequest{}, domain.ErrNotFound
	}
	var model DeletionRequestModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.DeletionRequest{}, domain.ErrNotFound
		}
		return domain.DeletionRequest{}, err
	}
	return deletionFromModel(model), nil
}

// ListPending returns up to limit pending requests, oldest first.
func (r *DeletionRequestRepository) ListPending(ctx context.Context, limit int) ([]domain.DeletionRequest, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if limit <= 0 {
		limit = 50
	}
	var models []DeletionRequestModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(domain.DeletionStatusPending)).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.DeletionRequest, 0, len(models))
	for _, model := range models {
		out = append(out, deletionFromModel(model))
	}
	return out, nil
}

func (r *DeletionRequestRepository) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"status":          string(domain.DeletionStatusCompleted),
		"completed_at":    at.UTC(),
		"last_attempt_at": at.UTC(),
	})
}

func (r *DeletionRequestRepository) MarkRejected(ctx context.Context, id string, reason string, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"status":          string(domain.DeletionStatusRejected),
		"last_error":      reason,
		"last_attempt_at": at.UTC(),
	})
}

// RecordFailure stores the attempt outcome. The status becomes failed once
// retryCount reaches domain.MaxDeletionRetries.
func (r *DeletionRequestRepository) RecordFailure(ctx context.Context, id string, retryCount int, cause string, at time.Time) error {
	status := domain.DeletionStatusPending
	if retryCount >= domain.MaxDeletionRetries {
		status = domain.DeletionStatusFailed
	}
	return r.update(ctx, id, map[string]any{
		"status":          string(status),
		"retry_count":     retryCount,
		"last_error":      cause,
		"last_attempt_at": at.UTC(),
	})
}

func (r *DeletionRequestRepository) update(ctx context.Context, id string, fields map[string]any) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).Model(&DeletionRequestModel{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func deletionFromModel(model DeletionRequestModel) domain.DeletionRequest {
	return domain.DeletionRequest{
		ID:            model.ID,
		HashType:      domain.HashType(model.HashType),
		HashValue:     model.HashValue,
		Email:         stringValue(model.Email),
		Reason:        stringValue(model.Reason),
		Status:        domain.DeletionStatus(model.Status),
		CreatedAt:     model.CreatedAt.UTC(),
		CompletedAt:   model.CompletedAt,
		RetryCount:    model.RetryCount,
		LastError:     stringValue(model.LastError),
		LastAttemptAt: model.LastAttemptAt,
	}
}
