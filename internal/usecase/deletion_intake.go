package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"identiscope/internal/domain"
	"identiscope/internal/observability/logging"
)

// DeletionSLA is returned with every intake receipt.
const DeletionSLA = "processed within 30 days, usually within the hour"

type DeletionIntake struct {
	Requests DeletionRequestRepository
	Now      func() time.Time
	Logger   *slog.Logger
}

func NewDeletionIntake(requests DeletionRequestRepository, logger *slog.Logger) *DeletionIntake {
	return &DeletionIntake{
		Requests: requests,
		Now:      time.Now,
		Logger:   logging.OrDefault(logger),
	}
}

type DeletionSubmission struct {
	HashType  string `json:"hash_type" validate:"required,oneof=hardware software full"`
	HashValue string `json:"hash_value" validate:"required,len=64,hexadecimal"`
	Email     string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Reason    string `json:"reason,omitempty" validate:"omitempty,max=1000"`
}

type DeletionReceipt struct {
	Request   domain.DeletionRequest
	Duplicate bool
	SLA       string
}

// Submit queues an erasure request. A pending request for the same target is
// returned as-is with Duplicate set instead of inserting a second row. The
// submission is expected to have passed the input gate already.
func (s *DeletionIntake) Submit(ctx context.Context, sub DeletionSubmission) (DeletionReceipt, error) {
	if s == nil || s.Requests == nil {
		return DeletionReceipt{}, fmt.Errorf("%w: deletion repository is required", domain.ErrStorage)
	}
	hashType := domain.HashType(sub.HashType)
	if _, err := domain.ColumnFor(hashType); err != nil {
		return DeletionReceipt{}, domain.NewValidationError("hash_type", "oneof", "must be one of hardware, software, full")
	}
	hashValue := strings.ToLower(strings.TrimSpace(sub.HashValue))
	if !isHexDigest(hashValue) {
		return DeletionReceipt{}, domain.NewValidationError("hash_value", "hexadecimal", "must be a 64 character hex digest")
	}
	logger := logging.OrDefault(s.Logger)

	existing, err := s.Requests.FindPending(ctx, hashType, hashValue)
	if err != nil {
		logger.Error("deletion lookup failed", "hash_type", hashType, "err", err)
		return DeletionReceipt{}, fmt.Errorf("%w: find pending deletion: %w", domain.ErrStorage, err)
	}
	if existing != nil {
		return DeletionReceipt{Request: *existing, Duplicate: true, SLA: DeletionSLA}, nil
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	created, err := s.Requests.Create(ctx, domain.DeletionRequest{
		HashType:  hashType,
		HashValue: hashValue,
		Email:     strings.TrimSpace(sub.Email),
		Reason:    strings.TrimSpace(sub.Reason),
		Status:    domain.DeletionStatusPending,
		CreatedAt: now().UTC(),
	})
	if err != nil {
		logger.Error("deletion insert failed", "hash_type", hashType, "err", err)
		return DeletionReceipt{}, fmt.Errorf("%w: create deletion: %w", domain.ErrStorage, err)
	}
	logger.Info("deletion request queued", "request_id", created.ID, "hash_type", hashType)
	return DeletionReceipt{Request: created, SLA: DeletionSLA}, nil
}

// Status returns the lifecycle record or domain.ErrNotFound.
func (s *DeletionIntake) Status(ctx context.Context, id string) (domain.DeletionRequest, error) {
	if s == nil || s.Requests == nil {
		return domain.DeletionRequest{}, fmt.Errorf("%w: deletion repository is required", domain.ErrStorage)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.DeletionRequest{}, domain.ErrNotFound
	}
	req, err := s.Requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.DeletionRequest{}, domain.ErrNotFound
		}
		return domain.DeletionRequest{}, fmt.Errorf("%w: get deletion: %w", domain.ErrStorage, err)
	}
	return req, nil
}

func isHexDigest(value string) bool {
	if len(value) != 64 {
		return false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
