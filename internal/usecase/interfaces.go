package usecase

import (
	"context"
	"time"

	"identiscope/internal/domain"
	"identiscope/internal/infra/detached"
)

type VisitRepository interface {
	Insert(ctx context.Context, visit domain.VisitRecord) error
	CountByFullHash(ctx context.Context, hash string) (int64, error)
	CountByHardwareHash(ctx context.Context, hash string) (int64, error)
	CountAll(ctx context.Context) (int64, error)
}

type VisitEraser interface {
	DeleteByHash(ctx context.Context, column domain.HashColumn, value string) (int64, error)
}

type VisitAggregator interface {
	Aggregate(ctx context.Context) (domain.StatsSnapshot, error)
}

type DeletionRequestRepository interface {
	Create(ctx context.Context, req domain.DeletionRequest) (domain.DeletionRequest, error)
	FindPending(ctx context.Context, hashType domain.HashType, hashValue string) (*domain.DeletionRequest, error)
	GetByID(ctx context.Context, id string) (domain.DeletionRequest, error)
	ListPending(ctx context.Context, limit int) ([]domain.DeletionRequest, error)
	MarkCompleted(ctx context.Context, id string, at time.Time) error
	MarkRejected(ctx context.Context, id string, reason string, at time.Time) error
	RecordFailure(ctx context.Context, id string, retryCount int, cause string, at time.Time) error
}

type StatsCacheRepository interface {
	Get(ctx context.Context) (domain.StatsSnapshot, error)
	Upsert(ctx context.Context, snapshot domain.StatsSnapshot) error
}

// BackgroundRunner schedules work the caller never waits for.
type BackgroundRunner interface {
	Go(name string, task detached.Task)
}
