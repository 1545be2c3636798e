package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"identiscope/internal/domain"
	"identiscope/internal/observability/logging"
	"identiscope/internal/observability/metrics"
)

const DefaultDeletionBatchSize = 50

type DeletionProcessor struct {
	Requests  DeletionRequestRepository
	Visits    VisitEraser
	BatchSize int
	Now       func() time.Time
	Logger    *slog.Logger
}

func NewDeletionProcessor(requests DeletionRequestRepository, visits VisitEraser, batchSize int, logger *slog.Logger) *DeletionProcessor {
	if batchSize <= 0 {
		batchSize = DefaultDeletionBatchSize
	}
	return &DeletionProcessor{
		Requests:  requests,
		Visits:    visits,
		BatchSize: batchSize,
		Now:       time.Now,
		Logger:    logging.OrDefault(logger),
	}
}

type DeletionRunSummary struct {
	Examined    int
	Completed   int
	Rejected    int
	Retried     int
	Failed      int
	RowsDeleted int64
}

// Run processes one batch of pending requests, oldest first. A failed delete
// is recorded on the request and retried on a later run; it is never retried
// within the same run.
func (p *DeletionProcessor) Run(ctx context.Context) (DeletionRunSummary, error) {
	var summary DeletionRunSummary
	if p == nil || p.Requests == nil || p.Visits == nil {
		return summary, errors.New("deletion processor is not configured")
	}
	batch := p.BatchSize
	if batch <= 0 {
		batch = DefaultDeletionBatchSize
	}
	logger := logging.OrDefault(p.Logger)

	pending, err := p.Requests.ListPending(ctx, batch)
	if err != nil {
		return summary, fmt.Errorf("list pending deletions: %w", err)
	}

	for _, req := range pending {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Examined++
		p.process(ctx, logger, req, &summary)
	}

	if summary.Examined > 0 {
		logger.Info("deletion run finished",
			"examined", summary.Examined,
			"completed", summary.Completed,
			"rejected", summary.Rejected,
			"retried", summary.Retried,
			"failed", summary.Failed,
			"rows_deleted", summary.RowsDeleted,
		)
	}
	return summary, nil
}

func (p *DeletionProcessor) process(ctx context.Context, logger *slog.Logger, req domain.DeletionRequest, summary *DeletionRunSummary) {
	now := p.now()

	column, err := domain.ColumnFor(req.HashType)
	if err != nil {
		summary.Rejected++
		metrics.DeletionRequestsProcessedTotal.WithLabelValues(string(domain.DeletionStatusRejected)).Inc()
		cause := fmt.Sprintf("%s: %q", domain.ErrUnknownHashType, req.HashType)
		if markErr := p.Requests.MarkRejected(ctx, req.ID, cause, now); markErr != nil {
			logger.Error("mark deletion rejected failed", "request_id", req.ID, "err", markErr)
		}
		return
	}

	deleted, err := p.Visits.DeleteByHash(ctx, column, req.HashValue)
	if err != nil {
		retries := req.RetryCount + 1
		status := domain.DeletionStatusPending
		if retries >= domain.MaxDeletionRetries {
			status = domain.DeletionStatusFailed
			summary.Failed++
		} else {
			summary.Retried++
		}
		metrics.DeletionRequestsProcessedTotal.WithLabelValues(string(status)).Inc()
		logger.Warn("deletion attempt failed",
			"request_id", req.ID,
			"retry_count", retries,
			"status", status,
			"err", err,
		)
		if recErr := p.Requests.RecordFailure(ctx, req.ID, retries, err.Error(), now); recErr != nil {
			logger.Error("record deletion failure failed", "request_id", req.ID, "err", recErr)
		}
		return
	}

	summary.RowsDeleted += deleted
	metrics.DeletedVisitsTotal.Add(float64(deleted))
	if err := p.Requests.MarkCompleted(ctx, req.ID, now); err != nil {
		// Rows are already gone; the next run repeats a no-op delete.
		logger.Error("mark deletion completed failed", "request_id", req.ID, "err", err)
		return
	}
	summary.Completed++
	metrics.DeletionRequestsProcessedTotal.WithLabelValues(string(domain.DeletionStatusCompleted)).Inc()
}

func (p *DeletionProcessor) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}
