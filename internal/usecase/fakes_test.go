package usecase

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"identiscope/internal/domain"
	"identiscope/internal/infra/detached"
)

type fakeVisitRepo struct {
	mu sync.Mutex

	bronze int64
	gold   int64
	total  int64

	countErr  error
	insertErr error

	inserted []domain.VisitRecord

	// onInsert, when set, runs before the insert is recorded.
	onInsert func(ctx context.Context) error
	// onCount, when set, runs before each count returns.
	onCount func()
}

func (f *fakeVisitRepo) Insert(ctx context.Context, visit domain.VisitRecord) error {
	if f.onInsert != nil {
		if err := f.onInsert(ctx); err != nil {
			return err
		}
	}
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, visit)
	return nil
}

func (f *fakeVisitRepo) CountByFullHash(ctx context.Context, hash string) (int64, error) {
	return f.count(f.bronze)
}

func (f *fakeVisitRepo) CountByHardwareHash(ctx context.Context, hash string) (int64, error) {
	return f.count(f.gold)
}

func (f *fakeVisitRepo) CountAll(ctx context.Context) (int64, error) {
	return f.count(f.total)
}

func (f *fakeVisitRepo) count(n int64) (int64, error) {
	if f.onCount != nil {
		f.onCount()
	}
	if f.countErr != nil {
		return 0, f.countErr
	}
	return n, nil
}

func (f *fakeVisitRepo) insertedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted)
}

type fakeEraser struct {
	calls   []domain.HashColumn
	deleted int64
	err     error
}

func (f *fakeEraser) DeleteByHash(ctx context.Context, column domain.HashColumn, value string) (int64, error) {
	f.calls = append(f.calls, column)
	if f.err != nil {
		return 0, f.err
	}
	return f.deleted, nil
}

type fakeDeletionRepo struct {
	mu      sync.Mutex
	rows    map[string]domain.DeletionRequest
	nextID  int
	findErr error
	listErr error
}

func newFakeDeletionRepo() *fakeDeletionRepo {
	return &fakeDeletionRepo{rows: make(map[string]domain.DeletionRequest)}
}

func (f *fakeDeletionRepo) Create(ctx context.Context, req domain.DeletionRequest) (domain.DeletionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	req.ID = "req-" + strconv.Itoa(f.nextID)
	f.rows[req.ID] = req
	return req, nil
}

func (f *fakeDeletionRepo) FindPending(ctx context.Context, hashType domain.HashType, hashValue string) (*domain.DeletionRequest, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.HashType == hashType && row.HashValue == hashValue && row.Status == domain.DeletionStatusPending {
			out := row
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeDeletionRepo) GetByID(ctx context.Context, id string) (domain.DeletionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return domain.DeletionRequest{}, domain.ErrNotFound
	}
	return row, nil
}

func (f *fakeDeletionRepo) ListPending(ctx context.Context, limit int) ([]domain.DeletionRequest, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.DeletionRequest
	for _, row := range f.rows {
		if row.Status == domain.DeletionStatusPending {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeDeletionRepo) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	return f.mutate(id, func(row *domain.DeletionRequest) {
		row.Status = domain.DeletionStatusCompleted
		row.CompletedAt = &at
		row.LastAttemptAt = &at
	})
}

func (f *fakeDeletionRepo) MarkRejected(ctx context.Context, id string, reason string, at time.Time) error {
	return f.mutate(id, func(row *domain.DeletionRequest) {
		row.Status = domain.DeletionStatusRejected
		row.LastError = reason
		row.LastAttemptAt = &at
	})
}

func (f *fakeDeletionRepo) RecordFailure(ctx context.Context, id string, retryCount int, cause string, at time.Time) error {
	return f.mutate(id, func(row *domain.DeletionRequest) {
		row.RetryCount = retryCount
		row.LastError = cause
		row.LastAttemptAt = &at
		if retryCount >= domain.MaxDeletionRetries {
			row.Status = domain.DeletionStatusFailed
		}
	})
}

func (f *fakeDeletionRepo) mutate(id string, fn func(row *domain.DeletionRequest)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&row)
	f.rows[id] = row
	return nil
}

func (f *fakeDeletionRepo) put(req domain.DeletionRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[req.ID] = req
}

type fakeAggregator struct {
	snapshot domain.StatsSnapshot
	err      error
	calls    int
}

func (f *fakeAggregator) Aggregate(ctx context.Context) (domain.StatsSnapshot, error) {
	f.calls++
	return f.snapshot, f.err
}

type fakeStatsCache struct {
	row     *domain.StatsSnapshot
	getErr  error
	putErr  error
	upserts int
}

func (f *fakeStatsCache) Get(ctx context.Context) (domain.StatsSnapshot, error) {
	if f.getErr != nil {
		return domain.StatsSnapshot{}, f.getErr
	}
	if f.row == nil {
		return domain.StatsSnapshot{}, domain.ErrNotFound
	}
	return *f.row, nil
}

func (f *fakeStatsCache) Upsert(ctx context.Context, snapshot domain.StatsSnapshot) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.upserts++
	row := snapshot
	f.row = &row
	return nil
}

// inlineRunner runs background work synchronously and records task names.
type inlineRunner struct {
	names []string
	errs  []error
}

func (r *inlineRunner) Go(name string, task detached.Task) {
	r.names = append(r.names, name)
	r.errs = append(r.errs, task(context.Background()))
}
