package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"identiscope/internal/domain"
	"identiscope/internal/infra/locks"
	"identiscope/internal/observability/logging"
	"identiscope/internal/observability/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type AnalyzeFingerprint struct {
	Visits VisitRepository
	Now    func() time.Time
	NewID  func() string
	Logger *slog.Logger
}

func NewAnalyzeFingerprint(visits VisitRepository, logger *slog.Logger) *AnalyzeFingerprint {
	return &AnalyzeFingerprint{
		Visits: visits,
		Now:    time.Now,
		NewID:  uuid.NewString,
		Logger: logging.OrDefault(logger),
	}
}

type AnalyzeResult struct {
	ID              string
	Timestamp       time.Time
	ProcessingTime  time.Duration
	Hashes          domain.ThreeLockHashes
	IsUnique        bool
	UniquenessRatio float64
	ExactMatches    int64
	HardwareMatches int64
	TotalSeen       int64
	Risk            domain.TrackingRisk
	Message         string
	CrossBrowser    bool
	Details         map[string]json.RawMessage
	Lies            map[string]bool
	LieCount        int
}

// UniquenessDisplay renders the ratio as "1 in N (P%)".
func (r AnalyzeResult) UniquenessDisplay() string {
	pct := strconv.FormatFloat(math.Round(r.UniquenessRatio*10000)/100, 'f', -1, 64)
	return "1 in " + strconv.FormatInt(r.ExactMatches, 10) + " (" + pct + "%)"
}

type priorCounts struct {
	bronze int64
	gold   int64
	total  int64
}

// Execute hashes the snapshot, runs the three prior counts and the visit
// insert concurrently and classifies the result. The counts are taken without
// any lock held against the insert; two simultaneous identical submissions may
// both be reported unique.
func (uc *AnalyzeFingerprint) Execute(ctx context.Context, fp domain.FingerprintSnapshot, net domain.NetworkSnapshot) (AnalyzeResult, error) {
	if uc == nil || uc.Visits == nil {
		return AnalyzeResult{}, fmt.Errorf("%w: visit repository is required", domain.ErrStorage)
	}
	now := time.Now
	if uc.Now != nil {
		now = uc.Now
	}
	newID := uuid.NewString
	if uc.NewID != nil {
		newID = uc.NewID
	}
	logger := logging.OrDefault(uc.Logger)
	started := now()

	hashes := locks.Compute(fp, net)
	details, raw, err := MergeSnapshot(fp, net)
	if err != nil {
		return AnalyzeResult{}, fmt.Errorf("merge snapshot: %w", err)
	}
	visit := domain.VisitRecord{
		ID:        newID(),
		CreatedAt: started.UTC(),
		Hashes:    hashes,
		Meta:      DeriveVisitMeta(fp, net),
		RawJSON:   raw,
	}

	var prior priorCounts
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := uc.Visits.CountByFullHash(gctx, hashes.Bronze)
		if err != nil {
			return fmt.Errorf("count by full hash: %w", err)
		}
		prior.bronze = n
		return nil
	})
	g.Go(func() error {
		n, err := uc.Visits.CountByHardwareHash(gctx, hashes.Gold)
		if err != nil {
			return fmt.Errorf("count by hardware hash: %w", err)
		}
		prior.gold = n
		return nil
	})
	g.Go(func() error {
		n, err := uc.Visits.CountAll(gctx)
		if err != nil {
			return fmt.Errorf("count all: %w", err)
		}
		prior.total = n
		return nil
	})
	g.Go(func() error {
		if err := uc.Visits.Insert(gctx, visit); err != nil {
			return fmt.Errorf("insert visit: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		metrics.AnalyzeResultsTotal.WithLabelValues("storage_error").Inc()
		logger.Error("analyze storage failure", "visit_id", visit.ID, "err", err)
		return AnalyzeResult{}, fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}

	result := Classify(prior.bronze, prior.gold, prior.total)
	result.ID = visit.ID
	result.Timestamp = visit.CreatedAt
	result.Hashes = hashes
	result.Details = details
	result.Lies = fp.Lies()
	for _, lied := range result.Lies {
		if lied {
			result.LieCount++
		}
	}
	result.ProcessingTime = now().Sub(started)

	metrics.AnalyzeResultsTotal.WithLabelValues(string(result.Risk)).Inc()
	logger.Debug("fingerprint analyzed",
		"visit_id", visit.ID,
		"risk", result.Risk,
		"exact_matches", result.ExactMatches,
		"hardware_matches", result.HardwareMatches,
	)
	return result, nil
}

// Classify derives the match counts and tracking risk from the prior counts
// observed before this visit.
func Classify(priorBronze, priorGold, priorTotal int64) AnalyzeResult {
	exact := priorBronze + 1
	hardware := priorGold + 1
	r := AnalyzeResult{
		IsUnique:        priorBronze == 0,
		UniquenessRatio: 1 / float64(exact),
		ExactMatches:    exact,
		HardwareMatches: hardware,
		TotalSeen:       priorTotal + 1,
		CrossBrowser:    priorGold > priorBronze,
	}
	switch {
	case r.CrossBrowser:
		r.Risk = domain.TrackingRiskCritical
		r.Message = fmt.Sprintf("This device has been seen %d times across different browsers or sessions. Your hardware alone is enough to link %d visits, even though this exact fingerprint appears %d time(s).", hardware, hardware, exact)
	case r.IsUnique:
		r.Risk = domain.TrackingRiskHigh
		r.Message = "Your fingerprint is unique among all visitors seen so far. It can be used to recognize you across sites without cookies."
	case exact < 5:
		r.Risk = domain.TrackingRiskHigh
		r.Message = fmt.Sprintf("Only %d visitors share your fingerprint. It is rare enough to single you out.", exact)
	case exact < 50:
		r.Risk = domain.TrackingRiskMedium
		r.Message = fmt.Sprintf("%d visitors share your fingerprint. You blend in somewhat, but the group is small.", exact)
	default:
		r.Risk = domain.TrackingRiskLow
		r.Message = fmt.Sprintf("%d visitors share your fingerprint. You blend into the crowd.", exact)
	}
	return r
}

// MergeSnapshot combines the client snapshot with the edge network fields.
// Client extras that claim the net_ namespace are dropped so the display
// never shows client-forged network data.
func MergeSnapshot(fp domain.FingerprintSnapshot, net domain.NetworkSnapshot) (map[string]json.RawMessage, []byte, error) {
	clean := fp
	if len(fp.Extra) > 0 {
		clean.Extra = make(map[string]json.RawMessage, len(fp.Extra))
		for key, value := range fp.Extra {
			if strings.HasPrefix(key, "net_") {
				continue
			}
			clean.Extra[key] = value
		}
	}
	client, err := json.Marshal(clean)
	if err != nil {
		return nil, nil, err
	}
	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(client, &merged); err != nil {
		return nil, nil, err
	}
	network, err := json.Marshal(net)
	if err != nil {
		return nil, nil, err
	}
	edge := make(map[string]json.RawMessage)
	if err := json.Unmarshal(network, &edge); err != nil {
		return nil, nil, err
	}
	for key, value := range edge {
		merged[key] = value
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, nil, err
	}
	return merged, raw, nil
}
