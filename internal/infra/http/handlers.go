package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"identiscope/internal/domain"
	"identiscope/internal/infra/schema"
	"identiscope/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type analyzeMeta struct {
	ID               string `json:"id"`
	Timestamp        string `json:"timestamp"`
	ProcessingTimeMS int64  `json:"processing_time_ms"`
}

type analyzeResultBody struct {
	IsUnique             bool    `json:"is_unique"`
	UniquenessRatio      float64 `json:"uniqueness_ratio"`
	UniquenessDisplay    string  `json:"uniqueness_display"`
	ExactMatchCount      int64   `json:"exact_match_count"`
	HardwareMatchCount   int64   `json:"hardware_match_count"`
	TotalFingerprints    int64   `json:"total_fingerprints"`
	TrackingRisk         string  `json:"tracking_risk"`
	Message              string  `json:"message"`
	CrossBrowserDetected bool    `json:"cross_browser_detected"`
}

type liesBody struct {
	Flags map[string]bool `json:"flags"`
	Count int             `json:"count"`
}

type analyzeResponse struct {
	Success bool                       `json:"success"`
	Meta    analyzeMeta                `json:"meta"`
	Hashes  domain.ThreeLockHashes     `json:"hashes"`
	Result  analyzeResultBody          `json:"result"`
	Details map[string]json.RawMessage `json:"details"`
	Lies    liesBody                   `json:"lies"`
}

type deletionBody struct {
	ID            string     `json:"id"`
	HashType      string     `json:"hash_type"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	RetryCount    int        `json:"retry_count"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
}

type deletionReceiptResponse struct {
	Success   bool         `json:"success"`
	Duplicate bool         `json:"duplicate"`
	Request   deletionBody `json:"request"`
	SLA       string       `json:"sla"`
}

type statsResponse struct {
	TotalFingerprints  int64     `json:"total_fingerprints"`
	UniqueFullHash     int64     `json:"unique_full_hash"`
	UniqueHardwareHash int64     `json:"unique_hardware_hash"`
	UpdatedAt          time.Time `json:"updated_at"`
	Cached             bool      `json:"cached"`
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.Warn("readiness check failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	if s.analyze == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "INTERNAL", "analysis unavailable")
		return
	}
	body, err := s.gate.ReadBody(http.MaxBytesReader(c.Writer, c.Request.Body, s.gate.MaxBytes()+1))
	if err != nil {
		s.writeError(c, err)
		return
	}
	fp, err := s.gate.DecodeFingerprint(body)
	if err != nil {
		s.writeError(c, err)
		return
	}
	net := s.edge.Snapshot(c.Request)

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.AnalyzeTimeout())
	defer cancel()
	result, err := s.analyze.Execute(ctx, fp, net)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, analyzeResponse{
		Success: true,
		Meta: analyzeMeta{
			ID:               result.ID,
			Timestamp:        result.Timestamp.UTC().Format(time.RFC3339Nano),
			ProcessingTimeMS: result.ProcessingTime.Milliseconds(),
		},
		Hashes: result.Hashes,
		Result: analyzeResultBody{
			IsUnique:             result.IsUnique,
			UniquenessRatio:      result.UniquenessRatio,
			UniquenessDisplay:    result.UniquenessDisplay(),
			ExactMatchCount:      result.ExactMatches,
			HardwareMatchCount:   result.HardwareMatches,
			TotalFingerprints:    result.TotalSeen,
			TrackingRisk:         string(result.Risk),
			Message:              result.Message,
			CrossBrowserDetected: result.CrossBrowser,
		},
		Details: result.Details,
		Lies:    liesBody{Flags: result.Lies, Count: result.LieCount},
	})
}

func (s *Server) handleDeletionSubmit(c *gin.Context) {
	if s.deletions == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "INTERNAL", "deletion intake unavailable")
		return
	}
	body, err := s.gate.ReadBody(http.MaxBytesReader(c.Writer, c.Request.Body, s.gate.MaxBytes()+1))
	if err != nil {
		s.writeError(c, err)
		return
	}
	var sub usecase.DeletionSubmission
	if err := schema.Decode(body, &sub); err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.gate.Struct(sub); err != nil {
		s.writeError(c, err)
		return
	}
	receipt, err := s.deletions.Submit(c.Request.Context(), sub)
	if err != nil {
		s.writeError(c, err)
		return
	}
	status := http.StatusAccepted
	if receipt.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, deletionReceiptResponse{
		Success:   true,
		Duplicate: receipt.Duplicate,
		Request:   toDeletionBody(receipt.Request),
		SLA:       receipt.SLA,
	})
}

func (s *Server) handleDeletionStatus(c *gin.Context) {
	if s.deletions == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "INTERNAL", "deletion intake unavailable")
		return
	}
	req, err := s.deletions.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDeletionBody(req))
}

func (s *Server) handleStats(c *gin.Context) {
	if s.stats == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "INTERNAL", "stats unavailable")
		return
	}
	view, err := s.stats.Get(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, statsResponse{
		TotalFingerprints:  view.Stats.TotalFingerprints,
		UniqueFullHash:     view.Stats.UniqueFullHash,
		UniqueHardwareHash: view.Stats.UniqueHardwareHash,
		UpdatedAt:          view.Stats.UpdatedAt,
		Cached:             view.Cached,
	})
}

func toDeletionBody(req domain.DeletionRequest) deletionBody {
	return deletionBody{
		ID:            req.ID,
		HashType:      string(req.HashType),
		Status:        string(req.Status),
		CreatedAt:     req.CreatedAt,
		CompletedAt:   req.CompletedAt,
		RetryCount:    req.RetryCount,
		LastAttemptAt: req.LastAttemptAt,
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	var details any
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		status, code = http.StatusBadRequest, "VALIDATION_FAILED"
		details = verr.Fields
	case errors.Is(err, domain.ErrInvalidJSON):
		status, code = http.StatusBadRequest, "INVALID_JSON"
	case errors.Is(err, domain.ErrPayloadTooLarge):
		status, code = http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrStorage):
		status, code = http.StatusInternalServerError, "STORAGE_FAILURE"
	}

	message := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request error", "request_id", RequestID(c), "code", code, "err", err)
		if s.cfg.IsProduction() {
			message = http.StatusText(status)
		}
	}
	c.JSON(status, errorResponse{Code: code, Message: message, Details: details})
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
