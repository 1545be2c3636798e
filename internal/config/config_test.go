package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "APP_ENV", "RATE_LIMIT_ANALYZE_REQUESTS", "ANALYZE_TIMEOUT_MS", "DELETION_BATCH_SIZE"} {
		t.Setenv(key, "")
	}
	cfg := FromEnv()
	if cfg.HTTPAddr != ":8080" || cfg.IsProduction() {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.RateLimitAnalyzeRequests != 10 || cfg.RateLimitAnalyzeWindowSecs != 60 {
		t.Fatalf("unexpected analyze limit: %d/%d", cfg.RateLimitAnalyzeRequests, cfg.RateLimitAnalyzeWindowSecs)
	}
	if cfg.RateLimitDeletionRequests != 5 || cfg.RateLimitDeletionWindowSecs != 3600 {
		t.Fatalf("unexpected deletion limit: %d/%d", cfg.RateLimitDeletionRequests, cfg.RateLimitDeletionWindowSecs)
	}
	if cfg.AnalyzeTimeout() != 5*time.Second || cfg.DeletionBatchSize != 50 || cfg.MaxPayloadBytes != 50*1024 {
		t.Fatalf("unexpected request budgets: %+v", cfg)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("RATE_LIMIT_FAIL_CLOSED", "yes")
	t.Setenv("ANALYZE_TIMEOUT_MS", "250")
	t.Setenv("DELETION_BATCH_SIZE", "-3")

	cfg := FromEnv()
	if !cfg.IsProduction() || !cfg.RateLimitFailClosed {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.AnalyzeTimeout() != 250*time.Millisecond {
		t.Fatalf("unexpected timeout %s", cfg.AnalyzeTimeout())
	}
	if cfg.DeletionBatchSize != 50 {
		t.Fatalf("invalid value should fall back to default, got %d", cfg.DeletionBatchSize)
	}
}

func TestApplyFile_EnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identiscope.yaml")
	content := "HTTP_ADDR: \":9090\"\nRATE_LIMIT_STATUS_REQUESTS: 120\nTRUST_EDGE_HEADERS: true\nLOG_LEVEL: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("HTTP_ADDR", "")
	os.Unsetenv("HTTP_ADDR")
	t.Setenv("RATE_LIMIT_STATUS_REQUESTS", "")
	os.Unsetenv("RATE_LIMIT_STATUS_REQUESTS")
	t.Setenv("TRUST_EDGE_HEADERS", "")
	os.Unsetenv("TRUST_EDGE_HEADERS")

	if err := ApplyFile(path); err != nil {
		t.Fatalf("apply: %v", err)
	}
	cfg := FromEnv()
	if cfg.HTTPAddr != ":9090" || cfg.RateLimitStatusRequests != 120 || !cfg.TrustEdgeHeaders {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("environment must win over file, got %q", cfg.LogLevel)
	}
}

func TestApplyFile_RejectsNested(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("db:\n  driver: sqlite\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ApplyFile(path); err == nil {
		t.Fatal("expected error for nested keys")
	}
}
