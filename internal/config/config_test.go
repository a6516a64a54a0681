package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("http addr = %s", cfg.HTTPAddr)
	}
	if cfg.RelevanceThreshold != 0.7 {
		t.Fatalf("relevance threshold = %v", cfg.RelevanceThreshold)
	}
	if cfg.RRFConstant != 60 || cfg.TopN != 10 || cfg.TopK != 3 {
		t.Fatalf("retrieval defaults: %+v", cfg)
	}
	if cfg.EmbeddingCacheTTL != 24*time.Hour {
		t.Fatalf("embedding ttl = %v", cfg.EmbeddingCacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RELEVANCE_THRESHOLD", "0.55")
	t.Setenv("RETRY_MAX_ATTEMPTS", "7")
	t.Setenv("ANSWER_TIMEOUT", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RelevanceThreshold != 0.55 || cfg.MaxAttempts != 7 || cfg.AnswerTimeout != 90*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("RETRY_MAX_ATTEMPTS", "many")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed int")
	}
}
