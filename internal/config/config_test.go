package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Detector.URL != "http://localhost:8000" {
		t.Errorf("expected default detector URL, got '%s'", cfg.Detector.URL)
	}

	if cfg.Detector.Dim != 128 {
		t.Errorf("expected default embedding dim 128, got %d", cfg.Detector.Dim)
	}

	if cfg.Tracking.MaxAge != 300*time.Second {
		t.Errorf("expected default max age 300s, got %s", cfg.Tracking.MaxAge)
	}

	if cfg.Tracking.SweepInterval != 10*time.Second {
		t.Errorf("expected default sweep interval 10s, got %s", cfg.Tracking.SweepInterval)
	}

	if cfg.Capture.MaxFailures != 5 {
		t.Errorf("expected default max failures 5, got %d", cfg.Capture.MaxFailures)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TRACKING_MAX_AGE_SECONDS", "60")
	t.Setenv("TRACKING_PROFILE", "strict")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "10")

	cfg := Load()

	if cfg.Tracking.MaxAge != 60*time.Second {
		t.Errorf("expected max age 60s, got %s", cfg.Tracking.MaxAge)
	}

	if cfg.Tracking.Profile != "strict" {
		t.Errorf("expected profile 'strict', got '%s'", cfg.Tracking.Profile)
	}

	if cfg.Database.MaxOpenConns != 10 {
		t.Errorf("expected 10 max open conns, got %d", cfg.Database.MaxOpenConns)
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("TRACKING_MAX_AGE_SECONDS", "not-a-number")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "-3")

	cfg := Load()

	if cfg.Tracking.MaxAge != 300*time.Second {
		t.Errorf("expected fallback max age 300s, got %s", cfg.Tracking.MaxAge)
	}

	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected fallback 25 max open conns, got %d", cfg.Database.MaxOpenConns)
	}
}

func TestMatchProfile_Embedded(t *testing.T) {
	cfg := Load()

	def := cfg.MatchProfile("default")
	if def.Tolerance != 0.6 {
		t.Errorf("expected default tolerance 0.6, got %f", def.Tolerance)
	}

	strict := cfg.MatchProfile("strict")
	if strict.Tolerance != 0.45 {
		t.Errorf("expected strict tolerance 0.45, got %f", strict.Tolerance)
	}
	if strict.CosineFloor != 0.85 {
		t.Errorf("expected strict cosine floor 0.85, got %f", strict.CosineFloor)
	}
}

func TestMatchProfile_UnknownFallsBackToDefault(t *testing.T) {
	cfg := Load()

	p := cfg.MatchProfile("does-not-exist")
	if p.Tolerance != 0.6 {
		t.Errorf("expected fallback to default tolerance 0.6, got %f", p.Tolerance)
	}
}
