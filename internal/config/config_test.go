package config

import (
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q", cfg.HTTPPort)
	}
	if cfg.DBType != "sqlite" {
		t.Errorf("DBType = %q", cfg.DBType)
	}
	if cfg.StorageType != "local" || cfg.StoragePublicBaseURL != "/files" {
		t.Errorf("storage = %q %q", cfg.StorageType, cfg.StoragePublicBaseURL)
	}
	if cfg.GenerationStaleAfter != 30*time.Minute || cfg.GenerationSweepEvery != 5*time.Minute {
		t.Errorf("sweeper = %s/%s", cfg.GenerationStaleAfter, cfg.GenerationSweepEvery)
	}
	if cfg.MediaMaxBytes != 20<<20 {
		t.Errorf("MediaMaxBytes = %d", cfg.MediaMaxBytes)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
}

func TestParseConfigFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DBType", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PROVIDER_TIMEOUT", "45s")
	t.Setenv("BREAKER_FAILURE_RATIO", "0.5")
	t.Setenv("STORAGE_S3_FORCE_PATH_STYLE", "true")

	cfg, err := ParseConfig()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.HTTPPort != "9090" || cfg.DBType != "memory" {
		t.Errorf("unexpected %q %q", cfg.HTTPPort, cfg.DBType)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.ProviderTimeout != 45*time.Second || cfg.BreakerFailureRatio != 0.5 {
		t.Errorf("breaker = %s %v", cfg.ProviderTimeout, cfg.BreakerFailureRatio)
	}
	if !cfg.StorageS3ForcePathStyle {
		t.Error("StorageS3ForcePathStyle should be true")
	}
}

func TestParseConfigRejectsBadDuration(t *testing.T) {
	t.Setenv("GENERATION_STALE_AFTER", "soon")
	if _, err := ParseConfig(); err == nil {
		t.Fatal("expected error for malformed duration")
	}
}
