package config

import (
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.NatsURL != "nats://localhost:4222" {
		t.Errorf("NatsURL = %q, want nats://localhost:4222", cfg.NatsURL)
	}
	if cfg.StreamName != "CORTEX" {
		t.Errorf("StreamName = %q, want CORTEX", cfg.StreamName)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.ConfidenceThreshold != 0.6 {
		t.Errorf("ConfidenceThreshold = %v, want 0.6", cfg.ConfidenceThreshold)
	}
	if cfg.SupervisionInterval != 60*time.Second {
		t.Errorf("SupervisionInterval = %v, want 60s", cfg.SupervisionInterval)
	}
	if cfg.ContextSecretHex != "" {
		t.Errorf("ContextSecretHex = %q, want empty (sealing disabled by default)", cfg.ContextSecretHex)
	}
	if cfg.CosAgentId != "agent-cos" {
		t.Errorf("CosAgentId = %q, want agent-cos", cfg.CosAgentId)
	}
}

func TestParseOverridesFlags(t *testing.T) {
	cfg, err := Parse([]string{"-nats-url", "nats://example:4222", "-max-retries", "5", "-cos-agent-id", "agent-custom"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.NatsURL != "nats://example:4222" {
		t.Errorf("NatsURL = %q, want nats://example:4222", cfg.NatsURL)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.CosAgentId != "agent-custom" {
		t.Errorf("CosAgentId = %q, want agent-custom", cfg.CosAgentId)
	}
}

func TestParseRejectsUnknownFlag(t *testing.T) {
	if _, err := Parse([]string{"-not-a-real-flag", "x"}); err == nil {
		t.Fatal("Parse with an unknown flag succeeded, want error")
	}
}
