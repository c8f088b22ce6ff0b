package config

import (
	"testing"
	"time"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Server.Host == "" {
		t.Error("expected Server.Host to be set")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.AI.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("expected default model, got %q", cfg.AI.OpenAI.Model)
	}
	if cfg.AI.OpenAI.BaseURL == "" {
		t.Error("expected OpenAI base URL to be set")
	}

	// 验证默认值
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" || cfg.Log.Output != "stdout" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
	// 注意：录音后端默认未启用，但客户端配置要有默认值
	if cfg.Recordings.Enabled {
		t.Error("recordings backend should be disabled by default")
	}
	if cfg.Recordings.BaseURL == "" || cfg.Recordings.MaxRetries == 0 {
		t.Errorf("expected recordings client defaults: %+v", cfg.Recordings)
	}
}

func TestConfig_Timeouts(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.AI.OpenAI.Timeout != 30*time.Second {
		t.Errorf("expected 30s AI timeout, got %v", cfg.AI.OpenAI.Timeout)
	}
	if cfg.Recordings.Timeout != 10*time.Second {
		t.Errorf("expected 10s recordings timeout, got %v", cfg.Recordings.Timeout)
	}
}

func TestConfig_TracingDefaults(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Monitoring.Tracing.Enabled {
		t.Error("tracing should be disabled by default")
	}
	if cfg.Monitoring.Tracing.SampleRatio != 0.1 {
		t.Errorf("expected default sample ratio 0.1, got %v", cfg.Monitoring.Tracing.SampleRatio)
	}
}

func TestRecordingsConfig_ClientConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Recordings.APIKey = "key"

	cc := cfg.Recordings.ClientConfig()
	if cc.BaseURL != cfg.Recordings.BaseURL || cc.APIKey != "key" {
		t.Errorf("client config mismatch: %+v", cc)
	}
	if cc.Timeout != cfg.Recordings.Timeout || cc.MaxRetries != cfg.Recordings.MaxRetries {
		t.Errorf("client config mismatch: %+v", cc)
	}
}
