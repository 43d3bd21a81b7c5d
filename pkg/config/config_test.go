package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SENSOR_TICK", "")
	t.Setenv("HISTORY_LIST_DEFAULT", "")

	cfg := Load()
	if cfg.SensorTick != 500*time.Millisecond {
		t.Fatalf("expected 500ms tick, got %v", cfg.SensorTick)
	}
	if cfg.HistoryListDefault != 20 {
		t.Fatalf("expected default list limit 20, got %d", cfg.HistoryListDefault)
	}
	if cfg.InferenceTimeout != 0 {
		t.Fatalf("expected no inference timeout by default, got %v", cfg.InferenceTimeout)
	}
	if cfg.HistoryBackend != "memory" {
		t.Fatalf("expected memory backend, got %q", cfg.HistoryBackend)
	}
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("SENSOR_TICK", "fast")
	t.Setenv("OPENAI_MAX_TOKENS", "lots")
	t.Setenv("MQTT_ENABLED", "sure")

	cfg := Load()
	if cfg.SensorTick != 500*time.Millisecond {
		t.Fatalf("expected fallback tick, got %v", cfg.SensorTick)
	}
	if cfg.OpenAIMaxTokens != 2048 {
		t.Fatalf("expected fallback max tokens, got %d", cfg.OpenAIMaxTokens)
	}
	if cfg.MQTTEnabled {
		t.Fatal("expected MQTT disabled on malformed bool")
	}
}

func TestValidateRequiresAPIKey(t *testing.T) {
	cfg := &Config{HistoryBackend: "memory", SensorTick: time.Second}

	err := cfg.Validate()
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Key != "OPENAI_API_KEY" {
		t.Fatalf("unexpected key %q", cfgErr.Key)
	}

	cfg.SimulationOnly = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("simulation-only config should validate, got %v", err)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := &Config{OpenAIAPIKey: "sk-test", HistoryBackend: "postgres", SensorTick: time.Second}

	var cfgErr *ConfigurationError
	if err := cfg.Validate(); !errors.As(err, &cfgErr) || cfgErr.Key != "HISTORY_BACKEND" {
		t.Fatalf("expected HISTORY_BACKEND error, got %v", err)
	}
}

func TestLoadKeepsMirrorTopicsOutOfGloveFilter(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("MQTT_TOPIC_GLOVE_FLEX", "")
	t.Setenv("MQTT_TOPIC_SENSOR_MIRROR", "")
	t.Setenv("MQTT_TOPIC_INTERPRETATION", "")
	t.Setenv("HISTORY_BACKEND", "")
	t.Setenv("SENSOR_TICK", "")

	cfg := Load()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default MQTT topics should validate, got %v", err)
	}
}

func TestValidateRejectsMirrorTopicsMatchedByGloveFilter(t *testing.T) {
	base := Config{
		OpenAIAPIKey:            "sk-test",
		HistoryBackend:          "memory",
		SensorTick:              time.Second,
		MQTTEnabled:             true,
		MQTTTopicGloveFlex:      "glove/+/flex",
		MQTTTopicSensorMirror:   "glove-backend/simulated/flex",
		MQTTTopicInterpretation: "glove-backend/interpretations",
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantKey string
	}{
		{"sample mirror", func(c *Config) { c.MQTTTopicSensorMirror = "glove/simulated/flex" }, "MQTT_TOPIC_SENSOR_MIRROR"},
		{"catch-all filter", func(c *Config) { c.MQTTTopicGloveFlex = "#" }, "MQTT_TOPIC_SENSOR_MIRROR"},
		{"interpretation only", func(c *Config) {
			c.MQTTTopicGloveFlex = "glove-backend/interpretations"
		}, "MQTT_TOPIC_INTERPRETATION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)

			var cfgErr *ConfigurationError
			if err := cfg.Validate(); !errors.As(err, &cfgErr) || cfgErr.Key != tt.wantKey {
				t.Fatalf("expected %s error, got %v", tt.wantKey, err)
			}

			cfg.MQTTEnabled = false
			if err := cfg.Validate(); err != nil {
				t.Fatalf("topics are not checked with MQTT disabled, got %v", err)
			}
		})
	}
}
