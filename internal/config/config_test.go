package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Synth.TimeoutMS != 180000 {
		t.Fatalf("expected default timeout 180000ms, got %d", cfg.Synth.TimeoutMS)
	}
	if cfg.Synth.DefaultVoice != "sonic" {
		t.Fatalf("expected default voice sonic, got %q", cfg.Synth.DefaultVoice)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LOQA_SYNTH_ENDPOINT", "http://127.0.0.1:9000/speak")
	t.Setenv("LOQA_SYNTH_TIMEOUT_MS", "2500")
	t.Setenv("LOQA_SYNTH_DEFAULT_VOICE", "attenborough")
	t.Setenv("LOQA_BUS_ENABLED", "true")
	t.Setenv("LOQA_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("LOQA_BUS_EMBEDDED", "false")
	t.Setenv("LOQA_HISTORY_RETENTION_MODE", "ephemeral")
	t.Setenv("LOQA_HISTORY_MAX_ENTRIES", "12")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Synth.Endpoint != "http://127.0.0.1:9000/speak" {
		t.Fatalf("expected endpoint override, got %q", cfg.Synth.Endpoint)
	}
	if cfg.Synth.TimeoutMS != 2500 {
		t.Fatalf("expected timeout override, got %d", cfg.Synth.TimeoutMS)
	}
	if cfg.Synth.DefaultVoice != "attenborough" {
		t.Fatalf("expected default voice override")
	}
	if !cfg.Bus.Enabled || cfg.Bus.Embedded {
		t.Fatalf("expected bus overrides, got %+v", cfg.Bus)
	}
	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.History.RetentionMode != "ephemeral" {
		t.Fatalf("expected retention mode override")
	}
	if cfg.History.MaxEntries != 12 {
		t.Fatalf("expected max entries override")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speak.yaml")
	data := []byte(`synth:
  endpoint: http://localhost:8000/speak
  timeout_ms: 1000
voices:
  narrator: narrator_v2
history:
  retention_mode: ephemeral
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Synth.Endpoint != "http://localhost:8000/speak" {
		t.Fatalf("unexpected endpoint %q", cfg.Synth.Endpoint)
	}
	if cfg.Voices["narrator"] != "narrator_v2" {
		t.Fatalf("expected voice override, got %v", cfg.Voices)
	}
	if cfg.Synth.DefaultVoice != "sonic" {
		t.Fatalf("expected untouched defaults to survive, got %q", cfg.Synth.DefaultVoice)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateRejectsBadEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Synth.Endpoint = "mumble.stream/speak"
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for relative endpoint")
	}
}

func TestValidateRejectsEmptySpeaker(t *testing.T) {
	cfg := Default()
	cfg.Voices = map[string]string{"sonic": " "}
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for empty speaker name")
	}
}

func TestValidateRejectsNonPositiveTimeout(t *testing.T) {
	cfg := Default()
	cfg.Synth.TimeoutMS = 0
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for zero timeout")
	}
}

func TestValidateEmbeddedBusPort(t *testing.T) {
	cfg := Default()
	cfg.Bus.Enabled = true
	cfg.Bus.Embedded = true
	cfg.Bus.Port = -1
	if err := validate(cfg); err != nil {
		t.Fatalf("expected random port to be accepted: %v", err)
	}
	cfg.Bus.Port = 0
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for port 0")
	}
}
