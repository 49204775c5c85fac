package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	data := `
bridge:
  host: 192.168.1.20
resolver:
  source: memory
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Bridge.Protocol != ProtocolRosbridge || cfg.Bridge.Port != 9090 {
		t.Fatalf("expected rosbridge on 9090, got %s:%d", cfg.Bridge.Protocol, cfg.Bridge.Port)
	}
	if cfg.Bridge.InboundTopic != "/video_key" || cfg.Bridge.ResumeTopic != "/start_movement" || cfg.Bridge.ResumeValue != 1 {
		t.Fatalf("unexpected topic defaults: %+v", cfg.Bridge)
	}
	if cfg.Bridge.Reconnect.Delay != 5*time.Second || cfg.Bridge.Reconnect.MaxAttempts != 0 {
		t.Fatalf("expected fixed 5s unbounded reconnect, got %+v", cfg.Bridge.Reconnect)
	}
	if cfg.Playback.Player != SurfaceSimulated || cfg.Playback.SimulatedClip != 3*time.Second {
		t.Fatalf("unexpected playback defaults: %+v", cfg.Playback)
	}
	if cfg.Metrics.Addr != ":9110" {
		t.Fatalf("expected default metrics addr :9110, got %s", cfg.Metrics.Addr)
	}
	if cfg.Settings.Path != "./data/settings.yaml" {
		t.Fatalf("expected default settings path, got %s", cfg.Settings.Path)
	}
}

func TestLineProtocolDefaultsPort(t *testing.T) {
	cfg, err := Parse([]byte("bridge:\n  protocol: LINE\n  reconnect:\n    strategy: exponential\n    delay: 1s\n    max_delay: 30s\n    max_attempts: 10\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Bridge.Protocol != ProtocolLine || cfg.Bridge.Port != 5000 {
		t.Fatalf("expected line on 5000, got %s:%d", cfg.Bridge.Protocol, cfg.Bridge.Port)
	}
	if cfg.Bridge.Reconnect.MaxDelay != 30*time.Second || cfg.Bridge.Reconnect.MaxAttempts != 10 {
		t.Fatalf("reconnect block not decoded: %+v", cfg.Bridge.Reconnect)
	}
	if cfg.Resolver.CatalogPath != "./data/catalog.yaml" {
		t.Fatalf("expected default catalog path, got %s", cfg.Resolver.CatalogPath)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"protocol":     "bridge:\n  protocol: mqtt\n",
		"port":         "bridge:\n  port: 70000\n",
		"strategy":     "bridge:\n  reconnect:\n    strategy: linear\n",
		"max_delay":    "bridge:\n  reconnect:\n    strategy: exponential\n    delay: 1m\n    max_delay: 1s\n",
		"player":       "playback:\n  player: vlc\n",
		"source":       "resolver:\n  source: redis\n",
		"postgres":     "resolver:\n  source: postgres\n",
		"speech_empty": "playback:\n  speech: exec\n  speech_command: [\"\"]\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if !strings.HasPrefix(cfg.Playback.PlayerCommand[0], "mpv") {
		t.Fatalf("unexpected player command %v", cfg.Playback.PlayerCommand)
	}
}
