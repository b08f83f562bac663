package internal

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Geocore.BaseURL = "https://api.geocore.test/api"
	cfg.Geocore.ProjectID = "PRO-TEST"
	return cfg
}

func TestConfig_DefaultsNeedProject(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err == nil {
		t.Fatal("default config without geocore section should fail")
	}
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestGeocoreConfig_BaseURL(t *testing.T) {
	cases := map[string]bool{
		"https://api.geocore.test":  true,
		"http://localhost:8080/api": true,
		"ftp://api.geocore.test":    false,
		"api.geocore.test":          false,
		"":                          false,
	}
	for raw, ok := range cases {
		cfg := GeocoreConfig{BaseURL: raw, ProjectID: "PRO-TEST"}
		err := cfg.Validate()
		if ok && err != nil {
			t.Errorf("%q: unexpected error: %v", raw, err)
		}
		if !ok && err == nil {
			t.Errorf("%q: expected error", raw)
		}
	}
}

func TestGeocoreConfig_NegativeTimeout(t *testing.T) {
	cfg := GeocoreConfig{BaseURL: "https://x.test", ProjectID: "PRO-1", Timeout: -time.Second}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative timeout should fail")
	}
}

func TestGeocoreConfig_ClientConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Geocore.DeviceID = "dev"
	cc := cfg.Geocore.ClientConfig()
	if cc.BaseURL != cfg.Geocore.BaseURL || cc.ProjectID != "PRO-TEST" || cc.DeviceID != "dev" {
		t.Errorf("client config = %+v", cc)
	}
}

func TestUploaderConfig_Validate(t *testing.T) {
	cfg := UploaderConfig{Dir: "./up", ObjectID: "PLA-1", Extensions: []string{".png", ".jpg"}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid uploader config rejected: %v", err)
	}

	cfg.Extensions = []string{"png"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("extension without dot should fail")
	}
	if !strings.Contains(err.Error(), "must start with a dot") {
		t.Errorf("unexpected error: %v", err)
	}

	cfg = UploaderConfig{Dir: "./up"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing object id should fail")
	}
}

func TestApplicationConfig_LogLevel(t *testing.T) {
	cfg := ApplicationConfig{LogLevel: slog.LevelWarn}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("warn level rejected: %v", err)
	}
	cfg.LogLevel = slog.Level(3)
	if err := cfg.Validate(); err == nil {
		t.Fatal("odd level should fail")
	}
}

func TestMCPConfig_RequiresName(t *testing.T) {
	cfg := validConfig()
	cfg.MCP.Name = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty MCP name should fail")
	}
}
