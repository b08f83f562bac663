package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (c *testConfig) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("CONFIG_TEST_NAME", "geo")
	path := writeFile(t, "name: ${CONFIG_TEST_NAME}\ncount: 3\n")

	var cfg testConfig
	if err := Load(path, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "geo" || cfg.Count != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "name: a\ncolour: red\n")

	var cfg testConfig
	if err := Load(path, &cfg); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestLoadRunsValidator(t *testing.T) {
	path := writeFile(t, "count: 1\n")

	var cfg testConfig
	if err := Load(path, &cfg); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	var cfg testConfig
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want not exist", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	cfg := testConfig{Name: "default", Count: 7}
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "default" || cfg.Count != 7 {
		t.Errorf("defaults changed: %+v", cfg)
	}

	path := writeFile(t, "count: 9\n")
	if err := LoadWithDefaults(path, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "default" || cfg.Count != 9 {
		t.Errorf("cfg = %+v, want file merged over defaults", cfg)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	cfg := testConfig{Name: "kept"}
	if err := Parse([]byte(""), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "kept" {
		t.Errorf("name = %q", cfg.Name)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("CONFIG_TEST_SET", "value")
	t.Setenv("CONFIG_TEST_EMPTY", "")

	cases := map[string]string{
		"${CONFIG_TEST_SET}":             "value",
		"$CONFIG_TEST_SET/x":             "value/x",
		"${CONFIG_TEST_SET:-fallback}":   "value",
		"${CONFIG_TEST_EMPTY:-fallback}": "fallback",
		"${CONFIG_TEST_UNSET:-http://a}": "http://a",
		"${CONFIG_TEST_UNSET}":           "",
		"plain":                          "plain",
	}
	for in, want := range cases {
		if got := ExpandEnv(in); got != want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", in, got, want)
		}
	}
}
