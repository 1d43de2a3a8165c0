package config

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"ru2en/internal/apperr"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ru2en.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.OutputMode != "english" {
		t.Fatalf("OutputMode = %q, want english", cfg.OutputMode)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestSaveReloadKeepsCredential(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ru2en.json")

	cfg := DefaultConfig()
	cfg.OpenAIAPIKey = "TESTKEY"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.OpenAIAPIKey != "TESTKEY" {
		t.Fatalf("credential = %q, want TESTKEY", got.OpenAIAPIKey)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("saved file is not JSON: %v", err)
	}
	if m["openai_api_key"] != "TESTKEY" {
		t.Fatalf("saved openai_api_key = %v", m["openai_api_key"])
	}
}

// customConfig differs from the defaults in every key.
func customConfig() Config {
	return Config{
		STTModel:            "gpt-4o-transcribe",
		OutputMode:          "russian",
		StyleModel:          "gpt-5-mini",
		StyleProfile:        "formal",
		AutoPaste:           false,
		GlobalHotkeyEnabled: false,
		OpenAIAPIKey:        "sk-custom",
		SampleRate:          48000,
		Channels:            2,
		DType:               "int32",
		Hotkey:              "alt+q",
		CancelKey:           "esc",
		HotkeyHook:          true,
		HotkeyHookFallback:  false,
		Notification:        true,
		RequestTimeout:      5,
		MaxRetry:            9,
		RetryBaseDelay:      2,
		EnableHTTP2:         false,
		BaseURL:             "http://localhost:9999/v1",
		CacheDir:            "/tmp/x",
		RewriteCache:        false,
		History:             false,
		LogLevel:            "debug",
		LogFormat:           "json",
	}
}

func TestLoadFillsExactlyMissingKeys(t *testing.T) {
	raw, err := json.Marshal(customConfig())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var full map[string]any
	if err := json.Unmarshal(raw, &full); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if n := reflect.TypeOf(Config{}).NumField(); len(full) != n {
		t.Fatalf("expected %d keys, got %d", n, len(full))
	}

	defaults := fieldsByJSONName(DefaultConfig())
	custom := fieldsByJSONName(customConfig())

	for missing := range full {
		t.Run("without_"+missing, func(t *testing.T) {
			partial := make(map[string]any, len(full))
			for k, v := range full {
				if k != missing {
					partial[k] = v
				}
			}
			path := writeJSON(t, partial)

			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			got := fieldsByJSONName(cfg)
			for key := range full {
				want := custom[key]
				if key == missing {
					want = defaults[key]
				}
				if !reflect.DeepEqual(got[key], want) {
					t.Fatalf("key %s = %v, want %v", key, got[key], want)
				}
			}
		})
	}
}

func TestLoadMalformedReturnsDefaultsAndError(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"truncated", `{"output_mode": "russian"`},
		{"wrong type", `{"sample_rate": "fast"}`},
		{"array", `[1, 2, 3]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ru2en.json")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			cfg, err := Load(path)
			if err == nil {
				t.Fatal("expected error for malformed file")
			}
			if !reflect.DeepEqual(cfg, DefaultConfig()) {
				t.Fatalf("expected defaults, got %+v", cfg)
			}
		})
	}
}

func TestLoadIgnoresUnknownKeys(t *testing.T) {
	path := writeJSON(t, map[string]any{
		"OUTPUT_MODE": "russian",
		"Auto_Paste":  false,
		"window_geom": "780x560",
	})
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("differently cased keys were applied: output_mode=%q auto_paste=%v", cfg.OutputMode, cfg.AutoPaste)
	}
}

func TestLoadLeavesPresentValuesAsWritten(t *testing.T) {
	path := writeJSON(t, map[string]any{
		"style_profile":  "официальный",
		"output_mode":    " Russian ",
		"openai_api_key": " TESTKEY ",
	})
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StyleProfile != "официальный" || cfg.OutputMode != " Russian " || cfg.OpenAIAPIKey != " TESTKEY " {
		t.Fatalf("stored values changed: %+v", cfg)
	}
	if cfg.Style() != "formal" || cfg.Mode() != ModeRussian || cfg.APIKey() != "TESTKEY" {
		t.Fatalf("effective values: style=%q mode=%q key=%q", cfg.Style(), cfg.Mode(), cfg.APIKey())
	}
	if err := Validate(&cfg); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad mode", func(c *Config) { c.OutputMode = "german" }, true},
		{"bad style", func(c *Config) { c.StyleProfile = "pirate" }, true},
		{"mixed case style", func(c *Config) { c.StyleProfile = "Formal" }, false},
		{"zero rate", func(c *Config) { c.SampleRate = 0 }, true},
		{"too many channels", func(c *Config) { c.Channels = 9 }, true},
		{"float dtype", func(c *Config) { c.DType = "float32" }, true},
		{"no hotkey", func(c *Config) { c.Hotkey = "" }, true},
		{"bad base url", func(c *Config) { c.BaseURL = "not a url" }, true},
		{"local base url", func(c *Config) { c.BaseURL = "http://127.0.0.1:8080/v1" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := Validate(&cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperr.Is(err, apperr.Configuration) {
				t.Fatalf("expected configuration error, got %T", err)
			}
		})
	}
}

func TestAPIKeyFallsBackToEnvironment(t *testing.T) {
	t.Setenv(EnvAPIKey, " env-key ")
	cfg := DefaultConfig()
	if got := cfg.APIKey(); got != "env-key" {
		t.Fatalf("APIKey = %q, want env-key", got)
	}
	cfg.OpenAIAPIKey = "file-key"
	if got := cfg.APIKey(); got != "file-key" {
		t.Fatalf("APIKey = %q, want file-key", got)
	}
}

func TestLoadEnvNextToConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("RU2EN_TEST_VAR=from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RU2EN_TEST_VAR", "")
	os.Unsetenv("RU2EN_TEST_VAR")

	if err := LoadEnv(filepath.Join(dir, "ru2en.json")); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if got := os.Getenv("RU2EN_TEST_VAR"); got != "from-dotenv" {
		t.Fatalf("RU2EN_TEST_VAR = %q", got)
	}
	if err := LoadEnv(filepath.Join(t.TempDir(), "ru2en.json")); err != nil {
		t.Fatalf("missing .env should not fail: %v", err)
	}
}

func TestKeyHint(t *testing.T) {
	if got := KeyHint("  "); got != "key: not set" {
		t.Fatalf("KeyHint(empty) = %q", got)
	}
	if got := KeyHint("sk-abcdef1234"); got != "key: 13 chars, ends with …1234" {
		t.Fatalf("KeyHint = %q", got)
	}
}

func TestApplyFlagsOnlySetValues(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fv := BindFlags(fs)
	if err := fs.Parse([]string{"-output-mode", "russian", "-auto-paste=false", "-style", "разговорный"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !fv.AnySet() {
		t.Fatal("AnySet = false")
	}

	cfg := DefaultConfig()
	ApplyFlags(&cfg, fv)
	if cfg.Mode() != "russian" || cfg.AutoPaste || cfg.Style() != "casual" {
		t.Fatalf("unexpected config after flags: %+v", cfg)
	}
	if cfg.Hotkey != DefaultConfig().Hotkey {
		t.Fatalf("unset flag changed hotkey to %q", cfg.Hotkey)
	}
}

func TestCacheDirCreates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CacheDir = filepath.Join(t.TempDir(), "a", "b")
	dir, err := CacheDir(&cfg)
	if err != nil {
		t.Fatalf("CacheDir failed: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("cache dir not created: %v", err)
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0600); err != nil {
		t.Fatal(err)
	}
	cfg.CacheDir = file
	if _, err := CacheDir(&cfg); err == nil {
		t.Fatal("expected error when cache dir is a file")
	}
}

func writeJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "ru2en.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func fieldsByJSONName(cfg Config) map[string]any {
	out := make(map[string]any)
	v := reflect.ValueOf(cfg)
	tp := v.Type()
	for i := 0; i < tp.NumField(); i++ {
		out[tp.Field(i).Tag.Get("json")] = v.Field(i).Interface()
	}
	return out
}
