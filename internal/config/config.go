package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"ru2en/internal/apperr"
)

const (
	appName        = "ru2en"
	configFileName = "ru2en.json"
	envFileName    = ".env"

	// EnvAPIKey is consulted when the config carries no credential.
	EnvAPIKey = "OPENAI_API_KEY"

	ModeEnglish = "english"
	ModeRussian = "russian"

	StyleNeutral = "neutral"
)

// Styles is the fixed set of style profiles, in menu order.
var Styles = []string{"neutral", "formal", "friendly", "casual", "concise", "academic"}

// legacyStyles maps the Russian labels written by earlier versions of the
// tool to the current profile names.
var legacyStyles = map[string]string{
	"нейтральный":   "neutral",
	"официальный":   "formal",
	"дружелюбный":   "friendly",
	"разговорный":   "casual",
	"лаконичный":    "concise",
	"академический": "academic",
}

// Config holds configurable parameters. JSON names match the file written
// by every version of the tool.
type Config struct {
	STTModel            string `json:"stt_model" validate:"required"`
	OutputMode          string `json:"output_mode" validate:"oneof=english russian"`
	StyleModel          string `json:"style_model" validate:"required"`
	StyleProfile        string `json:"style_profile" validate:"oneof=neutral formal friendly casual concise academic"`
	AutoPaste           bool   `json:"auto_paste"`
	GlobalHotkeyEnabled bool   `json:"global_hotkey_enabled"`
	OpenAIAPIKey        string `json:"openai_api_key"`
	SampleRate          int    `json:"sample_rate" validate:"gt=0"`
	Channels            int    `json:"channels" validate:"min=1,max=8"`
	DType               string `json:"dtype" validate:"eq=int16"`

	Hotkey             string  `json:"hotkey" validate:"required"`
	CancelKey          string  `json:"cancel_key"`
	HotkeyHook         bool    `json:"hotkey_hook"`
	HotkeyHookFallback bool    `json:"hotkey_hook_fallback"`
	Notification       bool    `json:"notification"`
	RequestTimeout     int     `json:"request_timeout" validate:"min=1"`
	MaxRetry           int     `json:"max_retry" validate:"min=1"`
	RetryBaseDelay     float64 `json:"retry_base_delay" validate:"gte=0"`
	EnableHTTP2        bool    `json:"enable_http2"`
	BaseURL            string  `json:"base_url" validate:"omitempty,url"`
	CacheDir           string  `json:"cache_dir"`
	RewriteCache       bool    `json:"rewrite_cache"`
	History            bool    `json:"history"`
	LogLevel           string  `json:"log_level" validate:"oneof=debug info warn error"`
	LogFormat          string  `json:"log_format" validate:"oneof=console json"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		STTModel:            "gpt-4o-mini-transcribe",
		OutputMode:          ModeEnglish,
		StyleModel:          "gpt-4o-mini",
		StyleProfile:        StyleNeutral,
		AutoPaste:           true,
		GlobalHotkeyEnabled: true,
		OpenAIAPIKey:        "",
		SampleRate:          16000,
		Channels:            1,
		DType:               "int16",

		Hotkey:             "ctrl+shift+r",
		CancelKey:          "",
		HotkeyHook:         false,
		HotkeyHookFallback: true,
		Notification:       false,
		RequestTimeout:     60,
		MaxRetry:           3,
		RetryBaseDelay:     0.5,
		EnableHTTP2:        true,
		BaseURL:            "",
		CacheDir:           "",
		RewriteCache:       true,
		History:            true,
		LogLevel:           "info",
		LogFormat:          "console",
	}
}

// DefaultPath is the per-user config location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get user home dir: %w", err)
	}
	return filepath.Join(home, configFileName), nil
}

// Load reads the config at path. A missing file yields defaults and no
// error. A malformed file yields defaults and an error for the caller to
// report. Keys present in the file override defaults; missing keys keep
// their default; unknown keys are ignored.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := decodeKnown(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("malformed config %s: %w", path, err)
	}
	return cfg, nil
}

// knownKeys holds the exact json names of Config fields.
var knownKeys = func() map[string]bool {
	keys := make(map[string]bool)
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		if name := strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0]; name != "" && name != "-" {
			keys[name] = true
		}
	}
	return keys
}()

// decodeKnown applies only the keys that exactly match a field name.
// encoding/json folds case, so "Auto_Paste" would otherwise land in
// AutoPaste.
func decodeKnown(data []byte, cfg *Config) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range raw {
		if !knownKeys[k] {
			delete(raw, k)
		}
	}
	filtered, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(filtered, cfg)
}

// Save writes cfg to path as indented JSON.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	// the file holds the API credential
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadEnv loads a .env file that sits next to the config file, if any.
// Variables already set in the environment win.
func LoadEnv(configPath string) error {
	p := filepath.Join(filepath.Dir(configPath), envFileName)
	if _, err := os.Stat(p); err != nil {
		return nil
	}
	return godotenv.Load(p)
}

// Mode is the output mode as used at run time. The stored value is kept
// as written.
func (c Config) Mode() string {
	return strings.ToLower(strings.TrimSpace(c.OutputMode))
}

// Style is the effective style profile, with legacy labels mapped.
func (c Config) Style() string {
	return NormalizeStyle(c.StyleProfile)
}

// NormalizeStyle maps legacy labels to profile names and falls back to
// neutral for empty input.
func NormalizeStyle(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return StyleNeutral
	}
	if v, ok := legacyStyles[s]; ok {
		return v
	}
	return strings.ToLower(s)
}

// APIKey returns the configured credential, falling back to the environment.
func (c Config) APIKey() string {
	if k := strings.TrimSpace(c.OpenAIAPIKey); k != "" {
		return k
	}
	return strings.TrimSpace(os.Getenv(EnvAPIKey))
}

// ModeLabel is the human-readable output mode shown in status messages.
func (c Config) ModeLabel() string {
	if c.Mode() == ModeRussian {
		return "Russian (no translation)"
	}
	return "English (translate + style)"
}

// KeyHint describes a credential without revealing it.
func KeyHint(key string) string {
	s := strings.TrimSpace(key)
	if s == "" {
		return "key: not set"
	}
	r := []rune(s)
	tail := r
	if len(r) > 4 {
		tail = r[len(r)-4:]
	}
	return fmt.Sprintf("key: %d chars, ends with …%s", len(r), string(tail))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate verifies config fields and returns a configuration error
// naming the first invalid key.
func Validate(cfg *Config) error {
	effective := *cfg
	effective.OutputMode = cfg.Mode()
	effective.StyleProfile = cfg.Style()
	err := validate.Struct(&effective)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return apperr.Configurationf(err, "invalid %s: %v (%s %s)", fe.Field(), fe.Value(), fe.Tag(), fe.Param())
		}
		return apperr.Configurationf(err, "invalid %s: %v (%s)", fe.Field(), fe.Value(), fe.Tag())
	}
	return apperr.Configurationf(err, "invalid config")
}

// CacheDir returns the directory for the rewrite cache, history and
// recording artifacts, creating it when needed.
func CacheDir(cfg *Config) (string, error) {
	dir := cfg.CacheDir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = os.TempDir()
		}
		dir = filepath.Join(base, appName)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("cache dir path invalid '%s': %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err == nil {
		if !info.IsDir() {
			return "", fmt.Errorf("cache dir '%s' exists but is not a directory", abs)
		}
		return abs, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("cannot access cache dir '%s': %w", abs, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return "", fmt.Errorf("cannot create cache dir '%s': %w", abs, err)
	}
	return abs, nil
}
