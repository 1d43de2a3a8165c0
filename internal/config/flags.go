package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// FlagValues holds parsed flags with explicit set tracking.
type FlagValues struct {
	ConfigPath string

	Hotkey          string
	HotkeySet       bool
	CancelKey       string
	CancelKeySet    bool
	HotkeyHook      bool
	HotkeyHookSet   bool
	OutputMode      string
	OutputModeSet   bool
	Style           string
	StyleSet        bool
	STTModel        string
	STTModelSet     bool
	StyleModel      string
	StyleModelSet   bool
	AutoPaste       bool
	AutoPasteSet    bool
	Notification    bool
	NotificationSet bool
	LogLevel        string
	LogLevelSet     bool
	LogFormat       string
	LogFormatSet    bool

	// Alternate run modes.
	FilePath   string
	OutputPath string
	History    int
	Last       bool
	Init       bool
}

type stringFlag struct {
	target *string
	set    *bool
}

func (s *stringFlag) String() string {
	if s == nil || s.target == nil {
		return ""
	}
	return *s.target
}

func (s *stringFlag) Set(v string) error {
	if s.target != nil {
		*s.target = v
	}
	if s.set != nil {
		*s.set = true
	}
	return nil
}

type boolFlag struct {
	target *bool
	set    *bool
}

func (b *boolFlag) String() string {
	if b == nil || b.target == nil {
		return ""
	}
	return fmt.Sprintf("%v", *b.target)
}

// IsBoolFlag lets "-auto-paste" be given without a value.
func (b *boolFlag) IsBoolFlag() bool { return true }

func parseBoolExt(v string) (bool, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean: %s", v)
}

func (b *boolFlag) Set(v string) error {
	n, err := parseBoolExt(v)
	if err != nil {
		return err
	}
	if b.target != nil {
		*b.target = n
	}
	if b.set != nil {
		*b.set = true
	}
	return nil
}

type intFlag struct {
	target *int
}

func (i *intFlag) String() string {
	if i == nil || i.target == nil {
		return ""
	}
	return strconv.Itoa(*i.target)
}

func (i *intFlag) Set(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*i.target = n
	return nil
}

// BindFlags registers all flags and returns the populated FlagValues.
func BindFlags(fs *flag.FlagSet) *FlagValues {
	fv := &FlagValues{}

	fs.StringVar(&fv.ConfigPath, "config", "", "path to config JSON (default ~/"+configFileName+")")

	fs.Var(&stringFlag{&fv.Hotkey, &fv.HotkeySet}, "hotkey", "record/stop chord, e.g. ctrl+shift+r")
	fs.Var(&stringFlag{&fv.CancelKey, &fv.CancelKeySet}, "cancel-key", "chord that discards the current recording")
	fs.Var(&boolFlag{&fv.HotkeyHook, &fv.HotkeyHookSet}, "hotkey-hook", "use low-level keyboard hook (true/false)")
	fs.Var(&stringFlag{&fv.OutputMode, &fv.OutputModeSet}, "output-mode", "english or russian")
	fs.Var(&stringFlag{&fv.Style, &fv.StyleSet}, "style", "style profile: "+strings.Join(Styles, ", "))
	fs.Var(&stringFlag{&fv.STTModel, &fv.STTModelSet}, "stt-model", "transcription model")
	fs.Var(&stringFlag{&fv.StyleModel, &fv.StyleModelSet}, "style-model", "rewriting model")
	fs.Var(&boolFlag{&fv.AutoPaste, &fv.AutoPasteSet}, "auto-paste", "paste into the focused window (true/false)")
	fs.Var(&boolFlag{&fv.Notification, &fv.NotificationSet}, "notification", "enable notifications (true/false)")
	fs.Var(&stringFlag{&fv.LogLevel, &fv.LogLevelSet}, "log-level", "debug, info, warn, error")
	fs.Var(&stringFlag{&fv.LogFormat, &fv.LogFormatSet}, "log-format", "console or json")

	fs.StringVar(&fv.FilePath, "file", "", "process an existing audio file instead of recording")
	fs.StringVar(&fv.OutputPath, "output", "", "output txt path for -file mode")
	fs.Var(&intFlag{&fv.History}, "history", "print the last N runs and exit")
	fs.BoolVar(&fv.Last, "last", false, "copy the last result to the clipboard and exit")
	fs.BoolVar(&fv.Init, "init", false, "write a default config file and exit")

	return fv
}

// ApplyFlags applies present flags to the config.
func ApplyFlags(cfg *Config, fv *FlagValues) {
	if fv.HotkeySet {
		cfg.Hotkey = fv.Hotkey
	}
	if fv.CancelKeySet {
		cfg.CancelKey = fv.CancelKey
	}
	if fv.HotkeyHookSet {
		cfg.HotkeyHook = fv.HotkeyHook
	}
	if fv.OutputModeSet {
		cfg.OutputMode = fv.OutputMode
	}
	if fv.StyleSet {
		cfg.StyleProfile = fv.Style
	}
	if fv.STTModelSet {
		cfg.STTModel = fv.STTModel
	}
	if fv.StyleModelSet {
		cfg.StyleModel = fv.StyleModel
	}
	if fv.AutoPasteSet {
		cfg.AutoPaste = fv.AutoPaste
	}
	if fv.NotificationSet {
		cfg.Notification = fv.Notification
	}
	if fv.LogLevelSet {
		cfg.LogLevel = fv.LogLevel
	}
	if fv.LogFormatSet {
		cfg.LogFormat = fv.LogFormat
	}
}

// AnySet reports whether any config-overriding flag was explicitly set.
func (fv *FlagValues) AnySet() bool {
	return fv.HotkeySet ||
		fv.CancelKeySet ||
		fv.HotkeyHookSet ||
		fv.OutputModeSet ||
		fv.StyleSet ||
		fv.STTModelSet ||
		fv.StyleModelSet ||
		fv.AutoPasteSet ||
		fv.NotificationSet ||
		fv.LogLevelSet ||
		fv.LogFormatSet
}
