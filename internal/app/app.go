// Package app assembles the components for each run mode.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http2"

	"ru2en/internal/activate"
	"ru2en/internal/apperr"
	"ru2en/internal/audio/ffmpeg"
	"ru2en/internal/cache"
	"ru2en/internal/clipboard"
	"ru2en/internal/config"
	"ru2en/internal/focus"
	"ru2en/internal/history"
	"ru2en/internal/hotkey"
	"ru2en/internal/logger"
	"ru2en/internal/notify"
	"ru2en/internal/paste"
	"ru2en/internal/pipeline"
	"ru2en/internal/provider"
	"ru2en/internal/record"
	"ru2en/internal/rewrite"
	"ru2en/internal/status"
	"ru2en/internal/transcribe"
	"ru2en/internal/tray"
	"ru2en/internal/win32"
)

const statusQueueSize = 64

// App holds what every run mode shares: config, logger, HTTP client and
// the optional stores under the cache dir.
type App struct {
	cfg      config.Config
	log      *logger.Logger
	dir      string
	tempDir  string
	client   *http.Client
	cache    *cache.Cache
	history  *history.Store
	closeFns []func() error
}

// New opens the stores the config asks for. Store failures are logged and
// the feature is disabled; only an unusable cache dir is an error.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	dir, err := config.CacheDir(&cfg)
	if err != nil {
		return nil, err
	}
	a := &App{
		cfg:     cfg,
		log:     log.Named("app"),
		dir:     dir,
		tempDir: os.TempDir(),
		client:  newHTTPClient(cfg),
	}

	if cfg.RewriteCache {
		c, err := cache.Open(filepath.Join(dir, "rewrite"))
		if err != nil {
			a.log.Warn("rewrite cache disabled", logger.Error(err))
		} else {
			a.cache = c
			a.closeFns = append(a.closeFns, c.Close)
		}
	}
	if cfg.History {
		h, err := history.Open(ctx, filepath.Join(dir, "history.db"), log.Named("history"))
		if err != nil {
			a.log.Warn("history disabled", logger.Error(err))
		} else {
			a.history = h
			a.closeFns = append(a.closeFns, h.Close)
		}
	}
	return a, nil
}

// Close releases the stores and idle connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		if err := a.closeFns[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.client.CloseIdleConnections()
	return errors.Join(errs...)
}

func (a *App) providerOptions() provider.Options {
	return provider.Options{
		APIKey:     a.cfg.APIKey(),
		BaseURL:    a.cfg.BaseURL,
		HTTPClient: a.client,
	}
}

func (a *App) transcriber() *transcribe.Client {
	return transcribe.New(transcribe.Options{
		Options:        a.providerOptions(),
		MaxRetry:       a.cfg.MaxRetry,
		RetryBaseDelay: time.Duration(a.cfg.RetryBaseDelay * float64(time.Second)),
	}, a.log.Named("transcribe"))
}

func (a *App) rewriter() *rewrite.Rewriter {
	return rewrite.New(rewrite.Options{
		Options: a.providerOptions(),
		Model:   a.cfg.StyleModel,
		Cache:   a.cache,
	}, a.log.Named("rewrite"))
}

func (a *App) banner() {
	a.log.Info("ready",
		logger.String("mode", a.cfg.ModeLabel()),
		logger.String("stt_model", a.cfg.STTModel),
		logger.String("style_model", a.cfg.StyleModel),
		logger.String("style", a.cfg.Style()),
		logger.Bool("auto_paste", a.cfg.AutoPaste),
		logger.String("hotkey", a.cfg.Hotkey),
		logger.String("api_key", config.KeyHint(a.cfg.APIKey())),
		logger.String("data_dir", a.dir),
	)
}

// RunRecordMode starts the hotkey listener and the tray, and blocks until
// the user quits or ctx ends.
func (a *App) RunRecordMode(ctx context.Context) error {
	cleanupOldTempFiles(a.tempDir, a.log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := a.cfg
	desktop := win32.NewDesktop()
	tracker := focus.NewTracker(desktop, a.log.Named("focus"))
	clip := clipboard.System{}
	queue := status.NewQueue(statusQueueSize)

	deps := pipeline.Deps{
		Recorder:    record.NewSession(record.DefaultMicrophone(), cfg.SampleRate, cfg.Channels, a.log.Named("record")),
		Tracker:     tracker,
		Activator:   activate.New(desktop, tracker, activate.DefaultTiming(), a.log.Named("activate")),
		Injector:    paste.New(clip, desktop, paste.DefaultStrategies(desktop), paste.DefaultTiming(), a.log.Named("paste")),
		Transcriber: a.transcriber(),
		Rewriter:    a.rewriter(),
		Status:      queue,
		Log:         a.log.Named("pipeline"),
	}
	if a.history != nil {
		deps.History = a.history
	}
	opts := pipeline.DefaultOptions()
	opts.TempDir = a.tempDir
	orch := pipeline.New(cfg, deps, opts)

	if clipboard.Unsupported() {
		a.log.Warn("no clipboard backend, pasting will fail")
	}
	if cfg.APIKey() == "" {
		queue.Publish(status.Event{Kind: status.Warning, Message: "OpenAI API key is not set. Recording is disabled until it is configured."})
	}

	if cfg.GlobalHotkeyEnabled {
		l, err := hotkey.Register(hotkey.Options{
			Toggle:       cfg.Hotkey,
			Cancel:       cfg.CancelKey,
			Hook:         cfg.HotkeyHook,
			HookFallback: cfg.HotkeyHookFallback,
		}, func(id hotkey.ID) {
			switch id {
			case hotkey.Toggle:
				orch.Toggle(ctx)
			case hotkey.Cancel:
				orch.Cancel()
			}
		}, a.log.Named("hotkey"))
		if err != nil {
			a.log.Error("global hotkey unavailable", logger.Error(err))
			queue.Publish(status.Event{Kind: status.Warning, Message: fmt.Sprintf("Global hotkey %s unavailable: %v", cfg.Hotkey, err)})
		} else {
			defer l.Stop()
			a.log.Info("hotkey listener started", logger.String("mode", l.Mode()))
		}
	} else {
		a.log.Warn("global hotkey disabled by config")
	}

	a.banner()

	notifier := notify.New(cfg.Notification, nil, a.log.Named("notify"))
	tray.Run(ctx, tray.Options{
		Events:   queue.Events(),
		Handlers: []func(status.Event){notifier.Handle},
		LastText: func() string { return a.lastText(ctx, orch) },
		Copy:     clip.WriteAll,
		OnQuit:   cancel,
		Log:      a.log.Named("tray"),
	})

	orch.Wait()
	a.log.Info("stopped")
	return nil
}

// lastText prefers the current session and falls back to history.
func (a *App) lastText(ctx context.Context, orch *pipeline.Orchestrator) string {
	if t := orch.LastText(); t != "" {
		return t
	}
	if a.history == nil {
		return ""
	}
	t, err := a.history.LastText(ctx)
	if err != nil {
		return ""
	}
	return t
}

// RunFileMode transcribes an existing audio file, applies the output mode
// and writes the result to a .txt file. The output path is returned.
func (a *App) RunFileMode(ctx context.Context, inputPath, outputPath string) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("file '%s' stat failed: %w", inputPath, err)
	}
	if a.cfg.APIKey() == "" {
		return "", provider.MissingKey()
	}

	upload := inputPath
	if ffmpeg.NeedsConversion(inputPath) {
		tmp := record.TempWAVPath(a.tempDir)
		defer os.Remove(tmp)
		conv := ffmpeg.New(a.cfg.SampleRate, a.cfg.Channels, a.log.Named("ffmpeg"))
		if err := conv.ToWAV(ctx, inputPath, tmp); err != nil {
			return "", apperr.Capturef(err, "Cannot convert %s: %v", filepath.Base(inputPath), err)
		}
		upload = tmp
	}

	raw, err := a.transcriber().Transcribe(ctx, upload, a.cfg.STTModel)
	if err != nil {
		return "", err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.Servicef(nil, "Empty transcription result.")
	}
	text, err := pipeline.Compose(ctx, a.rewriter(), a.cfg, raw)
	if err != nil {
		return "", err
	}

	outPath := outputPath
	if outPath == "" {
		base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		outPath = filepath.Join(".", base+".txt")
	}
	if err := os.WriteFile(outPath, []byte(text), 0644); err != nil {
		return "", err
	}

	if a.history != nil {
		err := a.history.Append(ctx, history.Run{
			RunID:      uuid.NewString(),
			OutputMode: a.cfg.Mode(),
			Style:      a.cfg.Style(),
			Transcript: raw,
			FinalText:  text,
			Outcome:    "file",
			Message:    outPath,
		})
		if err != nil {
			a.log.Warn("history append failed", logger.Error(err))
		}
	}
	a.log.Info("file processed", logger.String("input", inputPath), logger.String("output", outPath))
	return outPath, nil
}

// PrintHistory writes the newest n runs to w.
func (a *App) PrintHistory(ctx context.Context, w io.Writer, n int) error {
	if a.history == nil {
		return errors.New("history is disabled in the config")
	}
	runs, err := a.history.List(ctx, n)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintln(w, formatRun(r))
	}
	return nil
}

func formatRun(r history.Run) string {
	text := r.FinalText
	if text == "" {
		text = r.Message
	}
	return fmt.Sprintf("%s  %-9s  %-7s  %-8s  %s",
		r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		r.Outcome, r.OutputMode, r.Style, oneLine(text))
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > 80 {
		return string(r[:79]) + "…"
	}
	return s
}

// CopyLast puts the most recent result back on the clipboard.
func (a *App) CopyLast(ctx context.Context) (string, error) {
	if a.history == nil {
		return "", errors.New("history is disabled in the config")
	}
	if clipboard.Unsupported() {
		return "", errors.New("no clipboard backend available")
	}
	text, err := a.history.LastText(ctx)
	if err != nil {
		return "", err
	}
	if err := (clipboard.System{}).WriteAll(text); err != nil {
		return "", err
	}
	return text, nil
}

func newHTTPClient(cfg config.Config) *http.Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if cfg.EnableHTTP2 {
		_ = http2.ConfigureTransport(tr)
	}
	return &http.Client{
		Transport: tr,
		Timeout:   time.Duration(cfg.RequestTimeout) * time.Second,
	}
}

// cleanupOldTempFiles removes recording artifacts left by a crashed run.
func cleanupOldTempFiles(dir string, log *logger.Logger) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn("temp dir unreadable", logger.String("dir", dir), logger.Error(err))
		return 0
	}
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, record.TempPrefix) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			log.Warn("temp file not removed", logger.String("path", path), logger.Error(err))
			continue
		}
		removed++
		log.Debug("removed temp file", logger.String("path", path))
	}
	return removed
}
