// Package pipeline sequences one dictation cycle: hotkey, capture,
// transcription, optional rewrite, window activation and paste.
//
// Toggle runs on the hotkey goroutine and only does the work that must be
// synchronous there (the focus snapshot and the state flip). Everything
// after the second press runs on a worker goroutine and reports through a
// status publisher.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ru2en/internal/activate"
	"ru2en/internal/apperr"
	"ru2en/internal/config"
	"ru2en/internal/focus"
	"ru2en/internal/history"
	"ru2en/internal/logger"
	"ru2en/internal/provider"
	"ru2en/internal/record"
	"ru2en/internal/status"
	"ru2en/internal/win32"
)

// Recorder is the capture session.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() (*record.Buffer, error)
	Cancel() error
}

// Tracker snapshots and resolves focus targets.
type Tracker interface {
	Snapshot() win32.HWND
	ResolveTarget(win32.HWND) focus.Target
}

// Activator brings a target back to the foreground.
type Activator interface {
	Activate(ctx context.Context, target focus.Target) (activate.Result, error)
}

// Injector owns the clipboard and the paste keystroke.
type Injector interface {
	Copy(text string) error
	Paste(ctx context.Context, text string) (string, error)
}

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, model string) (string, error)
}

// Rewriter restyles text, translating to English when forced.
type Rewriter interface {
	Rewrite(ctx context.Context, text, style string, forceTargetLanguage bool) (string, error)
}

// History records finished runs.
type History interface {
	Append(ctx context.Context, r history.Run) error
}

// Publisher receives status events. It must not block.
type Publisher interface {
	Publish(status.Event)
}

// Deps are the collaborators of the orchestrator. History is optional.
type Deps struct {
	Recorder    Recorder
	Tracker     Tracker
	Activator   Activator
	Injector    Injector
	Transcriber Transcriber
	Rewriter    Rewriter
	History     History
	Status      Publisher
	Log         *logger.Logger
}

// Options tune capture validation and artifact placement.
type Options struct {
	TempDir     string
	MinDuration time.Duration
	SilencePeak int
}

// DefaultOptions returns production thresholds.
func DefaultOptions() Options {
	return Options{MinDuration: record.MinDuration, SilencePeak: record.SilencePeak}
}

// PipelineContext is the state of one run. The orchestrator creates it at
// record start and hands it to every step; nothing outlives the run.
type PipelineContext struct {
	RunID   string
	Config  config.Config
	Window  win32.HWND
	State   status.State
	Started time.Time
	Log     *logger.Logger

	AudioSecs  float64
	Transcript string
	FinalText  string
}

// Orchestrator owns the pipeline state machine.
type Orchestrator struct {
	deps Deps
	opts Options
	log  *logger.Logger

	mu       sync.Mutex
	cfg      config.Config
	state    status.State
	run      *PipelineContext
	lastText string

	wg sync.WaitGroup
}

// New creates an idle orchestrator.
func New(cfg config.Config, deps Deps, opts Options) *Orchestrator {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{deps: deps, opts: opts, log: log, cfg: cfg, state: status.Idle}
}

// State returns the current pipeline state.
func (o *Orchestrator) State() status.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastText returns the final text of the most recent successful run.
func (o *Orchestrator) LastText() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastText
}

// Wait blocks until every worker started so far has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Toggle starts a recording when idle and hands the recording to a worker
// when recording. Presses while a run is being processed are ignored.
func (o *Orchestrator) Toggle(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case status.Idle:
		o.startLocked(ctx)
	case status.Recording:
		pc := o.run
		o.setStateLocked(pc, status.Processing)
		o.wg.Add(1)
		go o.process(ctx, pc)
	default:
		o.log.Info("busy, hotkey ignored", logger.String("state", o.state.String()))
	}
}

// Cancel discards the current recording. It does nothing in other states.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != status.Recording {
		return
	}
	pc := o.run
	if err := o.deps.Recorder.Cancel(); err != nil {
		pc.Log.Warn("cancel failed", logger.Error(err))
	}
	o.setStateLocked(pc, status.Idle)
	o.run = nil
	o.publish(pc, status.Warning, "Recording discarded.", "")
	o.appendHistory(pc, "canceled", "Recording discarded.")
}

func (o *Orchestrator) startLocked(ctx context.Context) {
	// The user is already in the target window; take the snapshot before
	// anything else can steal the foreground.
	window := o.deps.Tracker.Snapshot()

	runID := uuid.NewString()
	pc := &PipelineContext{
		RunID:   runID,
		Config:  o.cfg,
		Window:  window,
		State:   status.Idle,
		Started: time.Now(),
		Log:     o.log.WithRun(runID),
	}

	if pc.Config.APIKey() == "" {
		o.publish(pc, status.Failure, apperr.MessageOf(provider.MissingKey()), "")
		pc.Log.Warn("run refused", logger.String("reason", "no api key"))
		return
	}

	if err := o.deps.Recorder.Start(ctx); err != nil {
		msg := apperr.MessageOf(err)
		pc.Log.Error("recording failed to start", logger.Error(err))
		o.publish(pc, status.Failure, msg, "")
		o.appendHistory(pc, "failed", msg)
		return
	}

	o.run = pc
	o.setStateLocked(pc, status.Recording)
	pc.Log.Info("recording", logger.Uintptr("hwnd", uintptr(window)))
	o.publish(pc, status.Progress, fmt.Sprintf("Recording… Speak now. Press %s again to stop.", pc.Config.Hotkey), "")
}

func (o *Orchestrator) process(ctx context.Context, pc *PipelineContext) {
	defer o.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("Internal error: %v", r)
			pc.Log.Error("pipeline panic", logger.Any("panic", r))
			o.publish(pc, status.Failure, msg, "")
			o.appendHistory(pc, "failed", msg)
		}
		o.mu.Lock()
		o.setStateLocked(pc, status.Idle)
		if o.run == pc {
			o.run = nil
		}
		o.mu.Unlock()
	}()

	o.publish(pc, status.Progress, "Processing… Mode: "+pc.Config.ModeLabel(), "")

	final, err := o.produce(ctx, pc)
	if err != nil {
		msg := apperr.MessageOf(err)
		pc.Log.Warn("run failed", logger.String("kind", apperr.KindOf(err).String()), logger.Error(err))
		o.publish(pc, status.Failure, msg, "")
		o.appendHistory(pc, "failed", msg)
		return
	}

	pc.FinalText = final
	o.mu.Lock()
	o.lastText = final
	o.mu.Unlock()

	outcome, kind, msg := o.deliver(ctx, pc)
	o.publish(pc, kind, msg, final)
	o.appendHistory(pc, outcome, msg)
	pc.Log.Info("run finished", logger.String("outcome", outcome), logger.Duration("elapsed", time.Since(pc.Started)))
}

// produce stops capture, validates the buffer and runs the external
// services. No service is called for an invalid recording.
func (o *Orchestrator) produce(ctx context.Context, pc *PipelineContext) (string, error) {
	buf, err := o.deps.Recorder.Stop()
	if err != nil {
		return "", err
	}
	pc.AudioSecs = buf.Duration().Seconds()
	if err := buf.Validate(o.opts.MinDuration, o.opts.SilencePeak); err != nil {
		return "", err
	}

	wavPath := record.TempWAVPath(o.opts.TempDir)
	if err := buf.WriteWAV(wavPath); err != nil {
		return "", apperr.Capturef(err, "Could not save the recording: %v", err)
	}
	defer os.Remove(wavPath)

	raw, err := o.deps.Transcriber.Transcribe(ctx, wavPath, pc.Config.STTModel)
	if err != nil {
		return "", err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.Servicef(nil, "Empty transcription result.")
	}
	pc.Transcript = raw
	pc.Log.Debug("transcript", logger.Int("chars", len([]rune(raw))))

	return Compose(ctx, o.deps.Rewriter, pc.Config, raw)
}

// Compose applies the output mode to a transcript: Russian keeps it, English
// restyles it and forces translation whenever the transcript is Cyrillic.
func Compose(ctx context.Context, rw Rewriter, cfg config.Config, raw string) (string, error) {
	if cfg.Mode() == config.ModeRussian {
		return raw, nil
	}
	force := LooksLikeSourceLanguage(raw)
	out, err := rw.Rewrite(ctx, raw, cfg.Style(), force)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", apperr.Servicef(nil, "Empty rewrite result.")
	}
	return out, nil
}

// deliver puts the text where the user wants it. Activation and paste
// failures are reported but leave the text on the clipboard.
func (o *Orchestrator) deliver(ctx context.Context, pc *PipelineContext) (outcome string, kind status.Kind, msg string) {
	text := pc.FinalText

	if !pc.Config.AutoPaste {
		o.setState(pc, status.AwaitingManualPaste)
		if err := o.deps.Injector.Copy(text); err != nil {
			return "failed", status.Failure, apperr.MessageOf(err)
		}
		return "clipboard", status.Done, "Done. Use Ctrl+V to paste."
	}

	if pc.Window == 0 {
		// nothing had focus at record start; use whatever has it now
		pc.Window = o.deps.Tracker.Snapshot()
	}
	target := o.deps.Tracker.ResolveTarget(pc.Window)
	if !target.Valid() {
		o.setState(pc, status.AwaitingManualPaste)
		if err := o.deps.Injector.Copy(text); err != nil {
			return "failed", status.Failure, apperr.MessageOf(err)
		}
		return "clipboard", status.Warning, "Target window is gone. Text is on the clipboard; use Ctrl+V."
	}

	o.setState(pc, status.Pasting)
	o.publish(pc, status.Progress, "Pasting…", "")

	res, err := o.deps.Activator.Activate(ctx, target)
	if err != nil {
		pc.Log.Warn("activation failed, pasting anyway", logger.Error(err))
	} else {
		pc.Log.Debug("activated",
			logger.String("strategy", target.Strategy),
			logger.Bool("attached", res.Attached),
			logger.Bool("focused", res.Focused),
		)
	}

	used, err := o.deps.Injector.Paste(ctx, text)
	if err != nil {
		pc.Log.Warn("paste failed", logger.Error(err))
		if apperr.KindOf(err).Fatal() {
			return "failed", status.Failure, apperr.MessageOf(err)
		}
		return "clipboard", status.Warning, apperr.MessageOf(err)
	}
	pc.Log.Debug("pasted", logger.String("strategy", used))
	return "pasted", status.Done, "Pasted into the active field."
}

func (o *Orchestrator) setState(pc *PipelineContext, s status.State) {
	o.mu.Lock()
	o.setStateLocked(pc, s)
	o.mu.Unlock()
}

func (o *Orchestrator) setStateLocked(pc *PipelineContext, s status.State) {
	o.state = s
	pc.State = s
}

func (o *Orchestrator) publish(pc *PipelineContext, kind status.Kind, msg, text string) {
	if o.deps.Status == nil {
		return
	}
	o.deps.Status.Publish(status.Event{
		RunID:   pc.RunID,
		State:   pc.State,
		Kind:    kind,
		Message: msg,
		Text:    text,
		At:      time.Now(),
	})
}

func (o *Orchestrator) appendHistory(pc *PipelineContext, outcome, msg string) {
	if o.deps.History == nil {
		return
	}
	err := o.deps.History.Append(context.Background(), history.Run{
		RunID:      pc.RunID,
		OutputMode: pc.Config.Mode(),
		Style:      pc.Config.Style(),
		Transcript: pc.Transcript,
		FinalText:  pc.FinalText,
		Outcome:    outcome,
		Message:    msg,
		AudioSecs:  pc.AudioSecs,
	})
	if err != nil {
		pc.Log.Warn("history append failed", logger.Error(err))
	}
}
