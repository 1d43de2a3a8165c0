// ru2en - dictate in Russian, paste in English.
//
// Press the hotkey, speak, press it again: the recording is transcribed,
// optionally restyled and translated, and pasted into the window that had
// focus when recording started.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ru2en/internal/app"
	"ru2en/internal/apperr"
	"ru2en/internal/config"
	"ru2en/internal/logger"
)

func usage() {
	fmt.Fprintf(os.Stderr, `ru2en - Russian dictation with English output

Usage:
  ru2en [flags]                 run in the tray and listen for the hotkey
  ru2en -file in.m4a [-output out.txt]
  ru2en -history 20
  ru2en -last
  ru2en -init

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	fv := config.BindFlags(flag.CommandLine)
	flag.Parse()

	os.Exit(run(fv))
}

func run(fv *config.FlagValues) int {
	path := fv.ConfigPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "[main] %v\n", err)
			return 1
		}
		path = p
	}

	if fv.Init {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(os.Stderr, "[main] config already exists at %s\n", path)
			return 1
		}
		if err := config.Save(path, config.DefaultConfig()); err != nil {
			fmt.Fprintf(os.Stderr, "[main] failed to write default config: %v\n", err)
			return 1
		}
		fmt.Printf("[main] default config created at %s. Please edit it and re-run.\n", path)
		return 0
	}

	envErr := config.LoadEnv(path)
	cfg, loadErr := config.Load(path)
	config.ApplyFlags(&cfg, fv)

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "[main] %v\n", err)
		return 1
	}
	defer log.Sync()
	mainLog := log.Named("main")

	if envErr != nil {
		mainLog.Warn(".env not loaded", logger.Error(envErr))
	}
	if loadErr != nil {
		mainLog.Warn("config unreadable, using defaults", logger.String("path", path), logger.Error(loadErr))
	}
	if err := config.Validate(&cfg); err != nil {
		mainLog.Error("invalid config", logger.String("path", path), logger.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		mainLog.Error("startup failed", logger.Error(err))
		return 1
	}
	defer a.Close()

	switch {
	case fv.History > 0:
		if err := a.PrintHistory(ctx, os.Stdout, fv.History); err != nil {
			mainLog.Error("history unavailable", logger.Error(err))
			return 1
		}
		return 0

	case fv.Last:
		text, err := a.CopyLast(ctx)
		if err != nil {
			mainLog.Error("no last result", logger.Error(err))
			return 1
		}
		mainLog.Info("last result copied to clipboard", logger.Int("chars", len([]rune(text))))
		return 0

	case fv.FilePath != "":
		out, err := a.RunFileMode(ctx, fv.FilePath, fv.OutputPath)
		if err != nil {
			mainLog.Error("file mode failed", logger.String("kind", apperr.KindOf(err).String()), logger.Error(err))
			if apperr.Is(err, apperr.Configuration) {
				return 1
			}
			return 3
		}
		fmt.Println(out)
		return 0
	}

	if err := a.RunRecordMode(ctx); err != nil && !errors.Is(err, context.Canceled) {
		mainLog.Error("record mode failed", logger.Error(err))
		return 1
	}
	return 0
}
