package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kbukum/gokit/resilience"
	"github.com/openai/openai-go/v3"

	"ru2en/internal/apperr"
	"ru2en/internal/logger"
	"ru2en/internal/provider"
)

const maxBackoff = 30 * time.Second

// RetryExhaustedError is the cause of the service error returned once every
// attempt has failed.
type RetryExhaustedError struct {
	Attempts int
	MaxRetry int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("exceeded max retries (%d): %v", e.MaxRetry, e.Last)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Last }

// Options configures the client.
type Options struct {
	provider.Options
	MaxRetry       int
	RetryBaseDelay time.Duration
}

// Client transcribes audio files.
type Client struct {
	api            openai.Client
	hasKey         bool
	maxRetry       int
	retryBaseDelay time.Duration
	log            *logger.Logger
}

// New creates a client. A missing API key is reported by Transcribe so the
// tool can start and tell the user on first use.
func New(opts Options, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	if opts.MaxRetry < 1 {
		opts.MaxRetry = 1
	}
	return &Client{
		api:            provider.NewClient(opts.Options),
		hasKey:         strings.TrimSpace(opts.APIKey) != "",
		maxRetry:       opts.MaxRetry,
		retryBaseDelay: opts.RetryBaseDelay,
		log:            log,
	}
}

// Transcribe uploads the audio file and returns the trimmed transcript.
// Failed uploads are retried with a doubling delay.
func (c *Client) Transcribe(ctx context.Context, audioPath, model string) (string, error) {
	if !c.hasKey {
		return "", provider.MissingKey()
	}

	attempts := 0
	start := time.Now()
	text, err := resilience.Retry(ctx, c.retryConfig(), func() (string, error) {
		attempts++
		return c.upload(ctx, audioPath, model)
	})
	if err == nil {
		c.log.Debug("transcribed",
			logger.String("model", model),
			logger.Int("attempt", attempts),
			logger.Duration("elapsed", time.Since(start)),
			logger.Int("chars", len([]rune(text))),
		)
		return text, nil
	}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return "", apperr.Servicef(err, "Transcription failed")
	}
	if !provider.Retryable(err) {
		return "", err
	}
	c.log.Warn("transcription retries exhausted", logger.Int("attempts", attempts), logger.Error(err))
	return "", apperr.Servicef(&RetryExhaustedError{Attempts: attempts, MaxRetry: c.maxRetry, Last: err}, "Transcription failed")
}

func (c *Client) retryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    c.maxRetry,
		InitialBackoff: c.retryBaseDelay,
		MaxBackoff:     maxBackoff,
		BackoffFactor:  2,
		RetryIf:        provider.Retryable,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			c.log.Warn("transcription attempt failed",
				logger.Int("attempt", attempt),
				logger.Duration("backoff", backoff),
				logger.Error(err),
			)
		},
	}
}

func (c *Client) upload(ctx context.Context, audioPath, model string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", apperr.Capturef(err, "Cannot open audio file: %v", err)
	}
	defer f.Close()

	resp, err := c.api.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(model),
	})
	if err != nil {
		return "", provider.Classify(err, "Transcription")
	}
	return strings.TrimSpace(resp.Text), nil
}
