package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"ru2en/internal/apperr"
	"ru2en/internal/provider"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "RecordTemp_test.wav")
	if err := os.WriteFile(path, []byte("RIFF....WAVE"), 0600); err != nil {
		t.Fatalf("write temp file failed: %v", err)
	}
	return path
}

func newClient(url string, maxRetry int) *Client {
	return New(Options{
		Options: provider.Options{
			APIKey:     "sk-test",
			BaseURL:    url + "/v1/",
			HTTPClient: &http.Client{Timeout: 2 * time.Second},
		},
		MaxRetry:       maxRetry,
		RetryBaseDelay: 0,
	}, nil)
}

func TestTranscribeSuccess(t *testing.T) {
	var model, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			model = r.FormValue("model")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text":"  Привет мир \n"}`)
	}))
	defer server.Close()

	text, err := newClient(server.URL, 3).Transcribe(context.Background(), writeAudio(t), "gpt-4o-mini-transcribe")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "Привет мир" {
		t.Fatalf("text = %q", text)
	}
	if path != "/v1/audio/transcriptions" {
		t.Fatalf("path = %s", path)
	}
	if model != "gpt-4o-mini-transcribe" {
		t.Fatalf("model = %q", model)
	}
}

func TestTranscribeRetryExhaustedError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("fail"))
	}))
	defer server.Close()

	const maxRetry = 2
	_, err := newClient(server.URL, maxRetry).Transcribe(context.Background(), writeAudio(t), "whisper-1")
	if err == nil {
		t.Fatalf("expected error")
	}

	var re *RetryExhaustedError
	if !errors.As(err, &re) {
		t.Fatalf("expected RetryExhaustedError, got %T: %v", err, err)
	}
	if re.Attempts != maxRetry {
		t.Fatalf("expected attempts %d, got %d", maxRetry, re.Attempts)
	}
	if re.MaxRetry != maxRetry {
		t.Fatalf("expected MaxRetry %d, got %d", maxRetry, re.MaxRetry)
	}
	if int(hits.Load()) != maxRetry {
		t.Fatalf("server hit %d times, want %d", hits.Load(), maxRetry)
	}
	if !apperr.Is(err, apperr.Service) {
		t.Fatalf("expected service error, got %v", apperr.KindOf(err))
	}
}

func TestTranscribeRejectedKeyIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided"}}`)
	}))
	defer server.Close()

	_, err := newClient(server.URL, 5).Transcribe(context.Background(), writeAudio(t), "whisper-1")
	if !apperr.Is(err, apperr.Configuration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("server hit %d times, want 1", hits.Load())
	}
}

func TestTranscribeMissingKeyMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	c := New(Options{Options: provider.Options{BaseURL: server.URL + "/v1/"}}, nil)
	_, err := c.Transcribe(context.Background(), writeAudio(t), "whisper-1")
	if !errors.Is(err, provider.ErrNoAPIKey) || !apperr.Is(err, apperr.Configuration) {
		t.Fatalf("expected missing key error, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatal("request made without a key")
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	c := newClient("http://127.0.0.1:1", 3)
	_, err := c.Transcribe(context.Background(), filepath.Join(t.TempDir(), "absent.wav"), "whisper-1")
	if !apperr.Is(err, apperr.Capture) {
		t.Fatalf("expected capture error, got %v", err)
	}
}

func TestTranscribeRecoversAfterTransientFailure(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text":"Привет"}`)
	}))
	defer server.Close()

	text, err := newClient(server.URL, 3).Transcribe(context.Background(), writeAudio(t), "whisper-1")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "Привет" || hits.Load() != 2 {
		t.Fatalf("text = %q after %d requests", text, hits.Load())
	}
}

func TestRetryConfig(t *testing.T) {
	c := New(Options{
		Options:        provider.Options{APIKey: "sk-test"},
		MaxRetry:       4,
		RetryBaseDelay: 250 * time.Millisecond,
	}, nil)
	cfg := c.retryConfig()
	if cfg.MaxAttempts != 4 || cfg.InitialBackoff != 250*time.Millisecond || cfg.BackoffFactor != 2 {
		t.Fatalf("retry config = %+v", cfg)
	}
	if cfg.RetryIf(apperr.Configurationf(nil, "Invalid API key")) {
		t.Fatal("configuration errors must not be retried")
	}
	if !cfg.RetryIf(apperr.Servicef(nil, "Transcription failed")) {
		t.Fatal("service errors should be retried")
	}
}
