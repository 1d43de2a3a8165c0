// Package provider builds the OpenAI client shared by transcription and
// rewriting and maps its failures onto the error taxonomy.
package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"ru2en/internal/apperr"
)

// Options configures the client.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns an OpenAI client. Retries are left to callers.
func NewClient(opts Options) openai.Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	return openai.NewClient(reqOpts...)
}

// ErrNoAPIKey is the cause of the configuration error returned before any
// request is made without a credential.
var ErrNoAPIKey = errors.New("unauthenticated: no API key")

// MissingKey returns the error reported when no credential is configured.
func MissingKey() error {
	return apperr.Configurationf(ErrNoAPIKey, "OpenAI API key is not set. Add openai_api_key to the config or set OPENAI_API_KEY.")
}

// Classify turns a client error into an apperr. Rejected credentials are
// configuration errors; everything else is a service error carrying the
// provider message.
func Classify(err error, what string) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperr.Configurationf(err, "OpenAI rejected the API key (HTTP %d).", apiErr.StatusCode)
		}
	}
	return apperr.Servicef(err, "%s failed", what)
}

// Retryable reports whether a classified error is worth another attempt.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return apperr.Is(err, apperr.Service)
}
