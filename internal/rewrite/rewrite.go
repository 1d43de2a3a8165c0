// Package rewrite restyles or translates a transcript with a chat model,
// keeping the content literal.
package rewrite

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"

	"ru2en/internal/apperr"
	"ru2en/internal/cache"
	"ru2en/internal/logger"
	"ru2en/internal/provider"
)

// SystemPrompt is sent with every request.
const SystemPrompt = "You rewrite text in STRICT LITERAL MODE to match the requested style WITHOUT changing meaning.\n" +
	"HARD CONSTRAINTS:\n" +
	"1) Do NOT add or remove information.\n" +
	"2) Preserve named entities, numbers, code, URLs, and technical terms exactly.\n" +
	"3) Sentence alignment 1:1.\n" +
	"4) Keep length close to original; no fluff.\n" +
	"5) Output plain text only."

const (
	goalTranslate = "Translate the text to English literally, then match the style without altering meaning."
	goalRestyle   = "Keep the language as is; only adjust form to the requested style, without altering meaning."
)

var styleHints = map[string]string{
	"neutral":  "neutral, clear, plain; no greetings",
	"formal":   "formal, professional; no greetings",
	"friendly": "friendly yet succinct; no greetings",
	"casual":   "casual, simple wording; no greetings",
	"concise":  "concise, to-the-point; no greetings",
	"academic": "academic, precise, hedged; no greetings",
}

// StyleHint returns the prompt fragment for a style, neutral when unknown.
func StyleHint(style string) string {
	if h, ok := styleHints[style]; ok {
		return h
	}
	return styleHints["neutral"]
}

// UserPrompt builds the user message.
func UserPrompt(text, style string, forceTargetLanguage bool) string {
	goal := goalRestyle
	if forceTargetLanguage {
		goal = goalTranslate
	}
	return fmt.Sprintf("Goal: %s\nStyle: %s\nText:\n%s", goal, StyleHint(style), text)
}

// AcceptsSampling reports whether model takes temperature and penalties.
// The gpt-5 family rejects them.
func AcceptsSampling(model string) bool {
	return !strings.HasPrefix(model, "gpt-5")
}

// Options configures the Rewriter.
type Options struct {
	provider.Options
	Model string
	// Cache is optional.
	Cache *cache.Cache
}

// Rewriter calls the chat completions endpoint.
type Rewriter struct {
	api    openai.Client
	hasKey bool
	model  string
	cache  *cache.Cache
	log    *logger.Logger
}

// New creates a Rewriter.
func New(opts Options, log *logger.Logger) *Rewriter {
	if log == nil {
		log = logger.Nop()
	}
	return &Rewriter{
		api:    provider.NewClient(opts.Options),
		hasKey: strings.TrimSpace(opts.APIKey) != "",
		model:  opts.Model,
		cache:  opts.Cache,
		log:    log,
	}
}

// Rewrite restyles text, translating it to English first when
// forceTargetLanguage is set.
func (r *Rewriter) Rewrite(ctx context.Context, text, style string, forceTargetLanguage bool) (string, error) {
	if !r.hasKey {
		return "", provider.MissingKey()
	}

	key := cache.GenerateKey(r.model, style, strconv.FormatBool(forceTargetLanguage), text)
	if r.cache != nil {
		if e, ok := r.cache.Get(key); ok {
			if strings.TrimSpace(e.Text) != "" {
				r.log.Debug("rewrite cache hit", logger.String("style", style))
				return e.Text, nil
			}
			if err := r.cache.Delete(key); err != nil {
				r.log.Debug("dropping blank cache entry failed", logger.Error(err))
			}
		}
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(r.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			openai.UserMessage(UserPrompt(text, style, forceTargetLanguage)),
		},
	}
	if AcceptsSampling(r.model) {
		params.Temperature = openai.Float(0)
		params.TopP = openai.Float(1)
		params.FrequencyPenalty = openai.Float(0)
		params.PresencePenalty = openai.Float(0)
	}

	start := time.Now()
	resp, err := r.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", provider.Classify(err, "Rewrite")
	}
	if len(resp.Choices) == 0 {
		return "", apperr.Servicef(nil, "Rewrite returned no choices")
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)

	r.log.Debug("rewritten",
		logger.String("model", r.model),
		logger.String("style", style),
		logger.Bool("translate", forceTargetLanguage),
		logger.Duration("elapsed", time.Since(start)),
		logger.Int64("tokens", resp.Usage.TotalTokens),
	)

	if r.cache != nil && out != "" {
		entry := &cache.Entry{
			Text:  out,
			Model: r.model,
			Usage: cache.Usage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
			CreatedAt: time.Now(),
		}
		if err := r.cache.Set(key, entry, cache.DefaultTTL); err != nil {
			r.log.Debug("rewrite cache write failed", logger.Error(err))
		}
	}
	return out, nil
}
