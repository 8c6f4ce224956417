// Package generator turns a prospect URL and a service angle into a
// validated EmailResult using a chat completion backend.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/ScoreEngine/internal/pkg/metrics"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/signals"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultAttempts   = 2
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultLocale     = "en"
)

// Completer sends one system+user exchange and returns the raw completion.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Request is the input for one generation.
type Request struct {
	URL          string
	ServiceAngle string
	RecentUpdate string
	Locale       string
	Tone         string
	Signals      signals.SiteSignals
}

// GenerationError is returned once every attempt failed.
type GenerationError struct {
	Attempts int
	Reason   string
	Err      error
}

func (e *GenerationError) Error() string {
	return e.Reason
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

type Option func(*Generator)

func WithAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.attempts = n
		}
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.retryDelay = d
		}
	}
}

// Generator validates completions and retries the full request/validate
// cycle on any failure. A nil completer switches to the offline placeholder.
type Generator struct {
	completer  Completer
	attempts   int
	retryDelay time.Duration
}

func New(completer Completer, opts ...Option) *Generator {
	g := &Generator{
		completer:  completer,
		attempts:   DefaultAttempts,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Offline reports whether the generator serves placeholder results.
func (g *Generator) Offline() bool {
	return g.completer == nil
}

// Generate returns a validated result or a *GenerationError.
func (g *Generator) Generate(ctx context.Context, req Request) (*EmailResult, error) {
	if strings.TrimSpace(req.Locale) == "" {
		req.Locale = DefaultLocale
	}
	if g.completer == nil {
		log.Warnf("[Generator] Completion backend not configured, serving placeholder email for %s", req.URL)
		return Placeholder(req), nil
	}

	system := SystemPrompt()
	user := UserPrompt(req)

	var (
		result  *EmailResult
		lastErr error
		tries   int
	)
	b := retry.WithMaxRetries(uint64(g.attempts-1), retry.NewConstant(g.retryDelay))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		tries++
		raw, err := g.completer.Complete(ctx, system, user)
		if err != nil {
			metrics.GeneratorAttempts.WithLabelValues("error").Inc()
			log.Warnf("[Generator] Completion attempt %d failed: %v", tries, err)
			lastErr = err
			return retry.RetryableError(err)
		}
		r, err := ParseResult(raw)
		if err != nil {
			metrics.GeneratorAttempts.WithLabelValues("invalid").Inc()
			log.Warnf("[Generator] Completion attempt %d rejected: %v", tries, err)
			lastErr = err
			return retry.RetryableError(err)
		}
		metrics.GeneratorAttempts.WithLabelValues("ok").Inc()
		result = r
		return nil
	})
	if err == nil && result != nil {
		return result, nil
	}
	if lastErr == nil {
		lastErr = err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		lastErr = err
	}
	return nil, &GenerationError{
		Attempts: tries,
		Reason:   lastErr.Error(),
		Err:      lastErr,
	}
}

// SystemPrompt is the output contract sent with every request.
func SystemPrompt() string {
	return fmt.Sprintf(`You are ScoreEngine, an assistant for agency salespeople.
Write one short, specific cold email to the company behind the given URL, pitching the given service.

Rules:
- Open with an icebreaker grounded in something concrete on the site or in RECENT_UPDATE when provided.
- Add a one-sentence "stopper" that names a visible gap.
- Give %d to %d quick wins the prospect could apply without us.
- Connect the quick wins to the service in one sentence, then end with a low-friction call to action.
- fullEmail is the complete email including greeting and sign-off and must contain between %d and %d words.
- Write in the language given by LOCALE. Follow TONE when provided.
- SITE SIGNALS are advisory hints extracted automatically; never invent facts that contradict them.

Respond with a single JSON object and nothing else:
{
  "subject": string,
  "icebreaker": string,
  "stopper": string,
  "quickWins": [string, ...],
  "serviceHook": string,
  "cta": string,
  "fullEmail": string,
  "meta": {
    "company_name": string,
    "service": string,
    "url": string,
    "paths_mentioned": [string, ...],
    "icebreaker_source": "homepage" | "/blog" | "/pricing" | "/checkout" | "press" | "site_evergreen" | "recent_update",
    "word_count": integer
  }
}`, MinQuickWins, MaxQuickWins, MinEmailWords, MaxEmailWords)
}

// UserPrompt renders the request fields, one per line.
func UserPrompt(req Request) string {
	parts := []string{
		"URL: " + req.URL,
		"SERVICE: " + req.ServiceAngle,
	}
	if s := strings.TrimSpace(req.RecentUpdate); s != "" {
		parts = append(parts, "RECENT_UPDATE: "+s)
	}
	if s := strings.TrimSpace(req.Locale); s != "" {
		parts = append(parts, "LOCALE: "+s)
	}
	if s := strings.TrimSpace(req.Tone); s != "" {
		parts = append(parts, "TONE: "+s)
	}
	if lines := req.Signals.Lines(); len(lines) > 0 {
		parts = append(parts, "SITE SIGNALS:")
		for _, l := range lines {
			parts = append(parts, "- "+l)
		}
	}
	return strings.Join(parts, "\n")
}
