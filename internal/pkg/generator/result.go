package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MinEmailWords = 85
	MaxEmailWords = 130
	MinQuickWins  = 2
	MaxQuickWins  = 3
)

// Icebreaker sources accepted in meta.icebreaker_source.
const (
	SourceHomepage      = "homepage"
	SourceBlog          = "/blog"
	SourcePricing       = "/pricing"
	SourceCheckout      = "/checkout"
	SourcePress         = "press"
	SourceSiteEvergreen = "site_evergreen"
	SourceRecentUpdate  = "recent_update"
)

// EmailMeta describes where the email's personalization came from.
type EmailMeta struct {
	CompanyName      string   `json:"company_name" validate:"required"`
	Service          string   `json:"service" validate:"required"`
	URL              string   `json:"url" validate:"required"`
	PathsMentioned   []string `json:"paths_mentioned" validate:"required"`
	IcebreakerSource string   `json:"icebreaker_source" validate:"required,oneof=homepage /blog /pricing /checkout press site_evergreen recent_update"`
	WordCount        *int     `json:"word_count" validate:"required,min=0"`
}

// EmailResult is the structured cold email returned to the caller and stored
// on the audit.
type EmailResult struct {
	Subject     string    `json:"subject" validate:"required"`
	Icebreaker  string    `json:"icebreaker" validate:"required"`
	Stopper     string    `json:"stopper" validate:"required"`
	QuickWins   []string  `json:"quickWins" validate:"min=2,max=3,dive,required"`
	ServiceHook string    `json:"serviceHook" validate:"required"`
	CTA         string    `json:"cta" validate:"required"`
	FullEmail   string    `json:"fullEmail" validate:"required"`
	Meta        EmailMeta `json:"meta"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

var (
	ErrInvalidJSON     = errors.New("generator: output is not valid JSON")
	ErrSchema          = errors.New("generator: output does not match schema")
	ErrWordCount       = errors.New("generator: fullEmail out of range")
	ErrQuickWinsCount  = errors.New("generator: invalid number of quickWins")
	ErrEmptyCompletion = errors.New("generator: empty completion")
)

// WordCount counts whitespace separated tokens.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Validate checks the schema and the content bounds.
func (r *EmailResult) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed %q", ErrSchema, verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if wc := WordCount(r.FullEmail); wc < MinEmailWords || wc > MaxEmailWords {
		return fmt.Errorf("%w: %d words", ErrWordCount, wc)
	}
	if n := len(r.QuickWins); n < MinQuickWins || n > MaxQuickWins {
		return fmt.Errorf("%w: %d", ErrQuickWinsCount, n)
	}
	return nil
}

// ParseResult decodes a completion and validates it.
func ParseResult(raw string) (*EmailResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyCompletion
	}
	var r EmailResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
