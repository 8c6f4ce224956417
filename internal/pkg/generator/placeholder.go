package generator

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ManuelReschke/ScoreEngine/internal/pkg/siteurl"
)

// Placeholder builds a deterministic result used when no completion backend
// is configured. It always passes Validate.
func Placeholder(req Request) *EmailResult {
	service := strings.TrimSpace(req.ServiceAngle)
	if service == "" {
		service = "marketing"
	}
	company, host := companyFromURL(req.URL)

	quickWins := []string{
		"Adding a clear headline to the homepage hero can lift conversions.",
		"Including a signup form above the fold may capture more leads.",
		"Simplifying the navigation will make the pricing page easier to find.",
	}
	icebreaker := fmt.Sprintf("I took a look at %s and it is full of potential, but the homepage could use a stronger call to action.", host)
	stopper := "It looks like the pricing page has not been updated in a while."
	cta := "Open to a quick chat this week?"

	hookFor := func(s string) string {
		return fmt.Sprintf("We can overhaul your %s in under two weeks.", strings.ToLower(s))
	}
	hook := hookFor(service)
	body := buildEmail(company, icebreaker, stopper, quickWins, hook, cta)
	if WordCount(body) > MaxEmailWords {
		hook = hookFor("marketing")
		body = buildEmail(company, icebreaker, stopper, quickWins, hook, cta)
	}
	wc := WordCount(body)

	url := strings.TrimSpace(req.URL)
	if url == "" {
		url = host
	}
	return &EmailResult{
		Subject:     fmt.Sprintf("Quick idea for %s on %s", service, company),
		Icebreaker:  icebreaker,
		Stopper:     stopper,
		QuickWins:   quickWins,
		ServiceHook: hook,
		CTA:         cta,
		FullEmail:   body,
		Meta: EmailMeta{
			CompanyName:      company,
			Service:          service,
			URL:              url,
			PathsMentioned:   []string{"/"},
			IcebreakerSource: SourceHomepage,
			WordCount:        &wc,
		},
	}
}

func buildEmail(company, icebreaker, stopper string, quickWins []string, hook, cta string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s team,\n\n", company)
	b.WriteString(icebreaker)
	b.WriteString(" ")
	b.WriteString(stopper)
	for _, w := range quickWins {
		b.WriteString(" ")
		b.WriteString(w)
	}
	b.WriteString(" ")
	b.WriteString(hook)
	b.WriteString(" ")
	b.WriteString(cta)
	b.WriteString("\n\nBest regards")
	return b.String()
}

// companyFromURL derives a display name from the first host label,
// e.g. https://www.acme-labs.io -> "Acme-labs".
func companyFromURL(raw string) (company, host string) {
	u, err := siteurl.Parse(raw)
	if err != nil {
		return "Your", "your website"
	}
	host = siteurl.Host(u)
	label := host
	if i := strings.Index(label, "."); i > 0 {
		label = label[:i]
	}
	if label == "" {
		return "Your", host
	}
	runes := []rune(label)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes), host
}
