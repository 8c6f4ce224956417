// Package signals fetches a prospect page once and derives a handful of
// advisory personalization signals from its HTML.
package signals

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/ScoreEngine/internal/pkg/siteurl"
)

const (
	DefaultTimeout   = 7 * time.Second
	DefaultUserAgent = "ScoreEngineBot/1.0"

	maxBodyBytes = 2 << 20
	maxRedirects = 5
	dialTimeout  = 5 * time.Second
)

// ErrBlockedAddress is returned when a fetch would reach a non-public host.
var ErrBlockedAddress = errors.New("blocked address")

var (
	ctaKeywords     = []string{"sign up", "get started", "try", "demo", "start your free", "subscribe", "join"}
	pricingHrefExpr = regexp.MustCompile(`(?i)pricing|prices|plans`)
)

// SiteSignals is the advisory summary of a page. Zero value means nothing
// could be derived.
type SiteSignals struct {
	Title          string `json:"title,omitempty"`
	FirstH1        string `json:"firstH1,omitempty"`
	CTA            string `json:"cta,omitempty"`
	HasPricingPage bool   `json:"hasPricingPage,omitempty"`
	HasSignupForm  bool   `json:"hasSignupForm,omitempty"`
	HasCalendar    bool   `json:"hasCalendar,omitempty"`
	HasProofRow    bool   `json:"hasProofRow,omitempty"`
}

// IsEmpty reports whether no signal was found.
func (s SiteSignals) IsEmpty() bool {
	return s == SiteSignals{}
}

// Lines renders the non-empty signals as prompt lines.
func (s SiteSignals) Lines() []string {
	var out []string
	if s.Title != "" {
		out = append(out, "Title: "+s.Title)
	}
	if s.FirstH1 != "" {
		out = append(out, "First H1: "+s.FirstH1)
	}
	if s.CTA != "" {
		out = append(out, "Primary CTA: "+s.CTA)
	}
	if s.HasPricingPage {
		out = append(out, "Links to a pricing page")
	}
	if s.HasSignupForm {
		out = append(out, "Has a signup or email capture form")
	}
	if s.HasCalendar {
		out = append(out, "Mentions scheduling or a calendar")
	}
	if s.HasProofRow {
		out = append(out, "Shows social proof (testimonials, customers, reviews)")
	}
	return out
}

type Option func(*Extractor)

func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(e *Extractor) {
		if ua = strings.TrimSpace(ua); ua != "" {
			e.userAgent = ua
		}
	}
}

// withAddressFilter replaces the dial-time address check.
func withAddressFilter(allow func(net.IP) bool) Option {
	return func(e *Extractor) {
		if allow != nil {
			e.allowIP = allow
		}
	}
}

// Extractor performs the bounded page fetch.
type Extractor struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	allowIP   func(net.IP) bool
}

func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		allowIP:   siteurl.IsPublicIP,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.client = newClient(e.allowIP)
	return e
}

// newClient only dials addresses accepted by allow, whatever name resolved
// to them, and validates every redirect target before following it.
func newClient(allow func(net.IP) bool) *http.Client {
	dialer := &net.Dialer{
		Timeout: dialTimeout,
		Control: func(_, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			if ip := net.ParseIP(host); ip == nil || !allow(ip) {
				return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
			}
			return nil
		},
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &http.Client{Transport: transport, CheckRedirect: checkRedirect}
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if _, err := siteurl.Parse(req.URL.String()); err != nil {
		return fmt.Errorf("%w: redirect to %s", ErrBlockedAddress, req.URL.Redacted())
	}
	return nil
}

// Extract fetches url and parses it. It never fails: timeouts, transport
// errors and unparsable bodies all yield an empty SiteSignals.
func (e *Extractor) Extract(ctx context.Context, url string) SiteSignals {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return SiteSignals{}
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		log.Debugf("[Signals] Fetch of %s failed: %v", url, err)
		return SiteSignals{}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.Debugf("[Signals] Reading body of %s failed: %v", url, err)
		return SiteSignals{}
	}
	return Parse(string(body))
}

// Parse derives signals from raw HTML.
func Parse(html string) SiteSignals {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return SiteSignals{}
	}

	s := SiteSignals{
		Title:   strings.TrimSpace(doc.Find("title").First().Text()),
		FirstH1: strings.TrimSpace(doc.Find("h1").First().Text()),
	}

	doc.Find("a, button").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := sel.Text()
		lower := strings.ToLower(text)
		for _, k := range ctaKeywords {
			if strings.Contains(lower, k) {
				s.CTA = strings.TrimSpace(text)
				return false
			}
		}
		return true
	})

	doc.Find("a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if href, ok := sel.Attr("href"); ok && pricingHrefExpr.MatchString(href) {
			s.HasPricingPage = true
			return false
		}
		return true
	})

	doc.Find("input, form").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		typ, _ := sel.Attr("type")
		id, _ := sel.Attr("id")
		name, _ := sel.Attr("name")
		class, _ := sel.Attr("class")
		attrs := strings.ToLower(id + " " + name + " " + class)
		if strings.EqualFold(strings.TrimSpace(typ), "email") ||
			strings.Contains(attrs, "signup") || strings.Contains(attrs, "register") {
			s.HasSignupForm = true
			return false
		}
		return true
	})

	lower := strings.ToLower(html)
	s.HasCalendar = containsAny(lower, "calendly", "schedule", "calendar")
	s.HasProofRow = containsAny(lower, "testimonial", "customer", "review")
	return s
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
