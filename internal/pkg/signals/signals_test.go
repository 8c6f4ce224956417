package signals

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allowAll lets tests reach httptest servers on the loopback interface.
func allowAll(net.IP) bool { return true }

const landingPage = `<!doctype html>
<html>
<head><title>  Acme Analytics </title></head>
<body>
  <nav><a href="/about">About</a><a href="/Pricing">Plans &amp; Pricing</a></nav>
  <h1> Measure everything </h1>
  <h1>Second heading</h1>
  <button class="hero">  Start your free trial </button>
  <a href="/signup">Sign up</a>
  <form id="newsletter"><input type="email" name="email"></form>
  <section class="testimonials">What our customers say</section>
</body>
</html>`

func TestParse(t *testing.T) {
	s := Parse(landingPage)

	assert.Equal(t, "Acme Analytics", s.Title)
	assert.Equal(t, "Measure everything", s.FirstH1)
	assert.Equal(t, "Start your free trial", s.CTA)
	assert.True(t, s.HasPricingPage)
	assert.True(t, s.HasSignupForm)
	assert.False(t, s.HasCalendar)
	assert.True(t, s.HasProofRow)
}

func TestParseDetectors(t *testing.T) {
	tests := []struct {
		name string
		html string
		want SiteSignals
	}{
		{
			name: "empty document",
			html: "",
			want: SiteSignals{},
		},
		{
			name: "cta in anchor before button",
			html: `<a href="/demo">Book a Demo</a><button>Subscribe</button>`,
			want: SiteSignals{CTA: "Book a Demo"},
		},
		{
			name: "register form by class",
			html: `<form class="Register-Form"></form>`,
			want: SiteSignals{HasSignupForm: true},
		},
		{
			name: "calendar embed",
			html: `<iframe src="https://calendly.com/acme"></iframe>`,
			want: SiteSignals{HasCalendar: true},
		},
		{
			name: "pricing only in text is not a link",
			html: `<p>See our pricing</p><a href="/contact">Contact</a>`,
			want: SiteSignals{},
		},
		{
			name: "blank title is absent",
			html: `<title>   </title><h1></h1>`,
			want: SiteSignals{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.html))
		})
	}
}

func TestExtractSendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(landingPage))
	}))
	defer srv.Close()

	s := NewExtractor(withAddressFilter(allowAll)).Extract(context.Background(), srv.URL)

	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "Acme Analytics", s.Title)
}

func TestExtractTimeoutYieldsEmpty(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	s := NewExtractor(WithTimeout(50*time.Millisecond), withAddressFilter(allowAll)).Extract(context.Background(), srv.URL)

	assert.True(t, s.IsEmpty())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestExtractUnreachableYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	assert.True(t, NewExtractor(withAddressFilter(allowAll)).Extract(context.Background(), url).IsEmpty())
}

func TestExtractRefusesLoopbackAddress(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		_, _ = w.Write([]byte(landingPage))
	}))
	defer srv.Close()

	s := NewExtractor().Extract(context.Background(), srv.URL)

	assert.True(t, s.IsEmpty())
	assert.False(t, hit)
}

func TestGuardedClientRefusesResolvedLoopback(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)

	resp, err := newClient(func(ip net.IP) bool { return !ip.IsLoopback() }).Get("http://localhost:" + port + "/")
	if resp != nil {
		resp.Body.Close()
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrBlockedAddress.Error())
}

func TestExtractDoesNotFollowRedirectToLoopback(t *testing.T) {
	internalHit := false
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		internalHit = true
		_, _ = w.Write([]byte(`<title>INTERNAL ADMIN</title>`))
	}))
	defer internal.Close()

	public := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, internal.URL+"/admin", http.StatusFound)
	}))
	defer public.Close()

	s := NewExtractor(withAddressFilter(allowAll)).Extract(context.Background(), public.URL)

	assert.True(t, s.IsEmpty())
	assert.False(t, internalHit)
}

func TestCheckRedirect(t *testing.T) {
	newReq := func(raw string) *http.Request {
		req, err := http.NewRequest(http.MethodGet, raw, nil)
		require.NoError(t, err)
		return req
	}

	assert.NoError(t, checkRedirect(newReq("https://example.com/pricing"), nil))
	assert.ErrorIs(t, checkRedirect(newReq("http://169.254.169.254/latest/meta-data"), nil), ErrBlockedAddress)
	assert.ErrorIs(t, checkRedirect(newReq("http://10.0.0.8/"), nil), ErrBlockedAddress)
	assert.ErrorIs(t, checkRedirect(newReq("ftp://example.com/"), nil), ErrBlockedAddress)

	via := make([]*http.Request, maxRedirects)
	assert.Error(t, checkRedirect(newReq("https://example.com/"), via))
}

func TestLines(t *testing.T) {
	assert.Empty(t, SiteSignals{}.Lines())
	lines := SiteSignals{Title: "Acme", HasCalendar: true}.Lines()
	assert.Equal(t, []string{"Title: Acme", "Mentions scheduling or a calendar"}, lines)
}
