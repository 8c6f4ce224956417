package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ScoreEngine/app/models"
	"github.com/ManuelReschke/ScoreEngine/app/repository"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/generator"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/ledger"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/ratelimit"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/signals"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/testutil"
)

type fakeExtractor struct {
	mu   sync.Mutex
	urls []string
}

func (f *fakeExtractor) Extract(_ context.Context, url string) signals.SiteSignals {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	return signals.SiteSignals{Title: "Acme", HasPricingPage: true}
}

type fakeGenerator struct {
	err  error
	reqs []generator.Request
}

func (f *fakeGenerator) Generate(_ context.Context, req generator.Request) (*generator.EmailResult, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return generator.Placeholder(req), nil
}

type failingRecorder struct{ err error }

func (f failingRecorder) RecordGeneration(context.Context, ledger.Entry) (*models.Audit, error) {
	return nil, f.err
}

type generateFixture struct {
	app       *fiber.App
	db        *gorm.DB
	extractor *fakeExtractor
	gen       *fakeGenerator
}

func newGenerateFixture(t *testing.T, userID string, recorder GenerationRecorder) *generateFixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &generateFixture{db: db, extractor: &fakeExtractor{}, gen: &fakeGenerator{}}
	if recorder == nil {
		recorder = ledger.New(db)
	}
	gc := NewGenerateController(repository.NewRepositories(db), f.extractor, f.gen, recorder, "")
	f.app = fiber.New()
	f.app.Use(asUser(userID, userID+"@example.com"))
	f.app.Post("/api/generate", gc.HandleGenerate)
	return f
}

func (f *generateFixture) credits(t *testing.T, id string) int {
	t.Helper()
	var u models.User
	require.NoError(t, f.db.First(&u, "id = ?", id).Error)
	return u.Credits
}

func (f *generateFixture) audits(t *testing.T) []models.Audit {
	t.Helper()
	var audits []models.Audit
	require.NoError(t, f.db.Find(&audits).Error)
	return audits
}

func TestGenerateRequiresAuth(t *testing.T) {
	f := newGenerateFixture(t, "", nil)
	resp, body := doRequest(t, f.app, "POST", "/api/generate", `{"url":"acme.io","serviceAngle":"SEO"}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized", body)
}

func TestGenerateValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"broken json", `{"url":`, "Invalid JSON body"},
		{"missing url", `{"serviceAngle":"SEO"}`, "Invalid URL"},
		{"localhost", `{"url":"http://localhost:3000","serviceAngle":"SEO"}`, "Invalid URL"},
		{"loopback", `{"url":"127.0.0.1","serviceAngle":"SEO"}`, "Invalid URL"},
		{"unspecified", `{"url":"http://0.0.0.0","serviceAngle":"SEO"}`, "Invalid URL"},
		{"ftp", `{"url":"ftp://acme.io","serviceAngle":"SEO"}`, "Invalid URL"},
		{"missing angle", `{"url":"acme.io"}`, "Service angle is required"},
		{"blank angle", `{"url":"acme.io","serviceAngle":"   "}`, "Service angle is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGenerateFixture(t, "u1", nil)
			resp, body := doRequest(t, f.app, "POST", "/api/generate", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.want, body)
			assert.Empty(t, f.extractor.urls)
		})
	}
}

func TestGenerateChargesOneCredit(t *testing.T) {
	f := newGenerateFixture(t, "u1", nil)
	testutil.SeedUser(t, f.db, "u1", 2)

	resp, body := doRequest(t, f.app, "POST", "/api/generate",
		`{"url":"acme.io","serviceAngle":"email marketing","recentUpdate":"new pricing","locale":"de","tone":"casual"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)

	var result generator.EmailResult
	require.NoError(t, json.Unmarshal([]byte(body), &result))
	require.NoError(t, result.Validate())

	assert.Equal(t, []string{"https://acme.io"}, f.extractor.urls)
	require.Len(t, f.gen.reqs, 1)
	assert.Equal(t, "Acme", f.gen.reqs[0].Signals.Title)
	assert.Equal(t, "casual", f.gen.reqs[0].Tone)

	assert.Equal(t, 1, f.credits(t, "u1"))
	audits := f.audits(t)
	require.Len(t, audits, 1)
	assert.Equal(t, "https://acme.io", audits[0].URL)
	assert.Equal(t, "EMAIL_MARKETING", audits[0].ServiceAngle)
	assert.Equal(t, "de", audits[0].InputLocale)
}

func TestGenerateWithoutEntitlementIs402(t *testing.T) {
	f := newGenerateFixture(t, "u1", nil)
	testutil.SeedUser(t, f.db, "u1", 0)

	resp, body := doRequest(t, f.app, "POST", "/api/generate", `{"url":"acme.io","serviceAngle":"SEO"}`)
	assert.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "Insufficient credits", body)
	assert.Empty(t, f.extractor.urls)
	assert.Empty(t, f.audits(t))
}

func TestGenerateTrialIsFree(t *testing.T) {
	f := newGenerateFixture(t, "google:new", nil)

	resp, body := doRequest(t, f.app, "POST", "/api/generate", `{"url":"acme.io","serviceAngle":"SEO"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, body)
	assert.Equal(t, models.DefaultStartingCredits, f.credits(t, "google:new"))
	assert.Len(t, f.audits(t), 1)
}

func TestGenerateTrialWithSubscriptionIsCharged(t *testing.T) {
	f := newGenerateFixture(t, "u1", nil)
	u := testutil.SeedUser(t, f.db, "u1", 3)
	trialEnd := time.Now().Add(time.Hour)
	require.NoError(t, f.db.Model(u).Update("trial_ends_at", trialEnd).Error)
	require.NoError(t, f.db.Create(&models.Subscription{ID: "sub_1", UserID: "u1", Status: models.SubscriptionStatusActive}).Error)

	resp, _ := doRequest(t, f.app, "POST", "/api/generate", `{"url":"acme.io","serviceAngle":"SEO"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, f.credits(t, "u1"))
}

func TestGenerateSubscriptionStillDecrements(t *testing.T) {
	f := newGenerateFixture(t, "u1", nil)
	testutil.SeedUser(t, f.db, "u1", 5)
	require.NoError(t, f.db.Create(&models.Subscription{ID: "sub_1", UserID: "u1", Status: models.SubscriptionStatusActive}).Error)

	resp, _ := doRequest(t, f.app, "POST", "/api/generate", `{"url":"acme.io","serviceAngle":"SEO"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 4, f.credits(t, "u1"))
}

func TestGenerateSubscriptionWithoutCreditsSucceeds(t *testing.T) {
	f := newGenerateFixture(t, "u1", nil)
	testutil.SeedUser(t, f.db, "u1", 0)
	require.NoError(t, f.db.Create(&models.Subscription{ID: "sub_1", UserID: "u1", Status: models.SubscriptionStatusPastDue}).Error)

	resp, _ := doRequest(t, f.app, "POST", "/api/generate", `{"url":"acme.io","serviceAngle":"SEO"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, f.credits(t, "u1"))
	assert.Len(t, f.audits(t), 1)
}

func TestGenerateFailureWritesNothing(t *testing.T) {
	f := newGenerateFixture(t, "u1", nil)
	testutil.SeedUser(t, f.db, "u1", 2)
	f.gen.err = &generator.GenerationError{Attempts: 2, Reason: "fullEmail out of range"}

	resp, body := doRequest(t, f.app, "POST", "/api/generate", `{"url":"acme.io","serviceAngle":"SEO"}`)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Generation failed: fullEmail out of range", body)
	assert.Equal(t, 2, f.credits(t, "u1"))
	assert.Empty(t, f.audits(t))

	var events int64
	require.NoError(t, f.db.Model(&models.Event{}).Count(&events).Error)
	assert.Zero(t, events)
}

func TestGenerateLostCreditRaceIs402(t *testing.T) {
	f := newGenerateFixture(t, "u1", failingRecorder{err: ledger.ErrInsufficientCredits})
	testutil.SeedUser(t, f.db, "u1", 1)

	resp, body := doRequest(t, f.app, "POST", "/api/generate", `{"url":"acme.io","serviceAngle":"SEO"}`)
	assert.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "Insufficient credits", body)
}

func TestGenerateLedgerErrorIs500(t *testing.T) {
	f := newGenerateFixture(t, "u1", failingRecorder{err: errors.New("db down")})
	testutil.SeedUser(t, f.db, "u1", 1)

	resp, body := doRequest(t, f.app, "POST", "/api/generate", `{"url":"acme.io","serviceAngle":"SEO"}`)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Generation failed: db down", body)
}

func TestGenerateRateLimitedPerUserAndOrigin(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "u1", 10)
	gc := NewGenerateController(repository.NewRepositories(db), &fakeExtractor{}, &fakeGenerator{}, ledger.New(db), "")
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), 1, 20*time.Second, "test")

	app := fiber.New()
	app.Use(asUser("u1", "u1@example.com"))
	app.Post("/api/generate", limiter.Middleware(GenerateRateKey), gc.HandleGenerate)

	body := `{"url":"acme.io","serviceAngle":"SEO"}`
	resp, _ := doRequest(t, app, "POST", "/api/generate", body, "X-Forwarded-For", "1.2.3.4")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, got := doRequest(t, app, "POST", "/api/generate", body, "X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "Too many requests", got)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	resp, _ = doRequest(t, app, "POST", "/api/generate", body, "X-Forwarded-For", "5.6.7.8")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var credits int
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", "u1").Pluck("credits", &credits).Error)
	assert.Equal(t, 8, credits)
}
