package ledger

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/ManuelReschke/ScoreEngine/app/models"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeServiceAngle(t *testing.T) {
	tests := map[string]string{
		"Web design & UI":                 "WEB_DESIGN_&_UI",
		"  email   marketing ":            "EMAIL_MARKETING",
		"Apps, integrations & automation": "APPS,_INTEGRATIONS_&_AUTOMATION",
		"seo":                             "SEO",
		"growth\tmarketing\nteam":         "GROWTH_MARKETING_TEAM",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeServiceAngle(in), in)
	}
}

func credits(t *testing.T, l *Ledger, id string) int {
	t.Helper()
	var u models.User
	require.NoError(t, l.db.First(&u, "id = ?", id).Error)
	return u.Credits
}

func TestRecordGenerationDecrements(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "u1", 3)
	l := New(db)

	audit, err := l.RecordGeneration(context.Background(), Entry{
		UserID:       "u1",
		URL:          "https://acme.io",
		ServiceAngle: "email marketing",
		RecentUpdate: "new pricing",
		Result:       map[string]any{"subject": "hi"},
	})
	require.NoError(t, err)

	assert.Equal(t, "EMAIL_MARKETING", audit.ServiceAngle)
	assert.Equal(t, "en", audit.InputLocale)
	require.NotNil(t, audit.RecentUpdate)
	assert.Equal(t, 2, credits(t, l, "u1"))

	var events []models.Event
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventTypeAuditCreated, events[0].Type)
	var meta map[string]string
	require.NoError(t, json.Unmarshal(events[0].Meta, &meta))
	assert.Equal(t, map[string]string{"url": "https://acme.io", "serviceAngle": "email marketing"}, meta)

	var stored models.Audit
	require.NoError(t, db.First(&stored, "id = ?", audit.ID).Error)
	assert.JSONEq(t, `{"subject":"hi"}`, string(stored.ResultJSON))
}

func TestRecordGenerationExemptKeepsCredits(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "u1", 5)
	l := New(db)

	_, err := l.RecordGeneration(context.Background(), Entry{
		UserID: "u1", URL: "https://acme.io", ServiceAngle: "SEO", ExemptFromDecrement: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, credits(t, l, "u1"))
}

func TestRecordGenerationClampsAtZero(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "u1", 0)
	l := New(db)

	_, err := l.RecordGeneration(context.Background(), Entry{UserID: "u1", URL: "https://acme.io", ServiceAngle: "SEO"})
	require.NoError(t, err)
	assert.Equal(t, 0, credits(t, l, "u1"))
}

func TestRecordGenerationRequireCreditRollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "u1", 0)
	l := New(db)

	_, err := l.RecordGeneration(context.Background(), Entry{
		UserID: "u1", URL: "https://acme.io", ServiceAngle: "SEO", RequireCredit: true,
	})
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	var audits, events int64
	require.NoError(t, db.Model(&models.Audit{}).Count(&audits).Error)
	require.NoError(t, db.Model(&models.Event{}).Count(&events).Error)
	assert.Zero(t, audits)
	assert.Zero(t, events)
}

func TestRecordGenerationInvalidEntry(t *testing.T) {
	l := New(testutil.NewDB(t))
	_, err := l.RecordGeneration(context.Background(), Entry{UserID: "u1", URL: "https://acme.io", ServiceAngle: "   "})
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestRecordGenerationConcurrentNeverNegative(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "u1", 3)
	l := New(db)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.RecordGeneration(context.Background(), Entry{
				UserID: "u1", URL: "https://acme.io", ServiceAngle: "SEO", RequireCredit: true,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 0, credits(t, l, "u1"))
}
