package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/ScoreEngine/app/models"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/metrics"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

const (
	EventOrderCreated               = "order_created"
	EventSubscriptionPaymentSuccess = "subscription_payment_success"
	subscriptionEventPrefix         = "subscription_"
)

var (
	ErrWebhookSecretMissing = errors.New("Webhook secret not configured")
	ErrInvalidSignature     = errors.New("Invalid signature")
	ErrInvalidPayload       = errors.New("invalid webhook payload")
)

// PayloadArchiver stores a copy of a raw webhook body outside the database.
type PayloadArchiver interface {
	ArchiveWebhook(ctx context.Context, logID uint, receivedAt time.Time, body []byte) error
}

type Option func(*Service)

func WithCheckoutClient(c *LemonSqueezyClient) Option {
	return func(s *Service) { s.checkout = c }
}

func WithPrices(p PriceTable) Option {
	return func(s *Service) { s.prices = p }
}

func WithWebhookSecret(secret string) Option {
	return func(s *Service) { s.webhookSecret = strings.TrimSpace(secret) }
}

// WithBaseURL sets the public app URL used for checkout redirects.
func WithBaseURL(u string) Option {
	return func(s *Service) { s.baseURL = strings.TrimRight(strings.TrimSpace(u), "/") }
}

func WithArchiver(a PayloadArchiver) Option {
	return func(s *Service) { s.archiver = a }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service reconciles Lemon Squeezy webhooks into local billing state and
// creates hosted checkouts.
type Service struct {
	repo          Repository
	checkout      *LemonSqueezyClient
	prices        PriceTable
	webhookSecret string
	baseURL       string
	archiver      PayloadArchiver
	now           func() time.Time
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, opts ...Option) *Service {
	return NewService(NewRepository(db), opts...)
}

// HandleWebhook verifies and applies one delivery. Every call writes exactly
// one webhook log row carrying the returned status.
func (s *Service) HandleWebhook(ctx context.Context, raw []byte, signature string) Outcome {
	out := Outcome{Status: http.StatusOK, Body: "ok"}
	switch {
	case s.webhookSecret == "":
		out.Status, out.Body, out.Err = http.StatusInternalServerError, ErrWebhookSecretMissing.Error(), ErrWebhookSecretMissing
	case !VerifySignature(raw, signature, s.webhookSecret):
		out.Status, out.Body, out.Err = http.StatusBadRequest, ErrInvalidSignature.Error(), ErrInvalidSignature
	default:
		if err := s.process(ctx, raw, &out); err != nil {
			out.Status = http.StatusInternalServerError
			out.Err = err
		}
	}

	receivedAt := s.now()
	entry := &models.WebhookLog{
		Source:  models.WebhookSourceLemonSqueezy,
		Payload: string(raw),
		Status:  out.Status,
	}
	if err := s.repo.CreateWebhookLog(ctx, entry); err != nil {
		log.Errorf("[Billing] Failed to write webhook log: %v", err)
		out.Status = http.StatusInternalServerError
		if out.Err == nil {
			out.Err = err
		}
	} else if s.archiver != nil {
		if err := s.archiver.ArchiveWebhook(ctx, entry.ID, receivedAt, raw); err != nil {
			log.Warnf("[Billing] Failed to archive webhook payload %d: %v", entry.ID, err)
		}
	}

	if out.Err != nil {
		log.Warnf("[Billing] Webhook %s not applied (status %d): %v", out.Event, out.Status, out.Err)
	}
	metrics.Webhooks.WithLabelValues(eventLabel(out.Event), strconv.Itoa(out.Status)).Inc()
	return out
}

func eventLabel(event string) string {
	switch {
	case event == "":
		return "unknown"
	case event == EventOrderCreated, strings.HasPrefix(event, subscriptionEventPrefix):
		return event
	default:
		return "other"
	}
}

func (s *Service) process(ctx context.Context, raw []byte, out *Outcome) error {
	p, err := parsePayload(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	out.Event = p.eventName()

	switch {
	case out.Event == EventOrderCreated:
		return s.handleOrder(ctx, p, raw, out)
	case strings.HasPrefix(out.Event, subscriptionEventPrefix):
		return s.handleSubscription(ctx, p, raw, out)
	default:
		log.Infof("[Billing] Ignoring event %s", out.Event)
		return nil
	}
}

func (s *Service) handleOrder(ctx context.Context, p *webhookPayload, raw []byte, out *Outcome) error {
	userID := p.userID()
	credits := s.prices.TopupCredits(p.variantID())
	if userID == "" || credits <= 0 {
		log.Infof("[Billing] Order %s without grant (variant %s, has user %t)", p.Data.ID.String(), p.variantID(), userID != "")
		return nil
	}
	orderID := p.Data.ID.String()
	if orderID == "" {
		return fmt.Errorf("%w: order has no id", ErrInvalidPayload)
	}
	return s.grant(ctx, CreditGrant{
		InvoiceID:         orderInvoiceID(orderID),
		UserID:            userID,
		ProviderInvoiceID: orderID,
		AmountCents:       int64(p.Data.Attributes.Total),
		Currency:          p.currency(),
		Type:              models.InvoiceTypeTopup,
		Credits:           credits,
		RawPayload:        raw,
	}, out)
}

func (s *Service) handleSubscription(ctx context.Context, p *webhookPayload, raw []byte, out *Outcome) error {
	subID := p.subscriptionID()
	if subID == "" {
		return fmt.Errorf("%w: subscription has no id", ErrInvalidPayload)
	}

	existing, err := s.repo.GetSubscription(ctx, subID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	userID := p.userID()
	if userID == "" && existing != nil {
		userID = existing.UserID
	}
	plan := strings.TrimSpace(p.Data.Attributes.VariantName)
	if plan == "" && existing != nil {
		plan = existing.Plan
	}
	if userID == "" {
		log.Warnf("[Billing] %s for subscription %s without user", out.Event, subID)
		return nil
	}

	// Invoice resources carry the invoice status, not the subscription's.
	if !p.isSubscriptionInvoice() {
		status := normalizeStatus(p.Data.Attributes.Status)
		if status == "" && existing != nil {
			status = existing.Status
		}
		if _, err := s.SyncSubscription(ctx, NormalizedSubscription{
			ID:                 subID,
			UserID:             userID,
			ProviderCustomerID: p.Data.Attributes.CustomerID.String(),
			Status:             status,
			CurrentPeriodEnd:   p.renewsAt(),
			Plan:               plan,
		}); err != nil {
			return err
		}
	}

	if out.Event != EventSubscriptionPaymentSuccess {
		return nil
	}
	return s.grant(ctx, CreditGrant{
		InvoiceID:         subscriptionInvoiceID(p, raw),
		UserID:            userID,
		ProviderInvoiceID: p.providerInvoiceID(),
		AmountCents:       p.paymentAmount(),
		Currency:          p.currency(),
		Type:              models.InvoiceTypeSubscription,
		Credits:           PlanCredits(plan),
		RawPayload:        raw,
	}, out)
}

func (s *Service) grant(ctx context.Context, g CreditGrant, out *Outcome) error {
	created, err := s.repo.GrantCredits(ctx, g)
	if err != nil {
		return err
	}
	if !created {
		out.Duplicate = true
		log.Infof("[Billing] Credit grant %s already applied", g.InvoiceID)
		return nil
	}
	out.Granted = g.Credits
	metrics.CreditsGranted.WithLabelValues(g.Type).Add(float64(g.Credits))
	log.Infof("[Billing] Granted %d credits to user %s (invoice %s)", g.Credits, g.UserID, g.InvoiceID)
	return nil
}

// SyncSubscription upserts provider subscription state for a user.
func (s *Service) SyncSubscription(ctx context.Context, in NormalizedSubscription) (*models.Subscription, error) {
	if strings.TrimSpace(in.UserID) == "" || strings.TrimSpace(in.ID) == "" {
		return nil, errors.New("user_id and subscription id are required")
	}
	if err := s.repo.EnsureUser(ctx, in.UserID); err != nil {
		return nil, err
	}
	sub := &models.Subscription{
		ID:                 strings.TrimSpace(in.ID),
		UserID:             in.UserID,
		ProviderCustomerID: strings.TrimSpace(in.ProviderCustomerID),
		Status:             normalizeStatus(in.Status),
		CurrentPeriodEnd:   in.CurrentPeriodEnd,
		Plan:               strings.TrimSpace(in.Plan),
	}
	if err := s.repo.UpsertSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// CreateCheckout returns a hosted checkout URL for the given product.
func (s *Service) CreateCheckout(ctx context.Context, kind CheckoutKind, userID, email, name string) (string, error) {
	if s.checkout == nil {
		return "", ErrNotConfigured
	}
	variant := s.prices.VariantFor(kind)
	if variant == "" {
		return "", fmt.Errorf("%s price id not configured", kind)
	}
	return s.checkout.CreateCheckout(ctx, CheckoutRequest{
		VariantID:  variant,
		UserID:     userID,
		Email:      email,
		Name:       name,
		SuccessURL: s.baseURL + "/dashboard?checkout=success",
	})
}
