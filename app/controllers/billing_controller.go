package controllers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/ScoreEngine/internal/pkg/billing"
	"github.com/ManuelReschke/ScoreEngine/internal/pkg/usercontext"
)

// SignatureHeader carries the hex HMAC-SHA256 of the webhook body.
const SignatureHeader = "X-Signature"

// BillingService is the part of the billing reconciler the HTTP layer uses.
type BillingService interface {
	HandleWebhook(ctx context.Context, raw []byte, signature string) billing.Outcome
	CreateCheckout(ctx context.Context, kind billing.CheckoutKind, userID, email, name string) (string, error)
}

type BillingController struct {
	service BillingService
}

func NewBillingController(service BillingService) *BillingController {
	return &BillingController{service: service}
}

type creditsCheckoutRequest struct {
	Size string `json:"size"`
}

// HandleCreditsCheckout starts a top-up checkout. {"size":"large"} selects
// the large pack; anything else buys the small one.
func (bc *BillingController) HandleCreditsCheckout(c *fiber.Ctx) error {
	kind := billing.CheckoutTopupSmall
	if len(c.Body()) > 0 {
		var req creditsCheckoutRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid body")
		}
		if strings.EqualFold(strings.TrimSpace(req.Size), "large") {
			kind = billing.CheckoutTopupLarge
		}
	}
	return bc.checkout(c, kind)
}

// HandleSubscriptionCheckout starts a subscription checkout.
func (bc *BillingController) HandleSubscriptionCheckout(c *fiber.Ctx) error {
	return bc.checkout(c, billing.CheckoutSubscription)
}

func (bc *BillingController) checkout(c *fiber.Ctx, kind billing.CheckoutKind) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return unauthorized(c)
	}

	url, err := bc.service.CreateCheckout(c.UserContext(), kind, userCtx.UserID, userCtx.Email, userCtx.Name)
	if err != nil {
		fiberlog.Errorf("[Billing] %s checkout failed for user %s: %v", kind, userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to create checkout: " + err.Error())
	}
	return c.JSON(fiber.Map{"url": url})
}

// HandleLemonSqueezyWebhook verifies and reconciles one billing event. The
// body is plain text: "ok" or the failure reason.
func (bc *BillingController) HandleLemonSqueezyWebhook(c *fiber.Ctx) error {
	// fasthttp reuses the body buffer after the handler returns.
	raw := append([]byte(nil), c.Body()...)
	out := bc.service.HandleWebhook(c.UserContext(), raw, c.Get(SignatureHeader))
	return c.Status(out.Status).SendString(out.Body)
}
