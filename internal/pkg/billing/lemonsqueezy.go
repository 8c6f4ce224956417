package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultLemonSqueezyAPIURL = "https://api.lemonsqueezy.com"
	jsonAPIContentType        = "application/vnd.api+json"
)

var ErrNotConfigured = errors.New("Lemon Squeezy API credentials missing")

// LemonSqueezyClient creates hosted checkouts through the Lemon Squeezy
// JSON:API.
type LemonSqueezyClient struct {
	APIKey     string
	StoreID    string
	APIBaseURL string

	HTTPClient *http.Client
}

func NewLemonSqueezyClient(apiKey, storeID, apiBaseURL string) *LemonSqueezyClient {
	base := strings.TrimRight(strings.TrimSpace(apiBaseURL), "/")
	if base == "" {
		base = DefaultLemonSqueezyAPIURL
	}
	return &LemonSqueezyClient{
		APIKey:     strings.TrimSpace(apiKey),
		StoreID:    strings.TrimSpace(storeID),
		APIBaseURL: base,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CheckoutRequest describes one hosted checkout.
type CheckoutRequest struct {
	VariantID  string
	UserID     string
	Email      string
	Name       string
	SuccessURL string
}

type checkoutDocument struct {
	Data checkoutResource `json:"data"`
}

type checkoutResource struct {
	Type          string                `json:"type"`
	ID            string                `json:"id,omitempty"`
	Attributes    checkoutAttributes    `json:"attributes"`
	Relationships checkoutRelationships `json:"relationships,omitempty"`
}

type checkoutAttributes struct {
	URL            string          `json:"url,omitempty"`
	CheckoutData   *checkoutData   `json:"checkout_data,omitempty"`
	ProductOptions *productOptions `json:"product_options,omitempty"`
}

type checkoutData struct {
	Email  string            `json:"email,omitempty"`
	Name   string            `json:"name,omitempty"`
	Custom map[string]string `json:"custom,omitempty"`
}

type productOptions struct {
	RedirectURL string `json:"redirect_url,omitempty"`
}

type relationshipRef struct {
	Data struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"data"`
}

type checkoutRelationships struct {
	Store   *relationshipRef `json:"store,omitempty"`
	Variant *relationshipRef `json:"variant,omitempty"`
}

func ref(typ, id string) *relationshipRef {
	r := &relationshipRef{}
	r.Data.Type = typ
	r.Data.ID = id
	return r
}

// CreateCheckout returns the hosted checkout URL. The local user id travels
// in the checkout custom data and comes back on every webhook.
func (c *LemonSqueezyClient) CreateCheckout(ctx context.Context, in CheckoutRequest) (string, error) {
	if c == nil || c.APIKey == "" || c.StoreID == "" {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(in.VariantID) == "" {
		return "", errors.New("price id not configured")
	}
	if strings.TrimSpace(in.UserID) == "" {
		return "", errors.New("user id is required")
	}

	doc := checkoutDocument{Data: checkoutResource{
		Type: "checkouts",
		Attributes: checkoutAttributes{
			CheckoutData: &checkoutData{
				Email:  strings.TrimSpace(in.Email),
				Name:   strings.TrimSpace(in.Name),
				Custom: map[string]string{"user_id": in.UserID},
			},
			ProductOptions: &productOptions{RedirectURL: in.SuccessURL},
		},
		Relationships: checkoutRelationships{
			Store:   ref("stores", c.StoreID),
			Variant: ref("variants", strings.TrimSpace(in.VariantID)),
		},
	}}
	body, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/v1/checkouts", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", jsonAPIContentType)
	req.Header.Set("Content-Type", jsonAPIContentType)

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("Lemon Squeezy API error: %d", resp.StatusCode)
	}

	var out checkoutDocument
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode checkout response: %w", err)
	}
	if strings.TrimSpace(out.Data.Attributes.URL) == "" {
		return "", errors.New("checkout response has no url")
	}
	return out.Data.Attributes.URL, nil
}
