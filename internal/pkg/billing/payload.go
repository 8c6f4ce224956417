package billing

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// flexString accepts JSON strings and numbers; the provider sends ids as
// either depending on the resource.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string { return string(f) }

// flexInt accepts integers encoded as numbers or numeric strings.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

type webhookPayload struct {
	EventName string      `json:"event_name"`
	Meta      webhookMeta `json:"meta"`
	Data      webhookData `json:"data"`
}

type webhookMeta struct {
	EventName  string         `json:"event_name"`
	CustomData map[string]any `json:"custom_data"`
}

type webhookData struct {
	Type       string            `json:"type"`
	ID         flexString        `json:"id"`
	Attributes webhookAttributes `json:"attributes"`
}

type webhookAttributes struct {
	VariantID      flexString `json:"variant_id"`
	FirstOrderItem *struct {
		VariantID flexString `json:"variant_id"`
	} `json:"first_order_item"`
	CustomData     map[string]any `json:"custom_data"`
	Total          flexInt        `json:"total"`
	PaymentAmount  *flexInt       `json:"payment_amount"`
	Currency       string         `json:"currency"`
	CustomerID     flexString     `json:"customer_id"`
	Status         string         `json:"status"`
	RenewsAt       string         `json:"renews_at"`
	VariantName    string         `json:"variant_name"`
	SubscriptionID flexString     `json:"subscription_id"`
	InvoiceID      flexString     `json:"invoice_id"`
}

const subscriptionInvoiceType = "subscription-invoices"

func parsePayload(raw []byte) (*webhookPayload, error) {
	var p webhookPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *webhookPayload) eventName() string {
	if n := strings.TrimSpace(p.Meta.EventName); n != "" {
		return n
	}
	return strings.TrimSpace(p.EventName)
}

// userID resolves the local user the checkout was created for.
func (p *webhookPayload) userID() string {
	for _, m := range []map[string]any{p.Meta.CustomData, p.Data.Attributes.CustomData} {
		for _, key := range []string{"user_id", "userId"} {
			if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func (p *webhookPayload) variantID() string {
	a := p.Data.Attributes
	if a.VariantID != "" {
		return a.VariantID.String()
	}
	if a.FirstOrderItem != nil {
		return a.FirstOrderItem.VariantID.String()
	}
	return ""
}

func (p *webhookPayload) isSubscriptionInvoice() bool {
	return p.Data.Type == subscriptionInvoiceType
}

// subscriptionID is the subscription the event is about. Invoice resources
// carry it as an attribute, subscription resources as their own id.
func (p *webhookPayload) subscriptionID() string {
	if p.isSubscriptionInvoice() && p.Data.Attributes.SubscriptionID != "" {
		return p.Data.Attributes.SubscriptionID.String()
	}
	return p.Data.ID.String()
}

func (p *webhookPayload) providerInvoiceID() string {
	if id := p.Data.Attributes.InvoiceID.String(); id != "" {
		return id
	}
	if p.isSubscriptionInvoice() {
		return p.Data.ID.String()
	}
	return ""
}

func (p *webhookPayload) paymentAmount() int64 {
	if p.Data.Attributes.PaymentAmount != nil {
		return int64(*p.Data.Attributes.PaymentAmount)
	}
	return int64(p.Data.Attributes.Total)
}

func (p *webhookPayload) currency() string {
	if c := strings.ToUpper(strings.TrimSpace(p.Data.Attributes.Currency)); c != "" {
		return c
	}
	return "USD"
}

func (p *webhookPayload) renewsAt() *time.Time {
	s := strings.TrimSpace(p.Data.Attributes.RenewsAt)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// payloadDigest is a short stable hash of the raw body, used to derive an
// invoice id when the provider did not send one.
func payloadDigest(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:8])
}

func orderInvoiceID(orderID string) string {
	return "order:" + orderID
}

func subscriptionInvoiceID(p *webhookPayload, raw []byte) string {
	if id := p.providerInvoiceID(); id != "" {
		return "subinv:" + id
	}
	return "sub:" + p.subscriptionID() + ":" + payloadDigest(raw)
}
