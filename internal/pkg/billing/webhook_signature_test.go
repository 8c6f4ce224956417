package billing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"meta":{"event_name":"order_created"}}`)
	good := Sign(body, "whsec")

	tests := []struct {
		name   string
		body   []byte
		sig    string
		secret string
		want   bool
	}{
		{name: "valid", body: body, sig: good, secret: "whsec", want: true},
		{name: "uppercase hex", body: body, sig: strings.ToUpper(good), secret: "whsec", want: true},
		{name: "tampered body", body: append([]byte(" "), body...), sig: good, secret: "whsec"},
		{name: "wrong secret", body: body, sig: good, secret: "other"},
		{name: "not hex", body: body, sig: "zz", secret: "whsec"},
		{name: "empty signature", body: body, sig: "", secret: "whsec"},
		{name: "empty secret", body: body, sig: good, secret: ""},
		{name: "truncated", body: body, sig: good[:10], secret: "whsec"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifySignature(tt.body, tt.sig, tt.secret))
		})
	}
}
