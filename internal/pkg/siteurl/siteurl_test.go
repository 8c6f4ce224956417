package siteurl

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "https://example.com", Normalize("  example.com "))
	assert.Equal(t, "http://example.com/a", Normalize("http://example.com/a"))
	assert.Equal(t, "", Normalize("   "))
}

func TestParse(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
		host  string
	}{
		{in: "example.com", valid: true, host: "example.com"},
		{in: "https://www.acme.io/pricing", valid: true, host: "acme.io"},
		{in: "http://shop.example.org", valid: true, host: "shop.example.org"},
		{in: "", valid: false},
		{in: "ftp://example.com", valid: false},
		{in: "javascript://alert(1)", valid: false},
		{in: "localhost", valid: false},
		{in: "http://localhost:3000", valid: false},
		{in: "http://127.0.0.1/admin", valid: false},
		{in: "0.0.0.0", valid: false},
		{in: "http://[::1]/", valid: false},
		{in: "http://127.1.2.3", valid: false},
		{in: "http://app.localhost", valid: false},
		{in: "https://", valid: false},
		{in: "http://169.254.169.254/latest/meta-data", valid: false},
		{in: "http://10.0.0.8", valid: false},
		{in: "https://192.168.1.1/", valid: false},
		{in: "http://172.16.4.2:8080", valid: false},
		{in: "http://[fd00::1]/", valid: false},
		{in: "http://[fe80::1]/", valid: false},
		{in: "http://224.0.0.1", valid: false},
		{in: "https://93.184.216.34/", valid: true, host: "93.184.216.34"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			u, err := Parse(tt.in)
			if !tt.valid {
				assert.ErrorIs(t, err, ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, Host(u))
		})
	}
}

func TestIsPublicIP(t *testing.T) {
	for _, ip := range []string{"93.184.216.34", "1.1.1.1", "2606:4700:4700::1111"} {
		assert.True(t, IsPublicIP(net.ParseIP(ip)), ip)
	}
	for _, ip := range []string{"127.0.0.1", "10.1.2.3", "172.31.0.1", "192.168.0.10", "169.254.169.254", "0.0.0.0", "::1", "fe80::1", "fc00::1", "ff02::1"} {
		assert.False(t, IsPublicIP(net.ParseIP(ip)), ip)
	}
	assert.False(t, IsPublicIP(nil))
}
