// Package siteurl normalizes and validates prospect URLs submitted for
// generation.
package siteurl

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

var ErrInvalidURL = errors.New("siteurl: invalid url")

var blockedHosts = map[string]struct{}{
	"localhost": {},
	"127.0.0.1": {},
	"0.0.0.0":   {},
	"::1":       {},
}

// Normalize trims the input and prefixes https:// when no scheme is given.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	return s
}

// Parse normalizes raw and rejects anything that is not an http(s) URL to a
// public-looking host. Hostnames are not resolved here; the fetcher checks
// the dialed address.
func Parse(raw string) (*url.URL, error) {
	s := Normalize(raw)
	if s == "" {
		return nil, ErrInvalidURL
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrInvalidURL
	}
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" {
		return nil, ErrInvalidURL
	}
	if _, blocked := blockedHosts[host]; blocked {
		return nil, ErrInvalidURL
	}
	if strings.HasSuffix(host, ".localhost") {
		return nil, ErrInvalidURL
	}
	if ip := net.ParseIP(host); ip != nil && !IsPublicIP(ip) {
		return nil, ErrInvalidURL
	}
	return u, nil
}

// IsPublicIP reports whether ip may be fetched: loopback, private,
// link-local, multicast and unspecified addresses are refused.
func IsPublicIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	return !(ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast())
}

// Host returns the bare host of u without a leading "www.".
func Host(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
