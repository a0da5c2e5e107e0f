package embed

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// ErrInvalidDomain is returned when no host can be extracted.
var ErrInvalidDomain = errors.New("embed: invalid domain")

// NormalizeDomain lowercases host, strips a port, a trailing dot and a
// leading "www." and converts internationalised names to their ASCII form.
func NormalizeDomain(host string) (string, error) {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", ErrInvalidDomain
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidDomain, host, err)
	}
	return ascii, nil
}

// DomainFromURL extracts the normalised domain of the page hosting an embed.
// Bare hosts without a scheme are accepted.
func DomainFromURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidDomain
	}
	if !strings.Contains(raw, "://") {
		raw = "//" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDomain, err)
	}
	return NormalizeDomain(u.Host)
}

// MatchDomain reports whether domain is allowed by allowList. Entries are
// exact domains or "*.example.com" wildcards, which match example.com and any
// of its subdomains.
func MatchDomain(allowList []string, domain string) bool {
	domain, err := NormalizeDomain(domain)
	if err != nil {
		return false
	}
	for _, entry := range allowList {
		entry = strings.TrimSpace(entry)
		if suffix, ok := strings.CutPrefix(entry, "*."); ok {
			base, err := NormalizeDomain(suffix)
			if err == nil && (domain == base || strings.HasSuffix(domain, "."+base)) {
				return true
			}
			continue
		}
		allowed, err := NormalizeDomain(entry)
		if err == nil && allowed == domain {
			return true
		}
	}
	return false
}
