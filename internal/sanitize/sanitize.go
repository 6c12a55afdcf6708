// Package sanitize normalizes and validates user-supplied identifiers.
//
// Tenant subdomains appear in hostnames, so they must be valid DNS labels:
// ^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$
package sanitize

import (
	"strings"
	"unicode"
)

const (
	// MaxSubdomainLength is the DNS label limit.
	MaxSubdomainLength = 63

	// MaxNameLength bounds display names such as project and tenant names.
	MaxNameLength = 255
)

// Subdomain lowercases s, trims surrounding space and validates the result.
func Subdomain(s string) (string, error) {
	out := strings.ToLower(strings.TrimSpace(s))
	if err := ValidateSubdomain(out); err != nil {
		return "", err
	}
	return out, nil
}

// Name trims s, collapses runs of whitespace and drops control characters.
// The result is cut to MaxNameLength runes.
func Name(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	n := 0
	for _, r := range strings.TrimSpace(s) {
		if n == MaxNameLength {
			break
		}
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r):
			continue
		}
		if space {
			b.WriteByte(' ')
			n++
			space = false
			if n == MaxNameLength {
				break
			}
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
