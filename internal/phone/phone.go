// Package phone canonicalizes Kenyan mobile numbers. Every lookup and every
// stored row goes through the same canonical +254 form so a user texting from
// 0712..., 254712... or +254712... always resolves to one profile.
package phone

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	junk      = regexp.MustCompile(`[^\d+]`)
	canonical = regexp.MustCompile(`^\+254[17]\d{8}$`)
	intl      = regexp.MustCompile(`^254[17]\d{8}$`)
	local     = regexp.MustCompile(`^0[17]\d{8}$`)
)

// Normalize returns the canonical +254... representation of raw, tolerating
// the 0..., 254... and +254... input variants.
func Normalize(raw string) (string, error) {
	p := junk.ReplaceAllString(strings.TrimSpace(raw), "")
	switch {
	case canonical.MatchString(p):
		return p, nil
	case intl.MatchString(p):
		return "+" + p, nil
	case local.MatchString(p):
		return "+254" + p[1:], nil
	default:
		return "", fmt.Errorf("invalid phone number %q", raw)
	}
}

// Audit strips the leading + for message-log rows, matching the wire format
// the gateway uses.
func Audit(canonical string) string {
	return strings.TrimPrefix(canonical, "+")
}
