// Package dns checks that an email domain can receive mail.
package dns

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"
)

// wellKnown domains are accepted when the MX lookup itself fails.
var wellKnown = map[string]struct{}{
	"gmail.com":      {},
	"yahoo.com":      {},
	"hotmail.com":    {},
	"outlook.com":    {},
	"icloud.com":     {},
	"protonmail.com": {},
	"live.com":       {},
	"msn.com":        {},
}

type mxResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// MXValidator reports whether a domain publishes at least one MX record.
type MXValidator struct {
	resolver mxResolver
	timeout  time.Duration
}

func NewMXValidator(timeout time.Duration) *MXValidator {
	return &MXValidator{resolver: net.DefaultResolver, timeout: timeout}
}

// HasMX returns true when domain has MX records. On lookup failure or
// timeout only the well-known providers pass.
func (v *MXValidator) HasMX(ctx context.Context, domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	records, err := v.resolver.LookupMX(ctx, domain)
	if err != nil {
		slog.Warn("mx lookup failed", "domain", domain, "err", err)
		_, ok := wellKnown[domain]
		return ok
	}
	return len(records) > 0
}
