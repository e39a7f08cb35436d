// Package origin resolves client addresses for audit enrichment.
package origin

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/asgr-game/account-service/internal/core/ports"
)

const defaultTimeout = 500 * time.Millisecond

// Resolver is the subset of *net.Resolver used for reverse lookups.
type Resolver interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// ReverseDNS implements ports.OriginLookup. It renders "ip (host)" when a PTR
// record exists and fails otherwise; callers fall back to the bare ip.
type ReverseDNS struct {
	resolver Resolver
	timeout  time.Duration
}

var _ ports.OriginLookup = (*ReverseDNS)(nil)

func NewReverseDNS(resolver Resolver, timeout time.Duration) *ReverseDNS {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ReverseDNS{resolver: resolver, timeout: timeout}
}

func (r *ReverseDNS) Lookup(ctx context.Context, addr string) (string, error) {
	if net.ParseIP(addr) == nil {
		return "", fmt.Errorf("origin: %q is not an ip address", addr)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	names, err := r.resolver.LookupAddr(ctx, addr)
	if err != nil {
		return "", fmt.Errorf("origin: reverse lookup: %w", err)
	}
	if len(names) == 0 {
		return "", fmt.Errorf("origin: no ptr record for %s", addr)
	}
	return fmt.Sprintf("%s (%s)", addr, strings.TrimSuffix(names[0], ".")), nil
}
