// Package middleware holds the huma and chi middleware shared by every route.
package middleware

import (
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// TrustedProxies lists the reverse proxies whose forwarding headers are believed. The zero
// value trusts nobody, so the client is always the connection's remote address.
type TrustedProxies struct {
	prefixes []netip.Prefix
}

// ParseTrustedProxies parses a comma-separated list of IPs and CIDR ranges.
func ParseTrustedProxies(list string) (TrustedProxies, error) {
	var proxies TrustedProxies

	for entry := range strings.SplitSeq(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return TrustedProxies{}, fmt.Errorf("trusted proxy %q: %w", entry, err)
			}

			proxies.prefixes = append(proxies.prefixes, prefix.Masked())

			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return TrustedProxies{}, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}

		proxies.prefixes = append(proxies.prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}

	return proxies, nil
}

func (p TrustedProxies) trusts(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}

	addr = addr.Unmap()

	for _, prefix := range p.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}

	return false
}

// ClientIP returns the originating client address. Forwarding headers are only read when
// the connection comes from a trusted proxy. X-Forwarded-For is walked from the right,
// skipping trusted hops, so entries a client prepends itself are never reached.
func (p TrustedProxies) ClientIP(ctx huma.Context) string {
	remote := remoteHost(ctx.RemoteAddr())
	if !p.trusts(remote) {
		return remote
	}

	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" || p.trusts(hop) {
				continue
			}

			return hop
		}
	}

	if xri := strings.TrimSpace(ctx.Header("X-Real-IP")); xri != "" {
		return xri
	}

	return remote
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return host
}
