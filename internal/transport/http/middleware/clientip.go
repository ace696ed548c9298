package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP resolves the address a request is rate-limited under. Forwarding
// headers are only read when the socket peer is a trusted proxy; otherwise
// the peer address is the client. A nil *ClientIP trusts no proxy.
type ClientIP struct {
	trusted []netip.Prefix
}

// NewClientIP parses trusted proxies given as CIDRs or bare addresses.
func NewClientIP(proxies []string) (*ClientIP, error) {
	c := &ClientIP{}
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.Contains(p, "/") {
			prefix, err := netip.ParsePrefix(p)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", p, err)
			}
			c.trusted = append(c.trusted, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(p)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", p, err)
		}
		addr = addr.Unmap()
		c.trusted = append(c.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return c, nil
}

func (c *ClientIP) isTrusted(addr netip.Addr) bool {
	if c == nil {
		return false
	}
	for _, p := range c.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Of returns the client address of r. Behind trusted proxies it walks
// X-Forwarded-For from the right and returns the first untrusted hop, then
// falls back to X-Real-Ip. A malformed hop ends the walk at the last
// trusted address.
func (c *ClientIP) Of(r *http.Request) string {
	peer, ok := peerAddr(r)
	if !ok {
		return r.RemoteAddr
	}
	if !c.isTrusted(peer) {
		return peer.String()
	}

	hops := forwardedHops(r)
	client := peer
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(hops[i])
		if err != nil {
			return client.String()
		}
		client = addr.Unmap()
		if !c.isTrusted(client) {
			return client.String()
		}
	}
	if len(hops) > 0 {
		return client.String()
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-Ip"))); err == nil {
		return addr.Unmap().String()
	}
	return peer.String()
}

func peerAddr(r *http.Request) (netip.Addr, bool) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// forwardedHops flattens every X-Forwarded-For header, leftmost hop first.
func forwardedHops(r *http.Request) []string {
	var hops []string
	for _, h := range r.Header.Values("X-Forwarded-For") {
		for _, hop := range strings.Split(h, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	return hops
}
