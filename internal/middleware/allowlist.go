package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"rep-lookup/internal/logger"
)

// AllowList admits requests whose peer address is a listed IP or falls inside a listed prefix.
type AllowList struct {
	prefixes     []netip.Prefix
	realIPHeader string
}

// ParseAllowList accepts comma separated IPs and CIDRs. "local" adds the loopback addresses.
// An empty list returns nil, which Guard treats as open.
func ParseAllowList(list, realIPHeader string) (*AllowList, error) {
	a := &AllowList{realIPHeader: strings.TrimSpace(realIPHeader)}
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
			continue
		case p == "local":
			a.prefixes = append(a.prefixes, netip.MustParsePrefix("127.0.0.0/8"), netip.MustParsePrefix("::1/128"))
		case strings.Contains(p, "/"):
			pfx, err := netip.ParsePrefix(p)
			if err != nil {
				return nil, fmt.Errorf("allow list entry %q: %w", p, err)
			}
			a.prefixes = append(a.prefixes, pfx.Masked())
		default:
			ip, err := netip.ParseAddr(p)
			if err != nil {
				return nil, fmt.Errorf("allow list entry %q: %w", p, err)
			}
			a.prefixes = append(a.prefixes, netip.PrefixFrom(ip.Unmap(), ip.Unmap().BitLen()))
		}
	}
	if len(a.prefixes) == 0 {
		return nil, nil
	}
	return a, nil
}

func (a *AllowList) Allowed(ip netip.Addr) bool {
	ip = ip.Unmap()
	for _, p := range a.prefixes {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

// Guard rejects requests from outside the list with 403. A nil AllowList passes everything.
func (a *AllowList) Guard(next http.Handler) http.Handler {
	if a == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, ok := a.peer(r)
		if !ok || !a.Allowed(ip) {
			logger.L().Debug("admin_guard_block", "remote", r.RemoteAddr, "path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"forbidden","message":"Access denied."}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// peer is RemoteAddr unless a trusted proxy header is configured, in which case its first entry wins.
func (a *AllowList) peer(r *http.Request) (netip.Addr, bool) {
	if a.realIPHeader != "" {
		if raw := r.Header.Get(a.realIPHeader); raw != "" {
			first, _, _ := strings.Cut(raw, ",")
			if ip, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
				return ip, true
			}
		}
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	ip, err := netip.ParseAddr(host)
	return ip, err == nil
}
