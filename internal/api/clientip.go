package api

import (
	"net/http"
	"strings"
)

// clientIP picks the visitor address for IP-based location: explicit ?ip= first, then the usual
// reverse proxy headers, then the socket peer. Headers are trusted as-is, so deploy behind a proxy
// that overwrites them.
func clientIP(r *http.Request) string {
	if q := strings.TrimSpace(r.URL.Query().Get("ip")); q != "" {
		return q
	}
	h := r.Header
	if x := h.Get("X-Forwarded-For"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	for _, k := range []string{"CF-Connecting-IP", "X-Real-IP", "X-Client-IP"} {
		if x := strings.TrimSpace(h.Get(k)); x != "" {
			return x
		}
	}
	if x := h.Get("Forwarded"); x != "" {
		if i := strings.Index(strings.ToLower(x), "for="); i >= 0 {
			y := x[i+4:]
			if p := strings.IndexAny(y, ";,"); p >= 0 {
				y = y[:p]
			}
			y = strings.Trim(y, "\" ")
			return strings.TrimSuffix(strings.TrimPrefix(y, "["), "]")
		}
	}
	return remoteHost(r.RemoteAddr)
}

// visitorIP ignores ?ip= so an explicit lookup target is never counted as the visitor.
func visitorIP(r *http.Request) string {
	if r.URL.Query().Get("ip") == "" {
		return clientIP(r)
	}
	r2 := r.Clone(r.Context())
	q := r2.URL.Query()
	q.Del("ip")
	r2.URL.RawQuery = q.Encode()
	return clientIP(r2)
}

func remoteHost(addr string) string {
	if addr == "" {
		return ""
	}
	if i := strings.LastIndex(addr, ":"); i > 0 && !strings.HasSuffix(addr, "]") {
		addr = addr[:i]
	}
	return strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")
}
