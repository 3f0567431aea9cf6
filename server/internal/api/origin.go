package api

import (
	"net/http"
	"strings"
)

// Origins decides which browser origins may call accd. Patterns match
// case-insensitively and may contain one '*' standing for any run of
// characters. A request without an Origin header is never a cross-site
// browser request and is always allowed.
type Origins struct {
	exact map[string]struct{}
	wild  [][2]string // prefix, suffix
}

// NewOrigins compiles patterns. An empty list allows no cross-origin callers.
func NewOrigins(patterns []string) *Origins {
	o := &Origins{exact: make(map[string]struct{}, len(patterns))}
	for _, p := range patterns {
		p = strings.ToLower(p)
		if before, after, ok := strings.Cut(p, "*"); ok {
			o.wild = append(o.wild, [2]string{before, after})
			continue
		}
		o.exact[p] = struct{}{}
	}
	return o
}

// Allowed reports whether origin matches a pattern.
func (o *Origins) Allowed(origin string) bool {
	origin = strings.ToLower(origin)
	if _, ok := o.exact[origin]; ok {
		return true
	}
	for _, w := range o.wild {
		if len(origin) >= len(w[0])+len(w[1]) && strings.HasPrefix(origin, w[0]) && strings.HasSuffix(origin, w[1]) {
			return true
		}
	}
	return false
}

// CheckOrigin is Allowed for an HTTP request; it fits websocket.Upgrader.
func (o *Origins) CheckOrigin(r *http.Request) bool {
	origin, ok := r.Header["Origin"]
	if !ok {
		return true
	}
	return len(origin) > 0 && o.Allowed(origin[0])
}

// guard rejects requests from disallowed origins before they reach a
// handler. CORS headers alone only stop the browser from reading the
// response; a simple POST would still run.
func (o *Origins) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !o.CheckOrigin(r) {
			jsonErr(w, http.StatusForbidden, "origin not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}
