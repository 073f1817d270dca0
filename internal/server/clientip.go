package server

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClient identifies requests whose origin cannot be determined
const UnknownClient = "unknown"

// ClientIP returns the submitting client's address: the first entry of
// X-Forwarded-For when present, otherwise the connection's remote host.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}

	if r.RemoteAddr == "" {
		return UnknownClient
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port
		return r.RemoteAddr
	}
	return host
}
