package spec

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// FallbackPort is used when no server URL yields a port.
const FallbackPort = 8080

var serverVarRe = regexp.MustCompile(`\{([^{}]+)\}`)

// DefaultServerURL returns the first server's URL with every {variable}
// replaced by its declared default. Only the first server is honored.
// Variables without a default are left in place.
func (d *Document) DefaultServerURL() string {
	if d == nil || len(d.Servers) == 0 {
		return ""
	}
	srv := d.Servers[0]
	return serverVarRe.ReplaceAllStringFunc(srv.URL, func(m string) string {
		name := strings.TrimSpace(m[1 : len(m)-1])
		if v, ok := srv.Variables[name]; ok && v.Default != "" {
			return v.Default
		}
		return m
	})
}

// DefaultPort returns the port of the default server URL, falling back to
// the scheme's well-known port and finally to FallbackPort.
func (d *Document) DefaultPort() int {
	raw := d.DefaultServerURL()
	if raw == "" {
		return FallbackPort
	}
	u, err := url.Parse(raw)
	if err != nil {
		return FallbackPort
	}
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 && n < 65536 {
			return n
		}
		return FallbackPort
	}
	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		return 443
	case "http", "ws":
		return 80
	}
	return FallbackPort
}
