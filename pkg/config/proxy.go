package config

import (
	"net"
	"net/url"
	"strings"
)

// ProxyURL returns the proxy to route model calls through, or nil when the
// proxy is disabled or incomplete. Credentials are only used when both the
// username and the password are set.
func (p ProxyConfig) ProxyURL() *url.URL {
	host := strings.TrimSpace(p.Host)
	port := strings.TrimSpace(string(p.Port))
	if !p.Enabled || host == "" || port == "" {
		return nil
	}

	u := &url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(host, port),
	}
	if p.Username != "" && p.Password != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}
