package llm

import (
	"net"
	"net/http"
	"net/url"
	"time"
)

const DefaultTimeout = 120 * time.Second

// NewHTTPClient builds the client used for model calls. With a nil proxyURL
// the transport uses no proxy at all, environment proxy variables included.
// A zero timeout means no client-side timeout.
func NewHTTPClient(proxyURL *url.URL, timeout time.Duration) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if proxyURL != nil {
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
