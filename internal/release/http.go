package release

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "relfetch/1.0"

	// responseHeaderTimeout bounds the wait for response headers. Bodies are
	// bounded only by the caller's context since assets may be large.
	responseHeaderTimeout = 30 * time.Second

	maxRedirects = 10
)

// NewHTTPClient builds the client used for API calls and downloads.
// An empty proxy falls back to HTTP_PROXY/HTTPS_PROXY/NO_PROXY.
func NewHTTPClient(proxy string) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = responseHeaderTimeout
	transport.Proxy = http.ProxyFromEnvironment

	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", proxy, err)
		}
		if proxyURL.Scheme == "" || proxyURL.Host == "" {
			return nil, fmt.Errorf("invalid proxy URL %q: scheme and host are required", proxy)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}, nil
}
