package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultAPIBaseURL is the GitHub REST API root.
	DefaultAPIBaseURL = "https://api.github.com"
	// DefaultDownloadBaseURL is the host that serves release assets.
	DefaultDownloadBaseURL = "https://github.com"
	// DefaultRetries is the default number of latest-version lookup attempts
	DefaultRetries = 3
	// DefaultRetryDelay is the fixed pause between lookup attempts
	DefaultRetryDelay = 3 * time.Second

	// maxJSONResponseBytes is the upper bound on JSON API response size (10 MB).
	maxJSONResponseBytes = 10 << 20
	// maxErrorBodyBytes bounds how much of an error response is kept.
	maxErrorBodyBytes = 64 << 10
)

type (
	// githubRelease is the JSON wire format for a GitHub Release API response.
	githubRelease struct {
		TagName string        `json:"tag_name"`
		Assets  []githubAsset `json:"assets"`
	}

	// githubAsset is the JSON wire format for a GitHub Release asset.
	githubAsset struct {
		Name string `json:"name"`
	}

	// Client queries release metadata and builds asset download URLs.
	Client struct {
		httpClient      *http.Client
		apiBaseURL      string
		downloadBaseURL string
		token           string
		userAgent       string
		retries         int
		retryDelay      time.Duration
		logger          Logger
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// WithHTTPClient sets the HTTP client, e.g. one built by NewHTTPClient with a proxy.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the API base URL, primarily for test servers.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.apiBaseURL = strings.TrimRight(base, "/")
	}
}

// WithDownloadBaseURL overrides the asset download host.
func WithDownloadBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.downloadBaseURL = strings.TrimRight(base, "/")
	}
}

// WithToken sets a bearer token for API requests.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRetry sets how many times LatestTag tries and the constant delay
// between tries. A count below 1 is treated as 1.
func WithRetry(count int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.retries = count
		c.retryDelay = delay
	}
}

// WithClientLogger sets the logger used for per-attempt diagnostics.
func WithClientLogger(l Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client with GitHub defaults.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:      http.DefaultClient,
		apiBaseURL:      DefaultAPIBaseURL,
		downloadBaseURL: DefaultDownloadBaseURL,
		userAgent:       DefaultUserAgent,
		retries:         DefaultRetries,
		retryDelay:      DefaultRetryDelay,
		logger:          defaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPClient returns the underlying HTTP client so a Fetcher can share it.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// LatestTag resolves the tag of the latest release of repo. Every failure
// is retried the same way until the configured attempts are used up; the
// returned error wraps the last attempt's failure.
func (c *Client) LatestTag(ctx context.Context, repo string) (string, error) {
	r, err := ParseRepo(repo)
	if err != nil {
		return "", err
	}

	attempts := max(c.retries, 1)
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return "", fmt.Errorf("resolve latest version of %s: %w", repo, ctx.Err())
			}
		}

		rel, err := c.getRelease(ctx, r, "")
		if err == nil {
			if rel.TagName == "" {
				err = &ParseError{Subject: "release metadata", Err: errors.New("missing tag_name")}
			} else {
				return rel.TagName, nil
			}
		}

		lastErr = err
		c.logger.Debug("latest version lookup failed", "repo", repo, "attempt", attempt, "of", attempts, "err", err)

		if ctx.Err() != nil {
			return "", fmt.Errorf("resolve latest version of %s: %w", repo, ctx.Err())
		}
	}

	return "", fmt.Errorf("unable to fetch latest version of %s after %d attempts: %w", repo, attempts, lastErr)
}

// ReleaseAssets lists the asset names of the release tagged tag, or of the
// latest release when tag is empty. It is not retried.
func (c *Client) ReleaseAssets(ctx context.Context, repo, tag string) ([]string, error) {
	r, err := ParseRepo(repo)
	if err != nil {
		return nil, err
	}

	rel, err := c.getRelease(ctx, r, tag)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rel.Assets))
	for _, a := range rel.Assets {
		names = append(names, a.Name)
	}
	return names, nil
}

// AssetURL builds the download URL of asset in release tag:
// <download host>/<owner>/<name>/releases/download/<tag>/<asset>.
func (c *Client) AssetURL(repo Repo, tag, asset string) string {
	return fmt.Sprintf("%s/%s/%s/releases/download/%s/%s",
		c.downloadBaseURL, repo.Owner, repo.Name, url.PathEscape(tag), url.PathEscape(asset))
}

func (c *Client) getRelease(ctx context.Context, r Repo, tag string) (*githubRelease, error) {
	reqURL := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.apiBaseURL, r.Owner, r.Name)
	if tag != "" {
		reqURL = fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", c.apiBaseURL, r.Owner, r.Name, url.PathEscape(tag))
	}

	resp, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if err := checkStatus(resp, reqURL); err != nil {
		return nil, err
	}

	var rel githubRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&rel); err != nil {
		return nil, &ParseError{Subject: "release metadata", Err: err}
	}
	return &rel, nil
}

// doRequest executes a GET with the GitHub API headers.
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)

	// The token is only sent to the API host, never to redirect targets.
	if c.token != "" && sameHost(req.URL, c.apiBaseURL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: http.MethodGet, URL: reqURL, Err: err}
	}
	return resp, nil
}

// checkStatus converts a non-2xx response into an HTTPStatusError that
// carries the response body.
func checkStatus(resp *http.Response, reqURL string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes)) //nolint:errcheck // Best-effort diagnostics.
	return &HTTPStatusError{
		URL:        reqURL,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

func sameHost(u *url.URL, base string) bool {
	b, err := url.Parse(base)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, b.Host)
}
