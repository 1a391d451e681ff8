package ensembl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// DefaultBaseURL is the public Ensembl REST endpoint.
const DefaultBaseURL = "https://rest.ensembl.org"

// Config configures a Client.
type Config struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// Timeout bounds each request including reading the body. Defaults to 30s.
	Timeout   time.Duration
	UserAgent string

	// HTTPClient overrides the underlying client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client executes homology lookups. It is safe for concurrent use.
type Client struct {
	baseURL   *url.URL
	userAgent string
	http      *http.Client
}

// NewClient constructs a client for the configured service root.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := parseBaseURL(raw)
	if err != nil {
		return nil, err
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Timeout:   timeout,
		}
	}

	return &Client{
		baseURL:   base,
		userAgent: strings.TrimSpace(cfg.UserAgent),
		http:      hc,
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse ensembl base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ensembl base URL must include a host (got %q)", raw)
	}
	// Ensure the base path ends with a slash so ResolveReference treats it as a directory.
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// URL returns the absolute request URL for q.
func (c *Client) URL(q Query) *url.URL {
	u := c.baseURL.ResolveReference(&url.URL{Path: q.Path()})
	u.RawQuery = q.Values().Encode()
	return u
}

// Fetch performs one lookup. It never returns a Go error: every problem is
// reported as a failed Outcome tagged with its FailureKind.
func (c *Client) Fetch(ctx context.Context, q Query) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(q).String(), nil)
	if err != nil {
		return Failed(&Failure{Kind: FailureUnclassified, GeneID: q.GeneID, Message: err.Error(), Err: err})
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Failed(classify(q.GeneID, err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		f := classify(q.GeneID, err)
		if f.Kind == FailureUnclassified {
			f.Kind = FailureTransport
		}
		return Failed(f)
	}
	if resp.StatusCode/100 != 2 {
		he := newHTTPError(resp, b)
		return Failed(&Failure{
			Kind:       FailureProtocol,
			GeneID:     q.GeneID,
			Message:    he.Error(),
			StatusCode: resp.StatusCode,
			Err:        he,
		})
	}

	body, err := DecodeBody(b)
	if err != nil {
		return Failed(&Failure{Kind: FailureUnclassified, GeneID: q.GeneID, Message: err.Error(), Err: err})
	}
	return Succeeded(body)
}

// classify maps a transport-level error to a Failure.
func classify(geneID string, err error) *Failure {
	f := &Failure{Kind: FailureUnclassified, GeneID: geneID, Message: err.Error(), Err: err}

	if errors.Is(err, context.DeadlineExceeded) {
		f.Kind = FailureTimeout
		return f
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		f.Kind = FailureTimeout
		return f
	}
	if errors.Is(err, context.Canceled) {
		return f
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &opErr),
		errors.As(err, &dnsErr),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		f.Kind = FailureTransport
	}
	return f
}
