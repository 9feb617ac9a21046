// Package pubmed provides a minimal NCBI E-utilities client used to report
// total result counts for compiled queries before any fetch is attempted.
package pubmed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/medscope/litsearch/internal/resilience"
)

const (
	defaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	// NCBI allows 3 requests/second without an API key.
	defaultRatePerSec = 3
)

// Client reports PubMed result counts for query strings.
type Client interface {
	Count(ctx context.Context, query string) (int, error)
}

// esearchResponse is the retmode=json ESearch payload. Count arrives as a
// string.
type esearchResponse struct {
	ESearchResult struct {
		Count string `json:"count"`
	} `json:"esearchresult"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default E-utilities base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit overrides the default 3 req/s limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithIdentity sets the tool and email parameters NCBI asks clients to send.
func WithIdentity(tool, email string) Option {
	return func(c *httpClient) {
		c.tool = tool
		c.email = email
	}
}

type httpClient struct {
	baseURL string
	tool    string
	email   string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a PubMed E-utilities client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(rate.Limit(defaultRatePerSec), 1),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry: resilience.DefaultRetryConfig(),
	}
	c.retry.OnRetry = resilience.RetryLogger("pubmed", "esearch")
	for _, o := range opts {
		o(c)
	}
	return c
}

// Count returns the total number of PubMed records matching the query.
func (c *httpClient) Count(ctx context.Context, query string) (int, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (int, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, eris.Wrap(err, "pubmed: rate limit wait")
		}
		return c.count(ctx, query)
	})
}

func (c *httpClient) count(ctx context.Context, query string) (int, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmode", "json")
	params.Set("retmax", "0")
	if c.tool != "" {
		params.Set("tool", c.tool)
	}
	if c.email != "" {
		params.Set("email", c.email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/esearch.fcgi?"+params.Encode(), nil)
	if err != nil {
		return 0, eris.Wrap(err, "pubmed: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, eris.Wrap(err, "pubmed: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, eris.Wrap(err, "pubmed: read response")
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("pubmed: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return 0, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return 0, statusErr
	}

	var result esearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, eris.Wrap(err, "pubmed: unmarshal response")
	}

	count, err := strconv.Atoi(result.ESearchResult.Count)
	if err != nil {
		return 0, eris.Wrapf(err, "pubmed: parse count %q", result.ESearchResult.Count)
	}
	return count, nil
}
