// Package wikidata reads lexeme lemmas and their word forms from a SPARQL
// endpoint such as https://query.wikidata.org/sparql.
package wikidata

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

	"go.uber.org/zap"

	"github.com/yokitheyo/lexemes2solr/synonyms"
)

const (
	DefaultEndpoint  = "https://query.wikidata.org/sparql"
	DefaultUserAgent = "lexemes2solr/1.0 (https://github.com/yokitheyo/lexemes2solr)"

	sparqlResultsJSON = "application/sparql-results+json"
)

// ErrMalformedRow is returned when a result row lacks the lemma or the
// representation binding.
var ErrMalformedRow = errors.New("malformed result row")

// QueryError reports a failed SPARQL request.
type QueryError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *QueryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sparql query %s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("sparql query %s: %v", e.Endpoint, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Client runs SELECT queries against a SPARQL endpoint.
type Client struct {
	endpoint  string
	userAgent string
	client    *http.Client
	logger    *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithUserAgent sets the User-Agent header. Wikidata rejects requests
// without one.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client for endpoint. An empty endpoint means the public
// Wikidata query service.
func NewClient(endpoint string, timeout time.Duration, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint:  endpoint,
		userAgent: DefaultUserAgent,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Pairs returns every distinct (lemma, representation) pair of the lexemes
// in the given language. language must be an entity IRI.
func (c *Client) Pairs(ctx context.Context, language string) ([]synonyms.Pair, error) {
	c.logger.Debug("querying lexemes", zap.String("endpoint", c.endpoint), zap.String("language", language))

	res, err := c.Select(ctx, LexemeQuery(language))
	if err != nil {
		return nil, err
	}

	pairs := make([]synonyms.Pair, 0, len(res.Results.Bindings))
	for i, row := range res.Results.Bindings {
		lemma, ok := row.Value("lemma")
		if !ok {
			return nil, &QueryError{Endpoint: c.endpoint, Err: fmt.Errorf("row %d: %w: no lemma", i, ErrMalformedRow)}
		}
		rep, ok := row.Value("representation")
		if !ok {
			return nil, &QueryError{Endpoint: c.endpoint, Err: fmt.Errorf("row %d: %w: no representation", i, ErrMalformedRow)}
		}
		pairs = append(pairs, synonyms.Pair{Lemma: lemma, Representation: rep})
	}

	c.logger.Info("lexemes fetched", zap.String("language", language), zap.Int("rows", len(pairs)))
	return pairs, nil
}

// Select runs query and decodes the SPARQL 1.1 JSON result.
func (c *Client) Select(ctx context.Context, query string) (*Results, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, &QueryError{Endpoint: c.endpoint, Err: err}
	}
	q := u.Query()
	q.Set("query", query)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &QueryError{Endpoint: c.endpoint, Err: err}
	}
	req.Header.Set("Accept", sparqlResultsJSON)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &QueryError{Endpoint: c.endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &QueryError{Endpoint: c.endpoint, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}

	var res Results
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, &QueryError{Endpoint: c.endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode results: %w", err)}
	}
	return &res, nil
}
