// Package solr writes synonym mappings to a Solr managed synonyms resource.
package solr

import (
	"bytes"
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

// Target names the managed resource to write to.
type Target struct {
	BaseURL  string
	Core     string
	Resource string
}

// SynonymsURL returns <base>/<core>/schema/analysis/synonyms/<resource>.
func (t Target) SynonymsURL() string {
	return joinBase(t.BaseURL) + url.PathEscape(t.Core) + "/schema/analysis/synonyms/" + url.PathEscape(t.Resource)
}

// ReloadURL returns the CoreAdmin URL that reloads the core.
func (t Target) ReloadURL() string {
	q := url.Values{}
	q.Set("action", "RELOAD")
	q.Set("core", t.Core)
	return joinBase(t.BaseURL) + "admin/cores?" + q.Encode()
}

func joinBase(base string) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

// PublishError reports a failed write to Solr.
type PublishError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *PublishError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("solr %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("solr %s: %v", e.URL, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// errorResponse is the error envelope of the Solr REST API.
type errorResponse struct {
	Error struct {
		Msg  string `json:"msg"`
		Code int    `json:"code"`
	} `json:"error"`
}

// Client talks to the Solr REST API.
type Client struct {
	client *http.Client
	logger *zap.Logger
}

// NewClient returns a client whose requests time out after timeout.
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Publish sends the whole mapping in one request so Solr rewrites the
// resource once.
func (c *Client) Publish(ctx context.Context, m synonyms.Mapping, t Target) error {
	endpoint := t.SynonymsURL()

	body, err := json.Marshal(m)
	if err != nil {
		return &PublishError{URL: endpoint, Err: fmt.Errorf("encode synonyms: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &PublishError{URL: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.do(req); err != nil {
		return err
	}

	c.logger.Info("synonyms published",
		zap.String("url", endpoint),
		zap.Int("words", len(m)),
		zap.Int("bytes", len(body)))
	return nil
}

// Reload reloads the core so analyzers pick up the new synonyms.
func (c *Client) Reload(ctx context.Context, t Target) error {
	endpoint := t.ReloadURL()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &PublishError{URL: endpoint, Err: err}
	}
	if err := c.do(req); err != nil {
		return err
	}

	c.logger.Info("core reloaded", zap.String("core", t.Core))
	return nil
}

func (c *Client) do(req *http.Request) error {
	endpoint := req.URL.String()

	resp, err := c.client.Do(req)
	if err != nil {
		return &PublishError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &PublishError{URL: endpoint, StatusCode: resp.StatusCode, Err: errors.New(errorMessage(resp.StatusCode, data))}
	}
	return nil
}

func errorMessage(status int, body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Msg != "" {
		return er.Error.Msg
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return http.StatusText(status)
}
