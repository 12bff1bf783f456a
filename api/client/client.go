// Package client talks to the HTTP API of a master site.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/bloomgate/go-bloomgate/api"
	"github.com/bloomgate/go-bloomgate/bloom"
	"github.com/bloomgate/go-bloomgate/bloomjoin"
	"github.com/bloomgate/go-bloomgate/codec"
	"github.com/bloomgate/go-bloomgate/config"
	"github.com/bloomgate/go-bloomgate/modlog"
	"github.com/bloomgate/go-bloomgate/sitesync"
)

var (
	// ErrInvalidRequest is returned when the server rejects a request as
	// malformed or too large.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound is returned for unknown exams and filters.
	ErrNotFound = errors.New("not found")
)

// StatusError is returned for responses with an unexpected status code.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return ErrInvalidRequest
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// A wrapper around zap.Logger to make it compatible with
// retryablehttp.LeveledLogger interface.
type retryableHTTPLogger struct {
	inner *zap.Logger
}

func (r retryableHTTPLogger) Error(format string, args ...any) {
	r.inner.Sugar().Errorw(format, args...)
}

func (r retryableHTTPLogger) Info(format string, args ...any) {
	r.inner.Sugar().Infow(format, args...)
}

func (r retryableHTTPLogger) Warn(format string, args ...any) {
	r.inner.Sugar().Warnw(format, args...)
}

func (r retryableHTTPLogger) Debug(format string, args ...any) {
	r.inner.Sugar().Debugw(format, args...)
}

// Opt configures a Client.
type Opt func(*Client)

// WithLogger specifies the logger for the Client and its retrying transport.
func WithLogger(logger *zap.Logger) Opt {
	return func(c *Client) {
		c.logger = logger
		c.client.Logger = &retryableHTTPLogger{inner: logger}
		c.client.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
			c.logger.Debug("response received",
				zap.Stringer("url", resp.Request.URL),
				zap.Int("status", resp.StatusCode),
			)
		}
	}
}

func withHTTPClient(client *http.Client) Opt {
	return func(c *Client) {
		c.client.HTTPClient = client
	}
}

// Client is an HTTP client of a master site.
type Client struct {
	baseURL *url.URL
	client  *retryablehttp.Client
	logger  *zap.Logger
}

// New creates a Client for the master site configured in cfg.
func New(cfg config.ClientConfig, opts ...Opt) (*Client, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing address: %w", err)
	}
	if baseURL.Scheme == "" {
		baseURL.Scheme = "http"
	}
	c := &Client{
		baseURL: baseURL,
		client: &retryablehttp.Client{
			HTTPClient:   &http.Client{Timeout: cfg.Timeout},
			RetryMax:     cfg.RetryMax,
			RetryWaitMin: cfg.RetryWaitMin,
			RetryWaitMax: cfg.RetryWaitMax,
			Backoff:      retryablehttp.DefaultBackoff,
			CheckRetry:   retryablehttp.DefaultRetryPolicy,
			ErrorHandler: retryablehttp.PassthroughErrorHandler,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger.Debug("created client",
		zap.Stringer("url", baseURL),
		zap.Int("max retries", c.client.RetryMax),
		zap.Duration("min retry wait", c.client.RetryWaitMin),
		zap.Duration("max retry wait", c.client.RetryWaitMax),
	)
	return c, nil
}

// Address returns the base url of the master site.
func (c *Client) Address() string {
	return c.baseURL.String()
}

// CreateFilter asks the master site to build and publish the filter of ids
// for siteID.
func (c *Client) CreateFilter(ctx context.Context, siteID string, ids []string) (*bloom.Filter, error) {
	var snapshot bloom.Snapshot
	req := map[string]any{"siteId": siteID, "modifiedIds": nonNil(ids)}
	if err := c.do(ctx, http.MethodPost, "/bloom-filter/create-filter", req, &snapshot); err != nil {
		return nil, fmt.Errorf("creating filter: %w", err)
	}
	return bloom.Deserialize(snapshot)
}

// FetchFilter downloads the filter published for id. When compact is set the
// snapshot is transferred SCALE encoded.
func (c *Client) FetchFilter(ctx context.Context, id string, compact bool) (*bloom.Filter, error) {
	path := "/bloom-filter/filters/" + id
	if !compact {
		var snapshot bloom.Snapshot
		if err := c.do(ctx, http.MethodGet, path, nil, &snapshot); err != nil {
			return nil, fmt.Errorf("fetching filter: %w", err)
		}
		return bloom.Deserialize(snapshot)
	}
	data, err := c.raw(ctx, http.MethodGet, path, nil, api.ContentTypeSCALE)
	if err != nil {
		return nil, fmt.Errorf("fetching filter: %w", err)
	}
	var snapshot bloom.Snapshot
	if err := codec.Decode(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %w", bloom.ErrMalformedSnapshot, err)
	}
	return bloom.Deserialize(snapshot)
}

// FilterRecords returns the records the master site selects with f.
func (c *Client) FilterRecords(
	ctx context.Context,
	siteID string,
	records []bloomjoin.Document,
	f *bloom.Filter,
) ([]bloomjoin.Document, error) {
	req := map[string]any{
		"siteId":  siteID,
		"records": nonNil(records),
		"filter":  f.Serialize(),
	}
	var out []bloomjoin.Document
	if err := c.do(ctx, http.MethodPost, "/bloom-filter/filter-records", req, &out); err != nil {
		return nil, fmt.Errorf("filtering records: %w", err)
	}
	return out, nil
}

// BloomJoin runs a full join round on the master site.
func (c *Client) BloomJoin(
	ctx context.Context,
	master, site []bloomjoin.Document,
	changedIDs []string,
) (bloomjoin.JoinResult[bloomjoin.Document], error) {
	req := map[string]any{
		"masterRecords": nonNil(master),
		"siteRecords":   nonNil(site),
		"modifiedIds":   nonNil(changedIDs),
	}
	var out bloomjoin.JoinResult[bloomjoin.Document]
	if err := c.do(ctx, http.MethodPost, "/bloom-filter/bloom-join", req, &out); err != nil {
		return out, fmt.Errorf("joining: %w", err)
	}
	return out, nil
}

// Distribute registers sites as holders of examID.
func (c *Client) Distribute(ctx context.Context, examID string, siteIDs ...string) error {
	req := map[string]any{"examId": examID, "collegeIds": nonNil(siteIDs)}
	if err := c.do(ctx, http.MethodPost, "/exams/distribute", req, nil); err != nil {
		return fmt.Errorf("distributing %s: %w", examID, err)
	}
	return nil
}

// Modify records changes of examID on the master site.
func (c *Client) Modify(ctx context.Context, examID string, changes []modlog.Change) (sitesync.Publication, error) {
	req := map[string]any{"examId": examID, "modifications": nonNil(changes)}
	var out sitesync.Publication
	if err := c.do(ctx, http.MethodPost, "/exams/modify", req, &out); err != nil {
		return out, fmt.Errorf("modifying %s: %w", examID, err)
	}
	return out, nil
}

// Plan reports the modifications siteID holds and returns what it has to
// apply.
func (c *Client) Plan(ctx context.Context, examID, siteID string, held []sitesync.ModRef) (sitesync.Plan, error) {
	req := map[string]any{"collegeId": siteID, "collegeModifications": nonNil(held)}
	var out sitesync.Plan
	path := "/exams/" + examID + "/sync"
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return out, fmt.Errorf("planning sync of %s: %w", examID, err)
	}
	return out, nil
}

// Ack confirms that siteID applied the modifications with ids.
func (c *Client) Ack(ctx context.Context, examID, siteID string, ids []string) (int, error) {
	req := map[string]any{"collegeId": siteID, "ids": nonNil(ids)}
	var out struct {
		Acknowledged int `json:"acknowledged"`
	}
	path := "/exams/" + examID + "/sync/ack"
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return 0, fmt.Errorf("acknowledging sync of %s: %w", examID, err)
	}
	return out.Acknowledged, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, resBody any) error {
	data, err := c.raw(ctx, method, path, reqBody, "application/json")
	if err != nil {
		return err
	}
	if resBody == nil {
		return nil
	}
	if err := json.Unmarshal(data, resBody); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

func (c *Client) raw(ctx context.Context, method, path string, reqBody any, accept string) ([]byte, error) {
	var body io.Reader
	if reqBody != nil {
		buf, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", accept)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("doing request: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if res.StatusCode >= http.StatusOK && res.StatusCode < http.StatusMultipleChoices {
		return data, nil
	}
	c.logger.Debug("request failed", zap.String("status", res.Status), zap.String("body", string(data)))
	serr := &StatusError{Code: res.StatusCode, Message: string(data)}
	var resp struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &resp) == nil && resp.Message != "" {
		serr.Message = resp.Message
	}
	return nil, serr
}
