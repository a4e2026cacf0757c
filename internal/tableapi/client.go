package tableapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"silkstaff/internal/config"
	"silkstaff/internal/logging"
	"silkstaff/internal/services"
)

const maxErrorBody = 2048

// HTTPDoer describes the HTTP client used by the table API client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to one space of the table service.
type Client struct {
	baseURL string
	space   string
	auth    string
	client  HTTPDoer
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.client = doer
		}
	}
}

// WithRateLimit caps requests per second. Zero or less disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "tableapi")
	}
}

// New constructs a Client. authorization is the full Authorization header value.
func New(baseURL, space, authorization string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		space:   strings.TrimSpace(space),
		auth:    strings.TrimSpace(authorization),
		client:  http.DefaultClient,
		limiter: rate.NewLimiter(rate.Inf, 1),
		logger:  logging.NewComponentLogger(nil, "tableapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a Client from the [api] configuration section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Client {
	return New(
		cfg.API.URL,
		cfg.API.Space,
		cfg.API.AuthorizationHeader(),
		WithHTTPClient(&http.Client{Timeout: cfg.API.RequestTimeoutDuration()}),
		WithRateLimit(cfg.API.RequestsPerSecond),
		WithLogger(logger),
	)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s returned %d", e.Method, e.URL, e.Code)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + body
	}
	return msg
}

// Unwrap exposes the services marker for the status code.
func (e *StatusError) Unwrap() error {
	return services.MarkerForStatus(e.Code)
}

// Query selects a page of rows.
type Query struct {
	Page   int
	Limit  int
	Filter Filter
}

// Upsert describes a row write. An empty ID creates a row.
type Upsert struct {
	ID      string
	Payload any
	Notice  string
	User    string
}

// Columns returns the column definitions of table.
func (c *Client) Columns(ctx context.Context, table string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, table, "column", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Rows returns one page of rows matching q.
func (c *Client) Rows(ctx context.Context, table string, q Query) ([]Row, error) {
	filter := q.Filter
	if filter == nil {
		filter = Filter{}
	}
	body := map[string]any{"limit": q.Limit, "page": q.Page, "query": filter}
	var out struct {
		Data []Row `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, table, "row", body, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Count returns the number of rows matching filter.
func (c *Client) Count(ctx context.Context, table string, filter Filter) (int, error) {
	if filter == nil {
		filter = Filter{}
	}
	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodPost, table, "row/count", map[string]any{"query": filter}, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Upsert creates or updates a row and returns the raw response body.
func (c *Client) Upsert(ctx context.Context, table string, u Upsert) (json.RawMessage, error) {
	body := map[string]any{"data": u.Payload, "notice": u.Notice}
	if u.ID != "" {
		body["_id"] = u.ID
	}
	if u.User != "" {
		body["user"] = u.User
	}
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPut, table, "row", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the row with id.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	if strings.TrimSpace(id) == "" {
		return services.Wrap(services.ErrValidation, "tableapi", "delete", "row id is required", nil)
	}
	return c.do(ctx, http.MethodDelete, table, "row", map[string]any{"_id": id}, nil)
}

func (c *Client) endpoint(table, suffix string) (string, error) {
	if c.baseURL == "" || c.space == "" {
		return "", services.Wrap(services.ErrConfiguration, "tableapi", "build url", "api url and space are required", nil)
	}
	if strings.TrimSpace(table) == "" {
		return "", services.Wrap(services.ErrValidation, "tableapi", "build url", "table name is required", nil)
	}
	return c.baseURL + "/" + url.PathEscape(c.space) + "/database/" + url.PathEscape(table) + "/" + suffix, nil
}

func (c *Client) do(ctx context.Context, method, table, suffix string, body any, out any) error {
	target, err := c.endpoint(table, suffix)
	if err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("table api rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return services.Wrap(services.ErrValidation, "tableapi", "encode request", table, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build table api request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.auth != "" {
		req.Header.Set("Authorization", c.auth)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrTransient, "tableapi", method+" "+suffix, table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{Method: method, URL: target, Code: resp.StatusCode, Body: string(snippet)}
		c.logger.Debug("table api request failed",
			logging.String("method", method),
			logging.String("table", table),
			logging.Int("status", resp.StatusCode),
		)
		return statusErr
	}

	c.logger.Debug("table api request completed",
		logging.String("method", method),
		logging.String("table", table),
		logging.String("path", suffix),
	)
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrTransient, "tableapi", "read response", table, err)
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return services.Wrap(services.ErrExternal, "tableapi", "decode response", table, err)
	}
	return nil
}

// IsStatus reports whether err is a StatusError with code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == code
}
