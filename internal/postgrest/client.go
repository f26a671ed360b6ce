// Package postgrest is a small client for the relational query API of a
// hosted PostgREST service (Supabase exposes it under /rest/v1).
package postgrest

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

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	defaultTimeout = 5 * time.Second
	maxErrorBody   = 64 << 10
)

var (
	ErrUnavailable = errors.New("postgrest: service unavailable")
	ErrBadResponse = errors.New("postgrest: bad response")
)

// APIError is the error document the service returns with a non-2xx status.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("postgrest: status=%d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("postgrest: status=%d code=%s: %s", e.Status, e.Code, e.Message)
}

// TokenSource yields the bearer token sent with every request.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken sends the same token on every request, usually the API key.
type StaticToken string

func (t StaticToken) Token() (string, error) { return string(t), nil }

type Client struct {
	BaseURL string
	APIKey  string
	Tokens  TokenSource
	Client  *http.Client
}

// NewClient builds a client for baseURL, which should point at the REST root
// (for Supabase: https://<project>.supabase.co/rest/v1).
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Tokens:  StaticToken(apiKey),
		Client:  &http.Client{Timeout: timeout},
	}
}

// Select runs q and decodes the JSON array response into out.
func (c *Client) Select(ctx context.Context, q *Query, out any) error {
	return c.do(ctx, http.MethodGet, q.table, q.Values(), nil, nil, out)
}

// Insert posts rows to table and decodes the inserted rows, as selected back
// by the service, into out.
func (c *Client) Insert(ctx context.Context, table string, rows any, out any) error {
	h := http.Header{}
	h.Set("Prefer", "return=representation")
	return c.do(ctx, http.MethodPost, table, url.Values{"select": {"*"}}, rows, h, out)
}

// Ping checks that the REST root answers with a 2xx status.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "", nil, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, table string, query url.Values, body any, header http.Header, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("postgrest: encode body: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	u := c.BaseURL + "/" + table
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	if err := c.authorize(req); err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID(ctx))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ErrUnavailable, ctxErr)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) error {
	if c.APIKey != "" {
		req.Header.Set("apikey", c.APIKey)
	}
	if c.Tokens == nil {
		return nil
	}
	tok, err := c.Tokens.Token()
	if err != nil {
		return fmt.Errorf("postgrest: token: %w", err)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}

func requestID(ctx context.Context) string {
	if id := chimw.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}
