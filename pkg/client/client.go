// Package client talks to the form platform's collaborator endpoints: form
// fetch, domain verification and submission.
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
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-formflow/pkg/embed"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/submit"
)

const maxBodyBytes = 1 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
	Fields     map[string][]string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("client: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("client: %s: status %d", e.Op, e.StatusCode)
}

// FieldErrors exposes decoded field errors to the submission dispatcher.
func (e *StatusError) FieldErrors() map[string][]string {
	return e.Fields
}

// Client implements embed.FormSource, embed.Verifier and submit.Submitter
// against a base URL.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *zap.Logger
	group  singleflight.Group
}

var (
	_ embed.FormSource = (*Client)(nil)
	_ embed.Verifier   = (*Client)(nil)
	_ submit.Submitter = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a Client for baseURL, e.g. "https://api.example.com/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("client: base url %q must be http or https", baseURL)
	}
	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Form fetches GET /forms/{id}. Concurrent fetches of the same id share one
// request.
func (c *Client) Form(ctx context.Context, formID string) (model.FormDefinition, error) {
	ch := c.group.DoChan(formID, func() (any, error) {
		var form model.FormDefinition
		err := c.do(context.WithoutCancel(ctx), http.MethodGet, c.endpoint(formID, ""), nil, nil, &form, "fetch form")
		return form, err
	})

	select {
	case <-ctx.Done():
		return model.FormDefinition{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var statusErr *StatusError
			if errors.As(res.Err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
				return model.FormDefinition{}, fmt.Errorf("%w: %s", embed.ErrFormNotFound, formID)
			}
			return model.FormDefinition{}, res.Err
		}
		return res.Val.(model.FormDefinition), nil
	}
}

type verifyResponse struct {
	Verified bool   `json:"verified"`
	Domain   string `json:"domain,omitempty"`
}

// CheckDomainVerification calls GET /forms/{id}/verify-domain?domain=.
func (c *Client) CheckDomainVerification(ctx context.Context, formID, domain string) (bool, error) {
	query := url.Values{"domain": {domain}}
	var out verifyResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint(formID, "verify-domain"), query, nil, &out, "verify domain"); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return out.Verified, nil
}

// Submit posts payload to POST /forms/{id}/submit.
func (c *Client) Submit(ctx context.Context, formID string, payload submit.Payload) (submit.Response, error) {
	var out submit.Response
	if err := c.do(ctx, http.MethodPost, c.endpoint(formID, "submit"), nil, payload, &out, "submit"); err != nil {
		return submit.Response{}, err
	}
	return out, nil
}

func (c *Client) endpoint(formID, action string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/forms/" + url.PathEscape(formID)
	if action != "" {
		u.Path += "/" + action
	}
	u.RawPath = ""
	return u.String()
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body, out any, op string) error {
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: %s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("client: %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("client: %s: read body: %w", op, err)
	}
	c.logger.Debug("collaborator call",
		zap.String("op", op),
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeStatusError(op, resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: %s: decode response: %w", op, err)
	}
	return nil
}

type errorBody struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Errors  json.RawMessage `json:"errors"`
}

func decodeStatusError(op string, status int, data []byte) *StatusError {
	out := &StatusError{Op: op, StatusCode: status}
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return out
	}
	out.Message = body.Message
	if out.Message == "" {
		out.Message = body.Error
	}
	out.Fields = decodeFieldErrors(body.Errors)
	return out
}

// decodeFieldErrors accepts {"field": "msg"}, {"field": ["msg", ...]} and
// [{"field": "...", "message": "..."}] shapes.
func decodeFieldErrors(raw json.RawMessage) map[string][]string {
	if len(raw) == 0 {
		return nil
	}
	fields := map[string][]string{}

	var asMap map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asMap); err == nil {
		for key, value := range asMap {
			var many []string
			if err := json.Unmarshal(value, &many); err == nil {
				fields[key] = append(fields[key], many...)
				continue
			}
			var one string
			if err := json.Unmarshal(value, &one); err == nil {
				fields[key] = append(fields[key], one)
			}
		}
	} else {
		var list []struct {
			Field   string `json:"field"`
			Path    string `json:"path"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &list); err == nil {
			for _, item := range list {
				key := item.Field
				if key == "" {
					key = item.Path
				}
				fields[key] = append(fields[key], item.Message)
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
