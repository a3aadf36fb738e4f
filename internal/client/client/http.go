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

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/automailpro/internal/client/config"
	"github.com/dmitrijs2005/automailpro/internal/logging"
)

// RequestOptions describe the payload of a Request. Form and JSON are
// mutually exclusive; Raw skips JSON validation of the response body.
type RequestOptions struct {
	Query url.Values
	Form  url.Values
	JSON  any
	Raw   bool
}

// HTTPClient talks to the remote API over one shared *http.Client and is
// safe for concurrent use.
type HTTPClient struct {
	cfg  *config.Config
	http *http.Client
	log  logging.Logger
}

// NewHTTPClient builds the client from cfg: TLS verification off,
// transport-level 5xx retries, no client-wide timeout (RequestTimeout is
// applied per attempt so downloads can stream).
func NewHTTPClient(cfg *config.Config, log logging.Logger) *HTTPClient {
	rt := newRetryTransport(newInsecureTransport(), cfg.TransportRetries, cfg.BackoffFactor)
	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Transport: rt},
		log:  log.With("component", "api"),
	}
}

// HTTP exposes the shared *http.Client.
func (c *HTTPClient) HTTP() *http.Client {
	return c.http
}

// Request resolves endpoint, sends it and wraps the outcome in a Response.
// Network failures and unexpected statuses are retried up to MaxAttempts
// times with RetryDelay in between; 401/403 and malformed bodies are final.
func (c *HTTPClient) Request(ctx context.Context, endpoint, method string, opts RequestOptions) Response {
	target, err := c.cfg.ResolveEndpoint(endpoint)
	if err != nil {
		return errResponse(KindNetwork, 0, err)
	}

	delay := c.cfg.RetryDelay
	if delay <= 0 {
		delay = time.Millisecond
	}
	attempts := max(c.cfg.MaxAttempts, 1)

	var (
		last    Response
		attempt int
	)
	b := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(delay))
	_ = retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		last = c.once(ctx, target, method, opts)
		if last.OK || last.Kind == KindAuthRefused || last.Kind == KindDecode {
			return nil
		}
		c.log.Warn(ctx, "request failed", "endpoint", endpoint, "attempt", attempt, "kind", last.Kind, "status", last.StatusCode, "error", last.Err)
		return retry.RetryableError(last.Err)
	})

	if !last.OK && last.Err == nil && ctx.Err() != nil {
		last = errResponse(KindNetwork, 0, ctx.Err())
	}
	return last
}

func (c *HTTPClient) once(ctx context.Context, target, method string, opts RequestOptions) Response {
	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	req, err := c.newRequest(ctx, target, method, opts)
	if err != nil {
		return errResponse(KindNetwork, 0, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errResponse(KindNetwork, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errResponse(KindNetwork, resp.StatusCode, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errResponse(KindAuthRefused, resp.StatusCode, fmt.Errorf("%s", resp.Status))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return errResponse(KindHTTPOther, resp.StatusCode, fmt.Errorf("%s", resp.Status))
	}

	if !opts.Raw && !json.Valid(body) {
		return errResponse(KindDecode, resp.StatusCode, errors.New("response body is not valid JSON"))
	}
	return okResponse(resp.StatusCode, body)
}

func (c *HTTPClient) newRequest(ctx context.Context, target, method string, opts RequestOptions) (*http.Request, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if len(opts.Query) > 0 {
		q := u.Query()
		for k, vs := range opts.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case opts.JSON != nil:
		b, err := json.Marshal(opts.JSON)
		if err != nil {
			return nil, err
		}
		body, contentType = bytes.NewReader(b), "application/json"
	case opts.Form != nil:
		body, contentType = strings.NewReader(opts.Form.Encode()), "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
}
