// Package httpx implements the HTTP Invoker: it executes a binder.Plan with
// basic authentication, decodes the response, and maps errors into the
// client error taxonomy.
package httpx

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

	"golang.org/x/time/rate"

	"goa.design/ari-client/binder"
	"goa.design/ari-client/internal/clienterr"
	"goa.design/ari-client/internal/telemetry"
)

// Invoker executes request plans against a base URL with basic auth. It is
// stateless with respect to any single call; connection reuse is handled
// by the embedded *http.Client.
type Invoker struct {
	client   *http.Client
	base     *url.URL
	username string
	password string
	limiter  *rate.Limiter
	logger   telemetry.Logger
	tracer   telemetry.Tracer
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithHTTPClient overrides the default *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(i *Invoker) { i.client = c }
}

// WithRateLimit applies a token-bucket throttle to outgoing calls. This is
// opt-in: the telephony API itself has no documented rate limit, but a
// controlling application fanning out many originate/play calls may want
// one anyway.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(i *Invoker) { i.limiter = rate.NewLimiter(r, burst) }
}

// WithLogger configures the Invoker's logger. Defaults to a no-op.
func WithLogger(l telemetry.Logger) Option {
	return func(i *Invoker) { i.logger = l }
}

// WithTracer configures the Invoker's tracer. Defaults to a no-op.
func WithTracer(t telemetry.Tracer) Option {
	return func(i *Invoker) { i.tracer = t }
}

// New constructs an Invoker against baseURL with the given basic auth
// credentials.
func New(baseURL, username, password string, opts ...Option) (*Invoker, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, clienterr.NewHostUnreachable(baseURL, err)
	}
	inv := &Invoker{
		client:   &http.Client{Timeout: 30 * time.Second},
		base:     u,
		username: username,
		password: password,
		logger:   telemetry.NewNoopLogger(),
		tracer:   telemetry.NewNoopTracer(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv, nil
}

// HTTPClient returns the *http.Client backing this Invoker, so the Schema
// Loader can reuse the same connection pool and transport settings when
// fetching the server's self-description documents.
func (inv *Invoker) HTTPClient() *http.Client {
	return inv.client
}

// Invoke executes plan and decodes a 2xx JSON response into a
// map[string]any or []any. Status >= 400 yields clienterr.Server; a
// network failure yields clienterr.Transport; context cancellation yields
// clienterr.Cancelled.
func (inv *Invoker) Invoke(ctx context.Context, plan *binder.Plan) (any, error) {
	if inv.limiter != nil {
		if err := inv.limiter.Wait(ctx); err != nil {
			return nil, classifyContextErr(err)
		}
	}

	ctx, span := inv.tracer.Start(ctx, "httpx.invoke")
	defer span.End()

	u := *inv.base
	u.Path = strings.TrimRight(u.Path, "/") + plan.Path
	if len(plan.Query) > 0 {
		u.RawQuery = plan.Query.Encode()
	}

	var bodyReader *bytes.Reader
	if plan.Body != nil {
		bodyReader = bytes.NewReader(plan.Body)
	} else if len(plan.Form) > 0 {
		bodyReader = bytes.NewReader([]byte(plan.Form.Encode()))
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, plan.Method, u.String(), bodyReader)
	if err != nil {
		return nil, clienterr.NewTransport(err)
	}
	req.SetBasicAuth(inv.username, inv.password)
	if plan.ContentType != "" {
		req.Header.Set("Content-Type", plan.ContentType)
	} else if len(plan.Form) > 0 {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	inv.logger.Debug(ctx, "http request", "method", plan.Method, "path", plan.Path)

	resp, err := inv.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, classifyContextErr(ctxErr)
		}
		span.RecordError(err)
		return nil, clienterr.NewTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	var decoded any
	dec := json.NewDecoder(resp.Body)
	// Some operations return an empty 204/2xx body; tolerate EOF.
	if err := dec.Decode(&decoded); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode < 400 {
			return nil, clienterr.NewTransport(fmt.Errorf("decode response: %w", err))
		}
	}

	if resp.StatusCode >= 400 {
		msg := http.StatusText(resp.StatusCode)
		if m, ok := decoded.(map[string]any); ok {
			if s, ok := m["message"].(string); ok && s != "" {
				msg = s
			}
		}
		serverErr := clienterr.NewServer(resp.StatusCode, msg)
		span.RecordError(serverErr)
		return nil, serverErr
	}
	return decoded, nil
}

func classifyContextErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return clienterr.NewCancelled(err)
	}
	return clienterr.NewTransport(err)
}
