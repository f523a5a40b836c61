// Package ari is the Client Facade: it composes the Schema Loader,
// Parameter Binder, HTTP Invoker, Resource Factory, WebSocket Session, and
// Event Router into the connect/start/stop surface a controlling
// application uses.
package ari

import (
	"context"
	"fmt"

	"goa.design/ari-client/binder"
	"goa.design/ari-client/config"
	"goa.design/ari-client/events"
	"goa.design/ari-client/internal/listenertbl"
	"goa.design/ari-client/internal/retry"
	"goa.design/ari-client/internal/telemetry"
	"goa.design/ari-client/resource"
	"goa.design/ari-client/schema"
	"goa.design/ari-client/transport/httpx"
	"goa.design/ari-client/transport/ws"
)

// Client is a ready telephony API client: resource namespaces and
// Instance Creators are built, but the WebSocket Session is not yet
// open. Call Start to begin receiving events.
type Client struct {
	catalog schema.Catalog
	events  schema.Events

	invoker *httpx.Invoker
	factory *resource.Factory
	sink    *events.WeakSink
	router  *events.Router
	session *ws.Session

	baseURL  string
	username string
	password string
	cfg      config.Config
}

// Connect performs the Schema Loader against cfg.BaseURL, builds the
// resource namespaces and Instance Creators, and returns a ready Client
// without opening the WebSocket.
func Connect(ctx context.Context, cfg config.Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}

	invoker, err := httpx.New(cfg.BaseURL, cfg.Username, cfg.Password,
		httpx.WithLogger(logger), httpx.WithTracer(tracer))
	if err != nil {
		return nil, err
	}

	catalog, eventSchema, err := schema.Load(ctx, invoker.HTTPClient(), cfg.BaseURL, cfg.Username, cfg.Password)
	if err != nil {
		return nil, err
	}

	c := &Client{
		catalog:  catalog,
		events:   eventSchema,
		invoker:  invoker,
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		password: cfg.Password,
		cfg:      cfg,
	}
	handles := resource.BuildHandleTables(catalog)
	c.factory = resource.NewFactory(handles, c)
	c.sink = events.NewWeakSink(c.factory)
	c.router = events.NewRouter(eventSchema, c.sink, 0)

	c.session = ws.NewSession(cfg.BaseURL, cfg.Username, cfg.Password, sessionSink{c}, ws.Options{
		Backoff:                backoffFromConfig(cfg),
		MaxConsecutiveFailures: cfg.MaxConsecutiveFailures,
		IdleTimeout:            cfg.IdleTimeout,
		Logger:                 logger,
	})

	return c, nil
}

func backoffFromConfig(cfg config.Config) retry.Backoff {
	b := retry.DefaultBackoff()
	if cfg.ReconnectCeiling > 0 {
		b.Ceiling = cfg.ReconnectCeiling
	}
	return b
}

// InvokeOperation implements resource.Invoker: bind op against opts and
// execute it through the HTTP Invoker.
func (c *Client) InvokeOperation(ctx context.Context, op *schema.Operation, opts map[string]any) (any, error) {
	plan, err := binder.Bind(op, opts)
	if err != nil {
		return nil, err
	}
	return c.invoker.Invoke(ctx, plan)
}

// Start opens the WebSocket Session, subscribing to events for apps.
func (c *Client) Start(ctx context.Context, apps ...string) error {
	return c.session.Start(ctx, apps, false)
}

// StartSubscribeAll opens the WebSocket Session with subscribeAll=true,
// in addition to apps.
func (c *Client) StartSubscribeAll(ctx context.Context, apps ...string) error {
	return c.session.Start(ctx, apps, true)
}

// Stop closes the WebSocket Session. No subsequent frame produces any
// listener invocation until Start is called again.
func (c *Client) Stop() {
	c.session.Stop()
}

// SessionState returns the WebSocket Session's current lifecycle state.
func (c *Client) SessionState() ws.State {
	return c.session.State()
}

// Errors returns the channel the Event Router reports isolated listener
// errors on.
func (c *Client) Errors() <-chan error {
	return c.router.Errors()
}

// On registers a client-wide listener for event.
func (c *Client) On(event string, fn listenertbl.Callback) listenertbl.Handle {
	return c.router.On(event, fn)
}

// Once registers a client-wide listener that fires at most once.
func (c *Client) Once(event string, fn listenertbl.Callback) listenertbl.Handle {
	return c.router.Once(event, fn)
}

// RemoveListener removes exactly the registration h identifies.
func (c *Client) RemoveListener(h listenertbl.Handle) bool {
	return c.router.RemoveListener(h)
}

// RemoveAllListeners removes every client-wide listener for event.
func (c *Client) RemoveAllListeners(event string) {
	c.router.RemoveAllListeners(event)
}

// Namespace returns the callable operation set for kind's resource
// namespace, e.g. c.Namespace(resource.KindBridge).Call(ctx, "list", nil).
func (c *Client) Namespace(kind resource.Kind) *Namespace {
	return &Namespace{kind: kind, client: c}
}

// Creator returns kind's Instance Creator, for minting a locally-scoped
// instance before any server interaction.
func (c *Client) Creator(kind resource.Kind) *resource.Creator {
	return c.factory.Creator(kind)
}

// Track registers inst with the Event Router's instance sink so a
// locally-created instance's listeners fire as soon as a server event
// names its identity, even before the instance has ever round-tripped
// through the server.
func (c *Client) Track(inst *resource.Instance) {
	c.sink.Track(inst)
}

// Namespace is a resource namespace's callable operation set, not yet
// bound to any instance identity (e.g. "list all bridges", "create a
// bridge").
type Namespace struct {
	kind   resource.Kind
	client *Client
}

// Call invokes operation with opts and wraps a map-shaped 2xx result into
// a *resource.Instance of this namespace's kind (tracked by the Event
// Router so subsequent events promote to the same instance). Non-map
// results (e.g. a list) are returned decoded but unwrapped.
func (n *Namespace) Call(ctx context.Context, operation string, opts map[string]any) (any, error) {
	table := n.client.factory.HandleTable(n.kind)
	op, ok := table.Operations[operation]
	if !ok {
		return nil, fmt.Errorf("unknown operation %q for resource %q", operation, resource.Namespace(n.kind))
	}
	result, err := n.client.InvokeOperation(ctx, op, opts)
	if err != nil {
		return nil, err
	}
	if body, ok := result.(map[string]any); ok {
		inst := n.client.factory.Wrap(n.kind, body)
		n.client.Track(inst)
		return inst, nil
	}
	return result, nil
}

// sessionSink adapts Client to ws.Sink.
type sessionSink struct{ c *Client }

func (s sessionSink) RouteEvent(ctx context.Context, raw map[string]any) {
	s.c.router.Route(ctx, raw)
}

func (s sessionSink) RouteLifecycle(ctx context.Context, name string, attempt int) {
	s.c.router.DispatchLifecycle(ctx, name, attempt)
}
