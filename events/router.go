// Package events implements the Event Router: it decorates decoded
// WebSocket frames with resource instances extracted from known payload
// fields and dispatches them to client-wide and per-instance listeners.
package events

import (
	"context"
	"sort"
	"sync"

	"goa.design/ari-client/internal/listenertbl"
	"goa.design/ari-client/resource"
	"goa.design/ari-client/schema"
)

// InstanceSink resolves or creates the resource.Instance for a promoted
// field, and is where a caller-held or locally-created instance (one that
// already has listeners attached) is found before a new one is minted.
type InstanceSink interface {
	// Resolve returns the instance for key, reusing an existing one if the
	// router or the caller already holds it, applying fields as an update;
	// otherwise it constructs a new instance wrapping fields.
	Resolve(kind resource.Kind, fields map[string]any) *resource.Instance
}

// Listenable is the listener-registration surface shared by the Client
// facade and every resource.Instance.
type Listenable interface {
	On(event string, fn listenertbl.Callback) listenertbl.Handle
	Once(event string, fn listenertbl.Callback) listenertbl.Handle
	RemoveListener(h listenertbl.Handle) bool
	RemoveAllListeners(event string)
}

// Router dispatches decoded event envelopes to client-wide listeners and
// to the per-instance listeners of any resource instances the envelope
// promotes.
type Router struct {
	events Schema
	sink   InstanceSink
	wide   *listenertbl.Table
	errs   chan error

	mu sync.Mutex
}

// Schema is the subset of schema.Events the router needs: lookup by event
// name.
type Schema interface {
	Lookup(eventType string) (*schema.EventDescriptor, bool)
}

// NewRouter constructs a Router over the given event schema and instance
// sink. errBuf sizes the error sink channel (see Errors); 0 selects a
// small default.
func NewRouter(eventSchema Schema, sink InstanceSink, errBuf int) *Router {
	if errBuf <= 0 {
		errBuf = 16
	}
	return &Router{
		events: eventSchema,
		sink:   sink,
		wide:   listenertbl.NewTable(),
		errs:   make(chan error, errBuf),
	}
}

// On registers a client-wide listener for eventType.
func (r *Router) On(event string, fn listenertbl.Callback) listenertbl.Handle {
	return r.wide.On(event, fn)
}

// Once registers a client-wide listener that fires at most once.
func (r *Router) Once(event string, fn listenertbl.Callback) listenertbl.Handle {
	return r.wide.Once(event, fn)
}

// RemoveListener removes exactly the registration h identifies.
func (r *Router) RemoveListener(h listenertbl.Handle) bool {
	return r.wide.RemoveListener(h)
}

// RemoveAllListeners removes every client-wide listener for event.
func (r *Router) RemoveAllListeners(event string) {
	r.wide.RemoveAllListeners(event)
}

// Errors returns the channel listener errors are reported on. Errors
// raised by a listener are isolated to that listener and never abort
// dispatch of the remaining listeners; draining this channel is the
// caller's responsibility.
func (r *Router) Errors() <-chan error {
	return r.errs
}

// Route decodes and dispatches one event envelope: {"type": ..., ...}.
// Unknown event types are still delivered to client-wide listeners with
// best-effort promotion.
func (r *Router) Route(ctx context.Context, raw map[string]any) {
	eventType, _ := raw["type"].(string)
	if eventType == "" {
		return
	}

	desc, known := r.events.Lookup(eventType)
	var promoted []promotion
	if known {
		promoted = r.promoteFields(desc, raw)
	} else {
		promoted = r.promoteBestEffort(raw)
	}

	args := buildArgs(raw, promoted)
	recoverFn := func(err error) { r.report(err) }

	r.wide.Dispatch(ctx, eventType, recoverFn, args...)
	for _, p := range promoted {
		p.instance.Dispatch(ctx, eventType, recoverFn, args...)
	}
}

// DispatchLifecycle delivers a Session-originated lifecycle event
// (WebSocketConnected, WebSocketReconnecting, WebSocketMaxRetries) to
// client-wide listeners only; these events name no resource instance and
// never promote.
func (r *Router) DispatchLifecycle(ctx context.Context, name string, attempt int) {
	r.wide.Dispatch(ctx, name, func(err error) { r.report(err) }, attempt)
}

func (r *Router) report(err error) {
	select {
	case r.errs <- err:
	default:
	}
}

type promotion struct {
	field    string
	instance *resource.Instance
}

// promoteFields walks desc.Fields in declared order and promotes any
// field present in raw whose declared type names a KnownKind.
func (r *Router) promoteFields(desc *schema.EventDescriptor, raw map[string]any) []promotion {
	known := resource.KindSet()
	var out []promotion
	for _, f := range desc.Fields {
		kindName, ok := schema.PromotableField(f, known)
		if !ok {
			continue
		}
		v, present := raw[f.Name]
		if !present {
			continue
		}
		fields, ok := v.(map[string]any)
		if !ok {
			continue
		}
		inst := r.sink.Resolve(resource.Kind(kindName), fields)
		out = append(out, promotion{field: f.Name, instance: inst})
	}
	return out
}

// promoteBestEffort is used for event types the schema does not describe
// (e.g. server-added events): it recognizes raw fields whose name matches
// a known resource namespace's usual field name (bridge, channel, ...)
// and whose value looks like a resource body.
func (r *Router) promoteBestEffort(raw map[string]any) []promotion {
	var fieldNames []string
	for k := range raw {
		fieldNames = append(fieldNames, k)
	}
	sort.Strings(fieldNames) // deterministic enumeration order when the schema gives none

	var out []promotion
	for _, name := range fieldNames {
		kind, ok := bestEffortKind(name)
		if !ok {
			continue
		}
		fields, ok := raw[name].(map[string]any)
		if !ok {
			continue
		}
		inst := r.sink.Resolve(kind, fields)
		out = append(out, promotion{field: name, instance: inst})
	}
	return out
}

func bestEffortKind(fieldName string) (resource.Kind, bool) {
	for _, k := range resource.KnownKinds {
		if fieldName == lowerFirst(string(k)) {
			return k, true
		}
	}
	return "", false
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

// buildArgs assembles the delivered argument tuple: a single promoted
// instance delivers (event, instance); multiple deliver (event,
// map[fieldName]instance).
func buildArgs(raw map[string]any, promoted []promotion) []any {
	switch len(promoted) {
	case 0:
		return []any{raw}
	case 1:
		return []any{raw, promoted[0].instance}
	default:
		byField := make(map[string]*resource.Instance, len(promoted))
		for _, p := range promoted {
			byField[p.field] = p.instance
		}
		return []any{raw, byField}
	}
}
