package resource

import (
	"context"
	"maps"

	"github.com/google/uuid"

	"goa.design/ari-client/internal/listenertbl"
	"goa.design/ari-client/schema"
)

// Invoker performs a bound operation call and returns the decoded response
// body. It is satisfied by the Client facade, which composes binder.Bind
// and httpx.Invoker; kept abstract here so resource has no dependency on
// the HTTP transport.
type Invoker interface {
	InvokeOperation(ctx context.Context, op *schema.Operation, opts map[string]any) (any, error)
}

// HandleTable is the reflective dispatch table for one Kind: the subset of
// the Catalog's operations whose first path segment names that kind's
// resource namespace, keyed by operation name. Built once at schema-load
// time and never mutated afterward, mirroring the Catalog's own
// immutability invariant.
type HandleTable struct {
	Kind       Kind
	Operations map[string]*schema.Operation
}

// BuildHandleTables partitions catalog's operations by owning resource
// namespace into one HandleTable per KnownKind.
func BuildHandleTables(catalog schema.Catalog) map[Kind]*HandleTable {
	tables := make(map[Kind]*HandleTable, len(KnownKinds))
	for _, k := range KnownKinds {
		ht := &HandleTable{Kind: k, Operations: make(map[string]*schema.Operation)}
		if res, ok := catalog[Namespace(k)]; ok {
			maps.Copy(ht.Operations, res.Operations)
		}
		tables[k] = ht
	}
	return tables
}

// Instance is a ResourceInstance: a kind tag, a server-observed identity,
// every field the server returned (or the caller supplied locally), a
// pointer to its kind's handle table, and a private listener table.
type Instance struct {
	kind     Kind
	identity string
	fields   map[string]any
	handles  *HandleTable
	invoke   Invoker
	listen   *listenertbl.Table
}

// New wraps body (a decoded server response representing a single
// instance of kind) into an Instance whose operations are pre-bound with
// the instance's identity. invoke performs the actual call.
func New(kind Kind, body map[string]any, handles *HandleTable, invoke Invoker) *Instance {
	fields := make(map[string]any, len(body))
	maps.Copy(fields, body)
	identity, _ := fields[IdentityField(kind)].(string)
	return &Instance{
		kind:     kind,
		identity: identity,
		fields:   fields,
		handles:  handles,
		invoke:   invoke,
		listen:   listenertbl.NewTable(),
	}
}

// Kind returns the instance's resource kind.
func (i *Instance) Kind() Kind { return i.kind }

// Identity returns the instance's server-observed identity (its id or
// name, depending on kind).
func (i *Instance) Identity() string { return i.identity }

// Key returns the (kind, identity) pair the Event Router scopes listeners
// by.
func (i *Instance) Key() Key { return Key{Kind: i.kind, Identity: i.identity} }

// Field returns one server-returned field by name.
func (i *Instance) Field(name string) (any, bool) {
	v, ok := i.fields[name]
	return v, ok
}

// Fields returns a shallow copy of every field the server returned.
func (i *Instance) Fields() map[string]any {
	out := make(map[string]any, len(i.fields))
	maps.Copy(out, i.fields)
	return out
}

// ApplyFields merges updated server fields onto the instance, e.g. after
// an operation completes or an event payload refreshes its state.
func (i *Instance) ApplyFields(fields map[string]any) {
	maps.Copy(i.fields, fields)
	if id, ok := fields[IdentityField(i.kind)].(string); ok && id != "" {
		i.identity = id
	}
}

// Call invokes the named operation against this instance. The identity is
// auto-supplied from the instance under the kind's identity field name and
// as the operation's first path parameter (bridgeId, channelId,
// recordingName, ...), unless the caller's opts already sets that key
// explicitly. opts is never mutated (Call passes a merged copy on), so the
// same map may be reused across calls.
func (i *Instance) Call(ctx context.Context, operation string, opts map[string]any) (any, error) {
	op, ok := i.handles.Operations[operation]
	if !ok {
		return nil, &UnknownOperationError{Kind: i.kind, Operation: operation}
	}
	merged := make(map[string]any, len(opts)+2)
	idField := IdentityField(i.kind)
	merged[idField] = i.identity
	for _, p := range op.Params {
		if p.In == schema.PlacementPath {
			merged[p.Name] = i.identity
			break
		}
	}
	maps.Copy(merged, opts) // caller's explicit value, if any, overrides the default
	result, err := i.invoke.InvokeOperation(ctx, op, merged)
	if err != nil {
		return nil, err
	}
	if body, ok := result.(map[string]any); ok {
		i.ApplyFields(body)
	}
	return result, nil
}

// On registers fn for event on this instance only.
func (i *Instance) On(event string, fn listenertbl.Callback) listenertbl.Handle {
	return i.listen.On(event, fn)
}

// Once registers fn for event on this instance only; it fires at most once.
func (i *Instance) Once(event string, fn listenertbl.Callback) listenertbl.Handle {
	return i.listen.Once(event, fn)
}

// RemoveListener removes exactly the registration h identifies.
func (i *Instance) RemoveListener(h listenertbl.Handle) bool {
	return i.listen.RemoveListener(h)
}

// RemoveAllListeners removes every listener registered for event (or
// every listener at all, when event is empty).
func (i *Instance) RemoveAllListeners(event string) {
	i.listen.RemoveAllListeners(event)
}

// Dispatch invokes this instance's listeners for event (used by the Event
// Router; not part of the public facade).
func (i *Instance) Dispatch(ctx context.Context, event string, recoverFn func(error), args ...any) {
	i.listen.Dispatch(ctx, event, recoverFn, args...)
}

// UnknownOperationError is returned by Call when operation is not among
// the kind's handle table.
type UnknownOperationError struct {
	Kind      Kind
	Operation string
}

func (e *UnknownOperationError) Error() string {
	return "unknown operation " + e.Operation + " for kind " + string(e.Kind)
}

// newID mints a UUID-shaped identifier for locally-created instances:
// [a-z0-9]{8}(-[a-z0-9]{4}){3}-[a-z0-9]{12}. uuid.New().String() already
// produces exactly this shape (RFC 4122 version 4, lower-case hex).
func newID() string {
	return uuid.New().String()
}
