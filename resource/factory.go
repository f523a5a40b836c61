package resource

// Factory is the Resource Factory: it knows each known kind's handle
// table and wraps decoded server responses (or mints locally-originated
// instances) accordingly.
type Factory struct {
	handles  map[Kind]*HandleTable
	invoke   Invoker
	creators map[Kind]*Creator
}

// NewFactory builds a Factory over handles (produced by
// BuildHandleTables), bound to invoke for operation calls.
func NewFactory(handles map[Kind]*HandleTable, invoke Invoker) *Factory {
	f := &Factory{handles: handles, invoke: invoke, creators: make(map[Kind]*Creator, len(handles))}
	for k, ht := range handles {
		f.creators[k] = NewCreator(k, ht, invoke)
	}
	return f
}

// Wrap builds an Instance of kind from a decoded server response body.
func (f *Factory) Wrap(kind Kind, body map[string]any) *Instance {
	return New(kind, body, f.handles[kind], f.invoke)
}

// Creator returns kind's Instance Creator.
func (f *Factory) Creator(kind Kind) *Creator {
	return f.creators[kind]
}

// HandleTable exposes kind's handle table, e.g. for namespace-level
// operation calls that are not yet bound to any instance (operations
// whose identity parameter is explicit, like "list bridges").
func (f *Factory) HandleTable(kind Kind) *HandleTable {
	return f.handles[kind]
}
