package events

import (
	"sync"
	"weak"

	"goa.design/ari-client/resource"
)

// WeakSink resolves resource instances for event promotion through a
// weak index: an instance already held by the caller (or by a previously
// delivered event) is reused and field-updated; otherwise the sink mints
// a new one via factory. Holding only weak.Pointer references lets an
// instance be garbage collected once neither the caller nor the router
// holds a strong reference to it: an instance is destroyed once no
// listener and no caller reference remains.
type WeakSink struct {
	factory *resource.Factory

	mu    sync.Mutex
	index map[resource.Key]weak.Pointer[resource.Instance]
}

// NewWeakSink builds a WeakSink that mints instances through factory.
func NewWeakSink(factory *resource.Factory) *WeakSink {
	return &WeakSink{factory: factory, index: make(map[resource.Key]weak.Pointer[resource.Instance])}
}

// Track registers an existing instance (typically one a caller created
// locally via an Instance Creator before any server interaction) so
// future events naming its identity promote to this instance rather than
// a freshly minted one.
func (s *WeakSink) Track(inst *resource.Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index[inst.Key()] = weak.Make(inst)
}

// Resolve implements InstanceSink.
func (s *WeakSink) Resolve(kind resource.Kind, fields map[string]any) *resource.Instance {
	identity, _ := fields[resource.IdentityField(kind)].(string)
	key := resource.Key{Kind: kind, Identity: identity}

	s.mu.Lock()
	defer s.mu.Unlock()

	if identity != "" {
		if ptr, ok := s.index[key]; ok {
			if inst := ptr.Value(); inst != nil {
				inst.ApplyFields(fields)
				return inst
			}
			delete(s.index, key)
		}
	}

	inst := s.factory.Wrap(kind, fields)
	if identity != "" {
		s.index[key] = weak.Make(inst)
	}
	return inst
}
