package resource

import "fmt"

// Creator mints an unscheduled Instance of one kind before any server
// interaction. It accepts four call shapes: Creator(), Creator(id),
// Creator(fieldsMap), Creator(id, fieldsMap).
type Creator struct {
	kind    Kind
	handles *HandleTable
	invoke  Invoker
}

// NewCreator builds a Creator for kind, bound to handles and invoke so
// instances it mints already carry pre-bound operations.
func NewCreator(kind Kind, handles *HandleTable, invoke Invoker) *Creator {
	return &Creator{kind: kind, handles: handles, invoke: invoke}
}

// Make mints a new Instance. args may be empty, a single string id, a
// single map[string]any of fields, or an id followed by a fields map.
// When no id is supplied, a fresh UUID-shaped identifier is generated.
// Fields are shallow-copied onto the instance, never aliased to the
// caller's map.
func (c *Creator) Make(args ...any) (*Instance, error) {
	id, fields, err := parseCreatorArgs(args)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = newID()
	}
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body[IdentityField(c.kind)] = id
	return New(c.kind, body, c.handles, c.invoke), nil
}

func parseCreatorArgs(args []any) (id string, fields map[string]any, err error) {
	switch len(args) {
	case 0:
		return "", nil, nil
	case 1:
		switch v := args[0].(type) {
		case string:
			return v, nil, nil
		case map[string]any:
			return "", v, nil
		default:
			return "", nil, fmt.Errorf("unsupported creator argument type %T", v)
		}
	case 2:
		idArg, ok := args[0].(string)
		if !ok {
			return "", nil, fmt.Errorf("creator id argument must be a string, got %T", args[0])
		}
		fieldsArg, ok := args[1].(map[string]any)
		if !ok {
			return "", nil, fmt.Errorf("creator fields argument must be a map[string]any, got %T", args[1])
		}
		return idArg, fieldsArg, nil
	default:
		return "", nil, fmt.Errorf("creator accepts at most 2 arguments, got %d", len(args))
	}
}
