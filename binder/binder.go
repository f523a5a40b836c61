// Package binder implements the Parameter Binder: given an operation
// descriptor and a caller-supplied option map, it produces an HTTP request
// plan without ever mutating the caller's map.
package binder

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"goa.design/ari-client/internal/clienterr"
	"goa.design/ari-client/schema"
)

// Plan is the result of binding an operation against a set of options: an
// HTTP method, a path relative to the base URL (placeholders substituted),
// the query values, and an optional body or form payload.
type Plan struct {
	Method      string
	Path        string
	Query       url.Values
	Body        []byte
	ContentType string
	Form        url.Values
}

// bodyWrapKeys name the body parameters that are wrapped under their own
// key the first time they appear unwrapped.
var bodyWrapKeys = map[string]bool{"variables": true, "fields": true}

// Bind clones opts defensively, applies every declared parameter's
// placement, drops any remaining undeclared keys (the "bogus parameter"
// tolerance), and assembles the body. opts is never mutated.
func Bind(op *schema.Operation, opts map[string]any) (*Plan, error) {
	clone := make(map[string]any, len(opts))
	for k, v := range opts {
		clone[k] = v
	}

	path := op.Path
	query := url.Values{}
	form := url.Values{}
	bodyParams := make(map[string]any)

	for _, p := range op.Params {
		v, present := clone[p.Name]
		if !present {
			if p.Required {
				return nil, clienterr.NewMissingRequiredParameter(p.Name)
			}
			continue
		}
		switch p.In {
		case schema.PlacementPath:
			path = strings.ReplaceAll(path, "{"+p.Name+"}", url.PathEscape(fmt.Sprint(v)))
		case schema.PlacementQuery:
			for _, s := range valuesAsStrings(v) {
				query.Add(p.Name, s)
			}
		case schema.PlacementBody:
			bodyParams[p.Name] = v
		case schema.PlacementForm:
			for _, s := range valuesAsStrings(v) {
				form.Add(p.Name, s)
			}
		default:
			for _, s := range valuesAsStrings(v) {
				query.Add(p.Name, s)
			}
		}
		delete(clone, p.Name)
	}
	// Remaining keys in clone are undeclared: silently dropped.

	plan := &Plan{Method: op.Method, Path: path, Query: query, Form: form}
	if len(bodyParams) > 0 {
		body, err := assembleBody(bodyParams)
		if err != nil {
			return nil, err
		}
		plan.Body = body
		plan.ContentType = "application/json"
	}
	return plan, nil
}

// assembleBody: a single body parameter serializes on its own (wrapped
// under its own key first, for variables/fields, when not already
// wrapped); multiple body parameters merge into one object keyed by
// parameter name.
func assembleBody(bodyParams map[string]any) ([]byte, error) {
	if len(bodyParams) == 1 {
		for name, v := range bodyParams {
			wrapped := maybeWrap(name, v)
			return json.Marshal(wrapped)
		}
	}
	// Each param already lands under its own key here, so the
	// variables/fields wrap (which only matters when a param's value
	// becomes the top-level body by itself) does not apply.
	merged := make(map[string]any, len(bodyParams))
	for name, v := range bodyParams {
		merged[name] = v
	}
	return json.Marshal(merged)
}

// maybeWrap wraps v under {"name": v} for the variables/fields wrapping
// rule. The wrap only applies when v is a map: a list-typed value is
// serialized as a JSON array as-is. A map already carrying the top-level
// key is left alone so re-invocation never double-wraps.
func maybeWrap(name string, v any) any {
	if !bodyWrapKeys[name] {
		return v
	}
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if _, already := m[name]; already {
		return v
	}
	return map[string]any{name: v}
}

// valuesAsStrings renders v for query/form placement. List-typed values
// (slices) become repeated values for the same key; scalars become a
// single value.
func valuesAsStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, fmt.Sprint(e))
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}
