package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"goa.design/ari-client/internal/clienterr"
)

// wire shapes of the self-description documents: a root document listing
// resource doc paths, a per-resource document with an "apis" array of
// operations, and an events document with "models"/"rawModels".
type (
	wireRoot struct {
		Apis []struct {
			Path string `json:"path"`
		} `json:"apis"`
	}

	wireResourceDoc struct {
		ResourcePath string `json:"resourcePath"`
		Apis         []struct {
			Path       string          `json:"path"`
			Operations []wireOperation `json:"operations"`
		} `json:"apis"`
	}

	wireOperation struct {
		HTTPMethod    string      `json:"httpMethod"`
		Nickname      string      `json:"nickname"`
		Summary       string      `json:"summary"`
		ResponseClass string      `json:"responseClass"`
		Parameters    []wireParam `json:"parameters"`
	}

	wireParam struct {
		Name      string `json:"name"`
		ParamType string `json:"paramType"`
		Required  bool   `json:"required"`
		DataType  string `json:"dataType"`
	}

	wireEventsDoc struct {
		Models    map[string]wireEventModel  `json:"models"`
		RawModels map[string]json.RawMessage `json:"rawModels"`
	}

	wireEventModel struct {
		Properties map[string]wireEventProp `json:"properties"`
	}

	wireEventProp struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	}
)

// Load fetches and parses the root resources document, every per-resource
// document it lists, and the events document, producing an immutable
// Catalog and Events. Failures surface as clienterr.HostUnreachable (DNS,
// connection refused, TLS) or clienterr.SchemaInvalid (malformed document,
// missing required keys). Load installs no listeners and opens no socket.
func Load(ctx context.Context, client *http.Client, baseURL, username, password string) (Catalog, Events, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, nil, clienterr.NewHostUnreachable(baseURL, err)
	}

	rootURL := joinPath(base, "/ari/api-docs/resources.json")
	rootBytes, err := fetch(ctx, client, rootURL, username, password)
	if err != nil {
		return nil, nil, clienterr.NewHostUnreachable(baseURL, err)
	}
	if err := validateDoc("resources-root", resourcesRootSchema, rootBytes); err != nil {
		return nil, nil, clienterr.NewSchemaInvalid("resources.json", err)
	}
	var root wireRoot
	if err := json.Unmarshal(rootBytes, &root); err != nil {
		return nil, nil, clienterr.NewSchemaInvalid("resources.json", err)
	}

	catalog, err := fetchResourceDocs(ctx, client, base, username, password, root)
	if err != nil {
		return nil, nil, err
	}

	eventsURL := joinPath(base, "/ari/api-docs/events.json")
	eventsBytes, err := fetch(ctx, client, eventsURL, username, password)
	if err != nil {
		return nil, nil, clienterr.NewHostUnreachable(baseURL, err)
	}
	if err := validateDoc("events", eventsDocSchema, eventsBytes); err != nil {
		return nil, nil, clienterr.NewSchemaInvalid("events.json", err)
	}
	var wireEvents wireEventsDoc
	if err := json.Unmarshal(eventsBytes, &wireEvents); err != nil {
		return nil, nil, clienterr.NewSchemaInvalid("events.json", err)
	}

	return catalog, parseEvents(wireEvents), nil
}

func fetchResourceDocs(ctx context.Context, client *http.Client, base *url.URL, username, password string, root wireRoot) (Catalog, error) {
	type result struct {
		name string
		res  *Resource
		err  error
	}

	results := make(chan result, len(root.Apis))
	var wg sync.WaitGroup
	for _, api := range root.Apis {
		wg.Add(1)
		go func(docPath string) {
			defer wg.Done()
			docURL := joinPath(base, docPath)
			raw, err := fetch(ctx, client, docURL, username, password)
			if err != nil {
				results <- result{err: clienterr.NewHostUnreachable(base.String(), err)}
				return
			}
			if err := validateDoc(docPath, resourceDocSchema, raw); err != nil {
				results <- result{err: clienterr.NewSchemaInvalid(docPath, err)}
				return
			}
			var doc wireResourceDoc
			if err := json.Unmarshal(raw, &doc); err != nil {
				results <- result{err: clienterr.NewSchemaInvalid(docPath, err)}
				return
			}
			name := resourceName(docPath, doc.ResourcePath)
			res, err := parseResource(name, base, doc)
			if err != nil {
				results <- result{err: clienterr.NewSchemaInvalid(docPath, err)}
				return
			}
			results <- result{name: name, res: res}
		}(api.Path)
	}
	wg.Wait()
	close(results)

	catalog := make(Catalog, len(root.Apis))
	for r := range results {
		if r.err != nil {
			return nil, r.err
		}
		if _, dup := catalog[r.name]; dup {
			return nil, clienterr.NewSchemaInvalid(r.name, fmt.Errorf("duplicate resource name %q", r.name))
		}
		catalog[r.name] = r.res
	}
	return catalog, nil
}

func parseResource(name string, base *url.URL, doc wireResourceDoc) (*Resource, error) {
	res := &Resource{Name: name, Operations: make(map[string]*Operation)}
	for _, api := range doc.Apis {
		path := rewriteHost(api.Path, base)
		for _, op := range api.Operations {
			if op.Nickname == "" {
				return nil, fmt.Errorf("operation missing nickname on path %q", api.Path)
			}
			if _, dup := res.Operations[op.Nickname]; dup {
				return nil, fmt.Errorf("duplicate operation name %q in resource %q", op.Nickname, name)
			}
			params := make([]Param, 0, len(op.Parameters))
			for _, p := range op.Parameters {
				typ := TypeScalar
				if strings.HasPrefix(strings.ToLower(p.DataType), "array") {
					typ = TypeList
				}
				params = append(params, Param{
					Name:     p.Name,
					In:       normalizePlacement(p.ParamType),
					Required: p.Required,
					Type:     typ,
				})
			}
			if err := validatePathParams(path, params); err != nil {
				return nil, fmt.Errorf("resource %q operation %q: %w", name, op.Nickname, err)
			}
			res.Operations[op.Nickname] = &Operation{
				Name:     op.Nickname,
				Resource: name,
				Method:   strings.ToUpper(op.HTTPMethod),
				Path:     path,
				Params:   params,
				Response: op.ResponseClass,
				Summary:  op.Summary,
			}
		}
	}
	return res, nil
}

// validatePathParams enforces that every {placeholder} in the path
// corresponds to exactly one parameter whose placement is "path".
func validatePathParams(path string, params []Param) error {
	placeholders := extractPlaceholders(path)
	pathParams := make(map[string]bool, len(params))
	for _, p := range params {
		if p.In == PlacementPath {
			pathParams[p.Name] = true
		}
	}
	for _, ph := range placeholders {
		if !pathParams[ph] {
			return fmt.Errorf("path placeholder %q has no matching path parameter", ph)
		}
	}
	return nil
}

func extractPlaceholders(path string) []string {
	var out []string
	for {
		start := strings.IndexByte(path, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(path[start:], '}')
		if end < 0 {
			break
		}
		out = append(out, path[start+1:start+end])
		path = path[start+end+1:]
	}
	return out
}

func parseEvents(doc wireEventsDoc) Events {
	events := make(Events, len(doc.Models))
	for name, model := range doc.Models {
		fields := make([]Field, 0, len(model.Properties))
		for fname, prop := range model.Properties {
			fields = append(fields, Field{Name: fname, Type: prop.Type, Description: prop.Description})
		}
		events[name] = &EventDescriptor{Name: name, Fields: fields}
	}
	return events
}

func resourceName(docPath, resourcePath string) string {
	if resourcePath != "" {
		return strings.Trim(resourcePath, "/")
	}
	base := docPath
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	return strings.TrimSuffix(base, ".json")
}

// rewriteHost normalizes a server-declared absolute operation path to
// route against base's host instead of whatever self-hostname the server
// advertised. Paths that are already relative are returned unchanged.
func rewriteHost(opPath string, base *url.URL) string {
	u, err := url.Parse(opPath)
	if err != nil || u.Host == "" {
		return opPath
	}
	u.Scheme = base.Scheme
	u.Host = base.Host
	return u.String()
}

func joinPath(base *url.URL, p string) string {
	u := *base
	u.Path = strings.TrimRight(u.Path, "/") + p
	return u.String()
}

func fetch(ctx context.Context, client *http.Client, rawURL, username, password string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if username != "" || password != "" {
		req.SetBasicAuth(username, password)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
