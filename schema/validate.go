package schema

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Compact JSON Schemas for the three self-description documents the loader
// fetches. Validation failures and missing required top-level keys surface
// as clienterr.SchemaInvalid.
const (
	resourcesRootSchema = `{
		"type": "object",
		"required": ["apis"],
		"properties": {
			"apis": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["path"],
					"properties": {"path": {"type": "string"}}
				}
			}
		}
	}`

	resourceDocSchema = `{
		"type": "object",
		"required": ["apis"],
		"properties": {
			"apis": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["path", "operations"],
					"properties": {
						"path": {"type": "string"},
						"operations": {"type": "array"}
					}
				}
			}
		}
	}`

	eventsDocSchema = `{
		"type": "object",
		"required": ["models"],
		"properties": {
			"models": {"type": "object"},
			"rawModels": {"type": "object"}
		}
	}`
)

func validateDoc(name, schemaJSON string, raw []byte) error {
	var schemaDoc any
	if err := json.Unmarshal([]byte(schemaJSON), &schemaDoc); err != nil {
		return fmt.Errorf("unmarshal embedded schema for %s: %w", name, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("unmarshal %s: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	resourceName := name + "-schema.json"
	if err := c.AddResource(resourceName, schemaDoc); err != nil {
		return fmt.Errorf("add schema resource for %s: %w", name, err)
	}
	compiled, err := c.Compile(resourceName)
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", name, err)
	}
	if err := compiled.Validate(doc); err != nil {
		return err
	}
	return nil
}
