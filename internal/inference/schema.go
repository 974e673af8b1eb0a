package inference

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"fiscaldoc/internal/port"
)

// schemaCache compiles each named schema once.
type schemaCache struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

func newSchemaCache() *schemaCache {
	return &schemaCache{compiled: make(map[string]*jsonschema.Schema)}
}

func (c *schemaCache) get(s port.StructuredSchema) (*jsonschema.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if compiled, ok := c.compiled[s.Name]; ok {
		return compiled, nil
	}
	compiled, err := CompileSchema(s)
	if err != nil {
		return nil, err
	}
	c.compiled[s.Name] = compiled
	return compiled, nil
}

// CompileSchema compiles a structured schema definition.
func CompileSchema(s port.StructuredSchema) (*jsonschema.Schema, error) {
	b, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal schema %s", s.Name)
	}
	url := s.Name + ".schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, errors.Wrapf(err, "add schema %s", s.Name)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, errors.Wrapf(err, "compile schema %s", s.Name)
	}
	return compiled, nil
}

// SchemaInstruction renders the instruction appended to the prompt when a
// backend has no native structured-output mode.
func SchemaInstruction(s port.StructuredSchema) (string, error) {
	b, err := json.MarshalIndent(s.Definition, "", "  ")
	if err != nil {
		return "", errors.Wrapf(err, "marshal schema %s", s.Name)
	}
	return "Respond with a single JSON object that conforms to the following JSON Schema. " +
		"Output only the JSON object, with no markdown fences and no commentary. " +
		"Use null for any field that is not present in the document; never guess.\n\n" +
		string(b), nil
}
