// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package definitions

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// documentTypes maps each definition document to the struct describing it.
var documentTypes = map[string]func() any{
	FileCore:       func() any { return &Tunables{} },
	FileExperience: func() any { return &experienceDocument{} },
	FileArchetypes: func() any { return &archetypesDocument{} },
	FileMutations:  func() any { return &mutationsDocument{} },
	FileEvolution:  func() any { return &evolutionDocument{} },
}

var (
	schemaMu    sync.Mutex
	schemaCache = make(map[string]*jschema.Schema)
)

// Documents returns the definition document names in sorted order.
func Documents() []string {
	names := make([]string, 0, len(documentTypes))
	for name := range documentTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GenerateSchema generates the JSON Schema for one definition document.
func GenerateSchema(document string) ([]byte, error) {
	newDoc, ok := documentTypes[document]
	if !ok {
		return nil, oops.In("definitions").
			With("document", document).
			Errorf("unknown definition document %q", document)
	}
	r := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	schema := r.Reflect(newDoc())
	schema.ID = jsonschema.ID(SchemaID(document))
	schema.Title = "CoreSystem " + document
	schema.Description = "Schema for the " + document + " definition document"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

// SchemaID returns the $id of a document schema.
func SchemaID(document string) string {
	return "https://holomush.dev/schemas/coresystem/" + strings.TrimSuffix(document, ".yaml") + ".schema.json"
}

// ValidateDocument validates YAML data against the schema of document.
func ValidateDocument(document string, data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return oops.In("definitions").
			Code(CodeDocumentInvalid).
			With("document", document).
			Wrapf(err, "invalid YAML")
	}
	if raw == nil {
		return nil
	}

	sch, err := compiledSchema(document)
	if err != nil {
		return err
	}
	if err := sch.Validate(convertToJSONTypes(raw)); err != nil {
		return oops.In("definitions").
			Code(CodeDocumentInvalid).
			With("document", document).
			Wrapf(err, "schema validation failed")
	}
	return nil
}

func compiledSchema(document string) (*jschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	if sch, ok := schemaCache[document]; ok {
		return sch, nil
	}

	schemaBytes, err := GenerateSchema(document)
	if err != nil {
		return nil, err
	}
	var schemaData any
	if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
		return nil, oops.In("definitions").Wrapf(err, "failed to parse schema JSON")
	}

	c := jschema.NewCompiler()
	url := SchemaID(document)
	if err := c.AddResource(url, schemaData); err != nil {
		return nil, oops.In("definitions").Wrapf(err, "failed to add schema resource")
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, oops.In("definitions").Wrapf(err, "failed to compile schema")
	}
	schemaCache[document] = sch
	return sch, nil
}

// convertToJSONTypes normalises YAML-decoded values into the shapes the
// validator accepts.
func convertToJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[k] = convertToJSONTypes(v)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[fmt.Sprint(k)] = convertToJSONTypes(v)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = convertToJSONTypes(v)
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	default:
		return val
	}
}
