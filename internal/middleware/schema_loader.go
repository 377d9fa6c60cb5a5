package middleware

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	contextutils "devlense/internal/utils"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed api.yaml
var apiDocument []byte

// requestBody names the schema a route's body must satisfy
type requestBody struct {
	MediaType string
	Schema    string
}

// SchemaLoader holds the JSON schemas from the API document and the request
// body each documented route expects.
type SchemaLoader struct {
	schemas map[string]*gojsonschema.Schema
	bodies  map[string]requestBody
	routes  map[string]bool
}

// NewSchemaLoader creates a new schema loader
func NewSchemaLoader() *SchemaLoader {
	return &SchemaLoader{
		schemas: make(map[string]*gojsonschema.Schema),
		bodies:  make(map[string]requestBody),
		routes:  make(map[string]bool),
	}
}

// LoadEmbeddedSchemas loads the API document compiled into the binary
func LoadEmbeddedSchemas() (*SchemaLoader, error) {
	sl := NewSchemaLoader()
	if err := sl.LoadDocument(apiDocument); err != nil {
		return nil, err
	}
	return sl, nil
}

// LoadDocument parses an OpenAPI YAML document and compiles its component schemas
func (sl *SchemaLoader) LoadDocument(data []byte) error {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return contextutils.WrapError(err, "failed to parse api document as YAML")
	}

	components, ok := doc["components"].(map[string]interface{})
	if !ok {
		return contextutils.ErrorWithContextf("no components section found in api document")
	}
	rawSchemas, ok := components["schemas"].(map[string]interface{})
	if !ok {
		return contextutils.ErrorWithContextf("no schemas section found in api document")
	}

	converted := make(map[string]interface{}, len(rawSchemas))
	for name, raw := range rawSchemas {
		c, err := convertToJSONCompatible(raw)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to convert schema %s", name)
		}
		converted[name] = c
	}

	for name := range converted {
		// The whole components tree rides along so $ref between schemas resolves.
		schemaDoc := map[string]interface{}{
			"$schema":    "http://json-schema.org/draft-07/schema#",
			"components": map[string]interface{}{"schemas": converted},
			"$ref":       "#/components/schemas/" + name,
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaDoc))
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to load schema %s", name)
		}
		sl.schemas[name] = schema
	}

	paths, _ := doc["paths"].(map[string]interface{})
	for path, rawOps := range paths {
		ops, _ := rawOps.(map[string]interface{})
		for method, rawOp := range ops {
			key := routeKey(method, path)
			sl.routes[key] = true
			if body, ok := requestBodyOf(rawOp); ok {
				if _, exists := sl.schemas[body.Schema]; !exists {
					return contextutils.ErrorWithContextf("route %s references unknown schema %s", key, body.Schema)
				}
				sl.bodies[key] = body
			}
		}
	}

	return nil
}

func routeKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

func requestBodyOf(rawOp interface{}) (requestBody, bool) {
	op, _ := rawOp.(map[string]interface{})
	rb, _ := op["requestBody"].(map[string]interface{})
	content, _ := rb["content"].(map[string]interface{})
	for mediaType, rawMedia := range content {
		media, _ := rawMedia.(map[string]interface{})
		schema, _ := media["schema"].(map[string]interface{})
		ref, _ := schema["$ref"].(string)
		if name, ok := strings.CutPrefix(ref, "#/components/schemas/"); ok {
			return requestBody{MediaType: mediaType, Schema: name}, true
		}
	}
	return requestBody{}, false
}

// convertToJSONCompatible rewrites OpenAPI's nullable into JSON Schema unions
func convertToJSONCompatible(data interface{}) (interface{}, error) {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		hasNullable := false

		for key, val := range v {
			if key == "nullable" {
				if nullable, ok := val.(bool); ok && nullable {
					hasNullable = true
				}
				continue
			}
			convertedVal, err := convertToJSONCompatible(val)
			if err != nil {
				return nil, err
			}
			result[key] = convertedVal
		}

		if hasNullable {
			if ref, hasRef := result["$ref"].(string); hasRef {
				result["oneOf"] = []interface{}{
					map[string]interface{}{"$ref": ref},
					map[string]interface{}{"type": "null"},
				}
				delete(result, "$ref")
			} else if typeVal, hasType := result["type"].(string); hasType {
				result["type"] = []interface{}{typeVal, "null"}
			}
		}

		return result, nil
	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(v))
		for k, val := range v {
			keyStr, ok := k.(string)
			if !ok {
				return nil, contextutils.ErrorWithContextf("key is not a string: %v", k)
			}
			result[keyStr] = val
		}
		return convertToJSONCompatible(result)
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, val := range v {
			convertedVal, err := convertToJSONCompatible(val)
			if err != nil {
				return nil, err
			}
			result[i] = convertedVal
		}
		return result, nil
	default:
		return data, nil
	}
}

// HasSchema reports whether name was loaded
func (sl *SchemaLoader) HasSchema(name string) bool {
	_, ok := sl.schemas[name]
	return ok
}

// IsEndpointDocumented reports whether the route template is in the API document
func (sl *SchemaLoader) IsEndpointDocumented(method, path string) bool {
	return sl.routes[routeKey(method, path)]
}

// RequestSchema returns the body schema and media type for a route template,
// or "" when the route takes no documented body.
func (sl *SchemaLoader) RequestSchema(method, path string) (schemaName, mediaType string) {
	body, ok := sl.bodies[routeKey(method, path)]
	if !ok {
		return "", ""
	}
	return body.Schema, body.MediaType
}

// ValidateData validates data against a schema. Failures carry every violation
// in Details, sorted for stable messages.
func (sl *SchemaLoader) ValidateData(data interface{}, schemaName string) error {
	schema, exists := sl.schemas[schemaName]
	if !exists {
		return contextutils.ErrorWithContextf("schema %s not found", schemaName)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return contextutils.WrapError(err, "failed to marshal data")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return contextutils.WrapError(err, "validation error")
	}

	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, validationErr := range result.Errors() {
			violations = append(violations, fmt.Sprintf("%s: %s", validationErr.Field(), validationErr.Description()))
		}
		sort.Strings(violations)
		return contextutils.NewAppError(
			contextutils.ErrorCodeValidationFailed,
			contextutils.SeverityWarn,
			"Request data does not match the request schema",
			strings.Join(violations, "; "),
		)
	}

	return nil
}
