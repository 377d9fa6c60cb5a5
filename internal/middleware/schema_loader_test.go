package middleware

import (
	"testing"

	contextutils "devlense/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedSchemas(t *testing.T) {
	loader, err := LoadEmbeddedSchemas()
	require.NoError(t, err)

	for _, name := range []string{"LoginRequest", "QuestionRequest", "BugReportRequest"} {
		assert.True(t, loader.HasSchema(name), name)
	}

	schema, media := loader.RequestSchema("POST", "/v1/auth/login")
	assert.Equal(t, "LoginRequest", schema)
	assert.Equal(t, "application/json", media)

	schema, media = loader.RequestSchema("post", "/v1/bug-reports")
	assert.Equal(t, "BugReportRequest", schema)
	assert.Equal(t, "multipart/form-data", media)

	schema, _ = loader.RequestSchema("GET", "/v1/qna")
	assert.Empty(t, schema)
	assert.True(t, loader.IsEndpointDocumented("GET", "/v1/qna"))
	assert.False(t, loader.IsEndpointDocumented("DELETE", "/v1/qna"))
}

func TestValidateData(t *testing.T) {
	loader, err := LoadEmbeddedSchemas()
	require.NoError(t, err)

	tests := []struct {
		name    string
		schema  string
		data    interface{}
		wantErr string
	}{
		{"valid login", "LoginRequest", map[string]interface{}{"username": "member", "password": "pw"}, ""},
		{"missing password", "LoginRequest", map[string]interface{}{"username": "member"}, "password"},
		{"unknown field", "LoginRequest", map[string]interface{}{"username": "a", "password": "b", "admin": true}, "admin"},
		{"empty question", "QuestionRequest", map[string]interface{}{"question": ""}, "question"},
		{"question", "QuestionRequest", map[string]interface{}{"question": "Do you take weekend projects?"}, ""},
		{"bug report without secret flag", "BugReportRequest", map[string]interface{}{"title": "Login button broken", "description": "Click does nothing"}, ""},
		{"bug report null secret flag", "BugReportRequest", map[string]interface{}{"title": "t", "description": "d", "is_secret": nil}, ""},
		{"bug report missing title", "BugReportRequest", map[string]interface{}{"description": "d"}, "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := loader.ValidateData(tt.data, tt.schema)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, contextutils.IsError(err, contextutils.ErrValidationFailed))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateData_UnknownSchema(t *testing.T) {
	loader := NewSchemaLoader()
	err := loader.ValidateData(map[string]interface{}{}, "Nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema Nope not found")
}

func TestLoadDocument_Errors(t *testing.T) {
	assert.Error(t, NewSchemaLoader().LoadDocument([]byte("openapi: [unclosed")))
	assert.Error(t, NewSchemaLoader().LoadDocument([]byte("openapi: 3.0.3\n")))

	err := NewSchemaLoader().LoadDocument([]byte(`
paths:
  /v1/x:
    post:
      requestBody:
        content:
          application/json:
            schema:
              $ref: "#/components/schemas/Missing"
components:
  schemas:
    Present:
      type: object
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown schema Missing")
}

func TestConvertToJSONCompatible_Nullable(t *testing.T) {
	converted, err := convertToJSONCompatible(map[string]interface{}{
		"type":     "string",
		"nullable": true,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"type": []interface{}{"string", "null"}}, converted)

	converted, err = convertToJSONCompatible(map[string]interface{}{
		"$ref":     "#/components/schemas/Other",
		"nullable": true,
	})
	require.NoError(t, err)
	m := converted.(map[string]interface{})
	assert.NotContains(t, m, "$ref")
	assert.Len(t, m["oneOf"], 2)

	_, err = convertToJSONCompatible(map[interface{}]interface{}{1: "x"})
	assert.Error(t, err)
}
