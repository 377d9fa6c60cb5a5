package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"devlense/internal/observability"
	contextutils "devlense/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// RequestValidationMiddleware checks request bodies against the schema the API
// document assigns to the matched route. JSON bodies are validated as sent;
// multipart forms are validated on their text fields. Routes without a
// documented body pass through untouched.
func RequestValidationMiddleware(loader *SchemaLoader, logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch {
			c.Next()
			return
		}

		schemaName, mediaType := loader.RequestSchema(method, c.FullPath())
		if schemaName == "" {
			c.Next()
			return
		}

		ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "request_validation",
			attribute.String("validation.schema", schemaName),
			attribute.String("http.route", c.FullPath()),
		)
		defer span.End()

		var document interface{}
		switch mediaType {
		case "application/json":
			body, err := c.GetRawData()
			if err != nil {
				HandleAppError(c, BodyReadError(err, "Failed to read request body"))
				c.Abort()
				return
			}
			// Restore the request body so handlers can read it
			c.Request.Body = io.NopCloser(bytes.NewReader(body))

			if err := json.Unmarshal(body, &document); err != nil {
				HandleAppError(c, contextutils.NewAppErrorWithCause(
					contextutils.ErrorCodeInvalidInput,
					contextutils.SeverityWarn,
					"Invalid request body",
					"body is not valid JSON",
					err,
				))
				c.Abort()
				return
			}
		case "multipart/form-data":
			form, err := formDocument(c)
			if err != nil {
				HandleAppError(c, BodyReadError(err, "Invalid form body"))
				c.Abort()
				return
			}
			document = form
		default:
			c.Next()
			return
		}

		if err := loader.ValidateData(document, schemaName); err != nil {
			span.SetAttributes(attribute.Bool("validation.passed", false))
			logger.Warn(ctx, "Request validation failed", map[string]interface{}{
				"method":      method,
				"path":        c.Request.URL.Path,
				"schema_name": schemaName,
				"error":       err.Error(),
			})
			HandleAppError(c, err)
			c.Abort()
			return
		}

		span.SetAttributes(attribute.Bool("validation.passed", true))
		c.Next()
	}
}

// formDocument flattens the text fields of a multipart form. Files are left
// to the handler.
func formDocument(c *gin.Context) (map[string]interface{}, error) {
	if _, err := c.MultipartForm(); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}

	values := c.Request.PostForm
	if c.Request.MultipartForm != nil {
		values = c.Request.MultipartForm.Value
	}

	doc := make(map[string]interface{}, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			doc[key] = vals[0]
		}
	}
	return doc, nil
}
