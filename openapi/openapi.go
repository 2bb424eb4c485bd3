package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/BehruzbekUmarov/ManagementSystem/apperror"
	"github.com/BehruzbekUmarov/ManagementSystem/config"
	"github.com/BehruzbekUmarov/ManagementSystem/services/credentials"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gopkg.in/yaml.v3"
)

// BearerScheme is the security scheme name used by every protected route.
const BearerScheme = "bearerAuth"

const (
	JSONPath = "/openapi.json"
	YAMLPath = "/openapi.yaml"
	DocsPath = "/docs"
)

var (
	uuidType   = reflect.TypeOf(uuid.UUID{})
	genderType = reflect.TypeOf(credentials.Gender(""))
)

// Document is the OpenAPI description of the HTTP surface. Routes add
// themselves through Route; the document is safe for concurrent reads once
// built.
type Document struct {
	mu   sync.RWMutex
	spec *openapi3.T
	err  error
}

func New(cfg *config.Config) *Document {
	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       cfg.App.Name,
			Version:     cfg.App.Version,
			Description: "User registration, login and administration API.",
		},
		Servers: openapi3.Servers{{URL: cfg.App.URL}},
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{},
			SecuritySchemes: openapi3.SecuritySchemes{
				BearerScheme: &openapi3.SecuritySchemeRef{
					Value: openapi3.NewJWTSecurityScheme().
						WithDescription("Access token returned by /Auth/LoginAsync"),
				},
			},
		},
	}
	return &Document{spec: spec}
}

func (d *Document) Tag(name, description string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Tags = append(d.spec.Tags, &openapi3.Tag{Name: name, Description: description})
	return d
}

// Spec returns the underlying document. Callers must not modify it.
func (d *Document) Spec() *openapi3.T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.spec
}

func (d *Document) Validate(ctx context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.err != nil {
		return d.err
	}
	return d.spec.Validate(ctx)
}

func (d *Document) JSON() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return json.MarshalIndent(d.spec, "", "  ")
}

func (d *Document) YAML() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	intermediate, err := d.spec.MarshalYAML()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(intermediate)
}

// schemaRef describes example's type. Named struct types are stored once under
// components and referenced; everything else is inlined.
func (d *Document) schemaRef(example any) (*openapi3.SchemaRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ref, err := openapi3gen.NewSchemaRefForValue(example, d.spec.Components.Schemas,
		openapi3gen.SchemaCustomizer(customizeSchema))
	if err != nil {
		return nil, err
	}

	t := reflect.TypeOf(example)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || t.Name() == "" {
		return ref, nil
	}

	name := componentName(t)
	d.spec.Components.Schemas[name] = ref
	return openapi3.NewSchemaRef("#/components/schemas/"+name, ref.Value), nil
}

func customizeSchema(_ string, t reflect.Type, _ reflect.StructTag, schema *openapi3.Schema) error {
	switch t {
	case uuidType:
		schema.Type = &openapi3.Types{"string"}
		schema.Format = "uuid"
	case genderType:
		schema.Enum = []any{string(credentials.GenderMale), string(credentials.GenderFemale)}
	}
	return nil
}

// componentName turns "Page[example.com/users.UserDTO]" into "PageUserDTO".
func componentName(t reflect.Type) string {
	name := t.Name()
	open := strings.IndexByte(name, '[')
	if open < 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name[:open])
	for _, arg := range strings.Split(strings.TrimSuffix(name[open+1:], "]"), ",") {
		b.WriteString(arg[strings.LastIndexByte(arg, '.')+1:])
	}
	return b.String()
}

func (d *Document) JSONHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := d.JSON()
		if err != nil {
			return apperror.Internal(apperror.ReasonInternal, "failed to render API document", err)
		}
		return c.JSONBlob(http.StatusOK, data)
	}
}

func (d *Document) YAMLHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := d.YAML()
		if err != nil {
			return apperror.Internal(apperror.ReasonInternal, "failed to render API document", err)
		}
		return c.Blob(http.StatusOK, "application/yaml", data)
	}
}

const swaggerPage = `<!DOCTYPE html>
<html>
<head>
    <title>%s</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({url: %q, dom_id: '#swagger-ui', persistAuthorization: true});
    </script>
</body>
</html>`

func (d *Document) SwaggerUIHandler(specPath string) echo.HandlerFunc {
	page := fmt.Sprintf(swaggerPage, d.Spec().Info.Title, specPath)
	return func(c echo.Context) error {
		return c.HTML(http.StatusOK, page)
	}
}
