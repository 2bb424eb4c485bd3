package openapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/BehruzbekUmarov/ManagementSystem/server"
	"github.com/getkin/kin-openapi/openapi3"
)

// Operation describes one route. Nothing is added to the document until
// Build is called.
type Operation struct {
	doc    *Document
	method string
	path   string
	op     *openapi3.Operation
	err    error
}

// Route starts describing method on an echo-style path. ":name" segments
// become required UUID path parameters.
func (d *Document) Route(method, path string) *Operation {
	op := openapi3.NewOperation()
	op.Responses = openapi3.NewResponses()
	for _, part := range strings.Split(path, "/") {
		if name, ok := strings.CutPrefix(part, ":"); ok {
			op.AddParameter(openapi3.NewPathParameter(name).WithSchema(openapi3.NewUUIDSchema()))
		}
	}
	return &Operation{doc: d, method: strings.ToUpper(method), path: path, op: op}
}

func (o *Operation) Summary(summary string) *Operation {
	o.op.Summary = summary
	return o
}

func (o *Operation) Description(description string) *Operation {
	o.op.Description = description
	return o
}

func (o *Operation) ID(id string) *Operation {
	o.op.OperationID = id
	return o
}

func (o *Operation) Tags(tags ...string) *Operation {
	o.op.Tags = append(o.op.Tags, tags...)
	return o
}

// Query adds an optional query parameter with the given schema.
func (o *Operation) Query(name, description string, schema *openapi3.Schema) *Operation {
	o.op.AddParameter(openapi3.NewQueryParameter(name).WithDescription(description).WithSchema(schema))
	return o
}

// Body documents a required JSON request body shaped like example.
func (o *Operation) Body(example any) *Operation {
	ref, err := o.doc.schemaRef(example)
	if err != nil {
		o.err = errors.Join(o.err, err)
		return o
	}
	o.op.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(ref),
	}
	return o
}

// JSON documents a JSON response shaped like example.
func (o *Operation) JSON(status int, example any, description string) *Operation {
	ref, err := o.doc.schemaRef(example)
	if err != nil {
		o.err = errors.Join(o.err, err)
		return o
	}
	o.op.AddResponse(status, openapi3.NewResponse().WithDescription(description).WithJSONSchemaRef(ref))
	return o
}

// Text documents a plain-text response.
func (o *Operation) Text(status int, description string) *Operation {
	content := openapi3.NewContentWithSchema(openapi3.NewStringSchema(), []string{"text/plain"})
	o.op.AddResponse(status, openapi3.NewResponse().WithDescription(description).WithContent(content))
	return o
}

// Errors documents the error envelope for each status.
func (o *Operation) Errors(statuses ...int) *Operation {
	for _, status := range statuses {
		o.JSON(status, server.ErrorResponse{}, http.StatusText(status))
	}
	return o
}

// Secured requires a bearer token. When roles are given the caller needs at
// least one of them.
func (o *Operation) Secured(roles ...string) *Operation {
	o.op.Security = openapi3.NewSecurityRequirements().
		With(openapi3.NewSecurityRequirement().Authenticate(BearerScheme))
	o.Errors(http.StatusUnauthorized)
	if len(roles) > 0 {
		o.op.Description = strings.TrimSpace(o.op.Description + "\n\nRequires one of the roles: " + strings.Join(roles, ", ") + ".")
		o.Errors(http.StatusForbidden)
	}
	return o
}

// Build adds the operation to the document.
func (o *Operation) Build() {
	d := o.doc
	d.mu.Lock()
	defer d.mu.Unlock()

	if o.err != nil {
		d.err = errors.Join(d.err, fmt.Errorf("%s %s: %w", o.method, o.path, o.err))
		return
	}

	path := toOpenAPIPath(o.path)
	item := d.spec.Paths.Value(path)
	if item == nil {
		item = &openapi3.PathItem{}
		d.spec.Paths.Set(path, item)
	}
	item.SetOperation(o.method, o.op)
}

func toOpenAPIPath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if name, ok := strings.CutPrefix(part, ":"); ok {
			parts[i] = "{" + name + "}"
		}
	}
	return strings.Join(parts, "/")
}
