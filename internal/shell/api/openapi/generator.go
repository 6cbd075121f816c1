// Package openapi provides reflective OpenAPI 3.0 specification generation
// for the Stencil API. Schemas are derived from the registered resource
// models at runtime, so the served specification never drifts from the code.
package openapi

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// =============================================================================
// Generator
// =============================================================================

// Generator produces OpenAPI 3.0 specifications by reflecting on registered
// resources and actions.
type Generator struct {
	title       string
	version     string
	description string
	servers     []string
	resources   []ResourceInfo
	actions     []ActionInfo
	mu          sync.RWMutex
	cachedSpec  *openapi3.T
}

// ResourceInfo holds information about a registered JSON:API resource.
type ResourceInfo struct {
	Name           string      // Resource type name (e.g., "templates")
	Model          interface{} // The model struct for schema extraction
	SupportsFind   bool        // GET /{type} and GET /{type}/{id}
	SupportsCreate bool        // POST /{type}
	SupportsUpdate bool        // PATCH /{type}/{id}
	SupportsDelete bool        // DELETE /{type}/{id}
}

// ActionInfo describes a custom (non-CRUD) endpoint.
type ActionInfo struct {
	Method      string      // HTTP method
	Path        string      // Path relative to the API root, e.g. "/organizations/{slug}/templates"
	OperationID string
	Summary     string
	Tag         string
	Request     interface{} // Optional request body model
	Response    interface{} // Optional response body model
}

// Option configures the generator.
type Option func(*Generator)

// WithTitle sets the API title.
func WithTitle(title string) Option {
	return func(g *Generator) {
		g.title = title
	}
}

// WithVersion sets the API version.
func WithVersion(version string) Option {
	return func(g *Generator) {
		g.version = version
	}
}

// WithDescription sets the API description.
func WithDescription(description string) Option {
	return func(g *Generator) {
		g.description = description
	}
}

// WithServer adds a server URL.
func WithServer(url string) Option {
	return func(g *Generator) {
		g.servers = append(g.servers, url)
	}
}

// NewGenerator creates a new OpenAPI generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		title:       "Stencil API",
		version:     "1.0.0",
		description: "Repository scaffolding service API",
		servers:     []string{"/api/v1"},
		resources:   make([]ResourceInfo, 0),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// RegisterResource adds a resource to the generator for spec generation.
func (g *Generator) RegisterResource(info ResourceInfo) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resources = append(g.resources, info)
	g.cachedSpec = nil // Invalidate cache
}

// RegisterAction adds a custom endpoint to the generator.
func (g *Generator) RegisterAction(info ActionInfo) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.actions = append(g.actions, info)
	g.cachedSpec = nil
}

// Generate produces the complete OpenAPI 3.0 specification.
func (g *Generator) Generate() *openapi3.T {
	g.mu.RLock()
	if g.cachedSpec != nil {
		spec := g.cachedSpec
		g.mu.RUnlock()
		return spec
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	// Double-check after acquiring write lock
	if g.cachedSpec != nil {
		return g.cachedSpec
	}

	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       g.title,
			Version:     g.version,
			Description: g.description,
		},
		Servers: make(openapi3.Servers, 0, len(g.servers)),
		Paths:   &openapi3.Paths{},
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas),
		},
	}

	for _, url := range g.servers {
		spec.Servers = append(spec.Servers, &openapi3.Server{URL: url})
	}

	g.addCommonSchemas(spec)

	for _, res := range g.resources {
		g.addResourceToSpec(spec, res)
	}
	for _, action := range g.actions {
		g.addActionToSpec(spec, action)
	}

	g.cachedSpec = spec
	return spec
}

// Handler returns an HTTP handler that serves the OpenAPI specification.
func (g *Generator) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := g.Generate()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if err := json.NewEncoder(w).Encode(spec); err != nil {
			http.Error(w, "Failed to encode OpenAPI spec", http.StatusInternalServerError)
		}
	}
}

// =============================================================================
// Schema Generation
// =============================================================================

// addCommonSchemas adds common JSON:API schemas to the spec.
func (g *Generator) addCommonSchemas(spec *openapi3.T) {
	spec.Components.Schemas["PaginationMeta"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"total": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}},
				},
				"limit": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}},
				},
				"offset": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}},
				},
			},
		},
	}

	spec.Components.Schemas["Error"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"errors": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"array"},
						Items: &openapi3.SchemaRef{
							Value: &openapi3.Schema{
								Type: &openapi3.Types{"object"},
								Properties: openapi3.Schemas{
									"status": &openapi3.SchemaRef{
										Value: &openapi3.Schema{Type: &openapi3.Types{"string"}},
									},
									"title": &openapi3.SchemaRef{
										Value: &openapi3.Schema{Type: &openapi3.Types{"string"}},
									},
									"detail": &openapi3.SchemaRef{
										Value: &openapi3.Schema{Type: &openapi3.Types{"string"}},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}

// addResourceToSpec adds paths and schemas for a resource.
func (g *Generator) addResourceToSpec(spec *openapi3.T, res ResourceInfo) {
	basePath := "/" + res.Name

	attributesSchema := g.extractSchema(res.Model)
	schemaName := capitalize(singularize(res.Name))

	spec.Components.Schemas[schemaName+"Attributes"] = attributesSchema

	spec.Components.Schemas[schemaName] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"type": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"string"},
						Enum: []interface{}{res.Name},
					},
				},
				"id": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"string"}},
				},
				"attributes": &openapi3.SchemaRef{
					Ref: "#/components/schemas/" + schemaName + "Attributes",
				},
			},
			Required: []string{"type", "id"},
		},
	}

	collectionPath := &openapi3.PathItem{}
	if res.SupportsFind {
		collectionPath.Get = g.createListOperation(res)
	}
	if res.SupportsCreate {
		collectionPath.Post = g.createBodyOperation("create"+schemaName, "Create a "+singularize(res.Name), res.Name, schemaName)
	}
	spec.Paths.Set(basePath, collectionPath)

	itemPath := &openapi3.PathItem{
		Parameters: openapi3.Parameters{
			&openapi3.ParameterRef{
				Value: &openapi3.Parameter{
					Name:     "id",
					In:       "path",
					Required: true,
					Schema: &openapi3.SchemaRef{
						Value: &openapi3.Schema{Type: &openapi3.Types{"string"}},
					},
				},
			},
		},
	}

	if res.SupportsFind {
		itemPath.Get = &openapi3.Operation{
			OperationID: "get" + schemaName,
			Summary:     "Get a " + singularize(res.Name),
			Tags:        []string{capitalize(res.Name)},
			Responses:   &openapi3.Responses{},
		}
	}
	if res.SupportsUpdate {
		itemPath.Patch = g.createBodyOperation("update"+schemaName, "Update a "+singularize(res.Name), res.Name, schemaName)
	}
	if res.SupportsDelete {
		itemPath.Delete = &openapi3.Operation{
			OperationID: "delete" + schemaName,
			Summary:     "Delete a " + singularize(res.Name),
			Tags:        []string{capitalize(res.Name)},
			Responses:   &openapi3.Responses{},
		}
	}

	spec.Paths.Set(basePath+"/{id}", itemPath)
}

// addActionToSpec adds a custom endpoint to the spec.
func (g *Generator) addActionToSpec(spec *openapi3.T, action ActionInfo) {
	op := &openapi3.Operation{
		OperationID: action.OperationID,
		Summary:     action.Summary,
		Tags:        []string{action.Tag},
		Responses:   &openapi3.Responses{},
	}

	if action.Request != nil {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Required: true,
				Content: openapi3.Content{
					"application/json": &openapi3.MediaType{
						Schema: g.extractSchema(action.Request),
					},
				},
			},
		}
	}

	// Path template parameters become required string parameters
	for _, segment := range strings.Split(action.Path, "/") {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
				Value: &openapi3.Parameter{
					Name:     strings.Trim(segment, "{}"),
					In:       "path",
					Required: true,
					Schema: &openapi3.SchemaRef{
						Value: &openapi3.Schema{Type: &openapi3.Types{"string"}},
					},
				},
			})
		}
	}

	item := spec.Paths.Value(action.Path)
	if item == nil {
		item = &openapi3.PathItem{}
	}
	item.SetOperation(strings.ToUpper(action.Method), op)
	spec.Paths.Set(action.Path, item)
}

// extractSchema extracts an OpenAPI schema from a Go struct.
func (g *Generator) extractSchema(model interface{}) *openapi3.SchemaRef {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	schema := &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: make(openapi3.Schemas),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		name := field.Name
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
		}

		if propSchema := g.goTypeToSchema(field.Type); propSchema != nil {
			schema.Properties[name] = propSchema
		}
	}

	return &openapi3.SchemaRef{Value: schema}
}

// goTypeToSchema converts a Go type to an OpenAPI schema.
func (g *Generator) goTypeToSchema(t reflect.Type) *openapi3.SchemaRef {
	// json.RawMessage is an opaque JSON document, not a byte array
	if t == reflect.TypeOf(json.RawMessage{}) {
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
	}

	switch t.Kind() {
	case reflect.String:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}}

	case reflect.Int64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}}

	case reflect.Float32:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}, Format: "float"}}

	case reflect.Float64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}, Format: "double"}}

	case reflect.Bool:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}}

	case reflect.Slice, reflect.Array:
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: g.goTypeToSchema(t.Elem()),
			},
		}

	case reflect.Map:
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:                 &openapi3.Types{"object"},
				AdditionalProperties: openapi3.AdditionalProperties{Schema: g.goTypeToSchema(t.Elem())},
			},
		}

	case reflect.Ptr:
		schema := g.goTypeToSchema(t.Elem())
		if schema != nil && schema.Value != nil {
			schema.Value.Nullable = true
		}
		return schema

	case reflect.Struct:
		if t == reflect.TypeOf(time.Time{}) {
			return &openapi3.SchemaRef{
				Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"},
			}
		}
		return g.extractSchema(reflect.New(t).Interface())

	default:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
	}
}

// =============================================================================
// Operation Generation
// =============================================================================

func (g *Generator) createListOperation(res ResourceInfo) *openapi3.Operation {
	return &openapi3.Operation{
		OperationID: "list" + capitalize(res.Name),
		Summary:     "List " + res.Name,
		Tags:        []string{capitalize(res.Name)},
		Parameters: openapi3.Parameters{
			&openapi3.ParameterRef{
				Value: &openapi3.Parameter{
					Name: "page[size]",
					In:   "query",
					Schema: &openapi3.SchemaRef{
						Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Default: 100},
					},
				},
			},
			&openapi3.ParameterRef{
				Value: &openapi3.Parameter{
					Name: "page[offset]",
					In:   "query",
					Schema: &openapi3.SchemaRef{
						Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Default: 0},
					},
				},
			},
		},
		Responses: &openapi3.Responses{},
	}
}

func (g *Generator) createBodyOperation(operationID, summary, resourceName, schemaName string) *openapi3.Operation {
	return &openapi3.Operation{
		OperationID: operationID,
		Summary:     summary,
		Tags:        []string{capitalize(resourceName)},
		RequestBody: &openapi3.RequestBodyRef{
			Value: &openapi3.RequestBody{
				Required: true,
				Content: openapi3.Content{
					"application/vnd.api+json": &openapi3.MediaType{
						Schema: &openapi3.SchemaRef{
							Ref: "#/components/schemas/" + schemaName,
						},
					},
				},
			},
		},
		Responses: &openapi3.Responses{},
	}
}

// =============================================================================
// Helpers
// =============================================================================

// capitalize returns the string with the first letter capitalized.
func capitalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// singularize performs basic singularization (removes trailing 's').
func singularize(s string) string {
	if strings.HasSuffix(s, "ies") {
		return s[:len(s)-3] + "y"
	}
	if strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss") {
		return s[:len(s)-1]
	}
	return s
}
