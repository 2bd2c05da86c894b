package http_test

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/samirrijal/phonemap/api"
)

func loadSpec(t *testing.T) *openapi3.T {
	t.Helper()
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	spec, err := loader.LoadFromData(api.OpenAPI)
	if err != nil {
		t.Fatalf("failed to parse OpenAPI spec: %v", err)
	}
	if err := spec.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI spec validation failed: %v", err)
	}
	return spec
}

// TestOpenAPISpec validates the embedded document and its key paths and schemas.
func TestOpenAPISpec(t *testing.T) {
	spec := loadSpec(t)

	expectedPaths := []string{
		"/v1/health",
		"/v1/ready",
		"/v1/records",
		"/v1/records/nearby",
		"/v1/records/export",
		"/v1/records/{id}",
		"/v1/records/{id}/locate",
		"/v1/phones",
		"/v1/map",
		"/v1/map/markers/{marker}/click",
		"/v1/selection",
		"/v1/notices",
		"/v1/cities",
		"/graphql",
	}
	for _, path := range expectedPaths {
		if item := spec.Paths.Find(path); item == nil {
			t.Errorf("expected path %s not found in spec", path)
		}
	}

	expectedSchemas := []string{
		"PhoneRecord",
		"NearbyRecord",
		"NewRecord",
		"Notice",
		"MapScene",
		"City",
		"APIError",
		"Pagination",
	}
	for _, schema := range expectedSchemas {
		if spec.Components.Schemas[schema] == nil {
			t.Errorf("expected schema %s not found", schema)
		}
	}

	t.Logf("OpenAPI spec valid: %d paths, %d schemas", len(spec.Paths.Map()), len(spec.Components.Schemas))
}

// TestOpenAPICoversRoutes checks every registered API route is documented.
func TestOpenAPICoversRoutes(t *testing.T) {
	spec := loadSpec(t)
	app := setupApp(makeDeps(t))

	param := regexp.MustCompile(`:(\w+)`)
	undocumented := map[string]bool{"/": true, "/metrics": true, "/docs": true, "/docs/openapi.yaml": true, "/docs/openapi.json": true, "/ws": true}

	for _, r := range app.GetRoutes(true) {
		if r.Method == "HEAD" || undocumented[r.Path] {
			continue
		}
		path := param.ReplaceAllString(r.Path, "{$1}")
		item := spec.Paths.Find(path)
		if item == nil {
			t.Errorf("route %s %s is not documented", r.Method, r.Path)
			continue
		}
		if item.GetOperation(strings.ToUpper(r.Method)) == nil {
			t.Errorf("route %s %s has no documented operation", r.Method, path)
		}
	}
}

// TestOpenAPIInfo verifies spec metadata.
func TestOpenAPIInfo(t *testing.T) {
	spec := loadSpec(t)

	if spec.Info.Title != "PhoneMap API" {
		t.Errorf("expected title 'PhoneMap API', got %q", spec.Info.Title)
	}
	if spec.Info.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %q", spec.Info.Version)
	}
	if spec.Info.Description == "" {
		t.Error("expected non-empty description")
	}
	if len(spec.Servers) == 0 {
		t.Fatal("expected at least one server")
	}

	t.Logf("OpenAPI Info: %s v%s @ %s", spec.Info.Title, spec.Info.Version, spec.Servers[0].URL)
}
