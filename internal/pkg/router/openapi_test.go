package router

import (
	"context"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openAPIPath = "../../../public/docs/v1/openapi.yml"

func TestOpenAPIDocumentIsValid(t *testing.T) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(openAPIPath)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
}

func TestOpenAPIDocumentsEveryAPIRoute(t *testing.T) {
	doc, err := openapi3.NewLoader().LoadFromFile(openAPIPath)
	require.NoError(t, err)

	app := newTestApp(t)
	for _, route := range app.GetRoutes(true) {
		if !strings.HasPrefix(route.Path, "/api/") || route.Method == "HEAD" {
			continue
		}
		item := doc.Paths.Value(route.Path)
		if !assert.NotNil(t, item, "undocumented route %s", route.Path) {
			continue
		}
		assert.NotNil(t, item.GetOperation(route.Method), "undocumented %s %s", route.Method, route.Path)
	}
}
