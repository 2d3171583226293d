// Package docs serves the OpenAPI description of the HTTP API and a
// Swagger UI page that renders it.
package docs

import (
	"embed"
	"net/http"
)

//go:embed index.html openapi.yaml
var assets embed.FS

func Handler() http.Handler {
	return http.FileServer(http.FS(assets))
}
