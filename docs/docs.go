// Package docs встраивает OpenAPI-описание HTTP API в бинарник.
package docs

import (
	_ "embed"
	"net/http"
)

//go:embed openapi.json
var OpenAPI []byte

// OpenAPIPath - адрес, по которому swagger UI забирает описание.
const OpenAPIPath = "/docs/openapi.json"

func Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(OpenAPI)
}
