// Package swagger embeds the OpenAPI document of the HTTP API.
package swagger

import (
	"embed"
	"net/http"
)

//go:embed openapi.yaml
var content embed.FS

// GetHandler serves openapi.yaml from the embedded file system.
func GetHandler() (http.Handler, error) {
	if _, err := content.Open("openapi.yaml"); err != nil {
		return nil, err
	}

	return http.FileServer(http.FS(content)), nil
}
