package server

import (
	"net/http"
)

// FileServerHandler serves the dashboard from dir on disk.
func FileServerHandler(dir string) http.Handler {
	return http.FileServer(http.Dir(dir))
}
