package api

import (
	_ "embed"
	"fmt"
	"net/http"
)

//go:embed ui/index.html
var indexHTML []byte

//go:embed openapi.yaml
var openAPISpecYAML []byte

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("no route for %s", r.URL.Path))
		return
	}
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(indexHTML); err != nil {
		s.logger.Printf("write ui index: %v", err)
	}
}
