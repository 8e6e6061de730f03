// File path: internal/api/corpus_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ingestRequest struct {
	Document string `json:"document"`
}

func (s *Server) handleCorpusIngest(w http.ResponseWriter, r *http.Request) {
	if s.ingestor == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("corpus ingestor unavailable"))
		return
	}
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Document) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("document is required"))
		return
	}
	chunks, err := s.ingestor.Ingest(r.Context(), req.Document)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"chunks": chunks})
}
