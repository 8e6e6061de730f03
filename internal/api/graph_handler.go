// File path: internal/api/graph_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type graphRequest struct {
	RepoURLs []string `json:"repo_urls"`
}

func (g graphRequest) validate() ([]string, error) {
	urls := make([]string, 0, len(g.RepoURLs))
	for _, url := range g.RepoURLs {
		trimmed := strings.TrimSpace(url)
		if trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("repo_urls is required")
	}
	return urls, nil
}

func (s *Server) handleGraphBuild(w http.ResponseWriter, r *http.Request) {
	var req graphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	urls, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	built, err := s.graphs.Build(r.Context(), urls)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, built)
}

func (s *Server) handleGraphStream(w http.ResponseWriter, r *http.Request) {
	var req graphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	urls, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sse, sseErr := newSSEWriter(w)
	if sseErr != nil {
		writeError(w, http.StatusInternalServerError, sseErr)
		return
	}
	for event := range s.graphs.BuildStream(r.Context(), urls) {
		switch {
		case event.Err != nil:
			sse.send("error", map[string]string{"repo": event.Repo, "error": event.Err.Error()})
			return
		case event.Done:
			sse.send("done", event.Graph)
		default:
			sse.send("progress", event)
		}
	}
}

func (s *Server) handleStakeholder(w http.ResponseWriter, r *http.Request) {
	repoURL := strings.TrimSpace(r.URL.Query().Get("repo"))
	filePath := strings.TrimSpace(r.URL.Query().Get("path"))
	if repoURL == "" || filePath == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("repo and path query parameters required"))
		return
	}
	commit, err := s.graphs.ResolveStakeholder(r.Context(), repoURL, filePath)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, commit)
}

func (s *Server) handleGraphCritique(w http.ResponseWriter, r *http.Request) {
	if s.critic == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("silo critic unavailable"))
		return
	}
	var req graphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	urls, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	built, err := s.graphs.Build(r.Context(), urls)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	critique, err := s.critic.Critique(r.Context(), built)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"critique": critique,
		"nodes":    len(built.Nodes),
		"edges":    len(built.Edges),
	})
}
