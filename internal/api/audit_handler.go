// File path: internal/api/audit_handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/FilipDolejsi/JuriCode/internal/audit"
	"github.com/FilipDolejsi/JuriCode/internal/githost"
	"github.com/FilipDolejsi/JuriCode/internal/report"
)

type auditRequest struct {
	RepoURL string `json:"repo_url"`
}

func (s *Server) handleAuditRun(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	repoURL := strings.TrimSpace(req.RepoURL)
	if repoURL == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("repo_url is required"))
		return
	}
	summary, err := s.audits.RunAudit(r.Context(), repoURL, nil)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, audit.ErrInsufficientReports) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type auditStageEvent struct {
	Category string `json:"category"`
	Stage    string `json:"stage"`
}

func (s *Server) handleAuditStream(w http.ResponseWriter, r *http.Request) {
	repoURL := strings.TrimSpace(r.URL.Query().Get("repo"))
	if repoURL == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("repo query parameter required"))
		return
	}
	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	events := make(chan auditStageEvent, 16)
	type outcome struct {
		summary *audit.Summary
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		defer close(events)
		summary, runErr := s.audits.RunAudit(r.Context(), repoURL, func(category audit.Category, stage string) {
			events <- auditStageEvent{Category: string(category), Stage: stage}
		})
		done <- outcome{summary: summary, err: runErr}
	}()

	for event := range events {
		sse.send("stage", event)
	}
	result := <-done
	if result.err != nil {
		sse.send("error", map[string]string{"error": result.err.Error()})
		return
	}
	sse.send("done", result.summary)
}

func (s *Server) handleAuditDocument(w http.ResponseWriter, r *http.Request) {
	repoURL := strings.TrimSpace(r.URL.Query().Get("repo"))
	if repoURL == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("repo query parameter required"))
		return
	}
	stored, err := s.reports.Get(r.Context(), repoURL, string(audit.CategorySynthesis))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, report.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	name := "Annex_IV_Technical_Documentation"
	if ref, parseErr := githost.ParseRepoURL(repoURL); parseErr == nil {
		name = name + "_" + ref.Name
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.md\"", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(stored.Content))
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	repoURL := strings.TrimSpace(r.URL.Query().Get("repo"))
	if repoURL == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("repo query parameter required"))
		return
	}
	reports, err := s.reports.ListOrdered(r.Context(), repoURL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"repo_url": repoURL, "reports": reports})
}
