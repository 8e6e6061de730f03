// File path: internal/api/dashboard_handler.go
package api

import (
	"net/http"

	"github.com/FilipDolejsi/JuriCode/internal/audit"
)

// dashboardEntry is one repository row in the aggregate view. Status comes
// from the risk classifier's stored report; Categories carries the per-report
// labels for every audited category.
type dashboardEntry struct {
	RepoURL    string            `json:"repo_url"`
	Status     audit.Status      `json:"status"`
	Label      string            `json:"label"`
	Categories map[string]string `json:"categories"`
}

type dashboardResponse struct {
	Repositories []dashboardEntry     `json:"repositories"`
	Totals       map[audit.Status]int `json:"totals"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	repos, err := s.reports.Repositories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	response := dashboardResponse{
		Repositories: make([]dashboardEntry, 0, len(repos)),
		Totals:       make(map[audit.Status]int),
	}
	for _, repoURL := range repos {
		stored, err := s.reports.ListOrdered(r.Context(), repoURL)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		entry := dashboardEntry{
			RepoURL:    repoURL,
			Status:     audit.StatusUnknown,
			Label:      "Unclassified",
			Categories: make(map[string]string, len(stored)),
		}
		for _, rep := range stored {
			if rep.Category == string(audit.CategorySynthesis) {
				continue
			}
			status, label := audit.DeriveStatus(rep.Verdict, rep.Content)
			entry.Categories[rep.Category] = label
			if rep.Category == string(audit.CategoryRisk) {
				entry.Status = status
				entry.Label = label
			}
		}
		response.Totals[entry.Status]++
		response.Repositories = append(response.Repositories, entry)
	}
	writeJSON(w, http.StatusOK, response)
}
