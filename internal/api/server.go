// File path: internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/FilipDolejsi/JuriCode/internal/audit"
	"github.com/FilipDolejsi/JuriCode/internal/common"
	"github.com/FilipDolejsi/JuriCode/internal/githost"
	"github.com/FilipDolejsi/JuriCode/internal/graph"
	"github.com/FilipDolejsi/JuriCode/internal/report"
)

// AuditService runs full audits and cross-category synthesis.
type AuditService interface {
	RunAudit(ctx context.Context, repoURL string, progress audit.Progress) (*audit.Summary, error)
	Synthesize(ctx context.Context, repoURL string) (string, error)
}

// GraphService builds ownership graphs and resolves per-file stakeholders.
type GraphService interface {
	Build(ctx context.Context, urls []string) (*graph.Graph, error)
	BuildStream(ctx context.Context, urls []string) <-chan graph.Progress
	ResolveStakeholder(ctx context.Context, url, path string) (*githost.Commit, error)
}

// SiloCritic produces the advisory single-ownership assessment.
type SiloCritic interface {
	Critique(ctx context.Context, g *graph.Graph) (string, error)
}

// CorpusIngestor seeds the legal corpus from raw documents.
type CorpusIngestor interface {
	Ingest(ctx context.Context, document string) (int, error)
}

type Server struct {
	router   chi.Router
	audits   AuditService
	graphs   GraphService
	critic   SiloCritic
	ingestor CorpusIngestor
	reports  *report.Store
}

func NewServer(audits AuditService, graphs GraphService, critic SiloCritic, ingestor CorpusIngestor, reports *report.Store) (*Server, error) {
	if audits == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if graphs == nil {
		return nil, fmt.Errorf("graph service required")
	}
	if reports == nil {
		return nil, fmt.Errorf("report store required")
	}
	srv := &Server{
		router:   chi.NewRouter(),
		audits:   audits,
		graphs:   graphs,
		critic:   critic,
		ingestor: ingestor,
		reports:  reports,
	}
	srv.routes()
	common.Logger().Info("api: server ready")
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Handle("/debug/vars", expvar.Handler())

	s.router.Post("/v1/audit", s.handleAuditRun)
	s.router.Get("/v1/audit/stream", s.handleAuditStream)
	s.router.Get("/v1/audit/document", s.handleAuditDocument)
	s.router.Get("/v1/reports", s.handleReports)
	s.router.Get("/v1/dashboard", s.handleDashboard)
	s.router.Post("/v1/graph", s.handleGraphBuild)
	s.router.Post("/v1/graph/stream", s.handleGraphStream)
	s.router.Get("/v1/graph/stakeholder", s.handleStakeholder)
	s.router.Post("/v1/graph/critique", s.handleGraphCritique)
	s.router.Post("/v1/corpus/ingest", s.handleCorpusIngest)
	s.router.Get("/v1/logs", s.handleLogs)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	entries := append([]common.LogEntry(nil), common.LogEntries()...)
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// sseWriter wraps the response for server-sent events. Each event is one JSON
// payload flushed immediately.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported by connection")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) send(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data)
	s.flusher.Flush()
}
