// File path: internal/api/server_test.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FilipDolejsi/JuriCode/internal/audit"
	"github.com/FilipDolejsi/JuriCode/internal/githost"
	"github.com/FilipDolejsi/JuriCode/internal/graph"
	"github.com/FilipDolejsi/JuriCode/internal/report"
	"github.com/FilipDolejsi/JuriCode/internal/sqlite"
)

type fakeAuditService struct {
	summary *audit.Summary
	err     error
	stages  []auditStageEvent
}

func (f *fakeAuditService) RunAudit(ctx context.Context, repoURL string, progress audit.Progress) (*audit.Summary, error) {
	if progress != nil {
		for _, stage := range f.stages {
			progress(audit.Category(stage.Category), stage.Stage)
		}
	}
	return f.summary, f.err
}

func (f *fakeAuditService) Synthesize(ctx context.Context, repoURL string) (string, error) {
	if f.summary == nil {
		return "", f.err
	}
	return f.summary.Document, f.err
}

type fakeGraphService struct {
	graph  *graph.Graph
	commit *githost.Commit
	err    error
}

func (f *fakeGraphService) Build(ctx context.Context, urls []string) (*graph.Graph, error) {
	return f.graph, f.err
}

func (f *fakeGraphService) BuildStream(ctx context.Context, urls []string) <-chan graph.Progress {
	events := make(chan graph.Progress, len(urls)+1)
	for i, url := range urls {
		events <- graph.Progress{Repo: url, Index: i + 1, Total: len(urls)}
	}
	events <- graph.Progress{Index: len(urls), Total: len(urls), Done: true, Graph: f.graph}
	close(events)
	return events
}

func (f *fakeGraphService) ResolveStakeholder(ctx context.Context, url, path string) (*githost.Commit, error) {
	if f.commit == nil {
		return nil, fmt.Errorf("no history for %s", path)
	}
	return f.commit, nil
}

type fakeCritic struct{ critique string }

func (f *fakeCritic) Critique(ctx context.Context, g *graph.Graph) (string, error) {
	return f.critique, nil
}

type fakeIngestor struct{ chunks int }

func (f *fakeIngestor) Ingest(ctx context.Context, document string) (int, error) {
	return f.chunks, nil
}

func newTestReportStore(t *testing.T) *report.Store {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store, err := report.NewStore(db.DB())
	if err != nil {
		t.Fatalf("new report store: %v", err)
	}
	return store
}

func newTestServer(t *testing.T, audits AuditService, store *report.Store) *Server {
	t.Helper()
	if store == nil {
		store = newTestReportStore(t)
	}
	if audits == nil {
		audits = &fakeAuditService{summary: &audit.Summary{}}
	}
	graphs := &fakeGraphService{
		graph: &graph.Graph{
			Nodes: []graph.Node{{ID: "alpha", Kind: graph.KindRepository}},
		},
	}
	srv, err := NewServer(audits, graphs, &fakeCritic{critique: "silo findings"}, &fakeIngestor{chunks: 4}, store)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func TestAuditRunEndpoint(t *testing.T) {
	audits := &fakeAuditService{summary: &audit.Summary{
		RepoURL:  "https://github.test/acme/scoring",
		Document: "Annex_IV_Technical_Documentation_scoring",
	}}
	srv := newTestServer(t, audits, nil)

	body := strings.NewReader(`{"repo_url":"https://github.test/acme/scoring"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/audit", body)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var summary audit.Summary
	if err := json.NewDecoder(rr.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.Document == "" {
		t.Fatalf("expected document in summary")
	}

	missing := httptest.NewRequest(http.MethodPost, "/v1/audit", strings.NewReader(`{}`))
	missingRR := httptest.NewRecorder()
	srv.ServeHTTP(missingRR, missing)
	if missingRR.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without repo_url, got %d", missingRR.Code)
	}
}

func TestAuditRunInsufficientReportsConflict(t *testing.T) {
	audits := &fakeAuditService{err: fmt.Errorf("wrap: %w", audit.ErrInsufficientReports)}
	srv := newTestServer(t, audits, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/audit", strings.NewReader(`{"repo_url":"https://github.test/acme/empty"}`))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for insufficient reports, got %d", rr.Code)
	}
}

func TestAuditStreamEmitsStageEvents(t *testing.T) {
	audits := &fakeAuditService{
		summary: &audit.Summary{RepoURL: "https://github.test/acme/scoring"},
		stages: []auditStageEvent{
			{Category: string(audit.CategoryRisk), Stage: audit.StageDetection},
			{Category: string(audit.CategoryRisk), Stage: audit.StageForensic},
		},
	}
	srv := newTestServer(t, audits, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/audit/stream?repo=https://github.test/acme/scoring", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream content type, got %q", ct)
	}
	body := rr.Body.String()
	if strings.Count(body, "event: stage") != 2 {
		t.Fatalf("expected two stage events, got body %q", body)
	}
	if !strings.Contains(body, "event: done") {
		t.Fatalf("expected final done event, got body %q", body)
	}
}

func TestAuditDocumentDownload(t *testing.T) {
	store := newTestReportStore(t)
	repo := "https://github.test/acme/scoring"
	if err := store.Upsert(context.Background(), repo, string(audit.CategorySynthesis), "# Annex IV\nSection A", ""); err != nil {
		t.Fatalf("seed synthesis report: %v", err)
	}
	srv := newTestServer(t, nil, store)

	req := httptest.NewRequest(http.MethodGet, "/v1/audit/document?repo="+repo, nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Fatalf("expected markdown content type, got %q", ct)
	}
	if d := rr.Header().Get("Content-Disposition"); !strings.Contains(d, "Annex_IV_Technical_Documentation_scoring.md") {
		t.Fatalf("expected repo-derived filename, got %q", d)
	}
	if !strings.Contains(rr.Body.String(), "Section A") {
		t.Fatalf("expected document body, got %q", rr.Body.String())
	}

	missing := httptest.NewRequest(http.MethodGet, "/v1/audit/document?repo=https://github.test/acme/none", nil)
	missingRR := httptest.NewRecorder()
	srv.ServeHTTP(missingRR, missing)
	if missingRR.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without synthesis report, got %d", missingRR.Code)
	}
}

func TestDashboardDerivesStatusWithPrecedence(t *testing.T) {
	store := newTestReportStore(t)
	ctx := context.Background()
	prohibited := "https://github.test/acme/subliminal"
	errored := "https://github.test/acme/broken"
	if err := store.Upsert(ctx, prohibited, string(audit.CategoryRisk),
		"The system is High Risk and uses Prohibited techniques.", ""); err != nil {
		t.Fatalf("seed report: %v", err)
	}
	if err := store.Upsert(ctx, errored, string(audit.CategoryRisk),
		audit.ErrorReportPrefix+"detection stage: boom", ""); err != nil {
		t.Fatalf("seed report: %v", err)
	}
	srv := newTestServer(t, nil, store)

	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp dashboardResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if len(resp.Repositories) != 2 {
		t.Fatalf("expected two repositories, got %d", len(resp.Repositories))
	}
	byRepo := make(map[string]dashboardEntry, len(resp.Repositories))
	for _, entry := range resp.Repositories {
		byRepo[entry.RepoURL] = entry
	}
	if entry := byRepo[prohibited]; entry.Status != audit.StatusProhibited || entry.Label != "Article 5 Violation" {
		t.Fatalf("expected prohibited precedence, got %+v", entry)
	}
	if entry := byRepo[errored]; entry.Status != audit.StatusError || entry.Label != "Audit Error" {
		t.Fatalf("expected audit error status, got %+v", entry)
	}
	if resp.Totals[audit.StatusProhibited] != 1 || resp.Totals[audit.StatusError] != 1 {
		t.Fatalf("unexpected totals %+v", resp.Totals)
	}
}

func TestDashboardPrefersTypedVerdict(t *testing.T) {
	store := newTestReportStore(t)
	repo := "https://github.test/acme/typed"
	if err := store.Upsert(context.Background(), repo, string(audit.CategoryRisk),
		"narrative that happens to mention High Risk", audit.ClassificationCompliant); err != nil {
		t.Fatalf("seed report: %v", err)
	}
	srv := newTestServer(t, nil, store)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil))
	var resp dashboardResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if resp.Repositories[0].Status != audit.StatusCompliant {
		t.Fatalf("expected typed verdict to win, got %+v", resp.Repositories[0])
	}
}

func TestGraphStreamAndCritique(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	streamReq := httptest.NewRequest(http.MethodPost, "/v1/graph/stream",
		strings.NewReader(`{"repo_urls":["https://github.test/acme/alpha"]}`))
	streamRR := httptest.NewRecorder()
	srv.ServeHTTP(streamRR, streamReq)
	if streamRR.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", streamRR.Code, streamRR.Body.String())
	}
	body := streamRR.Body.String()
	if !strings.Contains(body, "event: progress") || !strings.Contains(body, "event: done") {
		t.Fatalf("expected progress and done events, got %q", body)
	}

	critiqueReq := httptest.NewRequest(http.MethodPost, "/v1/graph/critique",
		strings.NewReader(`{"repo_urls":["https://github.test/acme/alpha"]}`))
	critiqueRR := httptest.NewRecorder()
	srv.ServeHTTP(critiqueRR, critiqueReq)
	if critiqueRR.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", critiqueRR.Code, critiqueRR.Body.String())
	}
	if !strings.Contains(critiqueRR.Body.String(), "silo findings") {
		t.Fatalf("expected critique text, got %q", critiqueRR.Body.String())
	}

	emptyReq := httptest.NewRequest(http.MethodPost, "/v1/graph", strings.NewReader(`{"repo_urls":[]}`))
	emptyRR := httptest.NewRecorder()
	srv.ServeHTTP(emptyRR, emptyReq)
	if emptyRR.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty repo_urls, got %d", emptyRR.Code)
	}
}

func TestStakeholderEndpoint(t *testing.T) {
	store := newTestReportStore(t)
	audits := &fakeAuditService{summary: &audit.Summary{}}
	graphs := &fakeGraphService{commit: &githost.Commit{Author: "Alice", Email: "alice@acme.test"}}
	srv, err := NewServer(audits, graphs, nil, nil, store)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/graph/stakeholder?repo=https://github.test/acme/alpha&path=main.py", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var commit githost.Commit
	if err := json.NewDecoder(rr.Body).Decode(&commit); err != nil {
		t.Fatalf("decode commit: %v", err)
	}
	if commit.Author != "Alice" {
		t.Fatalf("unexpected commit %+v", commit)
	}

	badReq := httptest.NewRequest(http.MethodGet, "/v1/graph/stakeholder?repo=x", nil)
	badRR := httptest.NewRecorder()
	srv.ServeHTTP(badRR, badReq)
	if badRR.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without path, got %d", badRR.Code)
	}
}

func TestCorpusIngestEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/corpus/ingest",
		strings.NewReader(`{"document":"Article 5. Prohibited practices..."}`))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]int
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["chunks"] != 4 {
		t.Fatalf("expected chunk count, got %+v", resp)
	}

	emptyReq := httptest.NewRequest(http.MethodPost, "/v1/corpus/ingest", strings.NewReader(`{"document":"  "}`))
	emptyRR := httptest.NewRecorder()
	srv.ServeHTTP(emptyRR, emptyReq)
	if emptyRR.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank document, got %d", emptyRR.Code)
	}
}
