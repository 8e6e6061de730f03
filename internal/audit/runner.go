// File path: internal/audit/runner.go
package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/FilipDolejsi/JuriCode/internal/common"
	"github.com/FilipDolejsi/JuriCode/internal/common/telemetry"
	"github.com/FilipDolejsi/JuriCode/internal/githost"
	"github.com/FilipDolejsi/JuriCode/internal/report"
)

// ErrInsufficientReports is returned when synthesis is requested before all
// three category reports exist for a repository.
var ErrInsufficientReports = errors.New("synthesis requires the three category reports")

// Progress receives per-stage notifications during a full audit run.
type Progress func(category Category, stage string)

// Summary is the outcome of one full multi-category audit.
type Summary struct {
	RepoURL  string              `json:"repo_url"`
	Results  map[Category]string `json:"results"`
	Verdicts map[Category]string `json:"verdicts"`
	Document string              `json:"document"`
}

// Runner drives the three category pipelines in their fixed order, persists
// each report, and finishes with cross-category synthesis.
type Runner struct {
	host        githost.Client
	pipeline    *Pipeline
	synthesizer *Synthesizer
	reports     *report.Store
}

func NewRunner(host githost.Client, pipeline *Pipeline, synthesizer *Synthesizer, reports *report.Store) (*Runner, error) {
	if host == nil {
		return nil, errors.New("runner requires a hosting client")
	}
	if pipeline == nil {
		return nil, errors.New("runner requires a pipeline")
	}
	if synthesizer == nil {
		return nil, errors.New("runner requires a synthesizer")
	}
	if reports == nil {
		return nil, errors.New("runner requires a report store")
	}
	return &Runner{host: host, pipeline: pipeline, synthesizer: synthesizer, reports: reports}, nil
}

// RunAudit executes the full audit for one repository URL. A failed category
// stores the literal error marker in place of findings and the run continues
// with the next category; only the synthesis precondition aborts the run.
func (r *Runner) RunAudit(ctx context.Context, repoURL string, progress Progress) (*Summary, error) {
	logger := common.Logger()
	ref, err := r.host.Resolve(ctx, repoURL)
	if err != nil {
		return nil, fmt.Errorf("resolve repository: %w", err)
	}
	logger.Info("audit: run starting", "repo", repoURL)

	summary := &Summary{
		RepoURL:  repoURL,
		Results:  make(map[Category]string),
		Verdicts: make(map[Category]string),
	}
	failed := false
	for _, category := range AuditCategories() {
		var stageProgress func(stage string)
		if progress != nil {
			cat := category
			stageProgress = func(stage string) { progress(cat, stage) }
		}
		result, runErr := r.pipeline.Run(ctx, ref, category, stageProgress)
		content := ""
		verdict := ""
		if runErr != nil {
			// The marker report replaces findings for this category; the
			// remaining categories still run.
			failed = true
			content = ErrorReportPrefix + runErr.Error()
			logger.Warn("audit: category failed", "category", string(category), "error", runErr)
		} else {
			content = result.Report
			verdict = result.Verdict.Classification
		}
		if err := r.reports.Upsert(ctx, repoURL, string(category), content, verdict); err != nil {
			return nil, fmt.Errorf("store %s report: %w", category, err)
		}
		summary.Results[category] = content
		summary.Verdicts[category] = verdict
	}

	if progress != nil {
		progress(CategorySynthesis, StageSynthesis)
	}
	document, err := r.Synthesize(ctx, repoURL)
	if err != nil {
		telemetry.RecordAuditRun(true)
		return nil, err
	}
	summary.Document = document
	telemetry.RecordAuditRun(failed)
	logger.Info("audit: run complete", "repo", repoURL, "categories", len(summary.Results))
	return summary, nil
}

// Synthesize loads the three stored category reports by key and produces the
// consolidated document, persisting it under the synthesis category. It fails
// fast when fewer than three reports exist.
func (r *Runner) Synthesize(ctx context.Context, repoURL string) (string, error) {
	contents := make(map[Category]string, 3)
	for _, category := range AuditCategories() {
		stored, err := r.reports.Get(ctx, repoURL, string(category))
		if err != nil {
			if errors.Is(err, report.ErrNotFound) {
				return "", fmt.Errorf("%w: missing %s", ErrInsufficientReports, category)
			}
			return "", err
		}
		contents[category] = stored.Content
	}
	document, err := r.synthesizer.Synthesize(ctx, repoURL,
		contents[CategoryRisk], contents[CategoryDataGovernance], contents[CategoryRobustness])
	if err != nil {
		return "", err
	}
	if err := r.reports.Upsert(ctx, repoURL, string(CategorySynthesis), document, ""); err != nil {
		return "", fmt.Errorf("store synthesis document: %w", err)
	}
	return document, nil
}
