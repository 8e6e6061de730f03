// File path: internal/selector/selector.go
package selector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FilipDolejsi/JuriCode/internal/common"
	"github.com/FilipDolejsi/JuriCode/internal/githost"
)

// Criterion names one deterministic file-selection policy. Each audit
// category maps to exactly one criterion.
type Criterion string

const (
	CriterionRiskClassification  Criterion = "risk-classification"
	CriterionDataGovernance      Criterion = "data-governance"
	CriterionTechnicalRobustness Criterion = "technical-robustness"
	CriterionSynthesisContext    Criterion = "synthesis-context"
)

// dataGovernanceCap bounds the data-governance selection to the first matches
// in traversal order. A cost bound, not a relevance rank.
const dataGovernanceCap = 5

// riskShortlist is the fixed candidate list for risk classification; files
// that do not exist in the repository are skipped silently.
var riskShortlist = []string{"README.md", "package.json", "requirements.txt", "pyproject.toml"}

// FileRecord is one selected file with its last-modifying-author metadata.
// Records are transient: produced here, consumed by the pipeline, never
// mutated.
type FileRecord struct {
	Path      string    `json:"path"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
	Link      string    `json:"link"`
}

// Stakeholder is the attribution side product of a selection run.
type Stakeholder struct {
	File      string    `json:"file"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Link      string    `json:"link"`
}

// Selector decides which repository files matter for a given analysis
// criterion and resolves them to FileRecords.
type Selector struct {
	host githost.Client
}

func New(host githost.Client) (*Selector, error) {
	if host == nil {
		return nil, errors.New("selector requires a hosting client")
	}
	return &Selector{host: host}, nil
}

// Select returns the FileRecords relevant to the criterion plus the parallel
// stakeholder metadata list. Paths whose content or commit metadata cannot be
// fetched are dropped silently.
func (s *Selector) Select(ctx context.Context, criterion Criterion, ref githost.RepositoryRef) ([]FileRecord, []Stakeholder, error) {
	logger := common.Logger()
	paths, err := s.collectPaths(ctx, criterion, ref)
	if err != nil {
		return nil, nil, fmt.Errorf("collect paths for %s: %w", criterion, err)
	}
	records := make([]FileRecord, 0, len(paths))
	stakeholders := make([]Stakeholder, 0, len(paths))
	for _, path := range paths {
		record, ok := s.resolve(ctx, ref, path)
		if !ok {
			continue
		}
		records = append(records, record)
		stakeholders = append(stakeholders, Stakeholder{
			File:      record.Path,
			Author:    record.Author,
			Timestamp: record.Timestamp,
			Link:      record.Link,
		})
	}
	logger.Debug("selector: selection complete", "criterion", string(criterion), "candidates", len(paths), "resolved", len(records))
	return records, stakeholders, nil
}

func (s *Selector) collectPaths(ctx context.Context, criterion Criterion, ref githost.RepositoryRef) ([]string, error) {
	switch criterion {
	case CriterionRiskClassification:
		return append([]string(nil), riskShortlist...), nil
	case CriterionDataGovernance:
		return githost.WalkFiles(ctx, s.host, ref, isDataGovernancePath, dataGovernanceCap)
	case CriterionTechnicalRobustness:
		return githost.WalkFiles(ctx, s.host, ref, isEntryPointPath, 0)
	case CriterionSynthesisContext:
		walked, err := githost.WalkFiles(ctx, s.host, ref, isSynthesisContextPath, 0)
		if err != nil {
			return nil, err
		}
		paths := append([]string(nil), riskShortlist...)
		seen := make(map[string]struct{}, len(paths))
		for _, p := range paths {
			seen[p] = struct{}{}
		}
		for _, p := range walked {
			if _, dup := seen[p]; dup {
				continue
			}
			paths = append(paths, p)
		}
		return paths, nil
	default:
		return nil, fmt.Errorf("unknown selection criterion %q", criterion)
	}
}

// isDataGovernancePath keeps tabular or structured-data files and anything
// that looks like a preprocessing script.
func isDataGovernancePath(path string) bool {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".sql") || strings.HasSuffix(lower, ".csv") {
		return true
	}
	return strings.Contains(lower, "preprocess")
}

// isEntryPointPath keeps API routes and inference entry points, excluding
// notebooks.
func isEntryPointPath(path string) bool {
	if strings.HasSuffix(strings.ToLower(path), ".ipynb") {
		return false
	}
	return strings.Contains(path, "main") || strings.Contains(path, "app") || strings.Contains(path, "index")
}

func isSynthesisContextPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.Contains(lower, "admin") || strings.Contains(lower, "config") || strings.Contains(lower, "utils")
}

// resolve fetches content and the most recent commit for path. Any fetch
// failure drops the path; the boolean reports whether a record was produced.
func (s *Selector) resolve(ctx context.Context, ref githost.RepositoryRef, path string) (FileRecord, bool) {
	logger := common.Logger()
	content, err := s.host.GetContent(ctx, ref, path)
	if err != nil {
		logger.Debug("selector: dropping path, content unavailable", "path", path, "error", err)
		return FileRecord{}, false
	}
	commit, err := s.host.LastCommit(ctx, ref, path)
	if err != nil {
		logger.Debug("selector: dropping path, commit metadata unavailable", "path", path, "error", err)
		return FileRecord{}, false
	}
	return FileRecord{
		Path:      path,
		Content:   content,
		Author:    commit.Author,
		Email:     commit.Email,
		Timestamp: commit.Timestamp,
		Link:      commit.Link,
	}, true
}
