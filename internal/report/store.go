// File path: internal/report/store.go
package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/FilipDolejsi/JuriCode/internal/common"
)

// ErrNotFound is returned when no report exists for a (repository, category)
// key.
var ErrNotFound = errors.New("report not found")

// Report is one persisted audit report. At most one live row exists per
// (repository, category) pair; a newer run replaces the content in place.
type Report struct {
	ID        int64     `json:"id"`
	RepoURL   string    `json:"repo_url"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	Verdict   string    `json:"verdict,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type reportRow struct {
	ID        int64  `db:"id"`
	RepoURL   string `db:"repo_url"`
	Category  string `db:"category"`
	Content   string `db:"report_content"`
	Verdict   string `db:"verdict"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

// Store persists audit reports in the agent_reports table.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("report store requires a database")
	}
	return &Store{db: db}, nil
}

// Upsert inserts or replaces the report for (repoURL, category). The original
// created_at survives replacement so that listing order stays stable across
// repeated runs.
func (s *Store) Upsert(ctx context.Context, repoURL, category, content, verdict string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	const stmt = `INSERT INTO agent_reports (repo_url, category, report_content, verdict, created_at, updated_at)
                VALUES (?, ?, ?, ?, ?, ?)
                ON CONFLICT(repo_url, category) DO UPDATE SET
                        report_content = excluded.report_content,
                        verdict = excluded.verdict,
                        updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, stmt, repoURL, category, content, verdict, now, now); err != nil {
		return fmt.Errorf("upsert report %s/%s: %w", repoURL, category, err)
	}
	common.Logger().Debug("report: upserted", "repo", repoURL, "category", category, "bytes", len(content))
	return nil
}

// Get returns the report stored for (repoURL, category) or ErrNotFound.
func (s *Store) Get(ctx context.Context, repoURL, category string) (*Report, error) {
	var row reportRow
	const stmt = `SELECT id, repo_url, category, report_content, verdict, created_at, updated_at
                FROM agent_reports WHERE repo_url = ? AND category = ?`
	if err := s.db.GetContext(ctx, &row, stmt, repoURL, category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", repoURL, category, ErrNotFound)
		}
		return nil, fmt.Errorf("load report %s/%s: %w", repoURL, category, err)
	}
	rep := row.toReport()
	return &rep, nil
}

// ListOrdered returns every report for the repository ordered by creation time
// ascending, matching the insertion order of the category pipelines.
func (s *Store) ListOrdered(ctx context.Context, repoURL string) ([]Report, error) {
	var rows []reportRow
	const stmt = `SELECT id, repo_url, category, report_content, verdict, created_at, updated_at
                FROM agent_reports WHERE repo_url = ? ORDER BY created_at ASC, id ASC`
	if err := s.db.SelectContext(ctx, &rows, stmt, repoURL); err != nil {
		return nil, fmt.Errorf("list reports for %s: %w", repoURL, err)
	}
	out := make([]Report, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toReport())
	}
	return out, nil
}

// Repositories returns the distinct repository URLs with stored reports,
// newest activity first.
func (s *Store) Repositories(ctx context.Context) ([]string, error) {
	var urls []string
	const stmt = `SELECT repo_url FROM agent_reports GROUP BY repo_url ORDER BY MAX(updated_at) DESC`
	if err := s.db.SelectContext(ctx, &urls, stmt); err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	return urls, nil
}

func (r reportRow) toReport() Report {
	return Report{
		ID:        r.ID,
		RepoURL:   r.RepoURL,
		Category:  r.Category,
		Content:   r.Content,
		Verdict:   r.Verdict,
		CreatedAt: parseStoredTime(r.CreatedAt),
		UpdatedAt: parseStoredTime(r.UpdatedAt),
	}
}

func parseStoredTime(value string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
