// File path: internal/selector/selector_test.go
package selector

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/FilipDolejsi/JuriCode/internal/githost"
)

// fakeHost serves an in-memory repository tree in a fixed listing order.
type fakeHost struct {
	tree     map[string][]githost.TreeEntry
	contents map[string]string
	commits  map[string]*githost.Commit
	broken   map[string]bool
}

func (f *fakeHost) Resolve(ctx context.Context, url string) (githost.RepositoryRef, error) {
	return githost.ParseRepoURL(url)
}

func (f *fakeHost) ListTree(ctx context.Context, ref githost.RepositoryRef, path string) ([]githost.TreeEntry, error) {
	entries, ok := f.tree[path]
	if !ok {
		return nil, fmt.Errorf("no such directory %q", path)
	}
	return entries, nil
}

func (f *fakeHost) GetContent(ctx context.Context, ref githost.RepositoryRef, path string) (string, error) {
	if f.broken[path] {
		return "", fmt.Errorf("%s: unavailable", path)
	}
	content, ok := f.contents[path]
	if !ok {
		return "", fmt.Errorf("%s: no such file", path)
	}
	return content, nil
}

func (f *fakeHost) LastCommit(ctx context.Context, ref githost.RepositoryRef, path string) (*githost.Commit, error) {
	if commit, ok := f.commits[path]; ok {
		return commit, nil
	}
	return &githost.Commit{Author: "Alice", Email: "alice@example.com", Timestamp: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), Link: "https://example.com/c/" + path}, nil
}

func file(path string) githost.TreeEntry {
	name := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		name = path[idx+1:]
	}
	return githost.TreeEntry{Name: name, Path: path, Type: githost.EntryTypeFile}
}

func dir(path string) githost.TreeEntry {
	return githost.TreeEntry{Name: path, Path: path, Type: githost.EntryTypeDir}
}

var testRef = githost.RepositoryRef{Owner: "acme", Name: "scoring"}

func TestDataGovernanceCapsAtFirstFiveInTraversalOrder(t *testing.T) {
	// Eight qualifying files in traversal order a..h; expect exactly a..e.
	host := &fakeHost{
		tree: map[string][]githost.TreeEntry{
			"": {file("a.csv"), file("b.sql"), file("c.csv"), dir("data")},
			"data": {
				file("data/d.sql"), file("data/e.csv"), file("data/f.csv"),
				file("data/g.sql"), file("data/h_preprocess.py"),
			},
		},
		contents: map[string]string{
			"a.csv": "a", "b.sql": "b", "c.csv": "c",
			"data/d.sql": "d", "data/e.csv": "e", "data/f.csv": "f",
			"data/g.sql": "g", "data/h_preprocess.py": "h",
		},
	}
	sel, err := New(host)
	if err != nil {
		t.Fatalf("new selector: %v", err)
	}
	records, _, err := sel.Select(context.Background(), CriterionDataGovernance, testRef)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	want := []string{"a.csv", "b.sql", "c.csv", "data/d.sql", "data/e.csv"}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(records))
	}
	for i, path := range want {
		if records[i].Path != path {
			t.Fatalf("position %d: expected %s, got %s", i, path, records[i].Path)
		}
	}
}

func TestRiskShortlistSkipsMissingFiles(t *testing.T) {
	host := &fakeHost{
		tree:     map[string][]githost.TreeEntry{"": {file("README.md")}},
		contents: map[string]string{"README.md": "# credit scoring"},
	}
	sel, _ := New(host)
	records, stakeholders, err := sel.Select(context.Background(), CriterionRiskClassification, testRef)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(records) != 1 || records[0].Path != "README.md" {
		t.Fatalf("expected only README.md, got %+v", records)
	}
	if len(stakeholders) != 1 || stakeholders[0].Author != "Alice" {
		t.Fatalf("expected stakeholder metadata for README.md, got %+v", stakeholders)
	}
}

func TestTechnicalRobustnessExcludesNotebooks(t *testing.T) {
	host := &fakeHost{
		tree: map[string][]githost.TreeEntry{
			"":    {file("main.py"), file("app_notebook.ipynb"), dir("src")},
			"src": {file("src/index.js"), file("src/helper.go")},
		},
		contents: map[string]string{
			"main.py": "import fastapi", "src/index.js": "export {}",
		},
	}
	sel, _ := New(host)
	records, _, err := sel.Select(context.Background(), CriterionTechnicalRobustness, testRef)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	want := []string{"main.py", "src/index.js"}
	if len(records) != len(want) {
		t.Fatalf("expected %v, got %+v", want, records)
	}
	for i, path := range want {
		if records[i].Path != path {
			t.Fatalf("position %d: expected %s, got %s", i, path, records[i].Path)
		}
	}
}

func TestSynthesisContextUnionsShortlistAndMarkers(t *testing.T) {
	host := &fakeHost{
		tree: map[string][]githost.TreeEntry{
			"": {file("README.md"), file("config.yaml"), file("notes.txt")},
		},
		contents: map[string]string{
			"README.md": "# scoring", "config.yaml": "debug: true",
		},
	}
	sel, _ := New(host)
	records, _, err := sel.Select(context.Background(), CriterionSynthesisContext, testRef)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	want := []string{"README.md", "config.yaml"}
	if len(records) != len(want) {
		t.Fatalf("expected %v, got %+v", want, records)
	}
	for i, path := range want {
		if records[i].Path != path {
			t.Fatalf("position %d: expected %s, got %s", i, path, records[i].Path)
		}
	}
}

func TestSelectDropsUnfetchablePathsSilently(t *testing.T) {
	host := &fakeHost{
		tree: map[string][]githost.TreeEntry{
			"": {file("a.csv"), file("b.csv")},
		},
		contents: map[string]string{"a.csv": "x", "b.csv": "y"},
		broken:   map[string]bool{"a.csv": true},
	}
	sel, _ := New(host)
	records, _, err := sel.Select(context.Background(), CriterionDataGovernance, testRef)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(records) != 1 || records[0].Path != "b.csv" {
		t.Fatalf("expected broken path dropped, got %+v", records)
	}
}

func TestBuildContextKeepsPlaceholderForEmptyContent(t *testing.T) {
	records := []FileRecord{
		{Path: "README.md", Content: "# scoring"},
		{Path: "data/empty.csv", Content: "   \n"},
	}
	contextText := BuildContext(records)
	if !strings.Contains(contextText, "--- FILE: README.md ---") {
		t.Fatalf("missing file header in context: %q", contextText)
	}
	if !strings.Contains(contextText, "--- FILE: data/empty.csv ---") {
		t.Fatalf("empty file missing from context: %q", contextText)
	}
	if !strings.Contains(contextText, NoContentPlaceholder) {
		t.Fatalf("expected no-content placeholder in context: %q", contextText)
	}
}
