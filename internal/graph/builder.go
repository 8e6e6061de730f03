// File path: internal/graph/builder.go
package graph

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/FilipDolejsi/JuriCode/internal/common"
	"github.com/FilipDolejsi/JuriCode/internal/common/telemetry"
	"github.com/FilipDolejsi/JuriCode/internal/githost"
)

// graphExtensions is the fixed set of text-bearing file types walked during a
// build. Everything else is skipped without a fetch.
var graphExtensions = map[string]struct{}{
	".py":   {},
	".js":   {},
	".ts":   {},
	".go":   {},
	".sql":  {},
	".md":   {},
	".json": {},
}

// Builder converts per-file commit metadata across one or more repositories
// into a deduplicated ownership graph. A build is a full recompute; nothing
// accumulates across calls.
type Builder struct {
	host githost.Client
}

func NewBuilder(host githost.Client) (*Builder, error) {
	if host == nil {
		return nil, errors.New("graph builder requires a hosting client")
	}
	return &Builder{host: host}, nil
}

// StakeholderID derives the stable identity for a commit author: the email
// when present, otherwise the display name. The display name is always kept
// as the node label.
func StakeholderID(commit *githost.Commit) string {
	if commit == nil {
		return ""
	}
	if email := strings.TrimSpace(commit.Email); email != "" {
		return strings.ToLower(email)
	}
	return strings.TrimSpace(commit.Author)
}

// build state for one multi-repository run. The seen set is shared across all
// repositories in the call, so identical ids collapse to one node; the first
// writer wins and later attribute updates for a repeated id are dropped.
type buildState struct {
	graph *Graph
	seen  map[string]struct{}
}

func newBuildState() *buildState {
	return &buildState{graph: &Graph{}, seen: make(map[string]struct{})}
}

func (s *buildState) addNode(node Node) {
	if _, ok := s.seen[node.ID]; ok {
		return
	}
	s.seen[node.ID] = struct{}{}
	s.graph.Nodes = append(s.graph.Nodes, node)
}

func (s *buildState) addEdge(from, to, label string) {
	s.graph.Edges = append(s.graph.Edges, Edge{From: from, To: to, Label: label})
}

// Build walks every repository URL in order and returns the combined graph.
// Repositories are processed strictly one at a time; the shared seen set is
// never touched concurrently.
func (b *Builder) Build(ctx context.Context, urls []string) (*Graph, error) {
	if len(urls) == 0 {
		return nil, errors.New("graph build requires at least one repository url")
	}
	state := newBuildState()
	for _, url := range urls {
		if err := b.buildRepo(ctx, url, state); err != nil {
			return nil, err
		}
	}
	telemetry.RecordGraphBuild(len(state.graph.Nodes))
	return state.graph, nil
}

// Progress is one streaming build notification. The final event carries the
// completed graph; an event with a non-nil Err terminates the stream.
type Progress struct {
	Repo  string `json:"repo,omitempty"`
	Index int    `json:"index"`
	Total int    `json:"total"`
	Done  bool   `json:"done"`
	Graph *Graph `json:"graph,omitempty"`
	Err   error  `json:"-"`
}

// BuildStream runs the build on a worker goroutine and emits one event per
// repository plus a final event with the result. The channel closes when the
// build finishes or fails.
func (b *Builder) BuildStream(ctx context.Context, urls []string) <-chan Progress {
	events := make(chan Progress, len(urls)+1)
	go func() {
		defer close(events)
		if len(urls) == 0 {
			events <- Progress{Err: errors.New("graph build requires at least one repository url")}
			return
		}
		state := newBuildState()
		for i, url := range urls {
			if err := b.buildRepo(ctx, url, state); err != nil {
				events <- Progress{Repo: url, Index: i + 1, Total: len(urls), Err: err}
				return
			}
			events <- Progress{Repo: url, Index: i + 1, Total: len(urls)}
		}
		telemetry.RecordGraphBuild(len(state.graph.Nodes))
		events <- Progress{Index: len(urls), Total: len(urls), Done: true, Graph: state.graph}
	}()
	return events
}

func (b *Builder) buildRepo(ctx context.Context, url string, state *buildState) error {
	logger := common.Logger()
	ref, err := b.host.Resolve(ctx, url)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", url, err)
	}
	repoID := ref.ID()
	state.addNode(Node{ID: repoID, Label: repoID, Kind: KindRepository, Attributes: map[string]string{"url": url}})

	files, err := githost.WalkFiles(ctx, b.host, ref, isGraphPath, 0)
	if err != nil {
		return fmt.Errorf("walk %s: %w", url, err)
	}
	for _, filePath := range files {
		commit, err := b.host.LastCommit(ctx, ref, filePath)
		if err != nil || commit == nil {
			// A file with no reachable history contributes nothing.
			logger.Debug("graph: skipping file without commit metadata", "repo", repoID, "path", filePath)
			continue
		}
		stakeholderID := StakeholderID(commit)
		if stakeholderID == "" {
			continue
		}
		clusterID := repoID + "/" + filePath
		state.addNode(Node{
			ID:    stakeholderID,
			Label: strings.TrimSpace(commit.Author),
			Kind:  KindStakeholder,
			Attributes: map[string]string{
				"email": strings.TrimSpace(commit.Email),
			},
		})
		state.addNode(Node{
			ID:    clusterID,
			Label: filePath,
			Kind:  KindCluster,
			Attributes: map[string]string{
				"repository":    repoID,
				"last_modified": commit.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
				"link":          commit.Link,
			},
		})
		state.addEdge(stakeholderID, clusterID, EdgeAuthored)
		state.addEdge(clusterID, repoID, EdgeBelongsTo)
	}
	logger.Info("graph: repository processed", "repo", repoID, "files", len(files))
	return nil
}

// ResolveStakeholder returns the most recent commit metadata for one file,
// the lookup behind the per-node ownership endpoint.
func (b *Builder) ResolveStakeholder(ctx context.Context, url, filePath string) (*githost.Commit, error) {
	ref, err := b.host.Resolve(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", url, err)
	}
	commit, err := b.host.LastCommit(ctx, ref, filePath)
	if err != nil {
		return nil, fmt.Errorf("last commit for %s: %w", filePath, err)
	}
	if commit == nil {
		return nil, fmt.Errorf("no commit history for %s", filePath)
	}
	return commit, nil
}

func isGraphPath(p string) bool {
	_, ok := graphExtensions[strings.ToLower(path.Ext(p))]
	return ok
}
