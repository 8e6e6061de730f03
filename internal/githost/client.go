// File path: internal/githost/client.go
package githost

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RepositoryRef identifies a hosted repository resolved from a URL. It is
// immutable once resolved.
type RepositoryRef struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// ID returns the repository identifier used across reports and graph nodes:
// the tail segment of the hosting URL.
func (r RepositoryRef) ID() string { return r.Name }

func (r RepositoryRef) String() string { return r.Owner + "/" + r.Name }

const (
	EntryTypeFile = "file"
	EntryTypeDir  = "dir"
)

// TreeEntry is one listing entry returned by the hosting API.
type TreeEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

// Commit carries the metadata of the most recent commit touching a path.
type Commit struct {
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
	Link      string    `json:"link"`
}

// Client is the Git-hosting API consumed by the selector and graph builder.
type Client interface {
	Resolve(ctx context.Context, url string) (RepositoryRef, error)
	ListTree(ctx context.Context, ref RepositoryRef, path string) ([]TreeEntry, error)
	GetContent(ctx context.Context, ref RepositoryRef, path string) (string, error)
	LastCommit(ctx context.Context, ref RepositoryRef, path string) (*Commit, error)
}

var errInvalidRepoURL = errors.New("repository url must end in owner/name")

// ParseRepoURL extracts the owner/name pair from the tail of a hosting URL.
func ParseRepoURL(url string) (RepositoryRef, error) {
	trimmed := strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(url), "/"), ".git")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return RepositoryRef{}, fmt.Errorf("%w: %q", errInvalidRepoURL, url)
	}
	owner := strings.TrimSpace(parts[len(parts)-2])
	name := strings.TrimSpace(parts[len(parts)-1])
	if owner == "" || name == "" {
		return RepositoryRef{}, fmt.Errorf("%w: %q", errInvalidRepoURL, url)
	}
	return RepositoryRef{Owner: owner, Name: name}, nil
}
