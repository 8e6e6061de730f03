// File path: internal/githost/github.go
package githost

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FilipDolejsi/JuriCode/internal/common"
	"github.com/FilipDolejsi/JuriCode/internal/common/telemetry"
)

// GitHubClient talks to the GitHub REST v3 contents and commits endpoints.
type GitHubClient struct {
	httpClient *http.Client
	transport  *http.Transport
	baseURL    string
	token      string
}

var errNotFound = errors.New("resource not found")

// IsNotFound reports whether err represents a missing path on the hosting API.
func IsNotFound(err error) bool { return errors.Is(err, errNotFound) }

func NewGitHub(cfg Config) *GitHubClient {
	logger := common.Logger()
	logger.Info("githost: initializing github client", "base_url", cfg.BaseURL, "timeout", cfg.Timeout, "authenticated", cfg.Token != "")
	transport := &http.Transport{
		MaxIdleConns:        cfg.HTTPMaxIdleConns,
		MaxIdleConnsPerHost: cfg.HTTPMaxIdlePerHost,
		IdleConnTimeout:     cfg.HTTPIdleConnTimeout,
	}
	return &GitHubClient{
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		transport:  transport,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
	}
}

// Resolve parses the owner/name tail of the URL and verifies the repository
// exists on the hosting API.
func (c *GitHubClient) Resolve(ctx context.Context, repoURL string) (RepositoryRef, error) {
	ref, err := ParseRepoURL(repoURL)
	if err != nil {
		return RepositoryRef{}, err
	}
	endpoint := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, url.PathEscape(ref.Owner), url.PathEscape(ref.Name))
	if err := c.doRequest(ctx, endpoint, nil); err != nil {
		return RepositoryRef{}, fmt.Errorf("resolve %s: %w", ref, err)
	}
	return ref, nil
}

type contentEntry struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// ListTree returns the direct entries under path in the order the hosting API
// reports them. The selector depends on this order being stable.
func (c *GitHubClient) ListTree(ctx context.Context, ref RepositoryRef, path string) ([]TreeEntry, error) {
	endpoint := c.contentsEndpoint(ref, path)
	var entries []contentEntry
	if err := c.doRequest(ctx, endpoint, &entries); err != nil {
		return nil, err
	}
	out := make([]TreeEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, TreeEntry{Name: e.Name, Path: e.Path, Type: e.Type})
	}
	return out, nil
}

// GetContent fetches and decodes a file's content. Missing files surface as a
// not-found error the caller may drop silently.
func (c *GitHubClient) GetContent(ctx context.Context, ref RepositoryRef, path string) (string, error) {
	endpoint := c.contentsEndpoint(ref, path)
	var entry contentEntry
	if err := c.doRequest(ctx, endpoint, &entry); err != nil {
		return "", err
	}
	if entry.Encoding != "" && entry.Encoding != "base64" {
		return "", fmt.Errorf("unsupported content encoding %q for %s", entry.Encoding, path)
	}
	compact := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, entry.Content)
	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return "", fmt.Errorf("decode content for %s: %w", path, err)
	}
	return string(decoded), nil
}

type commitEntry struct {
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Author struct {
			Name  string    `json:"name"`
			Email string    `json:"email"`
			Date  time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// LastCommit returns the single most recent commit touching path.
func (c *GitHubClient) LastCommit(ctx context.Context, ref RepositoryRef, path string) (*Commit, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/commits?path=%s&per_page=1",
		c.baseURL, url.PathEscape(ref.Owner), url.PathEscape(ref.Name), url.QueryEscape(path))
	var commits []commitEntry
	if err := c.doRequest(ctx, endpoint, &commits); err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, fmt.Errorf("no commits recorded for %s: %w", path, errNotFound)
	}
	first := commits[0]
	return &Commit{
		Author:    first.Commit.Author.Name,
		Email:     first.Commit.Author.Email,
		Timestamp: first.Commit.Author.Date,
		Link:      first.HTMLURL,
	}, nil
}

func (c *GitHubClient) contentsEndpoint(ref RepositoryRef, path string) string {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents", c.baseURL, url.PathEscape(ref.Owner), url.PathEscape(ref.Name))
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return endpoint
	}
	segments := strings.Split(trimmed, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return endpoint + "/" + strings.Join(segments, "/")
}

func (c *GitHubClient) doRequest(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	telemetry.RecordHostRequest(err)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", endpoint, errNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("github GET %s failed: %s", endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Close releases pooled connections.
func (c *GitHubClient) Close() error {
	if c != nil && c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	return nil
}

var _ Client = (*GitHubClient)(nil)
