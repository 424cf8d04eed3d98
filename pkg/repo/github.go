package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"stacksignal/pkg/detector"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultAPIBaseURL  = "https://api.github.com"
	DefaultRawBaseURL  = "https://raw.githubusercontent.com"
	DefaultMaxFiles    = 300
	DefaultConcurrency = 8
	defaultTimeout     = 30 * time.Second
)

// GitHubOptions configures a GitHubFetcher. Zero values fall back to defaults.
type GitHubOptions struct {
	Token       string
	APIBaseURL  string
	RawBaseURL  string
	MaxFiles    int
	MaxFileSize int64
	Concurrency int
	Retry       *RetryPolicy
	HTTPClient  *http.Client
	Logger      zerolog.Logger

	// Candidate selects which tree paths are downloaded. Defaults to the
	// built-in rule table's triggers.
	Candidate func(path string) bool
}

// GitHubFetcher lists a repository tree through the GitHub REST API and
// downloads the candidate files from the raw content host
type GitHubFetcher struct {
	client      *http.Client
	apiBase     string
	rawBase     string
	maxFiles    int
	maxFileSize int64
	concurrency int
	retry       RetryPolicy
	candidate   func(string) bool
	log         zerolog.Logger
}

type treeResponse struct {
	SHA       string      `json:"sha"`
	Truncated bool        `json:"truncated"`
	Tree      []treeEntry `json:"tree"`
}

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// NewGitHubFetcher creates a fetcher. A non-empty token authenticates every
// request through an oauth2 static token source.
func NewGitHubFetcher(opts GitHubOptions) *GitHubFetcher {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if opts.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, client)
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		authed := oauth2.NewClient(ctx, ts)
		authed.Timeout = client.Timeout
		client = authed
	}

	f := &GitHubFetcher{
		client:      client,
		apiBase:     strings.TrimRight(firstNonEmpty(opts.APIBaseURL, DefaultAPIBaseURL), "/"),
		rawBase:     strings.TrimRight(firstNonEmpty(opts.RawBaseURL, DefaultRawBaseURL), "/"),
		maxFiles:    opts.MaxFiles,
		maxFileSize: opts.MaxFileSize,
		concurrency: opts.Concurrency,
		retry:       DefaultRetryPolicy(),
		candidate:   opts.Candidate,
		log:         opts.Logger,
	}
	if opts.Retry != nil {
		f.retry = *opts.Retry
	}
	if f.maxFiles <= 0 {
		f.maxFiles = DefaultMaxFiles
	}
	if f.maxFileSize <= 0 {
		f.maxFileSize = detector.DefaultMaxFileSize
	}
	if f.concurrency <= 0 {
		f.concurrency = DefaultConcurrency
	}
	if f.candidate == nil {
		f.candidate = detector.DefaultRegistry().IsCandidatePath
	}
	return f
}

// FetchFiles returns the candidate files of the repository at branch (HEAD
// when empty). Failing to list the tree is fatal and wraps
// ErrRepositoryUnreachable; a file that cannot be downloaded is left out.
func (f *GitHubFetcher) FetchFiles(ctx context.Context, ref Reference, branch string) ([]detector.RepositoryFile, error) {
	if branch == "" {
		branch = "HEAD"
	}

	entries, err := f.listTree(ctx, ref, branch)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepositoryUnreachable, err)
	}

	selected := f.selectEntries(entries)
	f.log.Debug().
		Str("repository", ref.String()).
		Str("branch", branch).
		Int("tree_entries", len(entries)).
		Int("selected", len(selected)).
		Msg("fetching repository files")

	results := make([]*detector.RepositoryFile, len(selected))
	var mu sync.Mutex
	missing := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, entry := range selected {
		g.Go(func() error {
			content, err := f.fetchRaw(gctx, ref, branch, entry.Path)
			if err != nil {
				f.log.Warn().Err(err).Str("path", entry.Path).Msg("skipping unreadable file")
				mu.Lock()
				missing++
				mu.Unlock()
				return nil
			}
			results[i] = &detector.RepositoryFile{
				Name:    baseName(entry.Path),
				Path:    entry.Path,
				Content: content,
				Size:    int64(len(content)),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files := make([]detector.RepositoryFile, 0, len(selected)-missing)
	for _, r := range results {
		if r != nil {
			files = append(files, *r)
		}
	}
	return files, nil
}

func (f *GitHubFetcher) listTree(ctx context.Context, ref Reference, branch string) ([]treeEntry, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		f.apiBase, url.PathEscape(ref.Owner), url.PathEscape(ref.Repo), escapePath(branch))

	var tree treeResponse
	err := f.retry.do(ctx, func(ctx context.Context) error {
		body, err := f.get(ctx, "list repository tree", endpoint, "application/vnd.github+json", 0)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &tree); err != nil {
			return fmt.Errorf("failed to decode repository tree: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if tree.Truncated {
		f.log.Warn().Str("repository", ref.String()).Msg("repository tree truncated, some files were not listed")
	}
	return tree.Tree, nil
}

func (f *GitHubFetcher) selectEntries(entries []treeEntry) []treeEntry {
	var selected []treeEntry
	for _, e := range entries {
		if e.Type != "blob" || e.Size > f.maxFileSize || !f.candidate(e.Path) {
			continue
		}
		if len(selected) == f.maxFiles {
			f.log.Warn().Int("max_files", f.maxFiles).Msg("file limit reached, remaining candidates ignored")
			break
		}
		selected = append(selected, e)
	}
	return selected
}

func (f *GitHubFetcher) fetchRaw(ctx context.Context, ref Reference, branch, filePath string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/%s/%s",
		f.rawBase, url.PathEscape(ref.Owner), url.PathEscape(ref.Repo), escapePath(branch), escapePath(filePath))

	var content string
	err := f.retry.do(ctx, func(ctx context.Context) error {
		body, err := f.get(ctx, "download "+filePath, endpoint, "", f.maxFileSize)
		if err != nil {
			return err
		}
		content = string(body)
		return nil
	})
	return content, err
}

// get performs a GET request. A positive limit rejects larger bodies.
func (f *GitHubFetcher) get(ctx context.Context, operation, endpoint, accept string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set("User-Agent", "stacksignal")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{Operation: operation, StatusCode: resp.StatusCode}
	}

	var reader io.Reader = resp.Body
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &FetchError{Operation: operation, Err: err}
	}
	if limit > 0 && int64(len(body)) > limit {
		return nil, errFileTooLarge
	}
	return body, nil
}

var errFileTooLarge = errors.New("file exceeds size limit")

func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func baseName(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
