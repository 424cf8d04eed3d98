package repo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shop = Reference{Owner: "octo", Repo: "shop"}

type fakeGitHub struct {
	tree        []treeEntry
	files       map[string]string
	brokenFiles map[string]int
	treeStatus  []int // statuses returned before the tree is served

	treeHits atomic.Int32
	rawHits  atomic.Int32
	authSeen atomic.Value
}

func (g *fakeGitHub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/shop/git/trees/", func(w http.ResponseWriter, r *http.Request) {
		hit := int(g.treeHits.Add(1))
		g.authSeen.Store(r.Header.Get("Authorization"))
		if r.URL.Query().Get("recursive") != "1" {
			http.Error(w, "expected recursive listing", http.StatusBadRequest)
			return
		}
		if hit <= len(g.treeStatus) {
			w.WriteHeader(g.treeStatus[hit-1])
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(treeResponse{SHA: "abc123", Tree: g.tree})
	})
	mux.HandleFunc("/raw/octo/shop/main/", func(w http.ResponseWriter, r *http.Request) {
		g.rawHits.Add(1)
		p := strings.TrimPrefix(r.URL.Path, "/raw/octo/shop/main/")
		if status, ok := g.brokenFiles[p]; ok {
			w.WriteHeader(status)
			return
		}
		content, ok := g.files[p]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(content))
	})
	return mux
}

func newTestFetcher(t *testing.T, g *fakeGitHub, opts GitHubOptions) *GitHubFetcher {
	t.Helper()
	srv := httptest.NewServer(g.handler())
	t.Cleanup(srv.Close)

	opts.APIBaseURL = srv.URL
	opts.RawBaseURL = srv.URL + "/raw"
	if opts.Retry == nil {
		opts.Retry = &RetryPolicy{MaxRetries: 0, BaseDelay: time.Millisecond}
	}
	return NewGitHubFetcher(opts)
}

func blob(path string, size int64) treeEntry {
	return treeEntry{Path: path, Type: "blob", Size: size}
}

func TestGitHubFetcher_FetchFiles(t *testing.T) {
	g := &fakeGitHub{
		tree: []treeEntry{
			blob("package.json", 40),
			{Path: "web", Type: "tree"},
			blob("web/Dockerfile", 20),
			blob("docs/guide.md", 10),
			blob("requirements.txt", 5_000_000),
			blob("infra/main.tf", 30),
		},
		files: map[string]string{
			"package.json":   `{"dependencies":{"react":"^18.2.0"}}`,
			"web/Dockerfile": "FROM node:20-alpine\n",
			"docs/guide.md":  "# Guide",
		},
		brokenFiles: map[string]int{"infra/main.tf": http.StatusInternalServerError},
	}
	f := newTestFetcher(t, g, GitHubOptions{})

	files, err := f.FetchFiles(context.Background(), shop, "main")
	require.NoError(t, err)

	require.Len(t, files, 2, "non-candidates, oversized and unreadable files are left out")
	assert.Equal(t, "package.json", files[0].Path)
	assert.Equal(t, "package.json", files[0].Name)
	assert.Contains(t, files[0].Content, "react")
	assert.Equal(t, "web/Dockerfile", files[1].Path)
	assert.Equal(t, "Dockerfile", files[1].Name)
	assert.Equal(t, int64(len("FROM node:20-alpine\n")), files[1].Size)

	assert.Equal(t, int32(3), g.rawHits.Load(), "only candidate blobs within the size limit are downloaded")
	assert.Equal(t, "", g.authSeen.Load(), "no token, no authorization header")
}

func TestGitHubFetcher_TreeFailureIsFatal(t *testing.T) {
	g := &fakeGitHub{treeStatus: []int{http.StatusNotFound}}
	f := newTestFetcher(t, g, GitHubOptions{Retry: &RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}})

	files, err := f.FetchFiles(context.Background(), shop, "main")
	assert.Nil(t, files)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRepositoryUnreachable))

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.Equal(t, int32(1), g.treeHits.Load(), "client errors are not retried")
}

func TestGitHubFetcher_RetriesServerErrors(t *testing.T) {
	g := &fakeGitHub{
		treeStatus: []int{http.StatusBadGateway, http.StatusServiceUnavailable},
		tree:       []treeEntry{blob("go.mod", 20)},
		files:      map[string]string{"go.mod": "module example.com/shop\n"},
	}
	f := newTestFetcher(t, g, GitHubOptions{Retry: &RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}})

	files, err := f.FetchFiles(context.Background(), shop, "main")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, int32(3), g.treeHits.Load())
}

func TestGitHubFetcher_RetriesExhausted(t *testing.T) {
	g := &fakeGitHub{treeStatus: []int{500, 500, 500, 500}}
	f := newTestFetcher(t, g, GitHubOptions{Retry: &RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}})

	_, err := f.FetchFiles(context.Background(), shop, "main")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRepositoryUnreachable))
	assert.Equal(t, int32(3), g.treeHits.Load())
}

func TestGitHubFetcher_SendsToken(t *testing.T) {
	g := &fakeGitHub{tree: []treeEntry{}}
	f := newTestFetcher(t, g, GitHubOptions{Token: "ghp_secret"})

	files, err := f.FetchFiles(context.Background(), shop, "main")
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Equal(t, "Bearer ghp_secret", g.authSeen.Load())
}

func TestGitHubFetcher_MaxFilesAndCustomCandidate(t *testing.T) {
	g := &fakeGitHub{
		tree:  []treeEntry{blob("a.txt", 1), blob("b.txt", 1), blob("c.txt", 1)},
		files: map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"},
	}
	f := newTestFetcher(t, g, GitHubOptions{
		MaxFiles:    2,
		Concurrency: 1,
		Candidate:   func(p string) bool { return strings.HasSuffix(p, ".txt") },
	})

	files, err := f.FetchFiles(context.Background(), shop, "main")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", files[0].Path)
	assert.Equal(t, "b.txt", files[1].Path)
}

func TestGitHubFetcher_CanceledContext(t *testing.T) {
	g := &fakeGitHub{tree: []treeEntry{blob("package.json", 2)}, files: map[string]string{"package.json": "{}"}}
	f := newTestFetcher(t, g, GitHubOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.FetchFiles(ctx, shop, "main")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFetchError_Retryable(t *testing.T) {
	tests := []struct {
		name string
		err  *FetchError
		want bool
	}{
		{"server error", &FetchError{StatusCode: 500}, true},
		{"rate limited", &FetchError{StatusCode: 429}, true},
		{"not found", &FetchError{StatusCode: 404}, false},
		{"forbidden", &FetchError{StatusCode: 403}, false},
		{"network", &FetchError{Err: errors.New("connection reset by peer")}, true},
		{"canceled", &FetchError{Err: context.Canceled}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Retryable())
		})
	}
}
