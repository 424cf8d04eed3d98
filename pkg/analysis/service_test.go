package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"stacksignal/pkg/catalog"
	"stacksignal/pkg/detector"
	"stacksignal/pkg/repo"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	files  []detector.RepositoryFile
	err    error
	calls  int
	ref    repo.Reference
	branch string
}

func (f *fakeFetcher) FetchFiles(_ context.Context, ref repo.Reference, branch string) ([]detector.RepositoryFile, error) {
	f.calls++
	f.ref = ref
	f.branch = branch
	return f.files, f.err
}

type memoryRecorder struct {
	saved []*Result
	err   error
}

func (m *memoryRecorder) Save(r *Result) error {
	m.saved = append(m.saved, r)
	return m.err
}

type failingCatalog struct{}

func (failingCatalog) Tools(context.Context) ([]catalog.Tool, error) {
	return nil, errors.New("catalog offline")
}

func shopFiles() []detector.RepositoryFile {
	pkg := `{"dependencies": {"react": "^18.2.0", "stripe": "^14.0.0"}}`
	return []detector.RepositoryFile{
		{Name: "package.json", Path: "package.json", Content: pkg, Size: int64(len(pkg))},
		{Name: "Dockerfile", Path: "Dockerfile", Content: "FROM node:20\n", Size: 13},
	}
}

func TestAnalyze_Completed(t *testing.T) {
	fetcher := &fakeFetcher{files: shopFiles()}
	recorder := &memoryRecorder{}
	tools := catalog.StaticStore{
		{ID: "t-react", Name: "React", Category: detector.CategoryFrontend, Pricing: "Free"},
		{ID: "t-docker", Name: "Docker", Category: detector.CategoryDevOps, Pricing: "Team plan $9/month"},
	}
	svc := NewService(fetcher, nil, WithCatalog(tools), WithRecorder(recorder), WithDefaultBranch("main"))

	result, err := svc.Analyze(context.Background(), "https://github.com/octo/shop.git", "")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.NotEqual(t, uuid.Nil, result.ID)
	assert.Equal(t, "https://github.com/octo/shop", result.Source)
	require.NotNil(t, result.Repository)
	assert.Equal(t, "octo/shop", result.Repository.String())
	assert.Equal(t, "main", result.Branch)
	assert.Equal(t, "main", fetcher.branch)
	assert.Equal(t, 2, result.Files)
	assert.Empty(t, result.Error)

	names := map[string]catalog.ReconciledDetection{}
	for _, d := range result.Detections {
		names[d.DetectedName] = d
	}
	require.Contains(t, names, "React")
	require.Contains(t, names, "Docker")
	require.Contains(t, names, "Stripe")
	assert.Equal(t, "t-react", *names["React"].CatalogToolID)
	assert.Equal(t, "9.00", names["Docker"].ResolvedMonthlyCost.StringFixed(2))
	assert.Nil(t, names["Stripe"].CatalogToolID)

	assert.Equal(t, len(result.Detections), result.Summary.TotalTools)

	want := names["React"].ResolvedMonthlyCost.
		Add(names["Docker"].ResolvedMonthlyCost).
		Add(names["Stripe"].ResolvedMonthlyCost)
	assert.True(t, want.Equal(result.ResolvedMonthlyCost))

	require.Len(t, recorder.saved, 1)
	assert.Same(t, result, recorder.saved[0])
}

func TestAnalyze_ExplicitBranch(t *testing.T) {
	fetcher := &fakeFetcher{}
	svc := NewService(fetcher, nil, WithDefaultBranch("main"))

	result, err := svc.Analyze(context.Background(), "https://github.com/octo/shop", "release/2.0")
	require.NoError(t, err)
	assert.Equal(t, "release/2.0", fetcher.branch)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Empty(t, result.Detections)
	assert.Equal(t, 0, result.Summary.TotalTools)
}

func TestAnalyze_InvalidReference(t *testing.T) {
	fetcher := &fakeFetcher{}
	recorder := &memoryRecorder{}
	svc := NewService(fetcher, nil, WithRecorder(recorder))

	result, err := svc.Analyze(context.Background(), "https://github.com/../evil", "")
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errors.Is(err, repo.ErrInvalidReference))
	assert.Zero(t, fetcher.calls, "invalid references never reach the network")
	assert.Empty(t, recorder.saved)
}

func TestAnalyze_UnreachableRepository(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("%w: list repository tree failed with status 404", repo.ErrRepositoryUnreachable)}
	recorder := &memoryRecorder{}
	svc := NewService(fetcher, nil, WithRecorder(recorder))

	result, err := svc.Analyze(context.Background(), "https://github.com/octo/missing", "main")
	require.Error(t, err)
	assert.True(t, errors.Is(err, repo.ErrRepositoryUnreachable))

	require.NotNil(t, result)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Error, "repository unreachable")
	assert.Empty(t, result.Detections)
	require.Len(t, recorder.saved, 1)
	assert.Equal(t, StatusFailed, recorder.saved[0].Status)
}

func TestAnalyze_CatalogFailure(t *testing.T) {
	svc := NewService(&fakeFetcher{files: shopFiles()}, nil, WithCatalog(failingCatalog{}))

	result, err := svc.Analyze(context.Background(), "https://github.com/octo/shop", "main")
	require.Error(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Error, "catalog offline")
}

func TestAnalyze_RecorderErrorDoesNotFail(t *testing.T) {
	recorder := &memoryRecorder{err: errors.New("disk full")}
	svc := NewService(&fakeFetcher{files: shopFiles()}, nil, WithRecorder(recorder))

	result, err := svc.Analyze(context.Background(), "https://github.com/octo/shop", "main")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Len(t, recorder.saved, 1)
}

func TestAnalyzeFiles(t *testing.T) {
	recorder := &memoryRecorder{}
	svc := NewService(nil, nil, WithRecorder(recorder))

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	result, err := svc.AnalyzeFiles(context.Background(), "/src/shop", nil, shopFiles())
	require.NoError(t, err)
	assert.Equal(t, "/src/shop", result.Source)
	assert.Nil(t, result.Repository)
	assert.Equal(t, start, result.CreatedAt)
	assert.NotEmpty(t, result.Detections)
	assert.Empty(t, recorder.saved, "analyses without a repository are not recorded")

	ref := &repo.Reference{Owner: "octo", Repo: "shop"}
	_, err = svc.AnalyzeFiles(context.Background(), "/src/shop", ref, shopFiles())
	require.NoError(t, err)
	assert.Len(t, recorder.saved, 1)
}

func TestAnalyze_NoFetcher(t *testing.T) {
	svc := NewService(nil, nil)
	_, err := svc.Analyze(context.Background(), "https://github.com/octo/shop", "")
	assert.Error(t, err)
}

func TestReconcile(t *testing.T) {
	store := catalog.StaticStore{{ID: "t-stripe", Name: "Stripe", Category: detector.CategoryPayments}}
	svc := NewService(nil, nil, WithCatalog(store))
	detections := []detector.RawDetection{{DetectedName: "Stripe", Category: detector.CategoryPayments, EstimatedMonthlyCost: "0.00"}}

	out, err := svc.Reconcile(context.Background(), detections, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].CatalogToolID)
	assert.Equal(t, "t-stripe", *out[0].CatalogToolID)

	out, err = svc.Reconcile(context.Background(), detections, []catalog.Tool{})
	require.NoError(t, err)
	assert.Nil(t, out[0].CatalogToolID, "an explicit empty catalog overrides the store")

	_, err = NewService(nil, nil, WithCatalog(failingCatalog{})).Reconcile(context.Background(), detections, nil)
	assert.ErrorContains(t, err, "catalog offline")
}
