package state

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stacksignal/pkg/analysis"
	"stacksignal/pkg/catalog"
	"stacksignal/pkg/detector"
	"stacksignal/pkg/repo"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var shop = repo.Reference{Owner: "octo", Repo: "shop"}

func newResult(ref *repo.Reference, status analysis.Status, at time.Time) *analysis.Result {
	toolID := "t-react"
	return &analysis.Result{
		ID:         uuid.New(),
		Source:     "https://github.com/octo/shop",
		Repository: ref,
		Branch:     "main",
		Status:     status,
		Files:      3,
		Detections: []catalog.ReconciledDetection{
			{
				RawDetection: detector.RawDetection{
					DetectedName:         "React",
					Category:             detector.CategoryFrontend,
					ConfidenceScore:      0.95,
					DetectionMethod:      detector.MethodPackageManifest,
					MatchedFilePaths:     []string{"package.json"},
					Version:              "18.2.0",
					EstimatedMonthlyCost: "0.00",
				},
				CatalogToolID:       &toolID,
				ResolvedMonthlyCost: decimal.Zero,
				MatchType:           catalog.MatchExact,
			},
		},
		Summary:   detector.Summarize(nil),
		CreatedAt: at,
	}
}

func TestNewStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got := NewStore("").Path(shop)
	want := filepath.Join(home, ".stacksignal", "state", "octo__shop.json")
	if got != want {
		t.Errorf("Expected record path %s, got %s", want, got)
	}
}

func TestLoad_Missing(t *testing.T) {
	store := NewStore(t.TempDir())

	state, err := store.Load(shop)
	if err != nil {
		t.Fatalf("Expected no error for missing record, got: %v", err)
	}
	if state.AnalysisCount != 0 {
		t.Errorf("Expected AnalysisCount 0, got %d", state.AnalysisCount)
	}
	if state.Repository != shop {
		t.Errorf("Expected repository %v, got %v", shop, state.Repository)
	}

	_, err = store.LastResult(shop)
	if !errors.Is(err, ErrNoRecord) {
		t.Errorf("Expected ErrNoRecord, got %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	if err := store.Save(newResult(&shop, analysis.StatusCompleted, first)); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if err := store.Save(newResult(&shop, analysis.StatusFailed, second)); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "octo__shop.json")); err != nil {
		t.Fatalf("Expected record file to exist: %v", err)
	}

	state, err := store.Load(shop)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if state.AnalysisCount != 2 {
		t.Errorf("Expected AnalysisCount 2, got %d", state.AnalysisCount)
	}
	if state.FailureCount != 1 {
		t.Errorf("Expected FailureCount 1, got %d", state.FailureCount)
	}
	if !state.FirstAnalyzed.Equal(first) {
		t.Errorf("Expected FirstAnalyzed %v, got %v", first, state.FirstAnalyzed)
	}
	if !state.LastAnalyzed.Equal(second) {
		t.Errorf("Expected LastAnalyzed %v, got %v", second, state.LastAnalyzed)
	}

	last, err := store.LastResult(shop)
	if err != nil {
		t.Fatalf("Failed to load last result: %v", err)
	}
	if last.Status != analysis.StatusFailed {
		t.Errorf("Expected last status failed, got %s", last.Status)
	}
	if len(last.Detections) != 1 {
		t.Fatalf("Expected 1 detection, got %d", len(last.Detections))
	}
	d := last.Detections[0]
	if d.DetectedName != "React" || d.Version != "18.2.0" {
		t.Errorf("Unexpected detection after round trip: %+v", d.RawDetection)
	}
	if d.CatalogToolID == nil || *d.CatalogToolID != "t-react" {
		t.Errorf("Expected catalog tool id t-react, got %v", d.CatalogToolID)
	}
}

func TestSave_RequiresRepository(t *testing.T) {
	store := NewStore(t.TempDir())

	if err := store.Save(newResult(nil, analysis.StatusCompleted, time.Now())); err == nil {
		t.Error("Expected error when saving an analysis without repository")
	}
	if err := store.Save(nil); err == nil {
		t.Error("Expected error when saving nil")
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	api := repo.Reference{Owner: "octo", Repo: "api"}
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := store.Save(newResult(&shop, analysis.StatusCompleted, base)); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if err := store.Save(newResult(&api, analysis.StatusCompleted, base.Add(time.Minute))); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	states, err := store.List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(states))
	}
	if states[0].Repository != api {
		t.Errorf("Expected most recent record first, got %v", states[0].Repository)
	}
}

func TestList_MissingDirectory(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "does-not-exist"))

	states, err := store.List()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(states) != 0 {
		t.Errorf("Expected no records, got %d", len(states))
	}
}

func TestDelete(t *testing.T) {
	store := NewStore(t.TempDir())

	if err := store.Save(newResult(&shop, analysis.StatusCompleted, time.Now())); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if err := store.Delete(shop); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if err := store.Delete(shop); err != nil {
		t.Errorf("Deleting a missing record should not fail: %v", err)
	}

	state, _ := store.Load(shop)
	if state.AnalysisCount != 0 {
		t.Errorf("Expected empty state after delete, got count %d", state.AnalysisCount)
	}
}

func TestPath_StaysInsideDirectory(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	p := store.Path(repo.Reference{Owner: "a/../../etc", Repo: "passwd"})
	if !strings.HasPrefix(p, dir) {
		t.Errorf("Expected path inside %s, got %s", dir, p)
	}
	if filepath.Dir(p) != dir {
		t.Errorf("Expected record directly inside %s, got %s", dir, p)
	}
}
