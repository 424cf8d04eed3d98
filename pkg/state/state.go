package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"stacksignal/pkg/analysis"
	"stacksignal/pkg/config"
	"stacksignal/pkg/repo"
)

// ErrNoRecord is returned when a repository has never been analyzed
var ErrNoRecord = errors.New("no analysis recorded for repository")

// RepositoryState tracks the analysis history of a single repository
type RepositoryState struct {
	Repository    repo.Reference   `json:"repository"`
	FirstAnalyzed time.Time        `json:"first_analyzed,omitempty"`
	LastAnalyzed  time.Time        `json:"last_analyzed,omitempty"`
	AnalysisCount int              `json:"analysis_count"`
	FailureCount  int              `json:"failure_count"`
	LastBranch    string           `json:"last_branch,omitempty"`
	LastResult    *analysis.Result `json:"last_result,omitempty"`
}

// Store keeps one JSON file per repository
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a store rooted at dir, or the configured state directory
// when empty
func NewStore(dir string) *Store {
	if dir == "" {
		dir = config.GetStatePath()
	}
	return &Store{dir: dir}
}

// Path returns the record file of a repository
func (s *Store) Path(ref repo.Reference) string {
	name := filepath.Base(ref.Owner) + "__" + filepath.Base(ref.Repo)
	return filepath.Join(s.dir, name+".json")
}

// Load returns the recorded state of a repository, or an empty state when the
// repository has never been analyzed
func (s *Store) Load(ref repo.Reference) (*RepositoryState, error) {
	data, err := os.ReadFile(s.Path(ref))
	if errors.Is(err, os.ErrNotExist) {
		return &RepositoryState{Repository: ref}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state RepositoryState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	return &state, nil
}

// Save records a finished analysis as the repository's latest result
func (s *Store) Save(result *analysis.Result) error {
	if result == nil || result.Repository == nil {
		return fmt.Errorf("analysis has no repository to record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.Load(*result.Repository)
	if err != nil {
		return err
	}

	state.Repository = *result.Repository
	if state.FirstAnalyzed.IsZero() {
		state.FirstAnalyzed = result.CreatedAt
	}
	state.LastAnalyzed = result.CreatedAt
	state.AnalysisCount++
	if result.Status == analysis.StatusFailed {
		state.FailureCount++
	}
	state.LastBranch = result.Branch
	state.LastResult = result

	return s.write(state)
}

// LastResult returns the most recent analysis of a repository
func (s *Store) LastResult(ref repo.Reference) (*analysis.Result, error) {
	state, err := s.Load(ref)
	if err != nil {
		return nil, err
	}
	if state.LastResult == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoRecord, ref)
	}
	return state.LastResult, nil
}

// List returns every recorded repository, most recently analyzed first
func (s *Store) List() ([]RepositoryState, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	var states []RepositoryState
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read state file: %w", err)
		}
		var state RepositoryState
		if err := json.Unmarshal(data, &state); err != nil {
			// Skip foreign or corrupted files
			continue
		}
		states = append(states, state)
	}

	sort.SliceStable(states, func(i, j int) bool {
		return states[i].LastAnalyzed.After(states[j].LastAnalyzed)
	})
	return states, nil
}

// Delete removes the record of a repository
func (s *Store) Delete(ref repo.Reference) error {
	if err := os.Remove(s.Path(ref)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}

func (s *Store) write(state *RepositoryState) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Readers only ever see a complete file
	path := s.Path(state.Repository)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
