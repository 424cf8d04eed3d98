package analysis

import (
	"context"
	"fmt"
	"time"

	"stacksignal/pkg/catalog"
	"stacksignal/pkg/detector"
	"stacksignal/pkg/repo"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Status of an analysis
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Result is the outcome of one repository analysis
type Result struct {
	ID         uuid.UUID                     `json:"id"`
	Source     string                        `json:"source"`
	Repository *repo.Reference               `json:"repository,omitempty"`
	Branch     string                        `json:"branch,omitempty"`
	Status     Status                        `json:"status"`
	Error      string                        `json:"error,omitempty"`
	Files      int                           `json:"files_scanned"`
	Detections []catalog.ReconciledDetection `json:"detections"`
	Summary    detector.AnalysisSummary      `json:"summary"`
	// ResolvedMonthlyCost totals the catalog-resolved costs of all detections
	ResolvedMonthlyCost decimal.Decimal `json:"resolved_monthly_cost"`
	CreatedAt           time.Time       `json:"created_at"`
	Duration            time.Duration   `json:"duration_ns"`
}

// Recorder persists finished analyses
type Recorder interface {
	Save(result *Result) error
}

// Service wires the fetcher, the detection engine and the catalog together
type Service struct {
	fetcher       repo.Fetcher
	engine        *detector.Engine
	catalog       catalog.Store
	recorder      Recorder
	defaultBranch string
	log           zerolog.Logger
	now           func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithCatalog sets the catalog detections are reconciled against
func WithCatalog(store catalog.Store) Option {
	return func(s *Service) {
		s.catalog = store
	}
}

// WithRecorder stores every analysis of a known repository
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithDefaultBranch sets the branch analyzed when none is requested
func WithDefaultBranch(branch string) Option {
	return func(s *Service) {
		s.defaultBranch = branch
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// NewService creates a service. A nil engine uses the built-in rules.
func NewService(fetcher repo.Fetcher, engine *detector.Engine, opts ...Option) *Service {
	if engine == nil {
		engine = detector.NewEngine(nil)
	}
	s := &Service{
		fetcher: fetcher,
		engine:  engine,
		catalog: catalog.StaticStore(nil),
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the detection engine used by the service
func (s *Service) Engine() *detector.Engine {
	return s.engine
}

// Analyze validates the repository URL, fetches its files and runs the
// detection and reconciliation passes. An invalid URL returns only an error
// wrapping repo.ErrInvalidReference. Transport or catalog failures return a
// failed result together with the error.
func (s *Service) Analyze(ctx context.Context, rawURL, branch string) (*Result, error) {
	ref, err := repo.ParseRepositoryReference(rawURL)
	if err != nil {
		return nil, err
	}
	if s.fetcher == nil {
		return nil, fmt.Errorf("no repository fetcher configured")
	}
	if branch == "" {
		branch = s.defaultBranch
	}

	result := s.newResult(ref.URL(), ref, branch)
	log := s.log.With().Str("analysis_id", result.ID.String()).Str("repository", ref.String()).Logger()
	log.Info().Str("branch", branch).Msg("analysis started")

	files, err := s.fetcher.FetchFiles(ctx, *ref, branch)
	if err != nil {
		s.fail(result, err)
		log.Error().Err(err).Msg("analysis failed")
		return result, err
	}

	if err := s.complete(ctx, result, files); err != nil {
		log.Error().Err(err).Msg("analysis failed")
		return result, err
	}
	log.Info().
		Int("files", result.Files).
		Int("detections", len(result.Detections)).
		Dur("duration", result.Duration).
		Msg("analysis completed")
	return result, nil
}

// AnalyzeFiles runs detection and reconciliation over files that were
// already read, e.g. from a local checkout. ref may be nil.
func (s *Service) AnalyzeFiles(ctx context.Context, source string, ref *repo.Reference, files []detector.RepositoryFile) (*Result, error) {
	result := s.newResult(source, ref, "")
	if err := s.complete(ctx, result, files); err != nil {
		return result, err
	}
	return result, nil
}

// Reconcile links detections produced elsewhere to the catalog. A nil tools
// slice reconciles against the configured catalog store.
func (s *Service) Reconcile(ctx context.Context, detections []detector.RawDetection, tools []catalog.Tool) ([]catalog.ReconciledDetection, error) {
	if tools == nil {
		var err error
		if tools, err = s.catalog.Tools(ctx); err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
	}
	return catalog.ReconcileDetections(detections, tools), nil
}

func (s *Service) newResult(source string, ref *repo.Reference, branch string) *Result {
	return &Result{
		ID:         uuid.New(),
		Source:     source,
		Repository: ref,
		Branch:     branch,
		Detections: []catalog.ReconciledDetection{},
		Summary:    detector.Summarize(nil),
		CreatedAt:  s.now().UTC(),
	}
}

func (s *Service) complete(ctx context.Context, result *Result, files []detector.RepositoryFile) error {
	tools, err := s.catalog.Tools(ctx)
	if err != nil {
		err = fmt.Errorf("failed to load catalog: %w", err)
		s.fail(result, err)
		return err
	}

	detections, summary := s.engine.AnalyzeRepository(files)
	result.Files = len(files)
	result.Detections = catalog.ReconcileDetections(detections, tools)
	result.Summary = summary
	result.ResolvedMonthlyCost = decimal.Zero
	for _, d := range result.Detections {
		result.ResolvedMonthlyCost = result.ResolvedMonthlyCost.Add(d.ResolvedMonthlyCost)
	}
	result.Status = StatusCompleted
	result.Duration = s.now().Sub(result.CreatedAt)
	s.record(result)
	return nil
}

func (s *Service) fail(result *Result, err error) {
	result.Status = StatusFailed
	result.Error = err.Error()
	result.Duration = s.now().Sub(result.CreatedAt)
	s.record(result)
}

// record keeps the last analysis per repository; a storage problem never
// fails the analysis itself
func (s *Service) record(result *Result) {
	if s.recorder == nil || result.Repository == nil {
		return
	}
	if err := s.recorder.Save(result); err != nil {
		s.log.Warn().Err(err).Str("repository", result.Repository.String()).Msg("failed to record analysis")
	}
}
