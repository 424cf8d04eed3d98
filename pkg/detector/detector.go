package detector

import (
	"github.com/rs/zerolog"
)

// Engine runs the detection rules of a registry over fetched repository files.
// It holds no per-analysis state, so one engine can serve concurrent analyses.
type Engine struct {
	registry *Registry
	log      zerolog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger used for recoverable problems such as unparsable manifests
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// NewEngine creates an engine over the given registry, or the built-in one when nil
func NewEngine(r *Registry, opts ...Option) *Engine {
	if r == nil {
		r = DefaultRegistry()
	}
	e := &Engine{
		registry: r,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the rules the engine evaluates
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Detect returns at most one detection per rule, in rule declaration order
func (e *Engine) Detect(files []RepositoryFile) []RawDetection {
	var out []RawDetection
	for _, p := range e.registry.patterns {
		relevant := RelevantFiles(files, p)
		if len(relevant) == 0 {
			continue
		}
		if d, ok := e.match(p, relevant); ok {
			out = append(out, d)
		}
	}

	e.log.Debug().
		Int("files", len(files)).
		Int("rules", len(e.registry.patterns)).
		Int("detections", len(out)).
		Msg("detection finished")
	return out
}

// AnalyzeRepository detects tools in the files and summarizes the result
func (e *Engine) AnalyzeRepository(files []RepositoryFile) ([]RawDetection, AnalysisSummary) {
	detections := e.Detect(files)
	return detections, Summarize(detections)
}
