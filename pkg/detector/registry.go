package detector

import (
	_ "embed"
	"fmt"
	"regexp"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var builtinPatterns []byte

type patternFile struct {
	Patterns []*DetectionPattern `yaml:"patterns"`
}

// Registry holds the detection rules. It is read-only once built and safe for
// concurrent use.
type Registry struct {
	patterns []*DetectionPattern
	byName   map[string]*DetectionPattern
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the built-in rule table. A malformed built-in table
// is a programmer error and panics.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = MustLoadRegistry(builtinPatterns)
	})
	return defaultRegistry
}

// MustLoadRegistry is like LoadRegistry but panics on error
func MustLoadRegistry(data []byte) *Registry {
	r, err := LoadRegistry(data)
	if err != nil {
		panic(err)
	}
	return r
}

// LoadRegistry parses and validates a YAML rule table
func LoadRegistry(data []byte) (*Registry, error) {
	r := &Registry{byName: map[string]*DetectionPattern{}}
	if err := r.add(data); err != nil {
		return nil, err
	}
	return r, nil
}

// WithRules returns a new registry with the rules in data appended after the
// existing ones. The receiver is left untouched.
func (r *Registry) WithRules(data []byte) (*Registry, error) {
	out := &Registry{
		patterns: slices.Clone(r.patterns),
		byName:   make(map[string]*DetectionPattern, len(r.byName)),
	}
	for k, v := range r.byName {
		out.byName[k] = v
	}
	if err := out.add(data); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Registry) add(data []byte) error {
	var file patternFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse detection rules: %w", err)
	}
	if len(file.Patterns) == 0 {
		return fmt.Errorf("no detection rules defined")
	}

	for i, p := range file.Patterns {
		if err := p.compile(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		if _, dup := r.byName[p.Name]; dup {
			return fmt.Errorf("rule %d: duplicate rule name %q", i, p.Name)
		}
		r.byName[p.Name] = p
		r.patterns = append(r.patterns, p)
	}
	return nil
}

// compile validates the rule and compiles its content patterns
func (p *DetectionPattern) compile() error {
	if p.Name == "" {
		return fmt.Errorf("rule has no name")
	}
	if !slices.Contains(Categories, p.Category) {
		return fmt.Errorf("%s: unknown category %q", p.Name, p.Category)
	}
	if p.BaseConfidence <= 0 || p.BaseConfidence > 1 {
		return fmt.Errorf("%s: base confidence %v outside (0,1]", p.Name, p.BaseConfidence)
	}
	if len(p.FileTriggers) == 0 {
		return fmt.Errorf("%s: at least one file trigger is required", p.Name)
	}
	if len(p.ContentPatterns) == 0 {
		return fmt.Errorf("%s: at least one content pattern is required", p.Name)
	}
	if p.CostEstimate.IsNegative() {
		return fmt.Errorf("%s: negative cost estimate", p.Name)
	}

	p.compiled = make([]*regexp.Regexp, 0, len(p.ContentPatterns))
	for _, expr := range p.ContentPatterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			return fmt.Errorf("%s: invalid content pattern %q: %w", p.Name, expr, err)
		}
		p.compiled = append(p.compiled, re)
	}
	return nil
}

// Len returns the number of rules
func (r *Registry) Len() int {
	return len(r.patterns)
}

// Patterns returns a copy of the rules in declaration order
func (r *Registry) Patterns() []DetectionPattern {
	out := make([]DetectionPattern, len(r.patterns))
	for i, p := range r.patterns {
		out[i] = p.clone()
	}
	return out
}

// Lookup returns the rule with the given name
func (r *Registry) Lookup(name string) (DetectionPattern, bool) {
	p, ok := r.byName[name]
	if !ok {
		return DetectionPattern{}, false
	}
	return p.clone(), true
}

// IsCandidatePath reports whether any rule would consider a file at this path relevant.
// Transports use it to avoid downloading files no rule looks at.
func (r *Registry) IsCandidatePath(filePath string) bool {
	f := RepositoryFile{Path: filePath, Name: baseName(filePath)}
	for _, p := range r.patterns {
		if p.Relevant(f) {
			return true
		}
	}
	return false
}

func (p *DetectionPattern) clone() DetectionPattern {
	c := *p
	c.FileTriggers = slices.Clone(p.FileTriggers)
	c.ContentPatterns = slices.Clone(p.ContentPatterns)
	c.DependencyKeys = slices.Clone(p.DependencyKeys)
	c.compiled = slices.Clone(p.compiled)
	return c
}
