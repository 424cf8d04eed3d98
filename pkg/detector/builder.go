package detector

// DetectionBuilder assembles a RawDetection for a pattern that fired.
// Confidence adjustments are accumulated and clamped only once in Build.
type DetectionBuilder struct {
	pattern    *DetectionPattern
	confidence float64
	version    string
	paths      []string
	evidence   Evidence
}

// NewDetectionBuilder starts a detection at the pattern's base confidence
func NewDetectionBuilder(p *DetectionPattern) *DetectionBuilder {
	return &DetectionBuilder{
		pattern:    p,
		confidence: p.BaseConfidence,
	}
}

// WithEvidence records the matched substring and the file it came from
func (b *DetectionBuilder) WithEvidence(match string, file RepositoryFile) *DetectionBuilder {
	b.evidence = Evidence{Match: match, File: file.Name}
	return b
}

// WithVersion sets the version and adds the version bonus if one was extracted
func (b *DetectionBuilder) WithVersion(version string) *DetectionBuilder {
	if version == "" {
		return b
	}
	b.version = version
	b.confidence += BonusVersion
	return b
}

// WithPaths sets the matched file paths, primary first, and adds the
// corroboration bonus when more than one relevant file was found
func (b *DetectionBuilder) WithPaths(primary string, relevant []RepositoryFile) *DetectionBuilder {
	b.paths = append(b.paths[:0], primary)
	for _, f := range relevant {
		if f.Path != primary {
			b.paths = append(b.paths, f.Path)
		}
	}
	if len(relevant) > 1 {
		b.confidence += BonusCorroboration
	}
	return b
}

// Confidence returns the unclamped confidence accumulated so far
func (b *DetectionBuilder) Confidence() float64 {
	return b.confidence
}

// Build finalizes the detection
func (b *DetectionBuilder) Build() RawDetection {
	return RawDetection{
		DetectedName:         b.pattern.Name,
		Category:             b.pattern.Category,
		ConfidenceScore:      clamp(b.confidence, 0, MaxConfidence),
		DetectionMethod:      DetectionMethod(b.paths),
		MatchedFilePaths:     b.paths,
		Version:              b.version,
		EstimatedMonthlyCost: b.pattern.CostEstimate.StringFixed(2),
		Evidence:             b.evidence,
	}
}

// clamp constrains a value between lo and hi
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
