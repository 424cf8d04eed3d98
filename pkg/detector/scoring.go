package detector

// Confidence adjustments applied on top of a pattern's base confidence.
// They are applied in a fixed order: base, version, corroboration, clamp.

const (
	// BonusVersion is added when a version could be read from a dependency manifest
	BonusVersion = 0.05

	// BonusCorroboration is added when more than one file matched the pattern's triggers
	// Examples: Dockerfile plus docker-compose.yml, two package.json files in a monorepo
	BonusCorroboration = 0.02

	// MaxConfidence is the ceiling every detection is clamped to
	MaxConfidence = 1.0
)
