package catalog

import (
	"stacksignal/pkg/detector"

	"github.com/shopspring/decimal"
)

// Tool is a canonical catalog entry
type Tool struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Category   string   `json:"category" yaml:"category"`
	Frameworks []string `json:"frameworks,omitempty" yaml:"frameworks,omitempty"`
	Pricing    string   `json:"pricing,omitempty" yaml:"pricing,omitempty"`
}

// MatchType tells how a detection was linked to the catalog
type MatchType string

const (
	MatchNone       MatchType = ""
	MatchExact      MatchType = "exact"
	MatchPartial    MatchType = "partial"
	MatchCategory   MatchType = "category"
	MatchSimilarity MatchType = "similarity"
)

// Accepted reports whether the match links the detection to a catalog tool.
// Similarity matches are suggestions only.
func (m MatchType) Accepted() bool {
	return m == MatchExact || m == MatchPartial || m == MatchCategory
}

// ReconciledDetection is a raw detection linked to the catalog
type ReconciledDetection struct {
	detector.RawDetection

	// CatalogToolID is set only when an exact, partial or category match was accepted
	CatalogToolID *string `json:"catalog_tool_id"`
	// SuggestedToolID is the nearest same-category tool when nothing was accepted
	SuggestedToolID     *string         `json:"suggested_tool_id"`
	ResolvedMonthlyCost decimal.Decimal `json:"resolved_monthly_cost"`
	MatchType           MatchType       `json:"match_type,omitempty"`
	Similarity          float64         `json:"similarity,omitempty"`
}
