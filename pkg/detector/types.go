package detector

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// Stack categories a detection pattern may belong to
const (
	CategoryFrontend   = "Frontend/Design"
	CategoryBackend    = "Backend/Database"
	CategoryDevOps     = "DevOps/Infrastructure"
	CategoryHosting    = "Hosting/Cloud"
	CategoryTesting    = "Testing/QA"
	CategoryMonitoring = "Analytics/Monitoring"
	CategoryPayments   = "Payments"
	CategoryAuth       = "Authentication"
	CategoryComms      = "Communication"
	CategoryAI         = "AI/ML"
)

// Categories lists every valid stack category in display order
var Categories = []string{
	CategoryFrontend,
	CategoryBackend,
	CategoryDevOps,
	CategoryHosting,
	CategoryTesting,
	CategoryMonitoring,
	CategoryPayments,
	CategoryAuth,
	CategoryComms,
	CategoryAI,
}

// DetectionPattern is a single rule describing which files and content signatures
// imply that a tool is in use
type DetectionPattern struct {
	Name            string          `yaml:"name" json:"name"`
	Category        string          `yaml:"category" json:"category"`
	FileTriggers    []string        `yaml:"file_triggers" json:"file_triggers"`
	ContentPatterns []string        `yaml:"content_patterns" json:"content_patterns"`
	DependencyKeys  []string        `yaml:"dependency_keys,omitempty" json:"dependency_keys,omitempty"`
	BaseConfidence  float64         `yaml:"base_confidence" json:"base_confidence"`
	CostEstimate    decimal.Decimal `yaml:"cost_estimate" json:"cost_estimate"`

	compiled []*regexp.Regexp
}

// RepositoryFile is a file fetched from a repository
type RepositoryFile struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"content"`
	Size    int64  `json:"size"`
}

// Evidence records what made a pattern fire
type Evidence struct {
	Match string `json:"match"`
	File  string `json:"file"`
}

// RawDetection is a tool detected by the signal matcher, before catalog reconciliation
type RawDetection struct {
	DetectedName         string   `json:"detected_name"`
	Category             string   `json:"category"`
	ConfidenceScore      float64  `json:"confidence_score"`
	DetectionMethod      string   `json:"detection_method"`
	MatchedFilePaths     []string `json:"matched_file_paths"`
	Version              string   `json:"version,omitempty"`
	EstimatedMonthlyCost string   `json:"estimated_monthly_cost"`
	Evidence             Evidence `json:"evidence"`
}

// PrimaryPath returns the file the detection was found in
func (d RawDetection) PrimaryPath() string {
	if len(d.MatchedFilePaths) == 0 {
		return ""
	}
	return d.MatchedFilePaths[0]
}

// AnalysisSummary rolls up all detections of one analysis
type AnalysisSummary struct {
	TotalTools         int             `json:"total_tools"`
	TotalEstimatedCost decimal.Decimal `json:"total_estimated_cost"`
	AverageConfidence  float64         `json:"average_confidence"`
	DistinctCategories []string        `json:"distinct_categories"`
}
