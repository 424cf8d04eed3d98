package detector

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseCurrency reads a monetary amount such as "25", "$1,200.50" or " 9.99 ".
// Anything that is not a number yields zero.
func ParseCurrency(s string) decimal.Decimal {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Summarize rolls detections up into totals. It never fails; an empty list
// yields a zero summary.
func Summarize(detections []RawDetection) AnalysisSummary {
	summary := AnalysisSummary{
		TotalTools:         len(detections),
		TotalEstimatedCost: decimal.Zero,
		DistinctCategories: []string{},
	}
	if len(detections) == 0 {
		return summary
	}

	seen := map[string]bool{}
	var confidence float64
	for _, d := range detections {
		summary.TotalEstimatedCost = summary.TotalEstimatedCost.Add(ParseCurrency(d.EstimatedMonthlyCost))
		confidence += d.ConfidenceScore
		if !seen[d.Category] {
			seen[d.Category] = true
			summary.DistinctCategories = append(summary.DistinctCategories, d.Category)
		}
	}
	summary.AverageConfidence = confidence / float64(len(detections))
	return summary
}
