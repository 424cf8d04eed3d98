package catalog

import (
	"strings"

	"stacksignal/pkg/detector"
)

// ReconcileDetections links every detection to the catalog snapshot. The
// catalog is only read, so the same snapshot can serve concurrent calls.
func ReconcileDetections(detections []detector.RawDetection, tools []Tool) []ReconciledDetection {
	out := make([]ReconciledDetection, 0, len(detections))
	for _, d := range detections {
		out = append(out, Reconcile(d, tools))
	}
	return out
}

// Reconcile links a single detection. An accepted match sets CatalogToolID and
// may take the monthly cost from the tool's pricing; otherwise the closest
// same-category tool by name becomes the suggestion.
func Reconcile(d detector.RawDetection, tools []Tool) ReconciledDetection {
	r := ReconciledDetection{
		RawDetection:        d,
		ResolvedMonthlyCost: detector.ParseCurrency(d.EstimatedMonthlyCost),
	}

	if tool, match := MatchTool(d, tools); tool != nil {
		id := tool.ID
		r.CatalogToolID = &id
		r.MatchType = match
		if cost, ok := MonthlyCost(tool.Pricing); ok {
			r.ResolvedMonthlyCost = cost
		}
		return r
	}

	if tool, score := SuggestTool(d, tools); tool != nil {
		id := tool.ID
		r.SuggestedToolID = &id
		r.MatchType = MatchSimilarity
		r.Similarity = score
	}
	return r
}

// MatchTool runs the exact, partial and category passes in that order. The
// first pass with a hit wins; within a pass the first tool in catalog order wins.
func MatchTool(d detector.RawDetection, tools []Tool) (*Tool, MatchType) {
	name := strings.ToLower(d.DetectedName)

	for i := range tools {
		if strings.ToLower(tools[i].Name) == name {
			return &tools[i], MatchExact
		}
	}

	if name != "" {
		for i := range tools {
			toolName := strings.ToLower(tools[i].Name)
			if toolName == "" {
				continue
			}
			if strings.Contains(toolName, name) || strings.Contains(name, toolName) {
				return &tools[i], MatchPartial
			}
		}

		for i := range tools {
			if tools[i].Category != d.Category {
				continue
			}
			if strings.Contains(strings.ToLower(tools[i].Name), name) || frameworksContain(tools[i].Frameworks, name) {
				return &tools[i], MatchCategory
			}
		}
	}

	return nil, MatchNone
}

func frameworksContain(frameworks []string, name string) bool {
	for _, fw := range frameworks {
		if strings.Contains(strings.ToLower(fw), name) {
			return true
		}
	}
	return false
}

// SuggestTool returns the same-category tool whose name is most similar to the
// detected name. Ties go to the earliest tool. Nil when the category is empty.
func SuggestTool(d detector.RawDetection, tools []Tool) (*Tool, float64) {
	var (
		best      *Tool
		bestScore float64
	)
	for i := range tools {
		if tools[i].Category != d.Category {
			continue
		}
		score := Similarity(d.DetectedName, tools[i].Name)
		if best == nil || score > bestScore {
			best = &tools[i]
			bestScore = score
		}
	}
	return best, bestScore
}
