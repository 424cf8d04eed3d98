package detection

import (
	"fmt"
	"sort"
	"strings"

	"stacksignal/pkg/analysis"
	"stacksignal/pkg/catalog"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle        = lipgloss.NewStyle().Background(lipgloss.Color("#01FAC6")).Foreground(lipgloss.Color("#030303")).Bold(true).Padding(0, 1, 0)
	focusedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#01FAC6")).Bold(true)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(1).Foreground(lipgloss.Color("170")).Bold(true)
	descriptionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#40BDA3"))
	helpStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	warnStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#01FAC6")).
			Padding(1, 2).
			Width(72)
)

const barWidth = 10

// Render formats an analysis result for the terminal
func Render(result *analysis.Result) string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Stack Detection Results"))
	s.WriteString("\n\n")

	var content strings.Builder
	content.WriteString(focusedStyle.Render("Source: "))
	content.WriteString(selectedItemStyle.Render(result.Source))
	content.WriteString("\n")
	if result.Repository != nil {
		content.WriteString(focusedStyle.Render("Repository: "))
		content.WriteString(selectedItemStyle.Render(result.Repository.String()))
		if result.Branch != "" {
			content.WriteString(helpStyle.Render(" @ " + result.Branch))
		}
		content.WriteString("\n")
	}
	content.WriteString(focusedStyle.Render("Files scanned: "))
	content.WriteString(selectedItemStyle.Render(fmt.Sprintf("%d", result.Files)))
	content.WriteString("\n\n")

	if result.Status == analysis.StatusFailed {
		content.WriteString(errorStyle.Render("✗ Analysis failed: "))
		content.WriteString(descriptionStyle.Render(result.Error))
		s.WriteString(boxStyle.Render(content.String()))
		return s.String()
	}

	if len(result.Detections) == 0 {
		content.WriteString(helpStyle.Render("No tools detected"))
	}

	for i, group := range groupByCategory(result.Detections) {
		if i > 0 {
			content.WriteString("\n")
		}
		content.WriteString(focusedStyle.Render(strings.ToUpper(group.category)))
		content.WriteString("\n")
		for _, d := range group.detections {
			content.WriteString(detectionLine(d))
			content.WriteString("\n")
		}
	}

	if len(result.Detections) > 0 {
		content.WriteString("\n")
		content.WriteString(summaryLines(result))
	}

	s.WriteString(boxStyle.Render(strings.TrimRight(content.String(), "\n")))
	return s.String()
}

type categoryGroup struct {
	category   string
	detections []catalog.ReconciledDetection
}

// groupByCategory keeps categories sorted and detections by descending confidence
func groupByCategory(detections []catalog.ReconciledDetection) []categoryGroup {
	index := map[string]int{}
	var groups []categoryGroup
	for _, d := range detections {
		i, ok := index[d.Category]
		if !ok {
			i = len(groups)
			index[d.Category] = i
			groups = append(groups, categoryGroup{category: d.Category})
		}
		groups[i].detections = append(groups[i].detections, d)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].category < groups[j].category })
	for _, g := range groups {
		sort.SliceStable(g.detections, func(i, j int) bool {
			return g.detections[i].ConfidenceScore > g.detections[j].ConfidenceScore
		})
	}
	return groups
}

func detectionLine(d catalog.ReconciledDetection) string {
	var line strings.Builder
	line.WriteString(successStyle.Render("  ✓ "))
	line.WriteString(selectedItemStyle.Render(d.DetectedName))
	if d.Version != "" {
		line.WriteString(helpStyle.Render(" " + d.Version))
	}
	line.WriteString(" ")
	line.WriteString(confidenceBar(d.ConfidenceScore))
	line.WriteString(helpStyle.Render(fmt.Sprintf(" %.0f%%", d.ConfidenceScore*100)))

	switch {
	case d.MatchType.Accepted():
		line.WriteString(descriptionStyle.Render(fmt.Sprintf("  [%s]", d.MatchType)))
	case d.SuggestedToolID != nil:
		line.WriteString(warnStyle.Render("  [suggested: " + *d.SuggestedToolID + "]"))
	}

	line.WriteString("\n      ")
	line.WriteString(helpStyle.Render(d.DetectionMethod + " · " + d.PrimaryPath()))
	if d.ResolvedMonthlyCost.IsPositive() {
		line.WriteString(helpStyle.Render(" · $" + d.ResolvedMonthlyCost.StringFixed(2) + "/mo"))
	}
	return line.String()
}

func confidenceBar(score float64) string {
	filled := int(score*barWidth + 0.5)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	style := successStyle
	if score < 0.7 {
		style = warnStyle
	}
	return style.Render(strings.Repeat("█", filled)) + helpStyle.Render(strings.Repeat("░", barWidth-filled))
}

func summaryLines(result *analysis.Result) string {
	var s strings.Builder
	s.WriteString(focusedStyle.Render("Tools: "))
	s.WriteString(selectedItemStyle.Render(fmt.Sprintf("%d", result.Summary.TotalTools)))
	s.WriteString(focusedStyle.Render("   Avg confidence: "))
	s.WriteString(selectedItemStyle.Render(fmt.Sprintf("%.0f%%", result.Summary.AverageConfidence*100)))
	s.WriteString("\n")
	s.WriteString(focusedStyle.Render("Estimated monthly cost: "))
	s.WriteString(selectedItemStyle.Render("$" + result.Summary.TotalEstimatedCost.StringFixed(2)))
	s.WriteString(focusedStyle.Render("   Catalog-resolved: "))
	s.WriteString(selectedItemStyle.Render("$" + result.ResolvedMonthlyCost.StringFixed(2)))
	return s.String()
}
