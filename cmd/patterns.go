package cmd

import (
	"fmt"
	"os"
	"strings"

	"stacksignal/pkg/detector"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var patternsCategory string

var (
	patternCategoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#01FAC6")).Bold(true)
	patternNameStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true).Width(24)
	patternMutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the detection rules",
	Long: `List the detection rules, including those added through the configured rules_file.

Categories: ` + strings.Join(detector.Categories, ", "),
	Args: cobra.NoArgs,
	Run:  runPatterns,
}

func runPatterns(cmd *cobra.Command, args []string) {
	cfg := loadConfigOrExit(cmd)
	engine, err := buildEngine(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	patterns := filterPatterns(engine.Registry().Patterns(), patternsCategory)
	if len(patterns) == 0 && patternsCategory != "" {
		fmt.Fprintf(os.Stderr, "Error: no rules in category '%s'\n", patternsCategory)
		os.Exit(1)
	}

	if !interactive() {
		printJSON(os.Stdout, patterns)
		return
	}

	current := ""
	for _, p := range patterns {
		if p.Category != current {
			current = p.Category
			fmt.Printf("\n%s\n", patternCategoryStyle.Render(strings.ToUpper(current)))
		}
		fmt.Printf("  %s %s\n",
			patternNameStyle.Render(p.Name),
			patternMutedStyle.Render(fmt.Sprintf("confidence %.2f · $%s/mo · %s",
				p.BaseConfidence, p.CostEstimate.StringFixed(2), strings.Join(p.FileTriggers, ", "))))
	}
	fmt.Printf("\n%s\n", tipMsgStyle.Render(fmt.Sprintf("%d rules", len(patterns))))
}

// filterPatterns keeps the rules of one category, grouped by category
func filterPatterns(patterns []detector.DetectionPattern, category string) []detector.DetectionPattern {
	var out []detector.DetectionPattern
	for _, c := range categoryOrder(patterns) {
		if category != "" && !strings.EqualFold(c, category) {
			continue
		}
		for _, p := range patterns {
			if p.Category == c {
				out = append(out, p)
			}
		}
	}
	return out
}

// categoryOrder lists the categories in order of first appearance
func categoryOrder(patterns []detector.DetectionPattern) []string {
	seen := map[string]bool{}
	var order []string
	for _, p := range patterns {
		if !seen[p.Category] {
			seen[p.Category] = true
			order = append(order, p.Category)
		}
	}
	return order
}

func init() {
	rootCmd.AddCommand(patternsCmd)

	patternsCmd.Flags().StringVarP(&patternsCategory, "category", "c", "", "Only list rules of this category")
}
