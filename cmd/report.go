package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"stacksignal/cmd/ui/detection"
	"stacksignal/pkg/config"
	"stacksignal/pkg/repo"
	"stacksignal/pkg/state"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var reportForget bool

var (
	reportHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#01FAC6")).Bold(true)
	reportNameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	reportMutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	reportFailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var reportCmd = &cobra.Command{
	Use:   "report [github-url]",
	Short: "Show recorded analyses",
	Long: `Without arguments, list every repository analyzed so far. With a GitHub URL,
show the last analysis recorded for that repository.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runReport,
}

func runReport(cmd *cobra.Command, args []string) {
	store := state.NewStore(config.GetStatePath())

	if len(args) == 0 {
		listReports(store)
		return
	}

	ref, err := repo.ParseRepositoryReference(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if reportForget {
		if err := store.Delete(*ref); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s\n", endingMsgStyle.Render("Record for "+ref.String()+" removed"))
		return
	}

	result, err := store.LastResult(*ref)
	if err != nil {
		if errors.Is(err, state.ErrNoRecord) {
			fmt.Fprintf(os.Stderr, "Error: no analysis recorded for %s\n", ref)
			fmt.Fprintf(os.Stderr, "\nRun 'stacksignal analyze %s' first\n", ref.URL())
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	if !interactive() {
		printJSON(os.Stdout, result)
		return
	}
	fmt.Println(detection.Render(result))
}

func listReports(store *state.Store) {
	states, err := store.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !interactive() {
		if states == nil {
			states = []state.RepositoryState{}
		}
		printJSON(os.Stdout, states)
		return
	}

	if len(states) == 0 {
		fmt.Println(reportMutedStyle.Render("No analyses recorded yet. Run 'stacksignal analyze <github-url>' to create one."))
		return
	}

	fmt.Printf("%s\n\n", reportHeaderStyle.Render("Recorded analyses:"))
	for _, s := range states {
		branch := s.LastBranch
		if branch == "" {
			branch = "local checkout"
		}
		fmt.Printf("  %s %s\n", reportNameStyle.Render(s.Repository.String()), reportMutedStyle.Render("@ "+branch))

		line := fmt.Sprintf("    last %s · %d runs", s.LastAnalyzed.Local().Format(time.DateTime), s.AnalysisCount)
		if s.LastResult != nil && len(s.LastResult.Detections) > 0 {
			line += fmt.Sprintf(" · %d tools", len(s.LastResult.Detections))
		}
		fmt.Println(reportMutedStyle.Render(line))
		if s.FailureCount > 0 {
			fmt.Println(reportFailStyle.Render(fmt.Sprintf("    %d failed", s.FailureCount)))
		}
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().BoolVar(&reportForget, "forget", false, "Remove the recorded analysis instead of showing it")
}
