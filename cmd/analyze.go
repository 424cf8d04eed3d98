package cmd

import (
	"errors"
	"fmt"
	"os"

	"stacksignal/cmd/ui/detection"
	"stacksignal/pkg/analysis"
	"stacksignal/pkg/repo"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <github-url>",
	Short: "Analyze a public GitHub repository",
	Long: `Fetch the candidate files of a GitHub repository, detect the tools it uses and
reconcile them with the tool catalog. The result is recorded under
~/.stacksignal/state and can be shown again with 'stacksignal report'.

Only https://github.com/<owner>/<repo> URLs are accepted.`,
	Example: `  stacksignal analyze https://github.com/vercel/next.js
  stacksignal analyze https://github.com/acme/shop --branch develop --json
  stacksignal analyze https://github.com/acme/shop --catalog postgres://localhost/catalog`,
	Args: cobra.ExactArgs(1),
	Run:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) {
	cfg := loadConfigOrExit(cmd)

	service, _, cleanup, err := buildService(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	var result *analysis.Result
	run := func(func(string)) {
		result, err = service.Analyze(cmd.Context(), args[0], cfg.DefaultBranch)
	}

	if !interactive() {
		run(func(string) {})
		if result != nil {
			printJSON(os.Stdout, result)
		}
		if err != nil {
			cleanup()
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	withSpinner("Fetching repository files...", run)
	if result == nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(detection.Render(result))
	if err != nil {
		cleanup()
		if errors.Is(err, repo.ErrRepositoryUnreachable) && !cfg.HasToken() {
			fmt.Printf("\n%s\n", tipMsgStyle.Render("Tip: Private repositories need a token, see 'stacksignal config set-token'"))
		}
		os.Exit(1)
	}
	fmt.Printf("\n%s\n", endingMsgStyle.Render("Analysis recorded. Run 'stacksignal report "+result.Source+"' to view it again."))
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("branch", "b", "", "Branch to analyze (defaults to the configured default_branch)")
	analyzeCmd.Flags().String("catalog", "", "Catalog file or postgres:// DSN (overrides config)")
}
