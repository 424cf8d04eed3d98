package cmd

import (
	"context"
	"fmt"
	"os"

	"stacksignal/cmd/ui/detection"
	"stacksignal/pkg/analysis"
	"stacksignal/pkg/config"
	"stacksignal/pkg/detector"
	"stacksignal/pkg/repo"
	"stacksignal/pkg/util"

	"github.com/spf13/cobra"
)

// detectCmd scans a local checkout
var detectCmd = &cobra.Command{
	Use:   "detect [PROJECT_PATH]",
	Short: "Detect the tools used by a local project",
	Long: `Scan a local directory (the current one by default) for tool signals.

Files under .git, node_modules, vendor and build output directories are skipped,
as are paths matching the configured 'exclude' globs.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runDetect,
}

func runDetect(cmd *cobra.Command, args []string) {
	var projectPath string
	if len(args) > 0 {
		projectPath = args[0]
	}

	projectPath, err := util.ResolveProjectPath(projectPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := loadConfigOrExit(cmd)

	var result *analysis.Result
	scan := func(status func(string)) {
		result, err = detectLocal(cmd.Context(), cfg, projectPath, status)
	}

	if !interactive() {
		scan(func(string) {})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printJSON(os.Stdout, result)
		return
	}

	fmt.Printf("%s\n", logoStyle.Render(Logo))
	withSpinner("Scanning project...", scan)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(detection.Render(result))
	if result.Repository == nil {
		fmt.Printf("\n%s\n", tipMsgStyle.Render("Tip: Use --json flag for CI/automation mode"))
		return
	}
	fmt.Printf("\n%s\n", tipMsgStyle.Render(fmt.Sprintf("Tip: Run 'stacksignal analyze %s' to scan the pushed branch", result.Repository.URL())))
}

// detectLocal reads the project tree and analyzes it. The GitHub origin, when
// the project has one, is attached to the result so the analysis is recorded.
func detectLocal(ctx context.Context, cfg *config.Config, projectPath string, status func(string)) (*analysis.Result, error) {
	service, _, cleanup, err := buildService(cfg)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	files, err := detector.NewFSReader(os.DirFS(projectPath)).ReadFiles(detector.ScanOptions{
		Exclude:     cfg.Exclude,
		MaxFileSize: cfg.MaxFileSize,
		Filter:      service.Engine().Registry().IsCandidatePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}
	logger.Debug().Str("path", projectPath).Int("files", len(files)).Msg("project files read")
	status(fmt.Sprintf("Matching %d files against %d rules...", len(files), service.Engine().Registry().Len()))

	var ref *repo.Reference
	if util.IsGitRepository(projectPath) {
		if ref, err = util.GetGitHubRepo(projectPath); err != nil {
			logger.Debug().Err(err).Msg("no GitHub origin")
			ref = nil
		}
	}

	return service.AnalyzeFiles(ctx, projectPath, ref, files)
}
