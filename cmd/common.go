package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"stacksignal/cmd/ui/spinner"
	"stacksignal/pkg/analysis"
	"stacksignal/pkg/catalog"
	"stacksignal/pkg/config"
	"stacksignal/pkg/detector"
	"stacksignal/pkg/repo"
	"stacksignal/pkg/state"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// loadConfigOrExit loads the configuration, with the flags of cmd applied, and
// exits with an error message if it fails
func loadConfigOrExit(cmd *cobra.Command) *config.Config {
	cfg, err := config.LoadConfigWithFlags(cmd.Flags())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// buildEngine returns the detection engine, with the rules from cfg.RulesFile
// appended to the built-in table
func buildEngine(cfg *config.Config) (*detector.Engine, error) {
	registry := detector.DefaultRegistry()
	if cfg.RulesFile != "" {
		data, err := os.ReadFile(cfg.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read rules file: %w", err)
		}
		if registry, err = registry.WithRules(data); err != nil {
			return nil, fmt.Errorf("invalid rules file %s: %w", cfg.RulesFile, err)
		}
	}
	return detector.NewEngine(registry, detector.WithLogger(logger)), nil
}

// newFetcher builds the GitHub fetcher from the configured limits. Only paths
// some rule could trigger on are downloaded.
func newFetcher(cfg *config.Config, engine *detector.Engine) *repo.GitHubFetcher {
	return repo.NewGitHubFetcher(repo.GitHubOptions{
		Token:       cfg.GitHubToken,
		MaxFiles:    cfg.MaxFiles,
		MaxFileSize: cfg.MaxFileSize,
		Concurrency: cfg.Concurrency,
		Logger:      logger,
		Candidate:   engine.Registry().IsCandidatePath,
	})
}

// buildService wires the fetcher, engine, catalog and record store. The
// returned cleanup releases the catalog connection, if any.
func buildService(cfg *config.Config) (*analysis.Service, *state.Store, func(), error) {
	engine, err := buildEngine(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := catalog.Open(cfg.Catalog)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	cleanup := func() {
		if c, ok := store.(io.Closer); ok {
			c.Close()
		}
	}

	records := state.NewStore(config.GetStatePath())
	service := analysis.NewService(newFetcher(cfg, engine), engine,
		analysis.WithCatalog(store),
		analysis.WithRecorder(records),
		analysis.WithDefaultBranch(cfg.DefaultBranch),
		analysis.WithLogger(logger),
	)
	return service, records, cleanup, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withSpinner runs fn while a spinner with the given message is shown. fn may
// call status to change the message.
func withSpinner(message string, fn func(status func(string))) {
	spinnerProgram := tea.NewProgram(spinner.InitialModel(message))

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := spinnerProgram.Run(); err != nil {
			// Suppress the "program was killed" error message since it's expected
			if err.Error() != "program was killed" {
				fmt.Fprintf(os.Stderr, "Error running spinner: %v\n", err)
			}
		}
	}()

	fn(func(msg string) {
		spinnerProgram.Send(spinner.StatusMsg(msg))
	})

	spinnerProgram.Quit()
	<-done
}
