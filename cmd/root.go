package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const Version = "1.0.0"

var (
	jsonOutput      bool
	skipInteractive bool
	verbose         bool

	logoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#01FAC6")).Bold(true)
	tipMsgStyle    = lipgloss.NewStyle().PaddingLeft(1).Foreground(lipgloss.Color("190")).Italic(true)
	endingMsgStyle = lipgloss.NewStyle().PaddingLeft(1).Foreground(lipgloss.Color("170")).Bold(true)
)

const Logo = `
███████╗████████╗ █████╗  ██████╗██╗  ██╗███████╗██╗ ██████╗ ███╗   ██╗ █████╗ ██╗
██╔════╝╚══██╔══╝██╔══██╗██╔════╝██║ ██╔╝██╔════╝██║██╔════╝ ████╗  ██║██╔══██╗██║
███████╗   ██║   ███████║██║     █████╔╝ ███████╗██║██║  ███╗██╔██╗ ██║███████║██║
╚════██║   ██║   ██╔══██║██║     ██╔═██╗ ╚════██║██║██║   ██║██║╚██╗██║██╔══██║██║
███████║   ██║   ██║  ██║╚██████╗██║  ██╗███████║██║╚██████╔╝██║ ╚████║██║  ██║███████╗
╚══════╝   ╚═╝   ╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝╚══════╝╚═╝ ╚═════╝ ╚═╝  ╚═══╝╚═╝  ╚═╝╚══════╝
`

var rootCmd = &cobra.Command{
	Use:   "stacksignal [PROJECT_PATH]",
	Short: "Detect the tools and services a repository depends on",
	Long: Logo + `
stacksignal scans a repository's manifests, lockfiles and configuration for the
signals of 50+ tools and services (frameworks, databases, cloud, payments, auth,
monitoring and more), scores each detection and links it to a tool catalog.

Run it on a local checkout, or point it at a public GitHub repository with 'analyze'.`,
	Version: Version,
	Args:    cobra.MaximumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
	Run: runDetect,
}

var logger = zerolog.Nop()

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogger enables debug logs on stderr when --verbose is set
func setupLogger() {
	if !verbose {
		logger = zerolog.Nop()
		return
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.DebugLevel).
		With().Timestamp().Logger()
}

// interactive reports whether human-readable, styled output should be used
func interactive() bool {
	return !jsonOutput && !skipInteractive && isTerminal()
}

func isTerminal() bool {
	if os.Getenv("CI") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func init() {
	rootCmd.SetVersionTemplate("stacksignal version {{.Version}}\n")

	rootCmd.AddCommand(detectCmd)

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON (disables interactive mode)")
	rootCmd.PersistentFlags().BoolVar(&skipInteractive, "no-interactive", false, "Skip interactive output (for CI/automation)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug information to stderr")
}
