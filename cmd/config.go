package cmd

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"stacksignal/pkg/config"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	configStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#01FAC6")).Bold(true)
	configLabelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	configValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	configMutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	configErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	configSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage stacksignal configuration",
	Long: `Manage settings stored in ~/.stacksignal/config.json.

Every key can also be set through an environment variable, e.g. STACKSIGNAL_MAX_FILES.
GITHUB_TOKEN is honored as well.`,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfigOrExit(cmd)
		values := cfg.Values()

		if !interactive() {
			printJSON(os.Stdout, values)
			return
		}

		fmt.Printf("%s %s\n\n", configStyle.Render("Configuration:"), configMutedStyle.Render(cfg.Path()))
		for _, key := range config.SortedKeys(values) {
			value := values[key]
			if value == "" {
				value = configMutedStyle.Render("(not set)")
			} else {
				value = configValueStyle.Render(value)
			}
			fmt.Printf("  %s: %s\n", configLabelStyle.Render(key), value)
		}
		fmt.Println()
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a single setting",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfigOrExit(cmd)

		key := strings.ToLower(args[0])
		value, err := cfg.Get(key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", configErrorStyle.Render(err.Error()))
			os.Exit(1)
		}
		if key == "github_token" {
			value = config.MaskToken(value)
		}
		fmt.Println(value)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Change a setting. Valid keys: ` + strings.Join(config.Keys, ", ") + `.

'exclude' takes a comma-separated list of glob patterns, e.g. "docs/**,**/*.md".`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfigOrExit(cmd)

		key := strings.ToLower(args[0])
		if err := cfg.Set(key, args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", configErrorStyle.Render(err.Error()))
			os.Exit(1)
		}
		if key == "rules_file" && cfg.RulesFile != "" {
			if _, err := buildEngine(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "%s\n", configErrorStyle.Render(err.Error()))
				os.Exit(1)
			}
		}

		if err := cfg.SaveConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", configErrorStyle.Render(fmt.Sprintf("Error saving config: %v", err)))
			os.Exit(1)
		}

		fmt.Printf("%s\n", configSuccessStyle.Render(fmt.Sprintf("✓ %s updated", key)))
	},
}

var configSetTokenCmd = &cobra.Command{
	Use:   "set-token [token]",
	Short: "Set or update the GitHub API token",
	Long: `Set or update the GitHub token used for API requests. A token raises the
rate limit and gives access to private repositories.

If token is not provided as an argument, you will be prompted to enter it securely.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var token string

		if len(args) == 1 {
			token = args[0]
		} else {
			fmt.Print("Enter GitHub token: ")
			tokenBytes, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Println()
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s\n", configErrorStyle.Render(fmt.Sprintf("Error reading token: %v", err)))
				os.Exit(1)
			}
			token = string(tokenBytes)
		}

		if strings.TrimSpace(token) == "" {
			fmt.Fprintf(os.Stderr, "%s\n", configErrorStyle.Render("Token cannot be empty"))
			os.Exit(1)
		}

		cfg := loadConfigOrExit(cmd)
		cfg.SetToken(token)

		if err := cfg.SaveConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", configErrorStyle.Render(fmt.Sprintf("Error saving config: %v", err)))
			os.Exit(1)
		}

		fmt.Printf("%s\n", configSuccessStyle.Render("✓ GitHub token saved successfully"))
	},
}

var configDeleteTokenCmd = &cobra.Command{
	Use:   "delete-token",
	Short: "Remove the stored GitHub token",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfigOrExit(cmd)
		if !cfg.HasToken() {
			fmt.Fprintf(os.Stderr, "%s\n", configErrorStyle.Render("No GitHub token configured"))
			os.Exit(1)
		}

		fmt.Print("Delete the GitHub token? (y/N): ")
		var response string
		fmt.Scanln(&response)
		if strings.ToLower(strings.TrimSpace(response)) != "y" {
			fmt.Println("Cancelled")
			return
		}

		cfg.GitHubToken = ""
		if err := cfg.SaveConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", configErrorStyle.Render(fmt.Sprintf("Error saving config: %v", err)))
			os.Exit(1)
		}

		fmt.Printf("%s\n", configSuccessStyle.Render("✓ GitHub token deleted successfully"))
		if os.Getenv("GITHUB_TOKEN") != "" || os.Getenv(config.EnvPrefix+"_GITHUB_TOKEN") != "" {
			fmt.Println(configMutedStyle.Render("A token is still set in the environment"))
		}
	},
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetTokenCmd)
	configCmd.AddCommand(configDeleteTokenCmd)
}
