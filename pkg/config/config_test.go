package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

// setupTestConfigDir points HOME at a temporary directory and clears
// environment overrides
func setupTestConfigDir(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range Keys {
		t.Setenv(EnvPrefix+"_"+strings.ToUpper(key), "")
	}
	t.Setenv("GITHUB_TOKEN", "")
	return home
}

func TestLoadConfig_Defaults(t *testing.T) {
	home := setupTestConfigDir(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.DefaultBranch != DefaultBranch {
		t.Errorf("Expected default branch %s, got %s", DefaultBranch, cfg.DefaultBranch)
	}
	if cfg.MaxFiles != DefaultMaxFiles {
		t.Errorf("Expected max files %d, got %d", DefaultMaxFiles, cfg.MaxFiles)
	}
	if cfg.MaxFileSize != DefaultMaxFileSize {
		t.Errorf("Expected max file size %d, got %d", DefaultMaxFileSize, cfg.MaxFileSize)
	}
	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("Expected concurrency %d, got %d", DefaultConcurrency, cfg.Concurrency)
	}
	if cfg.ServerAddr != DefaultServerAddr {
		t.Errorf("Expected server addr %s, got %s", DefaultServerAddr, cfg.ServerAddr)
	}
	if cfg.HasToken() {
		t.Error("Expected no token by default")
	}

	want := filepath.Join(home, LocalConfigDir, LocalConfigFile)
	if cfg.Path() != want {
		t.Errorf("Expected config path %s, got %s", want, cfg.Path())
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	home := setupTestConfigDir(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	cfg.SetToken("ghp_abcdef123456")
	cfg.Catalog = "/etc/stacksignal/catalog.yaml"
	cfg.MaxFiles = 50
	cfg.Exclude = []string{"examples/**", "**/fixtures/**"}

	if err := cfg.SaveConfig(); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	path := filepath.Join(home, LocalConfigDir, LocalConfigFile)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Expected config file to exist: %v", err)
	}
	if info.Mode().Perm() != PermConfigFile {
		t.Errorf("Expected file mode %o, got %o", PermConfigFile, info.Mode().Perm())
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	if loaded.GitHubToken != "ghp_abcdef123456" {
		t.Errorf("Expected token to round trip, got %q", loaded.GitHubToken)
	}
	if loaded.Catalog != cfg.Catalog {
		t.Errorf("Expected catalog %s, got %s", cfg.Catalog, loaded.Catalog)
	}
	if loaded.MaxFiles != 50 {
		t.Errorf("Expected max files 50, got %d", loaded.MaxFiles)
	}
	if !reflect.DeepEqual(loaded.Exclude, cfg.Exclude) {
		t.Errorf("Expected exclude %v, got %v", cfg.Exclude, loaded.Exclude)
	}
	if loaded.Concurrency != DefaultConcurrency {
		t.Errorf("Expected unset keys to keep defaults, got concurrency %d", loaded.Concurrency)
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	setupTestConfigDir(t)

	t.Setenv("STACKSIGNAL_MAX_FILES", "25")
	t.Setenv("STACKSIGNAL_DEFAULT_BRANCH", "develop")
	t.Setenv("GITHUB_TOKEN", "ghp_from_env")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.MaxFiles != 25 {
		t.Errorf("Expected max files 25 from env, got %d", cfg.MaxFiles)
	}
	if cfg.DefaultBranch != "develop" {
		t.Errorf("Expected branch develop from env, got %s", cfg.DefaultBranch)
	}
	if cfg.GitHubToken != "ghp_from_env" {
		t.Errorf("Expected token from GITHUB_TOKEN, got %q", cfg.GitHubToken)
	}

	t.Setenv("STACKSIGNAL_GITHUB_TOKEN", "ghp_prefixed")
	cfg, err = LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GitHubToken != "ghp_prefixed" {
		t.Errorf("Expected STACKSIGNAL_GITHUB_TOKEN to win, got %q", cfg.GitHubToken)
	}
}

func TestLoadConfigWithFlags_Precedence(t *testing.T) {
	setupTestConfigDir(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	cfg.Catalog = "/from/file.yaml"
	cfg.DefaultBranch = "trunk"
	if err := cfg.SaveConfig(); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
	t.Setenv("STACKSIGNAL_CATALOG", "/from/env.yaml")

	flags := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
	flags.String("catalog", "", "")
	flags.StringP("branch", "b", "", "")
	flags.String("addr", "", "")
	if err := flags.Parse([]string{"--catalog", "/from/flag.yaml"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	cfg, err = LoadConfigWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Catalog != "/from/flag.yaml" {
		t.Errorf("Expected --catalog to win over env and file, got %s", cfg.Catalog)
	}
	if cfg.DefaultBranch != "trunk" {
		t.Errorf("Expected unset --branch to keep the file value, got %s", cfg.DefaultBranch)
	}
	if cfg.ServerAddr != DefaultServerAddr {
		t.Errorf("Expected unset --addr to keep the default, got %s", cfg.ServerAddr)
	}

	if err := flags.Parse([]string{"-b", "release"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}
	cfg, err = LoadConfigWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DefaultBranch != "release" {
		t.Errorf("Expected --branch to override default_branch, got %s", cfg.DefaultBranch)
	}

	cfg, err = LoadConfigWithFlags(nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Catalog != "/from/env.yaml" {
		t.Errorf("Expected env to win over file without flags, got %s", cfg.Catalog)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	setupTestConfigDir(t)
	dir := t.TempDir()

	malformed := filepath.Join(dir, "malformed.json")
	if err := os.WriteFile(malformed, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFrom(malformed); err == nil {
		t.Error("Expected error for malformed config file")
	}

	negative := filepath.Join(dir, "negative.json")
	if err := os.WriteFile(negative, []byte(`{"concurrency": 0}`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFrom(negative); err == nil {
		t.Error("Expected validation error for zero concurrency")
	}
}

func TestSetAndGet(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		want    string
		wantErr bool
	}{
		{"github_token", `  "ghp_quoted"  `, "ghp_quoted", false},
		{"github_token", `["ghp_bracketed"]`, "ghp_bracketed", false},
		{"catalog", "postgres://localhost/catalog", "postgres://localhost/catalog", false},
		{"default_branch", "trunk", "trunk", false},
		{"default_branch", "  ", "", true},
		{"max_files", "120", "120", false},
		{"max_files", "-1", "", true},
		{"max_files", "many", "", true},
		{"max_file_size", "2048", "2048", false},
		{"concurrency", "4", "4", false},
		{"concurrency", "0", "", true},
		{"exclude", "examples/**, ,docs/**", "examples/**,docs/**", false},
		{"server_addr", "127.0.0.1:9000", "127.0.0.1:9000", false},
		{"rules_file", "rules.yaml", "rules.yaml", false},
		{"unknown_key", "x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := &Config{MaxFiles: 1, MaxFileSize: 1, Concurrency: 1}
			err := cfg.Set(tt.key, tt.value)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestValuesMasksToken(t *testing.T) {
	cfg := &Config{GitHubToken: "ghp_1234567890", MaxFiles: 10}

	values := cfg.Values()
	if values["github_token"] != "**********7890" {
		t.Errorf("Expected masked token, got %q", values["github_token"])
	}
	if values["max_files"] != "10" {
		t.Errorf("Expected max_files 10, got %q", values["max_files"])
	}
	if len(SortedKeys(values)) != len(Keys) {
		t.Errorf("Expected %d keys, got %d", len(Keys), len(values))
	}
}

func TestMaskToken(t *testing.T) {
	tests := map[string]string{
		"":         "",
		"abc":      "***",
		"abcd":     "****",
		"abcdefgh": "****efgh",
	}
	for in, want := range tests {
		if got := MaskToken(in); got != want {
			t.Errorf("MaskToken(%q) = %q, want %q", in, got, want)
		}
	}
}
