package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds user settings. Values come from, in increasing precedence,
// built-in defaults, ~/.stacksignal/config.json, STACKSIGNAL_* variables and
// command-line flags.
type Config struct {
	GitHubToken   string   `json:"github_token,omitempty" mapstructure:"github_token"`
	Catalog       string   `json:"catalog,omitempty" mapstructure:"catalog"` // file path or postgres:// DSN
	DefaultBranch string   `json:"default_branch" mapstructure:"default_branch"`
	MaxFiles      int      `json:"max_files" mapstructure:"max_files"`
	MaxFileSize   int64    `json:"max_file_size" mapstructure:"max_file_size"`
	Concurrency   int      `json:"concurrency" mapstructure:"concurrency"`
	Exclude       []string `json:"exclude,omitempty" mapstructure:"exclude"`
	ServerAddr    string   `json:"server_addr" mapstructure:"server_addr"`
	RulesFile     string   `json:"rules_file,omitempty" mapstructure:"rules_file"`

	path string
}

// Keys lists every settable configuration key
var Keys = []string{
	"github_token",
	"catalog",
	"default_branch",
	"max_files",
	"max_file_size",
	"concurrency",
	"exclude",
	"server_addr",
	"rules_file",
}

func GetConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(LocalConfigDir, LocalConfigFile)
	}
	return filepath.Join(homeDir, LocalConfigDir, LocalConfigFile)
}

// GetStatePath returns the directory for analysis records
func GetStatePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(LocalConfigDir, LocalStateDir)
	}
	return filepath.Join(homeDir, LocalConfigDir, LocalStateDir)
}

// flagKeys maps command-line flags to the keys they override
var flagKeys = map[string]string{
	"catalog": "catalog",
	"branch":  "default_branch",
	"addr":    "server_addr",
}

func LoadConfig() (*Config, error) {
	return loadConfig(GetConfigPath(), nil)
}

// LoadConfigWithFlags loads the configuration like LoadConfig. Flags from
// flags that were set on the command line take precedence over every other
// source.
func LoadConfigWithFlags(flags *pflag.FlagSet) (*Config, error) {
	return loadConfig(GetConfigPath(), flags)
}

// LoadConfigFrom reads the config file at path. A missing file yields the defaults.
func LoadConfigFrom(path string) (*Config, error) {
	return loadConfig(path, nil)
}

func loadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	if err := v.BindEnv("github_token", EnvPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	config.path = path

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("github_token", "")
	v.SetDefault("catalog", "")
	v.SetDefault("default_branch", DefaultBranch)
	v.SetDefault("max_files", DefaultMaxFiles)
	v.SetDefault("max_file_size", DefaultMaxFileSize)
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("exclude", []string{})
	v.SetDefault("server_addr", DefaultServerAddr)
	v.SetDefault("rules_file", "")
}

// Validate checks the numeric limits
func (c *Config) Validate() error {
	if c.MaxFiles <= 0 {
		return fmt.Errorf("max_files must be positive, got %d", c.MaxFiles)
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", c.MaxFileSize)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	return nil
}

// Path returns the file the config was loaded from
func (c *Config) Path() string {
	if c.path == "" {
		return GetConfigPath()
	}
	return c.path
}

func (c *Config) SaveConfig() error {
	configPath := c.Path()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, PermDirectory); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, PermConfigFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Set assigns a value given as text to a configuration key
func (c *Config) Set(key, value string) error {
	switch key {
	case "github_token":
		c.SetToken(value)
	case "catalog":
		c.Catalog = strings.TrimSpace(value)
	case "default_branch":
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("default_branch cannot be empty")
		}
		c.DefaultBranch = strings.TrimSpace(value)
	case "max_files", "concurrency":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer", key)
		}
		if key == "max_files" {
			c.MaxFiles = n
		} else {
			c.Concurrency = n
		}
	case "max_file_size":
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("max_file_size must be a positive number of bytes")
		}
		c.MaxFileSize = n
	case "exclude":
		c.Exclude = splitList(value)
	case "server_addr":
		c.ServerAddr = strings.TrimSpace(value)
	case "rules_file":
		c.RulesFile = strings.TrimSpace(value)
	default:
		return fmt.Errorf("unknown config key: %s (valid keys: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

// Get returns the value of a key as text
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "github_token":
		return c.GitHubToken, nil
	case "catalog":
		return c.Catalog, nil
	case "default_branch":
		return c.DefaultBranch, nil
	case "max_files":
		return strconv.Itoa(c.MaxFiles), nil
	case "max_file_size":
		return strconv.FormatInt(c.MaxFileSize, 10), nil
	case "concurrency":
		return strconv.Itoa(c.Concurrency), nil
	case "exclude":
		return strings.Join(c.Exclude, ","), nil
	case "server_addr":
		return c.ServerAddr, nil
	case "rules_file":
		return c.RulesFile, nil
	}
	return "", fmt.Errorf("unknown config key: %s (valid keys: %s)", key, strings.Join(Keys, ", "))
}

// Values returns every key with its value; the token is masked
func (c *Config) Values() map[string]string {
	values := make(map[string]string, len(Keys))
	for _, key := range Keys {
		v, _ := c.Get(key)
		if key == "github_token" {
			v = MaskToken(v)
		}
		values[key] = v
	}
	return values
}

// SortedKeys returns the keys of values in alphabetical order
func SortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetToken stores the GitHub token, stripping quotes and brackets left over
// from copy and paste
func (c *Config) SetToken(token string) {
	for {
		oldToken := token

		token = strings.TrimSpace(token)

		token = strings.TrimPrefix(token, "[")
		token = strings.TrimSuffix(token, "]")

		token = strings.TrimSpace(token)

		token = strings.Trim(token, "\"'")

		if token == oldToken {
			break
		}
	}

	c.GitHubToken = token
}

// HasToken reports whether a GitHub token is configured
func (c *Config) HasToken() bool {
	return c.GitHubToken != ""
}

// MaskToken hides all but the last four characters of a token
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
