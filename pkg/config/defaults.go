package config

import "time"

// File Permissions
const (
	// PermDirectory is the file permission for the configuration directory
	PermDirectory = 0700

	// PermConfigFile is the file permission for the config file (holds the GitHub token)
	PermConfigFile = 0600
)

// Path Constants - Local
const (
	// LocalConfigDir is the base directory for stacksignal configuration
	LocalConfigDir = ".stacksignal"

	// LocalConfigFile is the filename for the main config
	LocalConfigFile = "config.json"

	// LocalStateDir is the directory name for analysis records
	LocalStateDir = "state"
)

// EnvPrefix prefixes environment overrides, e.g. STACKSIGNAL_MAX_FILES
const EnvPrefix = "STACKSIGNAL"

// Default Values
const (
	DefaultBranch      = "main"
	DefaultMaxFiles    = 300
	DefaultMaxFileSize = 1 << 20
	DefaultConcurrency = 8
	DefaultServerAddr  = ":8080"

	// DefaultRequestTimeout bounds a single analysis served over HTTP
	DefaultRequestTimeout = 2 * time.Minute
)
