package config

import (
	"fmt"
	"log"
	"os"
)

// SystemConfig lives in ~/.config/lynkd/settings.toml and only records
// where the data directory is.
type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

// LocalConfig holds settings for the local (Ollama) provider.
type LocalConfig struct {
	Host string `toml:"host"`
}

// SecurityConfig selects how credentials are stored at rest.
type SecurityConfig struct {
	Method     string `toml:"method"` // "plaintext" or "ssh_key"
	SSHKeyPath string `toml:"ssh_key_path,omitempty"`
}

// UserConfig lives in <data_directory>/config.toml.
type UserConfig struct {
	Local    LocalConfig    `toml:"local"`
	Security SecurityConfig `toml:"security"`
}

// Config is the fully resolved runtime configuration.
type Config struct {
	DataDirectory string
	LocalHost     string
	Security      SecurityConfig

	// CredentialStore is loaded alongside the config so callers never
	// touch credential files directly.
	CredentialStore *CredentialStore
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

func (c *Config) applyEnvOverrides() {
	if host := os.Getenv("LYNKD_OLLAMA_HOST"); host != "" {
		c.LocalHost = host
	}
	if dataDir := os.Getenv("LYNKD_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
}

func CheckDebug() bool {
	debug := os.Getenv("LYNKD_DEBUG")
	return debug == "true" || debug == "1"
}

// InitDebugLog opens <data>/debug.log when LYNKD_DEBUG is set. The log may
// mention connection slugs and endpoints but never credential material.
func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := dataDir + string(os.PathSeparator) + "debug.log"

	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (LYNKD_DEBUG=%s) ===", os.Getenv("LYNKD_DEBUG"))
}

// Load resolves the layered configuration (system config, then user
// config, then environment overrides) and opens the credential store.
func Load() (*Config, error) {
	cfg := &Config{
		DataDirectory: GetDefaultDataDir(),
		LocalHost:     "http://localhost:11434",
		Security:      SecurityConfig{Method: string(SecurityPlainText)},
	}

	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}
	cfg.DataDirectory = systemCfg.DataDirectory

	cfg.applyEnvOverrides()

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if userCfg.Local.Host != "" {
		cfg.LocalHost = userCfg.Local.Host
	}
	if userCfg.Security.Method != "" {
		cfg.Security = userCfg.Security
	}
	cfg.applyEnvOverrides()

	store := NewCredentialStore(SecurityMethod(cfg.Security.Method), ExpandPath(cfg.Security.SSHKeyPath))
	if err := store.Load(dataDir); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	cfg.CredentialStore = store

	return cfg, nil
}
