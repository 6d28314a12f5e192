// Package config provides configuration management for the navigator daemon.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the daemon configuration.
type Config struct {
	Service ServiceConfig `toml:"service"`
	Index   IndexConfig   `toml:"index"`
	Logging LoggingConfig `toml:"logging"`
}

// ServiceConfig contains process- and transport-level settings.
type ServiceConfig struct {
	Root            string `toml:"root"`
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	PortProbeRange  int    `toml:"port_probe_range"`
	DataDir         string `toml:"data_dir"`
	IdleTimeoutSecs int    `toml:"idle_timeout_seconds"`
	AcceptTimeoutMs int    `toml:"accept_timeout_ms"`
	ReadTimeoutSecs int    `toml:"read_timeout_seconds"`
	ListenBacklog   int    `toml:"listen_backlog"`
}

// IndexConfig contains chunk-store and skeleton-extraction parameters.
type IndexConfig struct {
	ChunkSize       int `toml:"chunk_size"`
	ChunkOverlap    int `toml:"chunk_overlap"`
	MaxTreeDepth    int `toml:"max_tree_depth"`
	SearchFileCap   int `toml:"search_file_cap"`
	SearchLineCap   int `toml:"search_line_cap"`
	ResponseCapByte int `toml:"response_cap_bytes"`
}

// LoggingConfig contains arbor logging settings.
type LoggingConfig struct {
	Level      string      `toml:"level"`
	Format     string      `toml:"format"`
	Output     StringSlice `toml:"output"`
	TimeFormat string      `toml:"time_format"`
	MaxSizeMB  int         `toml:"max_size_mb"`
	MaxBackups int         `toml:"max_backups"`
}

// StringSlice unmarshals from either a bare string or a TOML array of strings.
type StringSlice []string

// UnmarshalTOML implements toml.Unmarshaler for flexible config parsing.
func (s *StringSlice) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case string:
		*s = []string{v}
	case []interface{}:
		result := make([]string, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return fmt.Errorf("expected string in array, got %T", item)
			}
			result[i] = str
		}
		*s = result
	default:
		return fmt.Errorf("expected string or array, got %T", data)
	}
	return nil
}

// DefaultConfig returns the default configuration for a project root.
// RLM_ROOT, RLM_PORT, and RLM_DATA_DIR override their respective defaults.
func DefaultConfig(root string) *Config {
	if envRoot := os.Getenv("RLM_ROOT"); envRoot != "" {
		root = envRoot
	}

	port := 9177
	if envPort := os.Getenv("RLM_PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil {
			port = p
		}
	}

	dataDir := filepath.Join(root, ".rlm")
	if envData := os.Getenv("RLM_DATA_DIR"); envData != "" {
		dataDir = envData
	}

	return &Config{
		Service: ServiceConfig{
			Root:            root,
			Host:            "127.0.0.1",
			Port:            port,
			PortProbeRange:  20,
			DataDir:         dataDir,
			IdleTimeoutSecs: 300,
			AcceptTimeoutMs: 1000,
			ReadTimeoutSecs: 5,
			ListenBacklog:   5,
		},
		Index: IndexConfig{
			ChunkSize:       200,
			ChunkOverlap:    20,
			MaxTreeDepth:    4,
			SearchFileCap:   50,
			SearchLineCap:   10,
			ResponseCapByte: 8000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     StringSlice{"file"},
			TimeFormat: "15:04:05.000",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}

// Load loads configuration from a TOML file, merging with defaults for root.
func Load(path string, root string) (*Config, error) {
	cfg := DefaultConfig(root)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.expandPaths()
	return cfg, nil
}

func (c *Config) expandPaths() {
	home, _ := os.UserHomeDir()
	expand := func(path string) string {
		if strings.HasPrefix(path, "~/") {
			return filepath.Join(home, path[2:])
		}
		return path
	}
	c.Service.Root = expand(c.Service.Root)
	c.Service.DataDir = expand(c.Service.DataDir)
}

// Validate rejects configurations that cannot be served, including the
// pathological chunk-parameter regime called out by the navigator's
// design notes (overlap >= chunk_size never converges to total_lines).
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Service.Port)
	}
	if c.Service.Root == "" {
		return fmt.Errorf("root must not be empty")
	}
	info, err := os.Stat(c.Service.Root)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("root %q is not a directory", c.Service.Root)
	}
	if c.Index.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	if c.Index.ChunkOverlap < 0 || c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be non-negative and less than chunk_size (%d)", c.Index.ChunkOverlap, c.Index.ChunkSize)
	}
	return nil
}

// EnsureDirectories creates the state directories the daemon writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Service.DataDir,
		filepath.Join(c.Service.DataDir, "chunks"),
		filepath.Join(c.Service.DataDir, "logs"),
		filepath.Join(c.Service.Root, ".claude", "rlm_state"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// SandboxStateDir returns the directory holding the sandbox namespace snapshot.
func (c *Config) SandboxStateDir() string {
	return filepath.Join(c.Service.Root, ".claude", "rlm_state")
}

// ChunkRootDir returns the directory mirroring the source tree's chunk sets.
func (c *Config) ChunkRootDir() string {
	return filepath.Join(c.Service.DataDir, "chunks")
}

// PortFile returns the path the daemon writes {port, pid} to when it runs
// against a project that already has a .rlm directory.
func (c *Config) PortFile() string {
	return filepath.Join(c.Service.Root, ".rlm", "port")
}
