package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/BurntSushi/toml"

	"github.com/Zuo-Peng/cconvo/internal/pathcodec"
	"github.com/Zuo-Peng/cconvo/internal/scan"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

type Config struct {
	ProjectsRoot       string `toml:"projects_root"`
	CachePath          string `toml:"cache_path"`
	CacheBackend       string `toml:"cache_backend"`
	Delimiter          string `toml:"delimiter"`
	ProjectConcurrency int    `toml:"project_concurrency"`
	FileConcurrency    int    `toml:"file_concurrency"`
	MaxProbes          int    `toml:"max_probes"`
	LogLevel           string `toml:"log_level"`
}

// Path is where Load looks for the config file.
func Path(home string) string {
	return filepath.Join(home, ".config", "cconvo", "config.toml")
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return LoadFile(Path(home), home)
}

// LoadFile applies the file at cfgPath over the defaults. A missing file
// leaves the defaults in place.
func LoadFile(cfgPath, home string) (*Config, error) {
	cfg := &Config{
		ProjectsRoot:       filepath.Join(home, ".claude", "projects"),
		CacheBackend:       BackendJSON,
		Delimiter:          pathcodec.DefaultDelimiter,
		ProjectConcurrency: scan.DefaultProjectConcurrency,
		FileConcurrency:    scan.DefaultFileConcurrency,
		MaxProbes:          pathcodec.DefaultMaxProbes,
		LogLevel:           "warn",
	}

	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config %s: %w", cfgPath, err)
	}

	if cfg.CachePath == "" {
		name := "cache.json"
		if cfg.CacheBackend == BackendSQLite {
			name = "cache.db"
		}
		cfg.CachePath = filepath.Join(home, ".cconvo", name)
	}

	// expand ~ in paths
	cfg.ProjectsRoot = expandHome(cfg.ProjectsRoot, home)
	cfg.CachePath = expandHome(cfg.CachePath, home)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", cfgPath, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.CacheBackend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("unknown cache_backend %q (want %q or %q)", c.CacheBackend, BackendJSON, BackendSQLite)
	}
	if utf8.RuneCountInString(c.Delimiter) != 1 || c.Delimiter == "/" {
		return fmt.Errorf("delimiter must be a single character other than '/', got %q", c.Delimiter)
	}
	if c.ProjectConcurrency < 1 {
		return fmt.Errorf("project_concurrency must be positive, got %d", c.ProjectConcurrency)
	}
	if c.FileConcurrency < 1 {
		return fmt.Errorf("file_concurrency must be positive, got %d", c.FileConcurrency)
	}
	if c.MaxProbes < 1 {
		return fmt.Errorf("max_probes must be positive, got %d", c.MaxProbes)
	}
	if c.ProjectsRoot == "" {
		return errors.New("projects_root is empty")
	}
	return nil
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
