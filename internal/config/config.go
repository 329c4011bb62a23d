// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package config loads the grader's configuration from autograding.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "autograding.yaml"

// Config represents the complete grader configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Temporal    TemporalConfig    `yaml:"temporal"`
	Storage     StorageConfig     `yaml:"storage"`
	Assignments AssignmentsConfig `yaml:"assignments"`
	Sandbox     SandboxConfig     `yaml:"sandbox"`
	GitHub      GitHubConfig      `yaml:"github"`
	Feedback    FeedbackConfig    `yaml:"feedback"`
	Grading     GradingConfig     `yaml:"grading"`
}

// ServerConfig holds the results API listener settings.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// TemporalConfig points the worker and CLI at a Temporal cluster.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port"`
	Namespace string `yaml:"namespace"`
	TaskQueue string `yaml:"task_queue"`
}

// StorageConfig locates the results database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// AssignmentsConfig locates the assignment manifests.
type AssignmentsConfig struct {
	Dir string `yaml:"dir"`
}

// SandboxConfig controls Docker-isolated grading.
type SandboxConfig struct {
	Enabled bool   `yaml:"enabled"`
	Image   string `yaml:"image"`
}

// GitHubConfig controls commit status publishing. The token is never stored
// in the file; TokenEnv names the environment variable that holds it.
type GitHubConfig struct {
	Repository string `yaml:"repository"`
	BaseURL    string `yaml:"base_url"`
	TokenEnv   string `yaml:"token_env"`
}

// Token reads the GitHub token from the configured environment variable.
func (g GitHubConfig) Token() string {
	env := g.TokenEnv
	if env == "" {
		env = "GITHUB_TOKEN"
	}
	return os.Getenv(env)
}

// Enabled reports whether status publishing is configured.
func (g GitHubConfig) Enabled() bool {
	return g.Repository != ""
}

// FeedbackConfig controls model-generated hints.
type FeedbackConfig struct {
	Enabled     bool   `yaml:"enabled"`
	OpencodeURL string `yaml:"opencode_url"`
	Model       string `yaml:"model"`
}

// GradingConfig tunes suite evaluation.
type GradingConfig struct {
	Parallel bool `yaml:"parallel"`
}

// Load reads the configuration file at path, or DefaultPath in the working
// directory when path is empty.
func Load(path string) (*Config, error) {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = filepath.Join(cwd, DefaultPath)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", path)
	}

	// #nosec G304 - config paths come from operator flags
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Temporal.HostPort == "" {
		c.Temporal.HostPort = "localhost:7233"
	}
	if c.Temporal.Namespace == "" {
		c.Temporal.Namespace = "default"
	}
	if c.Temporal.TaskQueue == "" {
		c.Temporal.TaskQueue = "autograding"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(".autograding", "results")
	}
	if c.Assignments.Dir == "" {
		c.Assignments.Dir = "assignments"
	}
	if c.Sandbox.Image == "" {
		c.Sandbox.Image = "golang:1.25"
	}
	if c.Feedback.OpencodeURL == "" {
		c.Feedback.OpencodeURL = "http://localhost:4096"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server listen address is required")
	}

	if c.Temporal.HostPort == "" {
		return fmt.Errorf("temporal host port is required")
	}

	if c.Temporal.TaskQueue == "" {
		return fmt.Errorf("temporal task queue is required")
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}

	if c.GitHub.Enabled() && c.GitHub.Token() == "" {
		return fmt.Errorf("github publishing requires a token in $%s", c.githubTokenEnv())
	}

	if c.Feedback.Enabled && c.Feedback.OpencodeURL == "" {
		return fmt.Errorf("feedback requires an opencode server URL")
	}

	return nil
}

func (c *Config) githubTokenEnv() string {
	if c.GitHub.TokenEnv != "" {
		return c.GitHub.TokenEnv
	}
	return "GITHUB_TOKEN"
}
