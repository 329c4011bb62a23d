// Copyright (c) 2025 Autograding Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setupFunc   func(t *testing.T) string // Returns config path
		wantErr     bool
		errContains string
		validate    func(t *testing.T, cfg *Config)
	}{
		{
			name: "complete configuration file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "autograding.yaml")
				content := `
server:
  listen_addr: ":9090"

temporal:
  host_port: "temporal.example.com:7233"
  namespace: "grading"
  task_queue: "cs101"

storage:
  path: "/var/lib/autograding"

assignments:
  dir: "/etc/autograding/assignments"

sandbox:
  enabled: true
  image: "golang:1.24"

github:
  repository: "illinois/cs101-submissions"
  token_env: "GRADER_GITHUB_TOKEN"

feedback:
  enabled: true
  opencode_url: "http://localhost:5000"
  model: "anthropic/claude-sonnet-4-5"

grading:
  parallel: true
`
				require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
				return path
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ":9090", cfg.Server.ListenAddr)
				assert.Equal(t, "temporal.example.com:7233", cfg.Temporal.HostPort)
				assert.Equal(t, "grading", cfg.Temporal.Namespace)
				assert.Equal(t, "cs101", cfg.Temporal.TaskQueue)
				assert.Equal(t, "/var/lib/autograding", cfg.Storage.Path)
				assert.Equal(t, "/etc/autograding/assignments", cfg.Assignments.Dir)
				assert.True(t, cfg.Sandbox.Enabled)
				assert.Equal(t, "golang:1.24", cfg.Sandbox.Image)
				assert.Equal(t, "illinois/cs101-submissions", cfg.GitHub.Repository)
				assert.True(t, cfg.GitHub.Enabled())
				assert.True(t, cfg.Feedback.Enabled)
				assert.Equal(t, "anthropic/claude-sonnet-4-5", cfg.Feedback.Model)
				assert.True(t, cfg.Grading.Parallel)
			},
		},
		{
			name: "minimal file gets defaults",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "autograding.yaml")
				require.NoError(t, os.WriteFile(path, []byte("grading:\n  parallel: false\n"), 0o600))
				return path
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ":8080", cfg.Server.ListenAddr)
				assert.Equal(t, "localhost:7233", cfg.Temporal.HostPort)
				assert.Equal(t, "default", cfg.Temporal.Namespace)
				assert.Equal(t, "autograding", cfg.Temporal.TaskQueue)
				assert.Equal(t, filepath.Join(".autograding", "results"), cfg.Storage.Path)
				assert.Equal(t, "assignments", cfg.Assignments.Dir)
				assert.Equal(t, "golang:1.25", cfg.Sandbox.Image)
				assert.False(t, cfg.GitHub.Enabled())
			},
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "nope.yaml")
			},
			wantErr:     true,
			errContains: "configuration file not found",
		},
		{
			name: "invalid yaml",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "autograding.yaml")
				require.NoError(t, os.WriteFile(path, []byte("server: [broken"), 0o600))
				return path
			},
			wantErr:     true,
			errContains: "failed to parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.setupFunc(t))

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}

			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, "autograding", cfg.Temporal.TaskQueue)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(cfg *Config)
		setupEnv    func(t *testing.T)
		errContains string
	}{
		{
			name:   "defaults are valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:        "missing listen addr",
			mutate:      func(cfg *Config) { cfg.Server.ListenAddr = "" },
			errContains: "listen address is required",
		},
		{
			name:        "missing temporal host",
			mutate:      func(cfg *Config) { cfg.Temporal.HostPort = "" },
			errContains: "temporal host port is required",
		},
		{
			name:        "missing task queue",
			mutate:      func(cfg *Config) { cfg.Temporal.TaskQueue = "" },
			errContains: "task queue is required",
		},
		{
			name:        "missing storage path",
			mutate:      func(cfg *Config) { cfg.Storage.Path = "" },
			errContains: "storage path is required",
		},
		{
			name: "github repository without token",
			mutate: func(cfg *Config) {
				cfg.GitHub.Repository = "illinois/cs101"
				cfg.GitHub.TokenEnv = "AUTOGRADING_TEST_ABSENT_TOKEN"
			},
			errContains: "requires a token in $AUTOGRADING_TEST_ABSENT_TOKEN",
		},
		{
			name: "github repository with token",
			mutate: func(cfg *Config) {
				cfg.GitHub.Repository = "illinois/cs101"
				cfg.GitHub.TokenEnv = "AUTOGRADING_TEST_PRESENT_TOKEN"
			},
			setupEnv: func(t *testing.T) {
				t.Setenv("AUTOGRADING_TEST_PRESENT_TOKEN", "ghp_example")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setupEnv != nil {
				tt.setupEnv(t)
			}

			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestGitHubToken(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "default-token")
	t.Setenv("CUSTOM_TOKEN", "custom-token")

	assert.Equal(t, "default-token", GitHubConfig{}.Token())
	assert.Equal(t, "custom-token", GitHubConfig{TokenEnv: "CUSTOM_TOKEN"}.Token())
}
