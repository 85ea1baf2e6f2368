package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef-test"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WORKFLOW_AUTH_JWT_SECRET", testSecret)

	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, "data/workflow.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, "IN", cfg.WhatsApp.DefaultRegion)
	assert.Equal(t, 1, cfg.Workflow.ConflictRetries)
	assert.Equal(t, 7, cfg.Workflow.LeadFollowUpDays)
	assert.Equal(t, time.Minute, cfg.Workflow.FollowUpPollInterval)
	assert.Equal(t, 20, cfg.Workflow.FollowUpBatchSize)
	assert.Equal(t, "service-workflow", cfg.Auth.Issuer)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
server:
  port: 9090
database:
  path: /var/lib/workflow/workflow.db
documents:
  company_name: Acme Motors
workflow:
  lead_follow_up_days: 3
  async_notifications: true
`)
	t.Setenv("WORKFLOW_AUTH_JWT_SECRET", testSecret)
	t.Setenv("WORKFLOW_SERVER_PORT", "7070")

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/var/lib/workflow/workflow.db", cfg.Database.Path)
	assert.Equal(t, "Acme Motors", cfg.Documents.CompanyName)
	assert.Equal(t, 3, cfg.Workflow.LeadFollowUpDays)
	assert.True(t, cfg.Workflow.AsyncNotifications)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "JWT_SECRET="+testSecret+"\nCOMPANY_NAME=Dotenv Motors\n")
	t.Cleanup(func() {
		os.Unsetenv("JWT_SECRET")
		os.Unsetenv("COMPANY_NAME")
	})

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, "Dotenv Motors", cfg.Documents.CompanyName)
}

func TestLoad_MissingFilesAreOptional(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WORKFLOW_AUTH_JWT_SECRET", testSecret)

	_, err := Load(filepath.Join(dir, "absent.yaml"), filepath.Join(dir, ".env"))
	assert.NoError(t, err)
}

func TestLoad_RequiresSecret(t *testing.T) {
	_, err := Load("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt_secret")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: 8080},
			Database:  DatabaseConfig{Path: "x.db"},
			Auth:      AuthConfig{JWTSecret: testSecret},
			Documents: DocumentsConfig{OutputDir: "docs"},
			WhatsApp:  WhatsAppConfig{DefaultRegion: "IN"},
			Workflow:  WorkflowConfig{ConflictRetries: 1, LeadFollowUpDays: 7},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "at least 16"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad region", func(c *Config) { c.WhatsApp.DefaultRegion = "IND" }, "default_region"},
		{"negative retries", func(c *Config) { c.Workflow.ConflictRetries = -1 }, "conflict_retries"},
		{"zero follow-up", func(c *Config) { c.Workflow.LeadFollowUpDays = 0 }, "lead_follow_up_days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
