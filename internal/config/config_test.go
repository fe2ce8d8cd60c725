package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/climatewash/internal/llm"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "climatewash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "YOUTUBE_API_KEY", "GOOGLE_APPLICATION_CREDENTIALS"} {
		t.Setenv(name, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearKeyEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "ja", cfg.Transcript.PrimaryLanguage)
	assert.Equal(t, "en", cfg.Transcript.FallbackLanguage)
	assert.Equal(t, StagingLocal, cfg.Staging.Backend)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, time.Second, cfg.Export.SettleDelay)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Criteria.GreenClaims)
	assert.False(t, cfg.ExportEnabled())
}

func TestLoad_File(t *testing.T) {
	clearKeyEnv(t)
	path := writeConfig(t, `
llm:
  provider: openai
  api_key: sk-test
  vision_model: gpt-4o-mini
  breaker:
    failure_threshold: 3
    open_timeout: 10s
transcript:
  primary_language: de
export:
  spreadsheet_id: sheet-123
  sheet_name: Results
  settle_delay: 2s
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "de", cfg.Transcript.PrimaryLanguage)
	assert.Equal(t, "en", cfg.Transcript.FallbackLanguage)
	assert.Equal(t, 2*time.Second, cfg.Export.SettleDelay)
	assert.True(t, cfg.ExportEnabled())
	assert.Equal(t, "sheet-123", cfg.ExportTarget().SpreadsheetID)
	assert.Equal(t, "json", cfg.Log.Format)

	backend := cfg.BackendConfig()
	assert.Equal(t, llm.ProviderOpenAI, backend.Provider)
	assert.Equal(t, "sk-test", backend.APIKey)
	assert.Equal(t, "gpt-4o", backend.GetModel(llm.TaskText))
	assert.Equal(t, "gpt-4o-mini", backend.GetModel(llm.TaskVision))
	assert.Equal(t, "whisper-1", backend.GetModel(llm.TaskTranscription))
	assert.Equal(t, uint32(3), backend.Breaker.FailureThreshold)
	assert.Equal(t, 10*time.Second, backend.Breaker.OpenTimeout)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearKeyEnv(t)
	path := writeConfig(t, "llm:\n  provider: gemini\n")
	t.Setenv("CLIMATEWASH_LLM_PROVIDER", "anthropic")
	t.Setenv("CLIMATEWASH_SERVER_PORT", "9090")
	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	t.Setenv("YOUTUBE_API_KEY", "yt-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "yt-key", cfg.Transcript.YouTubeAPIKey)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/path/climatewash.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "llm: [unclosed")
	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestValidate(t *testing.T) {
	valid := func(t *testing.T) *Config {
		clearKeyEnv(t)
		t.Chdir(t.TempDir())
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "mistral" }, wantErr: "Provider"},
		{name: "unknown staging backend", mutate: func(c *Config) { c.Staging.Backend = "s3" }, wantErr: "Backend"},
		{name: "minio without endpoint", mutate: func(c *Config) { c.Staging.Backend = StagingMinIO }, wantErr: "staging.minio.endpoint"},
		{name: "minio configured", mutate: func(c *Config) {
			c.Staging.Backend = StagingMinIO
			c.Staging.MinIO.Endpoint = "localhost:9000"
		}},
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "Port"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "Level"},
		{name: "missing language", mutate: func(c *Config) { c.Transcript.FallbackLanguage = "" }, wantErr: "FallbackLanguage"},
		{name: "spreadsheet without sheet", mutate: func(c *Config) {
			c.Export.SpreadsheetID = "abc"
			c.Export.SheetName = ""
		}, wantErr: "export.sheet_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAccessors(t *testing.T) {
	clearKeyEnv(t)
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Transcript.PrimaryLanguage = "fr"
	assert.Equal(t, "fr", cfg.Languages().Primary)

	cfg.Fetch.UserAgent = "climatewash-test"
	assert.Equal(t, "climatewash-test", cfg.PageOptions().UserAgent)
	assert.Equal(t, "climatewash-test", cfg.ImageOptions().UserAgent)
	assert.True(t, cfg.ImageOptions().OnlyStatusOK)

	cfg.Staging.MinIO.Bucket = "media"
	assert.Equal(t, "media", cfg.MinIO().Bucket)
}

func TestRateLimit(t *testing.T) {
	clearKeyEnv(t)
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	rl := cfg.RateLimit()
	assert.True(t, rl.Enabled)
	assert.Equal(t, 120, rl.DefaultLimit)
	require.Len(t, rl.Rules, 2)
	assert.Equal(t, "/v1/diagnoses/", rl.Rules[0].Prefix)
	assert.Equal(t, 20, rl.Rules[0].Limit)
	assert.Equal(t, time.Hour, rl.Rules[0].Window)
	assert.Equal(t, 5, rl.Rules[0].Burst)

	cfg.Server.RateLimit.Enabled = false
	cfg.Server.RateLimit.Blacklist = []string{"10.0.0.1"}
	rl = cfg.RateLimit()
	assert.False(t, rl.Enabled)
	assert.True(t, rl.Blacklist["10.0.0.1"])
}
