package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, uint64(3), cfg.Retry.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Retry.Backoff.Std())
	assert.Equal(t, 5*time.Minute, cfg.Workflow.Cooldown.Std())
	assert.True(t, cfg.Workflow.Draft)
	assert.Equal(t, "summaries.txt", cfg.LedgerPath)
}

func TestLoadParsesFileAndDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  model: gpt-4o-mini
  body_temperature: 0.5
retry:
  max_attempts: 5
  backoff: 10s
workflow:
  cooldown: 90s
  draft: false
references:
  - docs/one.pdf
  - docs/two.pdf
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 0.5, cfg.LLM.BodyTemperature)
	assert.Equal(t, uint64(5), cfg.Retry.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Retry.Backoff.Std())
	assert.Equal(t, 90*time.Second, cfg.Workflow.Cooldown.Std())
	assert.False(t, cfg.Workflow.Draft)
	assert.Equal(t, []string{"docs/one.pdf", "docs/two.pdf"}, cfg.References)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  api_key: from-file\n"), 0o644))
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("WEBFLOW_SITE_ID", "site-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "site-env", cfg.Webflow.SiteID)
}

func TestValidate(t *testing.T) {
	base := defaultConfig()
	base.LLM.APIKey = "key"

	t.Run("missing api key", func(t *testing.T) {
		cfg := defaultConfig()
		assert.Error(t, cfg.Validate(ProviderWebflow))
	})

	t.Run("webflow needs token and ids", func(t *testing.T) {
		cfg := base
		assert.Error(t, cfg.Validate(ProviderWebflow))

		cfg.Webflow.Token = "t"
		cfg.Webflow.SiteID = "s"
		cfg.Webflow.CollectionID = "c"
		assert.NoError(t, cfg.Validate(ProviderWebflow))
	})

	t.Run("sheets needs doc id", func(t *testing.T) {
		cfg := base
		assert.Error(t, cfg.Validate(ProviderSheets))

		cfg.Sheets.DocID = "doc"
		assert.NoError(t, cfg.Validate(ProviderSheets))
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := base
		assert.Error(t, cfg.Validate("ghost"))
	})
}
