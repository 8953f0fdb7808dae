package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfigDefaults(t *testing.T) {
	cfg, err := ReadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://api.djofo.bj/api", cfg.APIURL.String())
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, ":2112", cfg.MetricsAddr)
	assert.Equal(t, 5, cfg.APIRetryMax)
	assert.Equal(t, time.Hour, cfg.EditorSessionTTL())
	assert.Equal(t, 30*24*time.Hour, cfg.DraftsRetention())
}

func TestReadConfigEnv(t *testing.T) {
	t.Setenv("DJOFO_API_URL", "http://localhost:9000/api/")
	t.Setenv("API_RETRY_MAX", "0")
	t.Setenv("EDITOR_SESSION_TTL", "15")
	t.Setenv("MINIFY_CONTENT", "true")

	cfg, err := ReadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/api", cfg.APIURL.String())
	assert.Equal(t, 0, cfg.APIRetryMax)
	assert.Equal(t, 15*time.Minute, cfg.EditorSessionTTL())
	assert.True(t, cfg.MinifyContent)
}

func TestReadConfigInvalidURL(t *testing.T) {
	t.Setenv("DJOFO_API_URL", "api.djofo.bj")
	_, err := ReadConfig()
	assert.Error(t, err)
}

func TestReadConfigRejectedValuesKeepDefaults(t *testing.T) {
	t.Setenv("API_RETRY_MAX", "-1")
	t.Setenv("EDITOR_SESSION_TTL", "0")
	t.Setenv("DRAFTS_RETENTION_DAYS", "a week")
	t.Setenv("MINIFY_CONTENT", "oui")
	t.Setenv("LISTEN_ADDR", "   ")

	cfg, err := ReadConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.APIRetryMax)
	assert.Equal(t, time.Hour, cfg.EditorSessionTTL())
	assert.Equal(t, 30*24*time.Hour, cfg.DraftsRetention())
	assert.False(t, cfg.MinifyContent)
	assert.Equal(t, ":8080", cfg.ListenAddr)
}

func TestEnvConfigTags(t *testing.T) {
	type podcastLimits struct {
		Episodes int    `env:"DJOFO_TEST_EPISODES" default:"10" min:"1"`
		Feed     string `env:"DJOFO_TEST_FEED" default:"podcasts"`
		Untagged string
	}

	t.Setenv("DJOFO_TEST_EPISODES", " 25 ")
	var l podcastLimits
	envConfig(&l)
	assert.Equal(t, podcastLimits{Episodes: 25, Feed: "podcasts"}, l)

	t.Setenv("DJOFO_TEST_EPISODES", "0")
	l = podcastLimits{}
	envConfig(&l)
	assert.Equal(t, 10, l.Episodes)
}

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "a***e", maskValue("APIToken", "abcde"))
	assert.Equal(t, "**", maskValue("SecretKey", "ab"))
	assert.Equal(t, ":8080", maskValue("ListenAddr", ":8080"))
}
