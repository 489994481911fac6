package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// variáveis que os testes não podem herdar do ambiente de quem roda
var isolatedEnv = []string{
	"UPSTREAM_URL", "RATE_QUOTA", "WHITELIST_IPS", "LOG_LEVEL", "SUSPENSION_PERIOD",
	"MAX_CONNECTION_AGE", "RATE_STATS_ENABLED", "CONCURRENCY_MAX", "METRICS_PATH", "LISTEN_ADDR",
	"TRUST_XFF", "RATE_STATS_REDIS_DB",
}

func writeConfigDir(t *testing.T, files map[string]string) string {
	t.Helper()
	for _, k := range isolatedEnv {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	t.Setenv("CONFIG_DIR", dir)
	return dir
}

func quietLogger() *log.Logger { return log.New(io.Discard) }

func TestReadConfig_FromFiles(t *testing.T) {
	writeConfigDir(t, map[string]string{
		"rate_limiter.json":  `{"general_rl": "5/minute", "whitelist": ["10.0.0.1"]}`,
		"misc.json":          `{"debug_mode": "true"}`,
		"origins.json":       `{"origins": ["https://app.example.com"]}`,
		"microservices.json": `{"reports": "http://reports:9000", "billing": "http://billing:9000/api"}`,
	})

	cfg, err := readConfig(quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.quota.Count)
	assert.Equal(t, time.Minute, cfg.quota.Per)
	assert.Equal(t, []string{"10.0.0.1"}, cfg.whitelist)
	assert.True(t, cfg.debug)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.origins)
	require.Len(t, cfg.services, 2)
	assert.Equal(t, "billing", cfg.services[0].Name)
	assert.Equal(t, "/api", cfg.services[0].Upstream.Path)
	assert.Equal(t, "reports", cfg.services[1].Name)

	assert.Equal(t, 200*time.Second, cfg.suspensionPeriod)
	assert.Equal(t, 600*time.Second, cfg.maxConnectionAge)
	assert.Equal(t, ":8080", cfg.listenAddr)
	assert.True(t, cfg.rateEnabled)
}

func TestReadConfig_EnvOverridesFiles(t *testing.T) {
	writeConfigDir(t, map[string]string{
		"rate_limiter.json": `{"general_rl": "5/minute"}`,
	})
	t.Setenv("UPSTREAM_URL", "http://localhost:8081")
	t.Setenv("RATE_QUOTA", "10/second")
	t.Setenv("SUSPENSION_PERIOD", "30s")
	t.Setenv("MAX_CONNECTION_AGE", "1m")
	t.Setenv("WHITELIST_IPS", " 1.1.1.1, ,2.2.2.2")

	cfg, err := readConfig(quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.quota.Count)
	assert.Equal(t, time.Second, cfg.quota.Per)
	assert.Equal(t, 30*time.Second, cfg.suspensionPeriod)
	assert.Equal(t, time.Minute, cfg.maxConnectionAge)
	assert.Equal(t, []string{"127.0.0.1", "::1", "1.1.1.1", "2.2.2.2"}, cfg.whitelist)
	assert.Empty(t, cfg.services)
}

func TestReadConfig_MissingFilesUseDefaults(t *testing.T) {
	writeConfigDir(t, nil)
	t.Setenv("UPSTREAM_URL", "http://localhost:8081")

	cfg, err := readConfig(quietLogger())
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.quota.Count)
	assert.Equal(t, defaultWhitelist, cfg.whitelist)
	assert.False(t, cfg.debug)
	assert.Empty(t, cfg.origins)
}

func TestReadConfig_InvalidJSONIsLoggedNotFatal(t *testing.T) {
	writeConfigDir(t, map[string]string{
		"misc.json": `{"debug_mode": `,
	})
	t.Setenv("UPSTREAM_URL", "http://localhost:8081")

	_, err := readConfig(quietLogger())
	assert.NoError(t, err)
}

func TestReadConfig_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"no upstream":        {},
		"bad quota":          {"UPSTREAM_URL": "http://u", "RATE_QUOTA": "lots"},
		"stats without addr": {"UPSTREAM_URL": "http://u", "RATE_STATS_ENABLED": "true"},
		"zero suspension":    {"UPSTREAM_URL": "http://u", "SUSPENSION_PERIOD": "0s"},
		"negative conc":      {"UPSTREAM_URL": "http://u", "CONCURRENCY_MAX": "-1"},
		"bad metrics path":   {"UPSTREAM_URL": "http://u", "METRICS_PATH": "metrics"},
		"malformed duration": {"UPSTREAM_URL": "http://u", "SUSPENSION_PERIOD": "abc"},
		"malformed bool":     {"UPSTREAM_URL": "http://u", "TRUST_XFF": "sometimes"},
		"malformed int":      {"UPSTREAM_URL": "http://u", "CONCURRENCY_MAX": "ten"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			writeConfigDir(t, nil)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := readConfig(quietLogger())
			assert.Error(t, err)
		})
	}
}

func TestReadConfig_MalformedEnvNamesEveryKey(t *testing.T) {
	writeConfigDir(t, nil)
	t.Setenv("UPSTREAM_URL", "http://u")
	t.Setenv("SUSPENSION_PERIOD", "abc")
	t.Setenv("RATE_STATS_REDIS_DB", "x")

	_, err := readConfig(quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `SUSPENSION_PERIOD="abc"`)
	assert.Contains(t, err.Error(), `RATE_STATS_REDIS_DB="x"`)
}

func TestReadConfig_InvalidMicroservice(t *testing.T) {
	writeConfigDir(t, map[string]string{
		"microservices.json": `{"bad/name": "http://x"}`,
	})
	_, err := readConfig(quietLogger())
	assert.Error(t, err)

	writeConfigDir(t, map[string]string{
		"microservices.json": `{"billing": "billing:9000"}`,
	})
	_, err = readConfig(quietLogger())
	assert.Error(t, err)
}
