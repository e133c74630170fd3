package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/genohdc/distance"
	"github.com/hupe1980/genohdc/encoder"
	"github.com/hupe1980/genohdc/hypervector"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, distance.MetricCosine, cfg.Metric())
	assert.Equal(t, encoder.PositionPermute, cfg.PositionMode())
	assert.Equal(t, hypervector.SeedFromString("genohdc"), cfg.CodebookSeed())
	assert.Equal(t, 0.5, cfg.PrivacyParameters().Epsilon)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "genohdc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
seed: cohort-2026
encoding:
  k: 8
  position_mode: bind
search:
  metric: hamming
  threshold: 0.6
server:
  read_timeout: 5s
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "cohort-2026", cfg.Seed)
	assert.Equal(t, 8, cfg.Encoding.K)
	assert.Equal(t, encoder.PositionBind, cfg.PositionMode())
	assert.Equal(t, distance.MetricHamming, cfg.Metric())
	require.NotNil(t, cfg.Search.Threshold)
	assert.Equal(t, 0.6, *cfg.Search.Threshold)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)

	// untouched keys keep their defaults
	assert.Equal(t, 10, cfg.Search.TopK)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "genohdc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  metric: hamming\n"), 0o600))

	t.Setenv("GENOHDC_METRIC", "jaccard")
	t.Setenv("GENOHDC_MAX_WORKERS", "3")
	t.Setenv("GENOHDC_SERVER_READ_TIMEOUT", "2s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, distance.MetricJaccard, cfg.Metric())
	assert.Equal(t, 3, cfg.Resources.Controller().MaxWorkers)
	assert.Equal(t, 2*time.Second, cfg.Server.ReadTimeout)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("unknown key", func(t *testing.T) {
		path := filepath.Join(dir, "unknown.yaml")
		require.NoError(t, os.WriteFile(path, []byte("colour: blue\n"), 0o600))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid value", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("search:\n  metric: euclidean\n"), 0o600))
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Config.Search.Metric failed oneof")
	})

	t.Run("bad env value", func(t *testing.T) {
		t.Setenv("GENOHDC_TOP_K", "ten")
		_, err := Load("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GENOHDC_TOP_K")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty seed", func(c *Config) { c.Seed = "" }, "Config.Seed"},
		{"k too large", func(c *Config) { c.Encoding.K = 33 }, "Config.Encoding.K"},
		{"negative top k", func(c *Config) { c.Search.TopK = -1 }, "Config.Search.TopK"},
		{"threshold above one", func(c *Config) { th := 1.5; c.Search.Threshold = &th }, "Config.Search.Threshold"},
		{"unordered bands", func(c *Config) { c.Confidence.Thresholds.High = 0.9 }, "Config.Confidence.Thresholds.VeryHigh"},
		{"alpha", func(c *Config) { c.Confidence.Alpha = 0 }, "Config.Confidence.Alpha"},
		{"batch chunk", func(c *Config) { c.Batch.ChunkSize = 0 }, "Config.Batch.ChunkSize"},
		{"privacy level", func(c *Config) { c.Privacy.Level = "extreme" }, "Config.Privacy.Level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "Config.Log.Format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"GENOHDC_SEED":               "s",
		"GENOHDC_THRESHOLD":          "0.75",
		"GENOHDC_BATCH_SKIP_INVALID": "true",
		"GENOHDC_STORAGE_URL":        "s3://bucket/prefix",
		"GENOHDC_MEMORY_LIMIT_BYTES": "1048576",
		"GENOHDC_LOG_LEVEL":          "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, ApplyEnv(&cfg, lookup))
	assert.Equal(t, "s", cfg.Seed)
	require.NotNil(t, cfg.Search.Threshold)
	assert.Equal(t, 0.75, *cfg.Search.Threshold)
	assert.True(t, cfg.Batch.SkipInvalid)
	assert.Equal(t, "s3://bucket/prefix", cfg.Storage.URL)
	assert.Equal(t, int64(1<<20), cfg.Resources.MemoryLimitBytes)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Seed = "round-trip"

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, cfg))
	assert.Contains(t, buf.String(), "seed: round-trip")

	got := Default()
	require.NoError(t, Decode(&buf, &got))
	assert.Equal(t, cfg, got)
}

func TestDecodeEmpty(t *testing.T) {
	cfg := Default()
	require.NoError(t, Decode(strings.NewReader(""), &cfg))
	assert.Equal(t, Default(), cfg)
}

func TestLogConfig(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LogConfig{Level: "debug"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LogConfig{Level: "warn"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{Level: "bogus"}.SlogLevel())

	var buf bytes.Buffer
	logger := slog.New(LogConfig{Level: "info", Format: "json"}.Handler(&buf))
	logger.Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}
