package config

import (
	"fmt"
	"strconv"
	"time"
)

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

type envVar struct {
	key string
	set func(c *Config, v string) error
}

func str(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func integer(dst func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		i, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = i
		return nil
	}
}

func int64Var(dst func(*Config) *int64) func(*Config, string) error {
	return func(c *Config, v string) error {
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*dst(c) = i
		return nil
	}
}

func float(dst func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst(c) = f
		return nil
	}
}

func boolean(dst func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}
}

func duration(dst func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst(c) = d
		return nil
	}
}

var envVars = []envVar{
	{"SEED", str(func(c *Config) *string { return &c.Seed })},
	{"CODEBOOK_LEARNED_PATH", str(func(c *Config) *string { return &c.Codebook.LearnedPath })},
	{"CODEBOOK_CACHE_BYTES", int64Var(func(c *Config) *int64 { return &c.Codebook.CacheBytes })},
	{"K", integer(func(c *Config) *int { return &c.Encoding.K })},
	{"POSITION_MODE", str(func(c *Config) *string { return &c.Encoding.PositionMode })},
	{"POSITION_WINDOW", integer(func(c *Config) *int { return &c.Encoding.PositionWindow })},
	{"STRICT_ALLELES", boolean(func(c *Config) *bool { return &c.Encoding.StrictAlleles })},
	{"LENIENT_VCF", boolean(func(c *Config) *bool { return &c.Encoding.LenientVCF })},
	{"METRIC", str(func(c *Config) *string { return &c.Search.Metric })},
	{"TOP_K", integer(func(c *Config) *int { return &c.Search.TopK })},
	{"THRESHOLD", func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		c.Search.Threshold = &f
		return nil
	}},
	{"PARALLELISM", integer(func(c *Config) *int { return &c.Search.Parallelism })},
	{"ALPHA", float(func(c *Config) *float64 { return &c.Confidence.Alpha })},
	{"BATCH_PARALLEL", boolean(func(c *Config) *bool { return &c.Batch.Parallel })},
	{"BATCH_CHUNK_SIZE", integer(func(c *Config) *int { return &c.Batch.ChunkSize })},
	{"BATCH_SKIP_INVALID", boolean(func(c *Config) *bool { return &c.Batch.SkipInvalid })},
	{"PRIVACY_LEVEL", str(func(c *Config) *string { return &c.Privacy.Level })},
	{"PRIVACY_TOTAL_EPSILON", float(func(c *Config) *float64 { return &c.Privacy.TotalEpsilon })},
	{"PRIVACY_LEDGER_TABLE", str(func(c *Config) *string { return &c.Privacy.LedgerTable })},
	{"PRIVACY_ACCOUNT", str(func(c *Config) *string { return &c.Privacy.Account })},
	{"MEMORY_LIMIT_BYTES", int64Var(func(c *Config) *int64 { return &c.Resources.MemoryLimitBytes })},
	{"MAX_WORKERS", integer(func(c *Config) *int { return &c.Resources.MaxWorkers })},
	{"IO_LIMIT_BYTES_PER_SEC", int64Var(func(c *Config) *int64 { return &c.Resources.IOLimitBytesPerSec })},
	{"STORAGE_URL", str(func(c *Config) *string { return &c.Storage.URL })},
	{"STORAGE_ENDPOINT", str(func(c *Config) *string { return &c.Storage.Endpoint })},
	{"STORAGE_REGION", str(func(c *Config) *string { return &c.Storage.Region })},
	{"STORAGE_ACCESS_KEY", str(func(c *Config) *string { return &c.Storage.AccessKey })},
	{"STORAGE_SECRET_KEY", str(func(c *Config) *string { return &c.Storage.SecretKey })},
	{"STORAGE_USE_SSL", boolean(func(c *Config) *bool { return &c.Storage.UseSSL })},
	{"SERVER_ADDR", str(func(c *Config) *string { return &c.Server.Addr })},
	{"SERVER_RPS", float(func(c *Config) *float64 { return &c.Server.RequestsPerSecond })},
	{"SERVER_BURST", integer(func(c *Config) *int { return &c.Server.Burst })},
	{"SERVER_READ_TIMEOUT", duration(func(c *Config) *time.Duration { return &c.Server.ReadTimeout })},
	{"SERVER_WRITE_TIMEOUT", duration(func(c *Config) *time.Duration { return &c.Server.WriteTimeout })},
	{"SERVER_DATABASE", str(func(c *Config) *string { return &c.Server.Database })},
	{"LOG_LEVEL", str(func(c *Config) *string { return &c.Log.Level })},
	{"LOG_FORMAT", str(func(c *Config) *string { return &c.Log.Format })},
}

// ApplyEnv overlays GENOHDC_* variables read through lookup onto cfg. A
// value that does not parse is an error naming the variable.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	for _, ev := range envVars {
		v, ok := lookup(EnvPrefix + ev.key)
		if !ok || v == "" {
			continue
		}
		if err := ev.set(cfg, v); err != nil {
			return fmt.Errorf("%s%s=%q: %w", EnvPrefix, ev.key, v, err)
		}
	}
	return nil
}
