package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/genohdc/batch"
	"github.com/hupe1980/genohdc/confidence"
	"github.com/hupe1980/genohdc/distance"
	"github.com/hupe1980/genohdc/encoder"
	"github.com/hupe1980/genohdc/hypervector"
	"github.com/hupe1980/genohdc/privacy"
	"github.com/hupe1980/genohdc/resource"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GENOHDC_"

// Config is the complete configuration.
type Config struct {
	// Seed derives the item codebook. Vectors are only comparable between
	// processes that share it.
	Seed       string           `yaml:"seed" json:"seed" validate:"required"`
	Codebook   CodebookConfig   `yaml:"codebook" json:"codebook"`
	Encoding   EncodingConfig   `yaml:"encoding" json:"encoding"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Confidence ConfidenceConfig `yaml:"confidence" json:"confidence"`
	Batch      batch.Config     `yaml:"batch" json:"batch"`
	Privacy    PrivacyConfig    `yaml:"privacy" json:"privacy"`
	Resources  ResourceConfig   `yaml:"resources" json:"resources"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Log        LogConfig        `yaml:"log" json:"log"`
}

// CodebookConfig selects the item codebook.
type CodebookConfig struct {
	// LearnedPath loads a learned k-mer codebook instead of the seed-derived one.
	LearnedPath string `yaml:"learned_path" json:"learned_path"`
	// CacheBytes bounds the memoized item vectors. 0 is unbounded.
	CacheBytes int64 `yaml:"cache_bytes" json:"cache_bytes" validate:"gte=0"`
}

// EncodingConfig holds DNA encoder defaults.
type EncodingConfig struct {
	K              int    `yaml:"k" json:"k" validate:"gte=1,lte=32"`
	PositionMode   string `yaml:"position_mode" json:"position_mode" validate:"oneof=permute bind none"`
	PositionWindow int    `yaml:"position_window" json:"position_window" validate:"gte=0"`
	// StrictAlleles rejects PGx star alleles missing from the activity table.
	StrictAlleles bool `yaml:"strict_alleles" json:"strict_alleles"`
	// LenientVCF skips malformed VCF records instead of failing.
	LenientVCF bool `yaml:"lenient_vcf" json:"lenient_vcf"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	Metric      string   `yaml:"metric" json:"metric" validate:"oneof=cosine hamming jaccard"`
	TopK        int      `yaml:"top_k" json:"top_k" validate:"gte=0"`
	Threshold   *float64 `yaml:"threshold" json:"threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	Parallelism int      `yaml:"parallelism" json:"parallelism" validate:"gte=0"`
	ShardSize   int      `yaml:"shard_size" json:"shard_size" validate:"gte=1"`
}

// ConfidenceConfig holds the similarity bands and significance level.
type ConfidenceConfig struct {
	Thresholds confidence.Thresholds `yaml:"thresholds" json:"thresholds"`
	Alpha      float64               `yaml:"alpha" json:"alpha" validate:"gt=0,lt=1"`
}

// PrivacyConfig holds differential privacy defaults.
type PrivacyConfig struct {
	Level        string  `yaml:"level" json:"level" validate:"oneof=very_high high medium low"`
	TotalEpsilon float64 `yaml:"total_epsilon" json:"total_epsilon" validate:"gt=0"`
	TotalDelta   float64 `yaml:"total_delta" json:"total_delta" validate:"gte=0,lt=1"`
	Composition  string  `yaml:"composition" json:"composition" validate:"oneof=basic advanced"`
	// LedgerTable records numeric spends in DynamoDB when set.
	LedgerTable string `yaml:"ledger_table" json:"ledger_table"`
	Account     string `yaml:"account" json:"account" validate:"required"`
}

// ResourceConfig bounds memory, workers and IO.
type ResourceConfig struct {
	MemoryLimitBytes   int64 `yaml:"memory_limit_bytes" json:"memory_limit_bytes" validate:"gte=0"`
	MaxWorkers         int   `yaml:"max_workers" json:"max_workers" validate:"gte=0"`
	IOLimitBytesPerSec int64 `yaml:"io_limit_bytes_per_sec" json:"io_limit_bytes_per_sec" validate:"gte=0"`
}

// StorageConfig locates databases, snapshots and codebooks.
type StorageConfig struct {
	// URL is one of file://<dir>, mem://, s3://<bucket>/<prefix>,
	// minio://<bucket>/<prefix> or gcs://<bucket>/<prefix>.
	URL string `yaml:"url" json:"url" validate:"required"`
	// Endpoint overrides the object store endpoint (MinIO, S3-compatible).
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	Region    string `yaml:"region" json:"region"`
	AccessKey string `yaml:"access_key" json:"-"`
	SecretKey string `yaml:"secret_key" json:"-"`
	UseSSL    bool   `yaml:"use_ssl" json:"use_ssl"`
	// CacheBytes puts an LRU in front of remote stores. 0 disables it.
	CacheBytes int64 `yaml:"cache_bytes" json:"cache_bytes" validate:"gte=0"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr              string        `yaml:"addr" json:"addr" validate:"required"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second" validate:"gte=0"`
	Burst             int           `yaml:"burst" json:"burst" validate:"gte=0"`
	ReadTimeout       time.Duration `yaml:"read_timeout" json:"read_timeout" validate:"gte=0"`
	WriteTimeout      time.Duration `yaml:"write_timeout" json:"write_timeout" validate:"gte=0"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" json:"max_body_bytes" validate:"gte=0"`
	// Database is the blob name of the JSON database served by /v1/search.
	Database string `yaml:"database" json:"database"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"oneof=text json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Seed: "genohdc",
		Encoding: EncodingConfig{
			K:            6,
			PositionMode: encoder.PositionPermute.String(),
		},
		Search: SearchConfig{
			Metric:    distance.MetricCosine.String(),
			TopK:      10,
			ShardSize: 1024,
		},
		Confidence: ConfidenceConfig{
			Thresholds: confidence.DefaultThresholds,
			Alpha:      0.05,
		},
		Batch: batch.DefaultConfig(),
		Privacy: PrivacyConfig{
			Level:        privacy.LevelHigh.String(),
			TotalEpsilon: 10,
			Composition:  "basic",
			Account:      "default",
		},
		Storage: StorageConfig{
			URL:    "file://.",
			UseSSL: true,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			MaxBodyBytes: 64 << 20,
			Database:     "database.json",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load resolves the configuration with priority env > file > defaults.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		if err := Decode(f, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Decode overlays YAML from r onto cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Encode writes cfg as YAML.
func Encode(w io.Writer, cfg Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// Metric returns the parsed default search metric.
func (c Config) Metric() distance.Metric {
	m, err := distance.ParseMetric(c.Search.Metric)
	if err != nil {
		return distance.MetricCosine
	}
	return m
}

// CodebookSeed returns the codebook seed.
func (c Config) CodebookSeed() hypervector.Seed {
	return hypervector.SeedFromString(c.Seed)
}

// PositionMode returns the parsed DNA position mode.
func (c Config) PositionMode() encoder.PositionMode {
	m, err := encoder.ParsePositionMode(c.Encoding.PositionMode)
	if err != nil {
		return encoder.PositionPermute
	}
	return m
}

// PrivacyParameters returns the recommended (ε, δ) for the configured level.
func (c Config) PrivacyParameters() privacy.Parameters {
	l, err := privacy.ParseLevel(c.Privacy.Level)
	if err != nil {
		l = privacy.LevelHigh
	}
	return privacy.RecommendedParameters(l)
}

// Controller converts the limits to a resource.Config.
func (r ResourceConfig) Controller() resource.Config {
	return resource.Config{
		MemoryLimitBytes:   r.MemoryLimitBytes,
		MaxWorkers:         r.MaxWorkers,
		IOLimitBytesPerSec: r.IOLimitBytesPerSec,
	}
}

// SlogLevel returns the configured level.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Handler builds a slog handler writing to w.
func (l LogConfig) Handler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if l.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
