package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/genohdc"
	"github.com/hupe1980/genohdc/codebook"
	"github.com/hupe1980/genohdc/codec"
	"github.com/hupe1980/genohdc/config"
	"github.com/hupe1980/genohdc/hypervector"
	"github.com/hupe1980/genohdc/resource"
)

// app is the state shared by all commands. It is populated by the root
// command's PersistentPreRunE.
type app struct {
	configPath string
	logLevel   string

	cfg    config.Config
	logger *genohdc.Logger
	rc     *resource.Controller
	engine *genohdc.Engine
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "genohdc",
		Short:         "Hyperdimensional encoding and similarity search for genomic data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	root.AddCommand(
		newEncodeCmd(a),
		newSimilarityCmd(a),
		newAnalyzeCmd(a),
		newSearchCmd(a),
		newBatchCmd(a),
		newMatrixCmd(a),
		newIndexCmd(a),
		newPrivacyCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, extra ...genohdc.Option) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = strings.ToLower(a.logLevel)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg

	a.logger = genohdc.NewLogger(cfg.Log.Handler(cmd.ErrOrStderr()))
	a.rc = resource.NewController(cfg.Resources.Controller())

	opts := []genohdc.Option{
		genohdc.WithSeed(cfg.CodebookSeed()),
		genohdc.WithCodebookCache(cfg.Codebook.CacheBytes),
		genohdc.WithConfidenceThresholds(cfg.Confidence.Thresholds),
		genohdc.WithSignificanceLevel(cfg.Confidence.Alpha),
		genohdc.WithResourceController(a.rc),
		genohdc.WithLogger(a.logger),
	}
	if cfg.Codebook.LearnedPath != "" {
		cb, err := codebook.LoadLearnedFile(cfg.Codebook.LearnedPath, codebook.WithTargetDimension(hypervector.Dimension))
		if err != nil {
			return fmt.Errorf("load learned codebook: %w", err)
		}
		a.logger.Debug("learned codebook loaded", "path", cfg.Codebook.LearnedPath, "tokens", cb.Len(), "k", cb.KmerLength())
		opts = append(opts, genohdc.WithCodebook(cb))
	}

	a.engine, err = genohdc.New(append(opts, extra...)...)
	return err
}

func (a *app) print(cmd *cobra.Command, v any) error {
	return codec.Encode(a.engine.Codec(), cmd.OutOrStdout(), v)
}

// openInput opens path for reading; "-" is the command's stdin.
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(path)
}

func (a *app) decodeFile(cmd *cobra.Command, path string, v any) error {
	f, err := openInput(cmd, path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := codec.Decode(a.engine.Codec(), f, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func parseVector(s string) (hypervector.Hypervector, error) {
	v, err := hypervector.ParseHex(strings.TrimSpace(s))
	if err != nil {
		return hypervector.Hypervector{}, err
	}
	if v.IsZero() {
		return v, fmt.Errorf("%w: empty vector", genohdc.ErrInvalidInput)
	}
	return v, nil
}
