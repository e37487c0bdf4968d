package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yokitheyo/lexemes2solr/config"
	"github.com/yokitheyo/lexemes2solr/importer"
	"github.com/yokitheyo/lexemes2solr/solr"
	"github.com/yokitheyo/lexemes2solr/wikidata"
)

type options struct {
	configPath string
	dryRun     bool
	output     string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "lexemes2solr",
		Short: "Generate Solr synonyms from Wikidata lexemes",
		Long: `Reads the lemmas and word forms of all lexemes of a language from a SPARQL
endpoint, groups them into synonym sets and stores them in a Solr managed
synonyms resource, so a synonym graph filter can match every form of a word.

Example:
  lexemes2solr --solr http://localhost:8983/solr/ --core core1 --resource lexemes --language de`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg

			opts.logger, err = newLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "YAML config file")
	f.StringP("solr", "s", defaults.Solr.URL, "Solr URI like http://localhost:8983/solr/")
	f.StringP("core", "c", defaults.Solr.Core, "Solr core/index name")
	f.StringP("resource", "r", defaults.Solr.Resource, "Solr managed synonyms resource where to store the results")
	f.StringP("language", "l", defaults.Language, "language code or Wikidata entity URI")
	f.String("sparql", defaults.SPARQL.Endpoint, "SPARQL endpoint")
	f.BoolP("verbose", "v", defaults.Verbose, "print import statistics")
	f.Bool("reload", defaults.Solr.Reload, "reload the Solr core after publishing")
	f.Bool("resolve-language", defaults.ResolveLanguage, "look up language codes missing from the table by ISO 639-1 code")
	f.String("log-level", defaults.Logging.Level, "log level (debug, info, warn, error)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "write the synonyms as JSON instead of publishing them")
	f.StringVarP(&opts.output, "output", "o", "-", "dry-run output file, - for stdout")

	return cmd
}

// loadConfig layers the config file and then explicitly set flags over the
// defaults.
func loadConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	f := cmd.Flags()
	overrides := []struct {
		name string
		str  *string
		b    *bool
	}{
		{name: "solr", str: &cfg.Solr.URL},
		{name: "core", str: &cfg.Solr.Core},
		{name: "resource", str: &cfg.Solr.Resource},
		{name: "language", str: &cfg.Language},
		{name: "sparql", str: &cfg.SPARQL.Endpoint},
		{name: "log-level", str: &cfg.Logging.Level},
		{name: "verbose", b: &cfg.Verbose},
		{name: "reload", b: &cfg.Solr.Reload},
		{name: "resolve-language", b: &cfg.ResolveLanguage},
	}
	for _, o := range overrides {
		if !f.Changed(o.name) {
			continue
		}
		var err error
		if o.str != nil {
			*o.str, err = f.GetString(o.name)
		} else {
			*o.b, err = f.GetBool(o.name)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(lc config.LoggingConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func run(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()
	cfg, logger := opts.cfg, opts.logger

	sparql := wikidata.NewClient(cfg.SPARQL.Endpoint, cfg.SPARQL.Timeout,
		wikidata.WithUserAgent(cfg.SPARQL.UserAgent),
		wikidata.WithLogger(logger))

	resolver := &wikidata.Resolver{Languages: cfg.Languages, Logger: logger}
	if cfg.ResolveLanguage {
		resolver.Lookup = sparql
	}
	language, err := resolver.Resolve(ctx, cfg.Language)
	if err != nil {
		return err
	}

	publisher, closeOutput, err := newPublisher(cmd, opts)
	if err != nil {
		return err
	}
	defer closeOutput()

	im := &importer.Importer{Source: sparql, Publisher: publisher, Logger: logger}
	stats, err := im.Run(ctx, language)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		out := cmd.OutOrStdout()
		if opts.dryRun && opts.output == "-" {
			out = cmd.ErrOrStderr()
		}
		fmt.Fprintf(out, "Imported %d lemmas and their %d (different) representations\n",
			stats.Lemmas, stats.Representations)
	}
	return nil
}

func newPublisher(cmd *cobra.Command, opts *options) (importer.Publisher, func(), error) {
	if !opts.dryRun {
		cfg := opts.cfg
		return &importer.SolrPublisher{
			Client: solr.NewClient(cfg.Solr.Timeout, opts.logger),
			Target: solr.Target{
				BaseURL:  cfg.Solr.URL,
				Core:     cfg.Solr.Core,
				Resource: cfg.Solr.Resource,
			},
			Reload: cfg.Solr.Reload,
		}, func() {}, nil
	}

	if opts.output == "-" {
		return &importer.JSONWriter{W: cmd.OutOrStdout()}, func() {}, nil
	}
	file, err := os.Create(opts.output)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return &importer.JSONWriter{W: file}, func() { closeQuietly(file, opts.logger) }, nil
}

func closeQuietly(c io.Closer, logger *zap.Logger) {
	if err := c.Close(); err != nil {
		logger.Warn("close output", zap.Error(err))
	}
}
