package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hn-post-classifier/internal/cache"
	"hn-post-classifier/internal/config"
	"hn-post-classifier/internal/database"
	"hn-post-classifier/internal/metrics"
	"hn-post-classifier/internal/models"
	"hn-post-classifier/internal/pipeline"
	"hn-post-classifier/internal/sampling"
	"hn-post-classifier/pkg/logger"
)

// app is the state shared by every subcommand, built once the persistent
// flags are parsed.
type app struct {
	cfgFile string
	debug   bool

	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "hnprep",
		Short:        "Prepare Hacker News posts for score band classification",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.finish()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $CONFIG_PATH or ./config.yml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.prepareCmd(),
		a.tokenizeCmd(),
		a.ingestCmd(),
		a.importCmd(),
		a.exportCmd(),
		a.statsCmd(),
	)
	return root
}

func (a *app) setup() error {
	path := a.cfgFile
	if path == "" {
		path = config.Path(config.DefaultPath)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.debug {
		cfg.Logging.Level = "debug"
	}
	l, err := logger.NewWithConfig(cfg.Logging)
	if err != nil {
		return err
	}
	a.cfg, a.log, a.metrics = cfg, l, metrics.New()
	return nil
}

func (a *app) finish() error {
	defer a.log.Sync()
	if a.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.log.Warnf("%v", err)
	}
	return nil
}

func (a *app) store() *cache.Store {
	return cache.New(a.cfg.Cache.Dir, a.log)
}

func (a *app) source() *database.Source {
	return database.NewSource(a.cfg.Database, a.log)
}

func (a *app) runner() *pipeline.Runner {
	p := a.cfg.Pipeline
	opts := pipeline.Options{
		Split:           p.Split,
		SkipUndersample: p.SkipUndersample,
		BlockSize:       a.cfg.Tokenizer.BlockSize,
		VocabSize:       a.cfg.Tokenizer.VocabSize,
	}
	if p.UndersampleBand != "" {
		opts.Undersample = &sampling.Request{
			Band:     models.Band(p.UndersampleBand),
			N:        p.UndersampleN,
			Fraction: p.UndersampleFraction,
		}
	}
	return pipeline.NewRunner(a.store(), opts, a.log, a.metrics)
}
