package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"hn-post-classifier/internal/crawler"
	"hn-post-classifier/internal/ioformats"
	"hn-post-classifier/internal/models"
	"hn-post-classifier/internal/pipeline"
)

var allSplits = []string{models.SplitTrain, models.SplitVal, models.SplitTest}

func (a *app) prepareCmd() *cobra.Command {
	var (
		skip     bool
		band     string
		n        int
		fraction float64
	)
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Fetch posts, build labels and write train/val/test splits to the cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := &a.cfg.Pipeline
			if cmd.Flags().Changed("skip-undersample") {
				p.SkipUndersample = skip
			}
			if band != "" {
				p.UndersampleBand, p.UndersampleN, p.UndersampleFraction = band, n, fraction
				if err := a.cfg.Validate(); err != nil {
					return err
				}
			}
			report, err := a.runner().Prepare(cmd.Context(), a.source())
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
	cmd.Flags().BoolVar(&skip, "skip-undersample", false, "keep the band distribution as is")
	cmd.Flags().StringVar(&band, "band", "", "band to undersample instead of the largest one")
	cmd.Flags().IntVar(&n, "n", 0, "rows to remove from --band")
	cmd.Flags().Float64Var(&fraction, "fraction", 0, "fraction of --band to remove when --n is not set")
	return cmd
}

func (a *app) tokenizeCmd() *cobra.Command {
	var (
		overwrite bool
		exportDir string
	)
	cmd := &cobra.Command{
		Use:   "tokenize [split...]",
		Short: "Build the tokenized feature cache for the given splits (default all)",
		RunE: func(cmd *cobra.Command, args []string) error {
			splits := args
			if len(splits) == 0 {
				splits = allSplits
			}
			r := a.runner()
			for _, split := range splits {
				ds, err := r.Tokenize(cmd.Context(), split, overwrite)
				if err != nil {
					return err
				}
				a.log.Infof("%s: %d rows ready", split, ds.Len())
				if exportDir == "" {
					continue
				}
				path := filepath.Join(exportDir, split+".ndjson")
				if err := writeFile(path, ds.Export); err != nil {
					return err
				}
				a.log.Infof("exported %s to %s", split, path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "rebuild the features cache even if it exists")
	cmd.Flags().StringVar(&exportDir, "export", "", "also write {split}.ndjson rows into this directory")
	return cmd
}

func (a *app) ingestCmd() *cobra.Command {
	var (
		pages   int
		listing string
		output  string
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Scrape Hacker News listing pages and store new posts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ic := a.cfg.Ingest
			if listing != "" {
				ic.Listing = listing
			}
			if pages > 0 {
				ic.Pages = pages
			}
			client := crawler.NewHTTPClient(ic.Timeout, 5*time.Second, crawler.DefaultSizeCap)
			lister, err := crawler.NewLister(client, crawler.ListerConfig{
				BaseURL:     ic.BaseURL,
				Listing:     ic.Listing,
				Concurrency: ic.Concurrency,
			}, a.log, a.metrics)
			if err != nil {
				return err
			}
			src := pipeline.ListingSource{Lister: lister, Pages: ic.Pages}

			if output != "" {
				posts, err := src.FetchAll(cmd.Context())
				if err != nil {
					return err
				}
				return writePosts(output, posts)
			}
			_, err = a.runner().Ingest(cmd.Context(), src, a.source())
			return err
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 0, "listing pages to fetch (default from config)")
	cmd.Flags().StringVar(&listing, "listing", "", "listing to walk: newest, news, ask, show")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write NDJSON here instead of the database (- for stdout)")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load posts from a CSV or NDJSON export into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.runner().Ingest(cmd.Context(), pipeline.FileSource(args[0]), a.source())
			return err
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump the posts table as NDJSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			posts, err := a.source().FetchAll(cmd.Context())
			if err != nil {
				return err
			}
			return writePosts(output, posts)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file (- for stdout)")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [split...]",
		Short: "Show rows and band counts of the cached splits",
		RunE: func(cmd *cobra.Command, args []string) error {
			splits := args
			if len(splits) == 0 {
				splits = allSplits
			}
			out := make([]*pipeline.SplitStats, 0, len(splits))
			store := a.store()
			for _, s := range splits {
				st, err := pipeline.Stats(store, s)
				if err != nil {
					return err
				}
				out = append(out, st)
			}
			return printJSON(out)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writePosts(path string, posts []models.Post) error {
	return writeFile(path, func(w io.Writer) error {
		return ioformats.WritePosts(w, posts)
	})
}

// writeFile runs write against path, or stdout for "-".
func writeFile(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		return err
	}
	return f.Close()
}
