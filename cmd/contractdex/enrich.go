package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/contractdex/internal/usecase/enrichment"
)

// Flags for enrich
var (
	enrichMode        string
	enrichPageSize    int
	enrichConcurrency int
	enrichMaxPages    int
)

var embedAll bool

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Classify and embed deployment records",
	Long: `Run one enrichment pass over the record store.

Modes:
  new                classify and embed verified records with no enrichment
  update             reclassify and re-embed every enriched record
  repair-embeddings  embed enriched records that have no embedding`,
	RunE: runEnrich,
}

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed enriched records",
	Long: `Embed enriched records that have no embedding. With --all every
enriched record is re-embedded, for example after a model change.`,
	RunE: runEmbed,
}

func init() {
	enrichCmd.Flags().StringVar(&enrichMode, "mode", string(enrichment.ModeNew), "Pass mode (new, update, repair-embeddings)")
	for _, c := range []*cobra.Command{enrichCmd, embedCmd} {
		c.Flags().IntVar(&enrichPageSize, "page-size", 0, "Records per page; overrides enrichment.page_size")
		c.Flags().IntVar(&enrichConcurrency, "concurrency", 0, "Parallel classifications per page; overrides enrichment.concurrency")
		c.Flags().IntVar(&enrichMaxPages, "max-pages", 0, "Stop after this many pages (0 = until done)")
	}
	embedCmd.Flags().BoolVar(&embedAll, "all", false, "Re-embed every enriched record")

	rootCmd.AddCommand(enrichCmd, embedCmd)
}

func runEnrich(cmd *cobra.Command, _ []string) error {
	mode, err := enrichment.ParseMode(enrichMode)
	if err != nil {
		return err
	}
	return runPass(cmd, mode)
}

func runEmbed(cmd *cobra.Command, _ []string) error {
	mode := enrichment.ModeRepair
	if embedAll {
		mode = enrichment.ModeReembed
	}
	return runPass(cmd, mode)
}

func runPass(cmd *cobra.Command, mode enrichment.Mode) error {
	s, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	cfg := s.cfg
	orch := s.app.Enrichment.WithOptions(enrichment.Options{
		PageSize:        pick(enrichPageSize, cfg.Enrichment.PageSize),
		Concurrency:     pick(enrichConcurrency, cfg.Enrichment.Concurrency),
		ClassifyTimeout: cfg.Classifier.Timeout(),
		StoreTimeout:    time.Duration(cfg.Enrichment.StoreTimeoutSec) * time.Second,
		EmbedTimeout:    time.Duration(cfg.Enrichment.EmbedTimeoutSec) * time.Second,
		MaxPages:        pick(enrichMaxPages, cfg.Enrichment.MaxPages),
	})

	rep, err := orch.Run(s.ctx, mode)
	if err != nil {
		return fmt.Errorf("%s pass: %w", mode, err)
	}
	return printJSON(cmd.OutOrStdout(), rep)
}

// pick returns flag when set, else fallback.
func pick(flag, fallback int) int {
	if flag > 0 {
		return flag
	}
	return fallback
}
