package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
	cataloguc "github.com/kailas-cloud/contractdex/internal/usecase/catalog"
)

// Flags for export and ingest
var (
	exportFormat   string
	exportOutput   string
	exportFields   string
	exportEnriched bool
	ingestFile     string
	getByRef       bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show record counts by pipeline state",
	RunE:  runStats,
}

var getCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one record",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export records as CSV or Parquet",
	RunE:  runExport,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Insert deployment records from JSON lines",
	Long: `Read one JSON object per line and insert it as a deployment record.
Each object carries the deployment facts (contract, block, storage_protocol,
storage_address, experimental, solc_version, verified_source,
verified_source_code) and an optional name. Ids are computed on insert.`,
	RunE: runIngest,
}

func init() {
	getCmd.Flags().BoolVar(&getByRef, "ref", false, "Treat the argument as a store reference")

	exportCmd.Flags().StringVar(&exportFormat, "format", cataloguc.FormatCSV, "Export format (csv, parquet)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: stdout)")
	exportCmd.Flags().StringVar(&exportFields, "fields", "", "Comma separated CSV columns")
	exportCmd.Flags().BoolVar(&exportEnriched, "enriched", false, "Export enriched records only")

	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "-", "JSON lines file ('-' reads stdin)")

	rootCmd.AddCommand(statsCmd, getCmd, exportCmd, ingestCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	s, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	st, err := s.app.Catalog.Stats(s.ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), st)
}

func runGet(cmd *cobra.Command, args []string) error {
	s, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	var rec domdep.Record
	if getByRef {
		rec, err = s.app.Catalog.GetByRef(s.ctx, args[0])
	} else {
		rec, err = s.app.Catalog.Get(s.ctx, args[0])
	}
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), recordView(&rec))
}

func runExport(cmd *cobra.Command, _ []string) error {
	var fields []domdep.Field
	for _, name := range strings.Split(exportFields, ",") {
		if name = strings.TrimSpace(name); name != "" {
			fields = append(fields, domdep.Field(name))
		}
	}

	s, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(filepath.Clean(exportOutput))
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	n, err := s.app.Catalog.Export(s.ctx, w, cataloguc.ExportOptions{
		Format:       exportFormat,
		Fields:       fields,
		EnrichedOnly: exportEnriched,
	})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	s.logger.Info("Export finished", zap.Int("records", n), zap.String("format", exportFormat))
	return nil
}

func runIngest(cmd *cobra.Command, _ []string) error {
	var r io.Reader = cmd.InOrStdin()
	if ingestFile != "-" {
		f, err := os.Open(filepath.Clean(ingestFile))
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	s, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	rep, err := s.app.Catalog.Ingest(s.ctx, r)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), rep)
}

// record is the printable form of a deployment record.
type record struct {
	ID           string             `json:"id"`
	NodeRef      string             `json:"node_ref"`
	Name         string             `json:"name,omitempty"`
	Facts        domdep.Facts       `json:"facts"`
	Enrichment   *domdep.Enrichment `json:"enrichment,omitempty"`
	HasEmbedding bool               `json:"has_embedding"`
	Score        *float64           `json:"similarity_score,omitempty"`
}

func recordView(rec *domdep.Record) record {
	return record{
		ID:           rec.ID(),
		NodeRef:      rec.NodeRef(),
		Name:         rec.Name(),
		Facts:        rec.Facts(),
		Enrichment:   rec.Enrichment(),
		HasEmbedding: rec.HasEmbedding(),
	}
}
