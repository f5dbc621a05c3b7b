package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/contractdex/internal/domain"
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
)

// Export formats.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// listSeparator joins list fields in CSV cells.
const listSeparator = "; "

// DefaultExportFields are the CSV columns when none are requested.
var DefaultExportFields = append([]domdep.Field{
	domdep.FieldID,
	domdep.FieldAddress,
	domdep.FieldName,
}, domdep.EnrichmentFields...)

var exportable = map[domdep.Field]bool{
	domdep.FieldID:              true,
	domdep.FieldAddress:         true,
	domdep.FieldBlock:           true,
	domdep.FieldStorageProtocol: true,
	domdep.FieldStorageAddress:  true,
	domdep.FieldExperimental:    true,
	domdep.FieldSolcVersion:     true,
	domdep.FieldVerified:        true,
	domdep.FieldSourceCode:      true,
	domdep.FieldName:            true,
	domdep.FieldDescription:     true,
	domdep.FieldStandards:       true,
	domdep.FieldPatterns:        true,
	domdep.FieldFunctionalities: true,
	domdep.FieldDomain:          true,
	domdep.FieldSecurityRisks:   true,
}

// ExportOptions control an export.
type ExportOptions struct {
	Format string
	// Fields selects CSV columns. Parquet always writes the full row.
	Fields       []domdep.Field
	EnrichedOnly bool
	PageSize     int
}

// exportRow is the parquet schema of an exported record.
type exportRow struct {
	ID              string   `parquet:"id"`
	Contract        string   `parquet:"contract"`
	Block           string   `parquet:"block"`
	StorageProtocol string   `parquet:"storage_protocol"`
	StorageAddress  string   `parquet:"storage_address"`
	Experimental    bool     `parquet:"experimental"`
	SolcVersion     string   `parquet:"solc_version"`
	Verified        bool     `parquet:"verified_source"`
	Name            string   `parquet:"name,optional"`
	Description     string   `parquet:"description,optional"`
	Standards       []string `parquet:"standards,list"`
	Patterns        []string `parquet:"patterns,list"`
	Functionalities []string `parquet:"functionalities,list"`
	Domain          string   `parquet:"application_domain,optional"`
	SecurityRisks   string   `parquet:"security_risks_description,optional"`
}

// Export writes records to w and returns how many were written.
func (s *Service) Export(ctx context.Context, w io.Writer, opts ExportOptions) (int, error) {
	f := domdep.Filter{}
	if opts.EnrichedOnly {
		f.Status = domdep.StatusEnriched
	}
	switch opts.Format {
	case "", FormatCSV:
		fields := opts.Fields
		if len(fields) == 0 {
			fields = DefaultExportFields
		}
		for _, fld := range fields {
			if !exportable[fld] {
				return 0, fmt.Errorf("field %q cannot be exported: %w", fld, domain.ErrInvalidRequest)
			}
		}
		return s.exportCSV(ctx, w, f, fields, opts.PageSize)
	case FormatParquet:
		return s.exportParquet(ctx, w, f, opts.PageSize)
	}
	return 0, fmt.Errorf("unknown export format %q: %w", opts.Format, domain.ErrInvalidRequest)
}

func (s *Service) exportCSV(ctx context.Context, w io.Writer, f domdep.Filter, fields []domdep.Field, pageSize int) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(fieldNames(fields)); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	n := 0
	row := make([]string, len(fields))
	err := s.walk(ctx, f, pageSize, func(rec *domdep.Record) error {
		for i, fld := range fields {
			row[i] = cell(rec, fld)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
		n++
		return nil
	})
	cw.Flush()
	if err == nil {
		err = cw.Error()
	}
	return n, err
}

func (s *Service) exportParquet(ctx context.Context, w io.Writer, f domdep.Filter, pageSize int) (int, error) {
	pw := parquet.NewGenericWriter[exportRow](w)
	n := 0
	err := s.walk(ctx, f, pageSize, func(rec *domdep.Record) error {
		if _, err := pw.Write([]exportRow{toExportRow(rec)}); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
		n++
		return nil
	})
	if err != nil {
		_ = pw.Close()
		return n, err
	}
	if err := pw.Close(); err != nil {
		return n, fmt.Errorf("close parquet writer: %w", err)
	}
	return n, nil
}

func toExportRow(rec *domdep.Record) exportRow {
	facts := rec.Facts()
	row := exportRow{
		ID:              rec.ID(),
		Contract:        facts.Address,
		Block:           facts.Block,
		StorageProtocol: facts.StorageProtocol,
		StorageAddress:  facts.StorageAddress,
		Experimental:    facts.Experimental,
		SolcVersion:     facts.SolcVersion,
		Verified:        facts.Verified,
		Name:            rec.Name(),
	}
	if e := rec.Enrichment(); e != nil {
		row.Description = e.Description
		row.Standards = e.Standards
		row.Patterns = e.Patterns
		row.Functionalities = e.Functionalities
		row.Domain = e.Domain
		row.SecurityRisks = e.SecurityRisks
	}
	return row
}

func cell(rec *domdep.Record, f domdep.Field) string {
	facts := rec.Facts()
	switch f {
	case domdep.FieldID:
		return rec.ID()
	case domdep.FieldAddress:
		return facts.Address
	case domdep.FieldBlock:
		return facts.Block
	case domdep.FieldStorageProtocol:
		return facts.StorageProtocol
	case domdep.FieldStorageAddress:
		return facts.StorageAddress
	case domdep.FieldExperimental:
		return domdep.FormatBool(facts.Experimental)
	case domdep.FieldSolcVersion:
		return facts.SolcVersion
	case domdep.FieldVerified:
		return domdep.FormatBool(facts.Verified)
	case domdep.FieldSourceCode:
		return facts.SourceCode
	case domdep.FieldName:
		return rec.Name()
	}
	e := rec.Enrichment()
	if e == nil {
		return ""
	}
	switch f {
	case domdep.FieldDescription:
		return e.Description
	case domdep.FieldStandards:
		return strings.Join(e.Standards, listSeparator)
	case domdep.FieldPatterns:
		return strings.Join(e.Patterns, listSeparator)
	case domdep.FieldFunctionalities:
		return strings.Join(e.Functionalities, listSeparator)
	case domdep.FieldDomain:
		return e.Domain
	case domdep.FieldSecurityRisks:
		return e.SecurityRisks
	}
	return ""
}
