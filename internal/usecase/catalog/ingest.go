package catalog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/kailas-cloud/contractdex/internal/domain/batch"
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
	"github.com/kailas-cloud/contractdex/internal/logger"
)

// maxIngestLine bounds one JSONL line; verified sources can be large.
const maxIngestLine = 16 << 20

// IngestReport summarizes an ingest.
type IngestReport struct {
	Lines    int
	Inserted int
	Failed   int
	Results  []batch.Result
}

// Ingest reads one deployment per JSON line, keyed by stored field names,
// and inserts it with a computed id. Bad lines are reported and skipped.
func (s *Service) Ingest(ctx context.Context, r io.Reader) (IngestReport, error) {
	log := logger.FromContext(ctx)
	var rep IngestReport

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxIngestLine)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		rep.Lines++
		label := fmt.Sprintf("line %d", rep.Lines)

		rec, err := parseIngestLine(line)
		if err != nil {
			rep.Failed++
			rep.Results = append(rep.Results, batch.NewError(label, err))
			log.Warn("Skipping ingest line", zap.Int("line", rep.Lines), zap.Error(err))
			continue
		}
		ref, err := s.store.Insert(ctx, rec)
		if err != nil {
			rep.Failed++
			rep.Results = append(rep.Results, batch.NewError(label, err))
			log.Warn("Insert failed", zap.Int("line", rep.Lines), zap.String("id", rec.ID()), zap.Error(err))
			continue
		}
		rep.Inserted++
		rep.Results = append(rep.Results, batch.NewOK(ref))
	}
	if err := sc.Err(); err != nil {
		return rep, fmt.Errorf("read input: %w", err)
	}

	log.Info("Ingest finished",
		zap.Int("lines", rep.Lines), zap.Int("inserted", rep.Inserted), zap.Int("failed", rep.Failed))
	return rep, nil
}

func parseIngestLine(line []byte) (domdep.Record, error) {
	var fields map[string]any
	if err := json.Unmarshal(line, &fields); err != nil {
		return domdep.Record{}, fmt.Errorf("decode: %w", err)
	}
	facts, err := domdep.FactsFromFields(fields)
	if err != nil {
		return domdep.Record{}, err
	}
	if facts.Address == "" {
		return domdep.Record{}, fmt.Errorf("%s is required", domdep.FieldAddress)
	}
	name, _ := fields[domdep.FieldName.String()].(string)
	return domdep.New("", facts, name), nil
}
