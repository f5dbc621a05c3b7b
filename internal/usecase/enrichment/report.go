package enrichment

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/contractdex/internal/domain"
	"github.com/kailas-cloud/contractdex/internal/domain/batch"
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
)

// Mode selects which records a pass works on.
type Mode string

// Pass modes.
const (
	// ModeNew classifies and embeds verified records with no enrichment.
	ModeNew Mode = "new"
	// ModeUpdate reclassifies and re-embeds every enriched record.
	ModeUpdate Mode = "update"
	// ModeRepair embeds enriched records that have no embedding.
	ModeRepair Mode = "repair-embeddings"
	// ModeReembed re-embeds every enriched record without reclassifying.
	ModeReembed Mode = "reembed"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeNew, ModeUpdate, ModeRepair, ModeReembed:
		return m, nil
	}
	return "", fmt.Errorf("unknown enrichment mode %q: %w", s, domain.ErrInvalidRequest)
}

func (m Mode) status() domdep.Status {
	switch m {
	case ModeNew:
		return domdep.StatusUnenriched
	case ModeRepair:
		return domdep.StatusUnembedded
	}
	return domdep.StatusEnriched
}

func (m Mode) classifies() bool { return m == ModeNew || m == ModeUpdate }

// shrinking reports whether processed records leave the selection, so the
// offset only moves over records that stay selectable.
func (m Mode) shrinking() bool { return m == ModeNew || m == ModeRepair }

// maxReportedFailures bounds Report.Failures.
const maxReportedFailures = 100

// Report summarizes one enrichment run.
type Report struct {
	RunID           string
	Mode            Mode
	Pages           int
	PageErrors      int
	Processed       int
	Enriched        int
	Embedded        int
	Skipped         int // empty source after preprocessing
	Failed          int // classification or persistence failures
	EmbedFailed     int
	QualityFindings int
	Duration        time.Duration
	// Failures holds the first per-record errors keyed by node ref.
	Failures []batch.Result
}

func (r *Report) addFailure(ref string, err error) {
	if len(r.Failures) < maxReportedFailures {
		r.Failures = append(r.Failures, batch.NewError(ref, err))
	}
}

func (r *Report) merge(p pageStats) {
	r.Processed += p.processed
	r.Enriched += p.enriched
	r.Embedded += p.embedded
	r.Skipped += p.skipped
	r.Failed += p.failed
	r.EmbedFailed += p.embedFailed
	r.QualityFindings += p.findings
	for _, f := range p.failures {
		r.addFailure(f.ID(), f.Err())
	}
}

type pageStats struct {
	processed   int
	enriched    int
	embedded    int
	skipped     int
	failed      int
	embedFailed int
	findings    int
	// remaining counts records of the page still matching the selection.
	remaining int
	failures  []batch.Result
}
