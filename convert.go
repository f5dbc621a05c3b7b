package contractdex

import (
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
	"github.com/kailas-cloud/contractdex/internal/usecase/enrichment"
)

func recordFromDomain(rec *domdep.Record) Record {
	f := rec.Facts()
	out := Record{
		ID:      rec.ID(),
		NodeRef: rec.NodeRef(),
		Name:    rec.Name(),
		Facts: Facts{
			Address:         f.Address,
			Block:           f.Block,
			StorageProtocol: f.StorageProtocol,
			StorageAddress:  f.StorageAddress,
			Experimental:    f.Experimental,
			SolcVersion:     f.SolcVersion,
			Verified:        f.Verified,
			SourceCode:      f.SourceCode,
		},
		HasEmbedding: rec.HasEmbedding(),
	}
	if e := rec.Enrichment(); e != nil {
		c := e.Clone()
		out.Enrichment = &Enrichment{
			Description:     c.Description,
			Standards:       c.Standards,
			Patterns:        c.Patterns,
			Functionalities: c.Functionalities,
			Domain:          c.Domain,
			SecurityRisks:   c.SecurityRisks,
		}
	}
	return out
}

func enrichReportFromDomain(r *enrichment.Report) EnrichReport {
	return EnrichReport{
		RunID:           r.RunID,
		Pages:           r.Pages,
		Processed:       r.Processed,
		Enriched:        r.Enriched,
		Embedded:        r.Embedded,
		Skipped:         r.Skipped,
		Failed:          r.Failed,
		EmbedFailed:     r.EmbedFailed,
		QualityFindings: r.QualityFindings,
		Duration:        r.Duration,
	}
}
