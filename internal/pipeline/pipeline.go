// Package pipeline runs the batch ETL: parse the vCon file, enrich every
// record, and load the batch into the store. Each stage is a pure,
// idempotent transform; re-running replaces rows by conversation id.
package pipeline

import (
	"context"
	"fmt"

	"spa-insights-go/internal/config"
	"spa-insights-go/internal/enrich"
	"spa-insights-go/internal/logger"
	"spa-insights-go/internal/store"
	"spa-insights-go/internal/types"
	"spa-insights-go/internal/vcon"
)

// Run executes one full pass over cfg.VConPath and returns the store the
// records landed in along with the run accounting. Malformed records are
// skipped and counted, never fatal; a malformed file or a store that cannot
// be reached even through the fallback is.
func Run(ctx context.Context, cfg config.Config, log *logger.Logger) (store.Store, types.RunReport, error) {
	plog := log.WithComponent("pipeline").WithField("vcon_path", cfg.VConPath)
	report := types.RunReport{}

	records, recordErrs, err := vcon.ParseFile(cfg.VConPath)
	if err != nil {
		return nil, report, fmt.Errorf("parse vcon file: %w", err)
	}
	report.Total = len(records) + len(recordErrs)
	report.Parsed = len(records)
	report.Skipped = len(recordErrs)
	for _, re := range recordErrs {
		report.SkipReasons = append(report.SkipReasons, re.Error())
	}

	enricher := enrich.New(cfg.Enrichment)
	enriched := make([]types.EnrichedRecord, 0, len(records))
	for _, rec := range records {
		enriched = append(enriched, enricher.Enrich(rec))
	}

	st, fellBack, err := store.Open(cfg, plog.WithField("stage", "load"))
	if err != nil {
		return nil, report, fmt.Errorf("open store: %w", err)
	}
	report.Backend = st.Backend()
	report.FellBack = fellBack

	if err := st.Upsert(ctx, enriched); err != nil {
		st.Close()
		return nil, report, fmt.Errorf("load enriched records: %w", err)
	}
	report.Loaded = len(enriched)

	plog.WithFields(map[string]interface{}{
		"total":   report.Total,
		"loaded":  report.Loaded,
		"skipped": report.Skipped,
		"backend": report.Backend,
	}).Info("pipeline run complete")
	if report.Skipped > 0 {
		plog.WithField("skipped", report.Skipped).Warnf("skipped %d of %d records", report.Skipped, report.Total)
	}
	return st, report, nil
}
