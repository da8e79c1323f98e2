// Package export writes the enriched table and its summaries to an XLSX
// workbook for offline review.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"spa-insights-go/internal/aggregator"
	"spa-insights-go/internal/types"
)

var conversationHeader = []string{
	"conversation_id", "subject", "created_at", "agent_name", "customer_name",
	"location", "duration_seconds", "message_count",
	"sentiment_score", "sentiment_label", "satisfaction_score",
	"quality_score", "script_adherence_rate",
	"primary_topic", "call_outcome", "urgency_level", "call_date", "call_hour",
}

var summaryHeader = []string{
	"key", "count", "mean_sentiment", "median_sentiment",
	"mean_quality", "median_quality", "mean_satisfaction",
	"mean_duration_seconds", "resolved_rate",
}

// WriteWorkbook writes one Conversations sheet plus a summary sheet per
// grouping dimension.
func WriteWorkbook(path string, records []types.EnrichedRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	const mainSheet = "Conversations"
	f.SetSheetName("Sheet1", mainSheet)
	if err := writeRow(f, mainSheet, 1, toAny(conversationHeader)); err != nil {
		return err
	}
	for i, rec := range records {
		row := []any{
			rec.ID, rec.Subject, rec.Timestamp.Format("2006-01-02 15:04:05"),
			rec.AgentName, rec.CustomerName, rec.Location,
			rec.DurationSeconds, rec.MessageCount,
			rec.SentimentScore, rec.SentimentLabel, rec.SatisfactionScore,
			rec.QualityScore, rec.ScriptAdherence,
			rec.Topic, rec.Outcome, rec.Urgency, rec.CallDate, rec.CallHour,
		}
		if err := writeRow(f, mainSheet, i+2, row); err != nil {
			return err
		}
	}

	for _, dimension := range aggregator.Dimensions() {
		stats, err := aggregator.Summarize(records, dimension)
		if err != nil {
			return err
		}
		sheet := "Summary by " + dimension
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %q: %w", sheet, err)
		}
		if err := writeRow(f, sheet, 1, toAny(summaryHeader)); err != nil {
			return err
		}
		for i, s := range stats {
			row := []any{
				s.Key, s.Count, s.MeanSentiment, s.MedianSentiment,
				s.MeanQuality, s.MedianQuality, s.MeanSatisfaction,
				s.MeanDurationSeconds, s.ResolvedRate,
			}
			if err := writeRow(f, sheet, i+2, row); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d on %q: %w", row, sheet, err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
