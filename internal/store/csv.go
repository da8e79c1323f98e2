package store

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"spa-insights-go/internal/types"
)

// csvColumns matches the SQLite table's column names exactly, so the two
// backends are interchangeable for readers.
var csvColumns = []string{
	"conversation_id", "subject", "created_at", "agent_name", "agent_email",
	"customer_name", "customer_phone", "location", "utterances_json", "metadata_json",
	"duration_seconds", "message_count", "has_recording",
	"sentiment_score", "sentiment_label", "sentiment_defaulted",
	"satisfaction_score", "quality_score", "script_adherence_rate",
	"primary_topic", "topic_confidence", "call_outcome", "urgency_level",
	"call_date", "call_hour", "call_day_of_week", "is_weekend", "is_business_hours",
}

// CSVStore is the flat-file fallback backend. Upserts rewrite the whole
// file through a temp-file rename so a row is never half written.
type CSVStore struct {
	path string
}

func OpenCSV(path string) (*CSVStore, error) {
	if path == "" {
		return nil, fmt.Errorf("csv path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create csv dir: %w", err)
		}
	}
	s := &CSVStore{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.writeAll(nil); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *CSVStore) Backend() string { return "csv" }

func (s *CSVStore) Close() error { return nil }

func (s *CSVStore) Upsert(ctx context.Context, records []types.EnrichedRecord) error {
	existing, err := s.List(ctx)
	if err != nil {
		return err
	}
	merged := make(map[string]types.EnrichedRecord, len(existing)+len(records))
	for _, rec := range existing {
		merged[rec.ID] = rec
	}
	for _, rec := range records {
		merged[rec.ID] = rec
	}
	out := make([]types.EnrichedRecord, 0, len(merged))
	for _, rec := range merged {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return s.writeAll(out)
}

func (s *CSVStore) writeAll(records []types.EnrichedRecord) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".conversations-*.csv")
	if err != nil {
		return fmt.Errorf("create temp csv: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(csvColumns); err != nil {
		tmp.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		row, err := encodeRow(rec)
		if err != nil {
			tmp.Close()
			return err
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("write csv row %s: %w", rec.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp csv: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace csv: %w", err)
	}
	return nil
}

func (s *CSVStore) List(_ context.Context) ([]types.EnrichedRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) != len(csvColumns) {
		return nil, fmt.Errorf("unexpected csv header width %d", len(header))
	}

	var out []types.EnrichedRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		rec, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func encodeRow(rec types.EnrichedRecord) ([]string, error) {
	utterances, err := json.Marshal(rec.Utterances)
	if err != nil {
		return nil, fmt.Errorf("marshal utterances for %s: %w", rec.ID, err)
	}
	metadata, err := json.Marshal(orEmptyMap(rec.Metadata))
	if err != nil {
		return nil, fmt.Errorf("marshal metadata for %s: %w", rec.ID, err)
	}
	return []string{
		rec.ID, rec.Subject, rec.Timestamp.Format(time.RFC3339Nano),
		rec.AgentName, rec.AgentEmail, rec.CustomerName, rec.CustomerPhone,
		rec.Location, string(utterances), string(metadata),
		formatFloat(rec.DurationSeconds), strconv.Itoa(rec.MessageCount),
		strconv.FormatBool(rec.HasRecording),
		formatFloat(rec.SentimentScore), rec.SentimentLabel,
		strconv.FormatBool(rec.SentimentDefaulted),
		formatFloat(rec.SatisfactionScore), formatFloat(rec.QualityScore),
		formatFloat(rec.ScriptAdherence),
		rec.Topic, formatFloat(rec.TopicConfidence), rec.Outcome, rec.Urgency,
		rec.CallDate, strconv.Itoa(rec.CallHour), rec.DayOfWeek,
		strconv.FormatBool(rec.IsWeekend), strconv.FormatBool(rec.IsBusinessHours),
	}, nil
}

func decodeRow(row []string) (types.EnrichedRecord, error) {
	if len(row) != len(csvColumns) {
		return types.EnrichedRecord{}, fmt.Errorf("unexpected csv row width %d", len(row))
	}
	var rec types.EnrichedRecord
	rec.ID = row[0]
	rec.Subject = row[1]
	ts, err := time.Parse(time.RFC3339Nano, row[2])
	if err != nil {
		return types.EnrichedRecord{}, fmt.Errorf("parse created_at for %s: %w", rec.ID, err)
	}
	rec.Timestamp = ts
	rec.AgentName = row[3]
	rec.AgentEmail = row[4]
	rec.CustomerName = row[5]
	rec.CustomerPhone = row[6]
	rec.Location = row[7]
	if err := json.Unmarshal([]byte(row[8]), &rec.Utterances); err != nil {
		return types.EnrichedRecord{}, fmt.Errorf("decode utterances for %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(row[9]), &rec.Metadata); err != nil {
		return types.EnrichedRecord{}, fmt.Errorf("decode metadata for %s: %w", rec.ID, err)
	}
	fields := []struct {
		dst *float64
		col int
	}{
		{&rec.DurationSeconds, 10},
		{&rec.SentimentScore, 13},
		{&rec.SatisfactionScore, 16},
		{&rec.QualityScore, 17},
		{&rec.ScriptAdherence, 18},
		{&rec.TopicConfidence, 20},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(row[f.col], 64)
		if err != nil {
			return types.EnrichedRecord{}, fmt.Errorf("parse %s for %s: %w", csvColumns[f.col], rec.ID, err)
		}
		*f.dst = v
	}
	rec.MessageCount, err = strconv.Atoi(row[11])
	if err != nil {
		return types.EnrichedRecord{}, fmt.Errorf("parse message_count for %s: %w", rec.ID, err)
	}
	rec.HasRecording = row[12] == "true"
	rec.SentimentLabel = row[14]
	rec.SentimentDefaulted = row[15] == "true"
	rec.Topic = row[19]
	rec.Outcome = row[21]
	rec.Urgency = row[22]
	rec.CallDate = row[23]
	rec.CallHour, err = strconv.Atoi(row[24])
	if err != nil {
		return types.EnrichedRecord{}, fmt.Errorf("parse call_hour for %s: %w", rec.ID, err)
	}
	rec.DayOfWeek = row[25]
	rec.IsWeekend = row[26] == "true"
	rec.IsBusinessHours = row[27] == "true"
	return rec, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
