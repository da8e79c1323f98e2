package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"spa-insights-go/internal/types"
)

const createConversationsTableSQL = `
CREATE TABLE IF NOT EXISTS conversations (
	conversation_id TEXT PRIMARY KEY,
	subject TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	agent_name TEXT NOT NULL,
	agent_email TEXT NOT NULL DEFAULT '',
	customer_name TEXT NOT NULL,
	customer_phone TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL,
	utterances_json TEXT NOT NULL,
	metadata_json TEXT NOT NULL DEFAULT '{}',
	duration_seconds REAL NOT NULL,
	message_count INTEGER NOT NULL,
	has_recording INTEGER NOT NULL,
	sentiment_score REAL NOT NULL,
	sentiment_label TEXT NOT NULL,
	sentiment_defaulted INTEGER NOT NULL,
	satisfaction_score REAL NOT NULL,
	quality_score REAL NOT NULL,
	script_adherence_rate REAL NOT NULL,
	primary_topic TEXT NOT NULL,
	topic_confidence REAL NOT NULL,
	call_outcome TEXT NOT NULL,
	urgency_level TEXT NOT NULL,
	call_date TEXT NOT NULL,
	call_hour INTEGER NOT NULL,
	call_day_of_week TEXT NOT NULL,
	is_weekend INTEGER NOT NULL,
	is_business_hours INTEGER NOT NULL
)`

var createConversationsIndexesSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_conversations_agent ON conversations(agent_name)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_location ON conversations(location)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_call_date ON conversations(call_date)`,
}

const upsertConversationSQL = `
INSERT INTO conversations (
	conversation_id, subject, created_at, agent_name, agent_email,
	customer_name, customer_phone, location, utterances_json, metadata_json,
	duration_seconds, message_count, has_recording,
	sentiment_score, sentiment_label, sentiment_defaulted,
	satisfaction_score, quality_score, script_adherence_rate,
	primary_topic, topic_confidence, call_outcome, urgency_level,
	call_date, call_hour, call_day_of_week, is_weekend, is_business_hours
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(conversation_id) DO UPDATE SET
	subject=excluded.subject,
	created_at=excluded.created_at,
	agent_name=excluded.agent_name,
	agent_email=excluded.agent_email,
	customer_name=excluded.customer_name,
	customer_phone=excluded.customer_phone,
	location=excluded.location,
	utterances_json=excluded.utterances_json,
	metadata_json=excluded.metadata_json,
	duration_seconds=excluded.duration_seconds,
	message_count=excluded.message_count,
	has_recording=excluded.has_recording,
	sentiment_score=excluded.sentiment_score,
	sentiment_label=excluded.sentiment_label,
	sentiment_defaulted=excluded.sentiment_defaulted,
	satisfaction_score=excluded.satisfaction_score,
	quality_score=excluded.quality_score,
	script_adherence_rate=excluded.script_adherence_rate,
	primary_topic=excluded.primary_topic,
	topic_confidence=excluded.topic_confidence,
	call_outcome=excluded.call_outcome,
	urgency_level=excluded.urgency_level,
	call_date=excluded.call_date,
	call_hour=excluded.call_hour,
	call_day_of_week=excluded.call_day_of_week,
	is_weekend=excluded.is_weekend,
	is_business_hours=excluded.is_business_hours`

const listConversationsSQL = `
SELECT conversation_id, subject, created_at, agent_name, agent_email,
	customer_name, customer_phone, location, utterances_json, metadata_json,
	duration_seconds, message_count, has_recording,
	sentiment_score, sentiment_label, sentiment_defaulted,
	satisfaction_score, quality_score, script_adherence_rate,
	primary_topic, topic_confidence, call_outcome, urgency_level,
	call_date, call_hour, call_day_of_week, is_weekend, is_business_hours
FROM conversations ORDER BY created_at, conversation_id`

// SQLiteStore keeps the enriched table in an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(createConversationsTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create conversations table: %w", err)
	}
	for _, stmt := range createConversationsIndexesSQL {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create conversations index: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Backend() string { return "sqlite" }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Upsert(ctx context.Context, records []types.EnrichedRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, upsertConversationSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		utterances, err := json.Marshal(rec.Utterances)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal utterances for %s: %w", rec.ID, err)
		}
		metadata, err := json.Marshal(orEmptyMap(rec.Metadata))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal metadata for %s: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			rec.ID, rec.Subject, rec.Timestamp.Format(time.RFC3339Nano),
			rec.AgentName, rec.AgentEmail, rec.CustomerName, rec.CustomerPhone,
			rec.Location, string(utterances), string(metadata),
			rec.DurationSeconds, rec.MessageCount, boolToInt(rec.HasRecording),
			rec.SentimentScore, rec.SentimentLabel, boolToInt(rec.SentimentDefaulted),
			rec.SatisfactionScore, rec.QualityScore, rec.ScriptAdherence,
			rec.Topic, rec.TopicConfidence, rec.Outcome, rec.Urgency,
			rec.CallDate, rec.CallHour, rec.DayOfWeek,
			boolToInt(rec.IsWeekend), boolToInt(rec.IsBusinessHours),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert %s: %w", rec.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]types.EnrichedRecord, error) {
	rows, err := s.db.QueryContext(ctx, listConversationsSQL)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var out []types.EnrichedRecord
	for rows.Next() {
		var (
			rec            types.EnrichedRecord
			createdAt      string
			utterancesJSON string
			metadataJSON   string
			hasRecording   int
			defaulted      int
			isWeekend      int
			isBusiness     int
		)
		if err := rows.Scan(
			&rec.ID, &rec.Subject, &createdAt, &rec.AgentName, &rec.AgentEmail,
			&rec.CustomerName, &rec.CustomerPhone, &rec.Location,
			&utterancesJSON, &metadataJSON,
			&rec.DurationSeconds, &rec.MessageCount, &hasRecording,
			&rec.SentimentScore, &rec.SentimentLabel, &defaulted,
			&rec.SatisfactionScore, &rec.QualityScore, &rec.ScriptAdherence,
			&rec.Topic, &rec.TopicConfidence, &rec.Outcome, &rec.Urgency,
			&rec.CallDate, &rec.CallHour, &rec.DayOfWeek, &isWeekend, &isBusiness,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for %s: %w", rec.ID, err)
		}
		rec.Timestamp = ts
		if err := json.Unmarshal([]byte(utterancesJSON), &rec.Utterances); err != nil {
			return nil, fmt.Errorf("decode utterances for %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", rec.ID, err)
		}
		rec.HasRecording = hasRecording != 0
		rec.SentimentDefaulted = defaulted != 0
		rec.IsWeekend = isWeekend != 0
		rec.IsBusinessHours = isBusiness != 0
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
