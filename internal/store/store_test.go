package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spa-insights-go/internal/config"
	"spa-insights-go/internal/types"
)

func enriched(id, agent, location string, sentiment float64) types.EnrichedRecord {
	return types.EnrichedRecord{
		ConversationRecord: types.ConversationRecord{
			ID:            id,
			Subject:       "Booking",
			Timestamp:     time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC),
			AgentName:     agent,
			CustomerName:  "Casey",
			CustomerPhone: "+15125550134",
			Location:      location,
			Utterances: []types.Utterance{
				{Speaker: types.SpeakerAgent, Text: "Thank you for calling", DurationSeconds: 30},
				{Speaker: types.SpeakerCustomer, Text: "Hi, I have a question, with \"quotes\" and, commas", DurationSeconds: 45},
			},
			Metadata:        map[string]string{"conversation_type": "booking"},
			DurationSeconds: 75,
			MessageCount:    2,
		},
		SentimentScore:    sentiment,
		SentimentLabel:    "positive",
		SatisfactionScore: 8.5,
		QualityScore:      7.3,
		ScriptAdherence:   0.5,
		Topic:             "appointment_scheduling",
		TopicConfidence:   0.75,
		Outcome:           types.OutcomeResolved,
		Urgency:           "low",
		CallDate:          "2025-03-14",
		CallHour:          10,
		DayOfWeek:         "Friday",
		IsBusinessHours:   true,
	}
}

func assertRecordsEqual(t *testing.T, want, got []types.EnrichedRecord) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Timestamp.Equal(got[i].Timestamp), "timestamp %d", i)
		w, g := want[i], got[i]
		w.Timestamp, g.Timestamp = time.Time{}, time.Time{}
		assert.Equal(t, w, g, "record %d", i)
	}
}

func openBackends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	sq, err := OpenSQLite(filepath.Join(dir, "conversations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	cs, err := OpenCSV(filepath.Join(dir, "conversations.csv"))
	require.NoError(t, err)
	return map[string]Store{"sqlite": sq, "csv": cs}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	batch := []types.EnrichedRecord{
		enriched("conv-001", "Amy", "Austin", 0.8),
		enriched("conv-002", "Bob", "Dallas", -0.4),
	}
	// one record with defaults and unknowns in play
	batch[1].SentimentDefaulted = true
	batch[1].SentimentLabel = "neutral"
	batch[1].AgentName = types.Unknown
	batch[1].HasRecording = true
	batch[1].IsWeekend = true

	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, st.Upsert(ctx, batch))
			got, err := st.List(ctx)
			require.NoError(t, err)
			assertRecordsEqual(t, batch, got)
		})
	}
}

func TestUpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			first := enriched("conv-001", "Amy", "Austin", 0.8)
			require.NoError(t, st.Upsert(ctx, []types.EnrichedRecord{first}))

			updated := first
			updated.QualityScore = 3.1
			updated.Outcome = types.OutcomeEscalated
			require.NoError(t, st.Upsert(ctx, []types.EnrichedRecord{updated}))

			got, err := st.List(ctx)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, 3.1, got[0].QualityScore)
			assert.Equal(t, types.OutcomeEscalated, got[0].Outcome)
		})
	}
}

// The two backends must be interchangeable from the reader's point of view.
func TestBackendsAgree(t *testing.T) {
	ctx := context.Background()
	backends := openBackends(t)
	batch := []types.EnrichedRecord{
		enriched("conv-001", "Amy", "Austin", 0.8),
		enriched("conv-002", "Bob", "Dallas", -0.4),
	}
	for _, st := range backends {
		require.NoError(t, st.Upsert(ctx, batch))
	}
	fromSQL, err := backends["sqlite"].List(ctx)
	require.NoError(t, err)
	fromCSV, err := backends["csv"].List(ctx)
	require.NoError(t, err)
	assertRecordsEqual(t, fromSQL, fromCSV)
}

func TestOpenFallsBackToCSV(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		// a path whose parent is a regular file cannot be created
		SQLitePath:      filepath.Join(dir, "conversations.csv", "db.sqlite"),
		FallbackCSVPath: filepath.Join(dir, "conversations.csv"),
	}
	// occupy the sqlite parent path with a file
	cs, err := OpenCSV(cfg.FallbackCSVPath)
	require.NoError(t, err)
	require.NoError(t, cs.Close())

	log := logrus.NewEntry(logrus.New())
	st, fellBack, err := Open(cfg, log)
	require.NoError(t, err)
	defer st.Close()
	assert.True(t, fellBack)
	assert.Equal(t, "csv", st.Backend())

	ctx := context.Background()
	require.NoError(t, st.Upsert(ctx, []types.EnrichedRecord{enriched("conv-001", "Amy", "Austin", 0.5)}))
	got, err := st.List(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestOpenPrefersSQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{
		SQLitePath:      filepath.Join(dir, "conversations.db"),
		FallbackCSVPath: filepath.Join(dir, "conversations.csv"),
	}
	st, fellBack, err := Open(cfg, logrus.NewEntry(logrus.New()))
	require.NoError(t, err)
	defer st.Close()
	assert.False(t, fellBack)
	assert.Equal(t, "sqlite", st.Backend())
}
