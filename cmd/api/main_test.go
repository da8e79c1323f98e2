package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spa-insights-go/internal/config"
	"spa-insights-go/internal/store"
	"spa-insights-go/internal/types"
)

func testApp(t *testing.T) *app {
	t.Helper()
	dir := t.TempDir()
	cs, err := store.OpenCSV(filepath.Join(dir, "conversations.csv"))
	require.NoError(t, err)
	rec := types.EnrichedRecord{
		ConversationRecord: types.ConversationRecord{
			ID:           "conv-001",
			Timestamp:    time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
			AgentName:    "Amy",
			CustomerName: "Casey",
			Location:     "Austin",
		},
		SentimentLabel:    "positive",
		SatisfactionScore: 8,
		QualityScore:      8,
		Outcome:           types.OutcomeResolved,
		CallDate:          "2025-03-14",
		CallHour:          10,
	}
	require.NoError(t, cs.Upsert(context.Background(), []types.EnrichedRecord{rec}))
	return &app{
		cfg:   config.Config{ExportPath: filepath.Join(dir, "out", "conversations.xlsx")},
		store: cs,
	}
}

// Concurrent downloads must not clobber each other's workbook.
func TestHandleExportConcurrent(t *testing.T) {
	a := testApp(t)

	const parallel = 4
	recorders := make([]*httptest.ResponseRecorder, parallel)
	var wg sync.WaitGroup
	for i := range recorders {
		recorders[i] = httptest.NewRecorder()
		wg.Add(1)
		go func(w *httptest.ResponseRecorder) {
			defer wg.Done()
			a.handleExport(w, httptest.NewRequest(http.MethodGet, "/export", nil))
		}(recorders[i])
	}
	wg.Wait()

	for i, w := range recorders {
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i)
		assert.NotZero(t, w.Body.Len(), "request %d", i)
	}
}

func TestHandlePredict(t *testing.T) {
	a := testApp(t)
	w := httptest.NewRecorder()
	a.handlePredict(w, httptest.NewRequest(http.MethodGet, "/predict", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "satisfaction_trends")
	assert.Contains(t, w.Body.String(), "retention_risk")
}
