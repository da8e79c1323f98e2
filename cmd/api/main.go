package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"spa-insights-go/internal/aggregator"
	"spa-insights-go/internal/chat"
	"spa-insights-go/internal/config"
	"spa-insights-go/internal/export"
	"spa-insights-go/internal/insights"
	"spa-insights-go/internal/logger"
	"spa-insights-go/internal/pipeline"
	"spa-insights-go/internal/store"
	"spa-insights-go/internal/types"
)

type app struct {
	cfg  config.Config
	chat *chat.Client

	mu     sync.RWMutex
	store  store.Store
	report types.RunReport
}

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "spa-insights-go").Info("starting service")

	cfg := config.Load()
	log.WithField("vcon_path", cfg.VConPath).Info("running ingest pipeline")

	st, report, err := pipeline.Run(context.Background(), cfg, log)
	if err != nil {
		log.WithError(err).Fatal("pipeline run failed")
	}
	log.WithField("loaded", report.Loaded).WithField("backend", report.Backend).Info("ingest complete")

	a := &app{
		cfg:    cfg,
		chat:   chat.New(cfg.LLM, nil),
		store:  st,
		report: report,
	}

	mux := http.NewServeMux()

	// health
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logger.New().WithRequest(r).Info("health check")
		fmt.Fprint(w, "ok")
	})

	mux.HandleFunc("/refresh", a.handleRefresh)
	mux.HandleFunc("/summary", a.handleSummary)
	mux.HandleFunc("/overview", a.handleOverview)
	mux.HandleFunc("/records", a.handleRecords)
	mux.HandleFunc("/ask", a.handleAsk)
	mux.HandleFunc("/chat", a.handleChat)
	mux.HandleFunc("/predict", a.handlePredict)
	mux.HandleFunc("/export", a.handleExport)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

func (a *app) records(ctx context.Context) ([]types.EnrichedRecord, error) {
	a.mu.RLock()
	st := a.store
	a.mu.RUnlock()
	return st.List(ctx)
}

// handleRefresh re-runs the whole pipeline from the source file.
func (a *app) handleRefresh(w http.ResponseWriter, r *http.Request) {
	reqLog := logger.New().WithRequest(r).WithField("handler", "refresh")
	reqLog.Info("refresh requested")

	st, report, err := pipeline.Run(r.Context(), a.cfg, logger.New())
	if err != nil {
		reqLog.WithError(err).Error("pipeline run failed")
		http.Error(w, "pipeline run failed", http.StatusInternalServerError)
		return
	}

	a.mu.Lock()
	old := a.store
	a.store = st
	a.report = report
	a.mu.Unlock()
	if old != nil && old != st {
		old.Close()
	}

	writeJSON(w, report, reqLog)
}

func (a *app) handleSummary(w http.ResponseWriter, r *http.Request) {
	reqLog := logger.New().WithRequest(r).WithField("handler", "summary")

	dimension := r.URL.Query().Get("dimension")
	if dimension == "" {
		dimension = aggregator.DimensionLocation
	}
	records, err := a.records(r.Context())
	if err != nil {
		reqLog.WithError(err).Error("store read failed")
		http.Error(w, "store read failed", http.StatusInternalServerError)
		return
	}
	stats, err := aggregator.Summarize(records, dimension)
	if err != nil {
		reqLog.WithError(err).Warn("bad dimension")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	reqLog.WithField("dimension", dimension).WithField("groups", len(stats)).Info("summary computed")
	writeJSON(w, stats, reqLog)
}

func (a *app) handleOverview(w http.ResponseWriter, r *http.Request) {
	reqLog := logger.New().WithRequest(r).WithField("handler", "overview")
	records, err := a.records(r.Context())
	if err != nil {
		reqLog.WithError(err).Error("store read failed")
		http.Error(w, "store read failed", http.StatusInternalServerError)
		return
	}
	a.mu.RLock()
	report := a.report
	a.mu.RUnlock()
	writeJSON(w, map[string]any{
		"summary":    insights.ExecutiveSummary(records),
		"run_report": report,
	}, reqLog)
}

func (a *app) handleRecords(w http.ResponseWriter, r *http.Request) {
	reqLog := logger.New().WithRequest(r).WithField("handler", "records")
	records, err := a.records(r.Context())
	if err != nil {
		reqLog.WithError(err).Error("store read failed")
		http.Error(w, "store read failed", http.StatusInternalServerError)
		return
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if limit, err := strconv.Atoi(s); err == nil && limit >= 0 && limit < len(records) {
			records = records[:limit]
		}
	}
	writeJSON(w, records, reqLog)
}

func (a *app) handleAsk(w http.ResponseWriter, r *http.Request) {
	reqLog := logger.New().WithRequest(r).WithField("handler", "ask")
	question := r.URL.Query().Get("q")
	if question == "" {
		http.Error(w, "missing q", http.StatusBadRequest)
		return
	}
	records, err := a.records(r.Context())
	if err != nil {
		reqLog.WithError(err).Error("store read failed")
		http.Error(w, "store read failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, insights.AnswerQuestion(records, question), reqLog)
}

func (a *app) handleChat(w http.ResponseWriter, r *http.Request) {
	reqLog := logger.New().WithRequest(r).WithField("handler", "chat")
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Question == "" {
		http.Error(w, "missing question", http.StatusBadRequest)
		return
	}
	records, err := a.records(r.Context())
	if err != nil {
		reqLog.WithError(err).Error("store read failed")
		http.Error(w, "store read failed", http.StatusInternalServerError)
		return
	}
	dataContext := insights.BuildChatContext(records, 4000)
	start := time.Now()
	answer, err := a.chat.Ask(r.Context(), body.Question, dataContext)
	reqLog.WithField("duration_ms", time.Since(start).Milliseconds()).Info("chat turn finished")
	if err != nil {
		reqLog.WithError(err).Warn("chat failed")
		http.Error(w, "chat failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, answer, reqLog)
}

func (a *app) handlePredict(w http.ResponseWriter, r *http.Request) {
	reqLog := logger.New().WithRequest(r).WithField("handler", "predict")
	records, err := a.records(r.Context())
	if err != nil {
		reqLog.WithError(err).Error("store read failed")
		http.Error(w, "store read failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"satisfaction_trends": insights.SatisfactionTrends(records),
		"retention_risk":      insights.CustomerRetentionRisk(records),
	}, reqLog)
}

func (a *app) handleExport(w http.ResponseWriter, r *http.Request) {
	reqLog := logger.New().WithRequest(r).WithField("handler", "export")
	records, err := a.records(r.Context())
	if err != nil {
		reqLog.WithError(err).Error("store read failed")
		http.Error(w, "store read failed", http.StatusInternalServerError)
		return
	}
	// each request gets its own file so concurrent exports cannot clobber
	// a download in flight
	dir := filepath.Dir(a.cfg.ExportPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		reqLog.WithError(err).Error("export dir failed")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	tmp, err := os.CreateTemp(dir, "conversations-*.xlsx")
	if err != nil {
		reqLog.WithError(err).Error("export temp file failed")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if err := export.WriteWorkbook(path, records); err != nil {
		reqLog.WithError(err).Error("export failed")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	reqLog.WithField("path", path).Info("workbook written")
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="conversations.xlsx"`)
	http.ServeFile(w, r, path)
}

func writeJSON(w http.ResponseWriter, v any, reqLog *logrus.Entry) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		reqLog.Error("failed to write response")
	}
}
