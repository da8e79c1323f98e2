package config

import (
	"os"
	"strconv"
)

// EnrichmentConfig holds the weights and thresholds used by the enricher.
// All values are fixed configuration, never derived at runtime.
type EnrichmentConfig struct {
	// QualityBase is the starting quality score before adjustments.
	QualityBase float64
	// PositiveIndicatorWeight is added per courtesy phrase found.
	PositiveIndicatorWeight float64
	// NegativeIndicatorWeight is subtracted per escalation/rudeness phrase found.
	NegativeIndicatorWeight float64
	// GoodDurationBonus applies when call duration falls inside
	// [GoodDurationMinSec, GoodDurationMaxSec].
	GoodDurationBonus  float64
	GoodDurationMinSec float64
	GoodDurationMaxSec float64
	// LongDurationPenalty applies when duration exceeds LongDurationSec.
	LongDurationPenalty float64
	LongDurationSec     float64
	// SentimentPositiveThreshold / SentimentNegativeThreshold split the
	// polarity range into positive / neutral / negative labels.
	SentimentPositiveThreshold float64
	SentimentNegativeThreshold float64
}

// DefaultEnrichment returns the documented default weights.
func DefaultEnrichment() EnrichmentConfig {
	return EnrichmentConfig{
		QualityBase:                7.0,
		PositiveIndicatorWeight:    0.3,
		NegativeIndicatorWeight:    0.5,
		GoodDurationBonus:          0.5,
		GoodDurationMinSec:         120,
		GoodDurationMaxSec:         600,
		LongDurationPenalty:        0.3,
		LongDurationSec:            900,
		SentimentPositiveThreshold: 0.1,
		SentimentNegativeThreshold: -0.1,
	}
}

// LLMConfig configures the chat gateway client.
type LLMConfig struct {
	GatewayURL string
	APIKey     string
	Model      string
	UseMock    bool
}

// Config is the explicit configuration passed into each component at
// construction. Nothing in the pipeline reads ambient env state directly.
type Config struct {
	VConPath        string
	SQLitePath      string
	FallbackCSVPath string
	ExportPath      string
	Port            string
	Enrichment      EnrichmentConfig
	LLM             LLMConfig
}

// Load builds Config from the environment. Call godotenv.Load first in main.
func Load() Config {
	cfg := Config{
		VConPath:        envOr("VCON_PATH", "feel-good-spas-vcons.json"),
		SQLitePath:      envOr("SQLITE_PATH", "out/conversations.db"),
		FallbackCSVPath: envOr("FALLBACK_CSV_PATH", "out/conversations.csv"),
		ExportPath:      envOr("EXPORT_PATH", "out/conversations.xlsx"),
		Port:            envOr("PORT", "8080"),
		Enrichment:      DefaultEnrichment(),
		LLM: LLMConfig{
			GatewayURL: os.Getenv("LLM_GATEWAY_URL"),
			APIKey:     os.Getenv("LLM_API_KEY"),
			Model:      envOr("LLM_MODEL", "llama-3.1-8b-instant"),
			UseMock:    os.Getenv("USE_MOCK_LLM") == "true",
		},
	}

	// weight overrides, mostly useful for experiments
	if v, err := strconv.ParseFloat(os.Getenv("QUALITY_BASE"), 64); err == nil {
		cfg.Enrichment.QualityBase = v
	}
	return cfg
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
