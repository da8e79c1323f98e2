package types

import "time"

// Speaker tags used on utterances.
const (
	SpeakerAgent    = "agent"
	SpeakerCustomer = "customer"
)

// Unknown is the sentinel for missing optional fields (agent, location).
const Unknown = "unknown"

// Utterance is one dialog entry of a conversation.
type Utterance struct {
	Speaker         string  `json:"speaker"`
	Text            string  `json:"text"`
	StartSeconds    float64 `json:"start_seconds,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// ConversationRecord is one parsed vCon conversation. Immutable after parse.
type ConversationRecord struct {
	ID              string            `json:"conversation_id"`
	Subject         string            `json:"subject,omitempty"`
	Timestamp       time.Time         `json:"created_at"`
	AgentName       string            `json:"agent_name"`
	AgentEmail      string            `json:"agent_email,omitempty"`
	CustomerName    string            `json:"customer_name"`
	CustomerPhone   string            `json:"customer_phone,omitempty"`
	Location        string            `json:"location"`
	Utterances      []Utterance       `json:"utterances"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	DurationSeconds float64           `json:"duration_seconds"`
	MessageCount    int               `json:"message_count"`
	HasRecording    bool              `json:"has_recording"`
}

// EnrichedRecord is a ConversationRecord plus derived business scores.
// Enrichment is a pure function of the record: same input, same output.
type EnrichedRecord struct {
	ConversationRecord

	SentimentScore     float64 `json:"sentiment_score"`       // -1..1
	SentimentLabel     string  `json:"sentiment_label"`       // positive|neutral|negative
	SentimentDefaulted bool    `json:"sentiment_defaulted"`   // true when no customer text was available
	SatisfactionScore  float64 `json:"satisfaction_score"`    // 1..10
	QualityScore       float64 `json:"quality_score"`         // 1..10
	ScriptAdherence    float64 `json:"script_adherence_rate"` // 0..1

	Topic           string  `json:"primary_topic"`
	TopicConfidence float64 `json:"topic_confidence"`
	Outcome         string  `json:"call_outcome"` // resolved|escalated|unresolved
	Urgency         string  `json:"urgency_level"`

	CallDate        string `json:"call_date"` // YYYY-MM-DD
	CallHour        int    `json:"call_hour"`
	DayOfWeek       string `json:"call_day_of_week"`
	IsWeekend       bool   `json:"is_weekend"`
	IsBusinessHours bool   `json:"is_business_hours"`
}

// Outcome labels.
const (
	OutcomeResolved   = "resolved"
	OutcomeEscalated  = "escalated"
	OutcomeUnresolved = "unresolved"
)

// SummaryStatistic is one aggregated group. Always derived on demand,
// never persisted.
type SummaryStatistic struct {
	Dimension           string  `json:"dimension"`
	Key                 string  `json:"key"`
	Count               int     `json:"count"`
	MeanSentiment       float64 `json:"mean_sentiment"`
	MedianSentiment     float64 `json:"median_sentiment"`
	MeanQuality         float64 `json:"mean_quality"`
	MedianQuality       float64 `json:"median_quality"`
	MeanSatisfaction    float64 `json:"mean_satisfaction"`
	MeanDurationSeconds float64 `json:"mean_duration_seconds"`
	ResolvedRate        float64 `json:"resolved_rate"`
}

// RunReport accounts for one pipeline run end to end.
type RunReport struct {
	Total       int      `json:"total"`
	Parsed      int      `json:"parsed"`
	Skipped     int      `json:"skipped"`
	Loaded      int      `json:"loaded"`
	Backend     string   `json:"backend"`
	FellBack    bool     `json:"fell_back"`
	SkipReasons []string `json:"skip_reasons,omitempty"`
}
