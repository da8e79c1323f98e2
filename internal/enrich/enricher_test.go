package enrich

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spa-insights-go/internal/config"
	"spa-insights-go/internal/types"
)

func record(id string, utterances ...types.Utterance) types.ConversationRecord {
	return types.ConversationRecord{
		ID:              id,
		Timestamp:       time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC),
		AgentName:       "Agent Amy",
		CustomerName:    "Casey",
		Location:        "Austin",
		Utterances:      utterances,
		DurationSeconds: 300,
		MessageCount:    len(utterances),
	}
}

func customer(text string) types.Utterance {
	return types.Utterance{Speaker: types.SpeakerCustomer, Text: text}
}

func agent(text string) types.Utterance {
	return types.Utterance{Speaker: types.SpeakerAgent, Text: text}
}

func TestEnrichDeterministic(t *testing.T) {
	e := New(config.DefaultEnrichment())
	rec := record("c1",
		agent("Thank you for calling Feel Good Spas, how can I help?"),
		customer("I love this place, the massage was excellent!"),
	)
	first := e.Enrich(rec)
	second := e.Enrich(rec)
	assert.Equal(t, first, second)
}

func TestEnrichScoreBounds(t *testing.T) {
	e := New(config.DefaultEnrichment())
	cases := []types.ConversationRecord{
		record("pos", customer("excellent amazing wonderful fantastic love perfect great happy")),
		record("neg", customer("terrible awful horrible worst hate angry upset frustrated rude")),
		record("none", agent("Hello?")),
		record("plain", customer("I called about my appointment time")),
	}
	for _, rec := range cases {
		t.Run(rec.ID, func(t *testing.T) {
			out := e.Enrich(rec)
			assert.GreaterOrEqual(t, out.SentimentScore, -1.0)
			assert.LessOrEqual(t, out.SentimentScore, 1.0)
			assert.GreaterOrEqual(t, out.SatisfactionScore, 1.0)
			assert.LessOrEqual(t, out.SatisfactionScore, 10.0)
			assert.GreaterOrEqual(t, out.QualityScore, 1.0)
			assert.LessOrEqual(t, out.QualityScore, 10.0)
			assert.GreaterOrEqual(t, out.ScriptAdherence, 0.0)
			assert.LessOrEqual(t, out.ScriptAdherence, 1.0)
			assert.NotEmpty(t, out.Topic)
			assert.NotEmpty(t, out.Outcome)
		})
	}
}

// Three records: clearly positive customer text, explicit complaint
// language, and a call with no customer utterances at all. Sentiment must
// order positive > defaulted-neutral > negative, and the resolution
// keywords must drive the outcome labels.
func TestEnrichSentimentOrderingScenario(t *testing.T) {
	e := New(config.DefaultEnrichment())

	positive := e.Enrich(record("pos",
		customer("This was wonderful, I love the service, thank you!"),
		agent("You're all booked, have a great day!"),
	))
	negative := e.Enrich(record("neg",
		customer("This is terrible, I am very unhappy and want to file a complaint."),
	))
	silent := e.Enrich(record("silent",
		agent("Thank you for calling Feel Good Spas."),
		agent("We'll follow up shortly."),
	))

	assert.Greater(t, positive.SentimentScore, silent.SentimentScore)
	assert.Greater(t, silent.SentimentScore, negative.SentimentScore)

	assert.False(t, positive.SentimentDefaulted)
	assert.False(t, negative.SentimentDefaulted)
	assert.True(t, silent.SentimentDefaulted)
	assert.Equal(t, 0.0, silent.SentimentScore)
	assert.Equal(t, "neutral", silent.SentimentLabel)

	assert.Equal(t, "positive", positive.SentimentLabel)
	assert.Equal(t, "negative", negative.SentimentLabel)

	assert.Equal(t, types.OutcomeResolved, positive.Outcome)
	assert.Equal(t, types.OutcomeEscalated, silent.Outcome)
	assert.Equal(t, types.OutcomeUnresolved, negative.Outcome)
}

func TestEnrichNeutralWithoutLexiconMatches(t *testing.T) {
	e := New(config.DefaultEnrichment())
	out := e.Enrich(record("plain", customer("I called about the opening schedule for next month")))
	assert.Equal(t, 0.0, out.SentimentScore)
	// computed neutrality, not a default
	assert.False(t, out.SentimentDefaulted)
}

func TestEnrichTopic(t *testing.T) {
	e := New(config.DefaultEnrichment())
	cases := []struct {
		text  string
		topic string
	}{
		{"I want to schedule an appointment and check availability", "appointment_scheduling"},
		{"There is a wrong charge on my invoice, I want a refund", "billing_payment"},
		{"I can't log in to the website, the app keeps rejecting my password", "technical_support"},
		{"xyzzy plugh", "other"},
	}
	for _, tc := range cases {
		t.Run(tc.topic, func(t *testing.T) {
			out := e.Enrich(record("t", customer(tc.text)))
			assert.Equal(t, tc.topic, out.Topic)
			if tc.topic == "other" {
				assert.Equal(t, 0.0, out.TopicConfidence)
			} else {
				assert.Greater(t, out.TopicConfidence, 0.0)
			}
		})
	}
}

func TestClassifyOutcomeReadsFinalUtterancesOnly(t *testing.T) {
	// resolution keyword early in the call must not count
	utterances := []types.Utterance{
		customer("Last time you fixed it right away."),
		agent("Let me look into that."),
		customer("So what happens now?"),
		agent("I will need to check with the team."),
		agent("We'll be in touch."),
	}
	assert.Equal(t, types.OutcomeUnresolved, classifyOutcome(utterances))

	utterances = append(utterances, agent("Good news, the issue is resolved."))
	assert.Equal(t, types.OutcomeResolved, classifyOutcome(utterances))
}

func TestEnrichQualityWeights(t *testing.T) {
	cfg := config.DefaultEnrichment()
	e := New(cfg)

	base := record("q", customer("hello"))
	base.DurationSeconds = 60 // outside the good band
	plain := e.Enrich(base)

	courteous := record("q", customer("hello"), agent("thank you, glad to help, of course"))
	courteous.DurationSeconds = 60
	polite := e.Enrich(courteous)
	assert.Greater(t, polite.QualityScore, plain.QualityScore)

	goodLength := record("q", customer("hello"))
	goodLength.DurationSeconds = 300
	assert.InDelta(t, cfg.GoodDurationBonus,
		e.Enrich(goodLength).QualityScore-plain.QualityScore, 1e-9)

	dragging := record("q", customer("hello"))
	dragging.DurationSeconds = 1200
	assert.InDelta(t, -cfg.LongDurationPenalty,
		e.Enrich(dragging).QualityScore-plain.QualityScore, 1e-9)
}

func TestEnrichUrgency(t *testing.T) {
	e := New(config.DefaultEnrichment())
	assert.Equal(t, "high", e.Enrich(record("u", customer("This is urgent, I need it fixed asap"))).Urgency)
	assert.Equal(t, "medium", e.Enrich(record("u", customer("I need help with this today"))).Urgency)
	assert.Equal(t, "low", e.Enrich(record("u", customer("Just checking on my order"))).Urgency)
}

func TestEnrichTemporalFeatures(t *testing.T) {
	e := New(config.DefaultEnrichment())
	rec := record("t", customer("hello"))
	rec.Timestamp = time.Date(2025, 3, 15, 20, 0, 0, 0, time.UTC) // a Saturday evening
	out := e.Enrich(rec)
	assert.Equal(t, "2025-03-15", out.CallDate)
	assert.Equal(t, 20, out.CallHour)
	assert.Equal(t, "Saturday", out.DayOfWeek)
	assert.True(t, out.IsWeekend)
	assert.False(t, out.IsBusinessHours)
}

func TestEnrichIsTotal(t *testing.T) {
	e := New(config.DefaultEnrichment())
	for i, rec := range []types.ConversationRecord{
		{ID: "bare"},
		record("empty-text", customer("")),
		record("huge", customer(fmt.Sprintf("%010000d", 1))),
	} {
		require.NotPanics(t, func() { e.Enrich(rec) }, "case %d", i)
	}
}
