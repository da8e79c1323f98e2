// Package enrich derives business scores and labels from parsed
// conversation records. Every derivation is deterministic and total: the
// enricher never fails and never reaches outside the record it is given.
package enrich

import (
	"strings"
	"time"
	"unicode"

	"spa-insights-go/internal/config"
	"spa-insights-go/internal/types"
)

// finalWindow is how many trailing utterances the outcome classifier reads.
const finalWindow = 3

// neutralPolarity is the documented default when a record has no customer
// utterances. EnrichedRecord.SentimentDefaulted marks it so a defaulted 0.0
// stays distinguishable from a computed neutral score.
const neutralPolarity = 0.0

type Enricher struct {
	cfg config.EnrichmentConfig
}

func New(cfg config.EnrichmentConfig) *Enricher {
	return &Enricher{cfg: cfg}
}

// Enrich produces the EnrichedRecord for one ConversationRecord.
func (e *Enricher) Enrich(rec types.ConversationRecord) types.EnrichedRecord {
	out := types.EnrichedRecord{ConversationRecord: rec}

	customerText := joinSpeaker(rec.Utterances, types.SpeakerCustomer)
	fullText := strings.ToLower(joinAll(rec.Utterances))

	polarity, defaulted := e.sentiment(customerText)
	out.SentimentScore = polarity
	out.SentimentDefaulted = defaulted
	out.SentimentLabel = e.sentimentLabel(polarity)
	out.SatisfactionScore = clamp(5.0+polarity*5.0, 1.0, 10.0)

	out.QualityScore = e.quality(fullText, rec.DurationSeconds)
	out.ScriptAdherence = scriptAdherence(fullText)
	out.Topic, out.TopicConfidence = classifyTopic(fullText)
	out.Outcome = classifyOutcome(rec.Utterances)
	out.Urgency = classifyUrgency(fullText)

	ts := rec.Timestamp
	out.CallDate = ts.Format("2006-01-02")
	out.CallHour = ts.Hour()
	out.DayOfWeek = ts.Weekday().String()
	out.IsWeekend = ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday
	out.IsBusinessHours = ts.Hour() >= 9 && ts.Hour() <= 17

	return out
}

// sentiment scores the customer-side text with the word lexicon. The score
// is the weight-normalized balance of positive and negative matches,
// clamped to [-1, 1]. A record with no customer utterances yields the
// neutral default with the defaulted flag set.
func (e *Enricher) sentiment(customerText string) (float64, bool) {
	if strings.TrimSpace(customerText) == "" {
		return neutralPolarity, true
	}
	var pos, neg float64
	for _, tok := range tokenize(customerText) {
		if w, ok := positiveWords[tok]; ok {
			pos += w
		}
		if w, ok := negativeWords[tok]; ok {
			neg += w
		}
	}
	if pos+neg == 0 {
		return neutralPolarity, false
	}
	return clamp((pos-neg)/(pos+neg), -1.0, 1.0), false
}

func (e *Enricher) sentimentLabel(polarity float64) string {
	switch {
	case polarity > e.cfg.SentimentPositiveThreshold:
		return "positive"
	case polarity < e.cfg.SentimentNegativeThreshold:
		return "negative"
	default:
		return "neutral"
	}
}

// quality combines courtesy-phrase counts with a duration band. Weights
// come from EnrichmentConfig; the result is clamped to [1, 10].
func (e *Enricher) quality(fullText string, durationSec float64) float64 {
	score := e.cfg.QualityBase
	for _, ind := range positiveIndicators {
		if strings.Contains(fullText, ind) {
			score += e.cfg.PositiveIndicatorWeight
		}
	}
	for _, ind := range negativeIndicators {
		if strings.Contains(fullText, ind) {
			score -= e.cfg.NegativeIndicatorWeight
		}
	}
	if durationSec >= e.cfg.GoodDurationMinSec && durationSec <= e.cfg.GoodDurationMaxSec {
		score += e.cfg.GoodDurationBonus
	} else if durationSec > e.cfg.LongDurationSec {
		score -= e.cfg.LongDurationPenalty
	}
	return clamp(score, 1.0, 10.0)
}

func scriptAdherence(fullText string) float64 {
	followed := 0
	for _, el := range scriptElements {
		for _, phrase := range el.phrases {
			if strings.Contains(fullText, phrase) {
				followed++
				break
			}
		}
	}
	return float64(followed) / float64(len(scriptElements))
}

// classifyTopic picks the closed-set topic with the most keyword matches.
// No match at all yields "other". Ties resolve by the fixed topic order.
func classifyTopic(fullText string) (string, float64) {
	best := "other"
	bestCount := 0
	total := 0
	for _, topic := range topicOrder {
		count := 0
		for _, kw := range topicKeywords[topic] {
			if strings.Contains(fullText, kw) {
				count++
			}
		}
		total += count
		if count > bestCount {
			bestCount = count
			best = topic
		}
	}
	if total == 0 {
		return "other", 0
	}
	return best, float64(bestCount) / float64(total)
}

// classifyOutcome reads only the final utterances. Resolution keywords win
// over escalation keywords; absent both, the call is unresolved.
func classifyOutcome(utterances []types.Utterance) string {
	start := len(utterances) - finalWindow
	if start < 0 {
		start = 0
	}
	var tail []string
	for _, u := range utterances[start:] {
		tail = append(tail, strings.ToLower(u.Text))
	}
	text := strings.Join(tail, " ")
	for _, kw := range resolvedKeywords {
		if strings.Contains(text, kw) {
			return types.OutcomeResolved
		}
	}
	for _, kw := range escalatedKeywords {
		if strings.Contains(text, kw) {
			return types.OutcomeEscalated
		}
	}
	return types.OutcomeUnresolved
}

func classifyUrgency(fullText string) string {
	for _, kw := range highUrgencyKeywords {
		if strings.Contains(fullText, kw) {
			return "high"
		}
	}
	for _, kw := range mediumUrgencyKeywords {
		if strings.Contains(fullText, kw) {
			return "medium"
		}
	}
	return "low"
}

func joinSpeaker(utterances []types.Utterance, speaker string) string {
	var parts []string
	for _, u := range utterances {
		if u.Speaker == speaker {
			parts = append(parts, u.Text)
		}
	}
	return strings.Join(parts, " ")
}

func joinAll(utterances []types.Utterance) string {
	parts := make([]string, 0, len(utterances))
	for _, u := range utterances {
		parts = append(parts, u.Text)
	}
	return strings.Join(parts, " ")
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
