package insights

import (
	"fmt"
	"sort"
	"strings"

	"spa-insights-go/internal/aggregator"
	"spa-insights-go/internal/types"
)

// DirectAnswer is a data-backed answer to a recognized business question.
type DirectAnswer struct {
	Answer string             `json:"answer"`
	Data   map[string]float64 `json:"data,omitempty"`
}

// DefaultSuggestions are offered when a question is not recognized or as
// follow-ups after a chat turn.
var DefaultSuggestions = []string{
	"Which locations have the highest call volume?",
	"Which agents have the best quality scores?",
	"What percentage of calls have positive sentiment?",
	"What are the most common call topics?",
	"What are the busiest call times?",
}

// AnswerQuestion routes a free-form question to a direct computation over
// the enriched collection. Unrecognized questions get a gentle pointer at
// what can be asked.
func AnswerQuestion(records []types.EnrichedRecord, question string) DirectAnswer {
	if len(records) == 0 {
		return DirectAnswer{Answer: "No conversation data is available yet; run the pipeline first."}
	}
	q := strings.ToLower(question)

	switch {
	case strings.Contains(q, "location") && strings.Contains(q, "volume"):
		counts := countBy(records, aggregator.DimensionLocation)
		top := topKeys(counts, 3)
		return DirectAnswer{
			Answer: fmt.Sprintf("Locations with highest call volume: %s", strings.Join(top, ", ")),
			Data:   counts,
		}
	case strings.Contains(q, "location") && strings.Contains(q, "quality"):
		means := meanQualityBy(records, aggregator.DimensionLocation)
		top := topKeys(means, 3)
		return DirectAnswer{
			Answer: fmt.Sprintf("Locations with highest quality scores: %s", strings.Join(top, ", ")),
			Data:   means,
		}
	case strings.Contains(q, "agent") && strings.Contains(q, "quality"):
		means := meanQualityBy(records, aggregator.DimensionAgent)
		top := topKeys(means, 3)
		return DirectAnswer{
			Answer: fmt.Sprintf("Agents with highest quality scores: %s", strings.Join(top, ", ")),
			Data:   means,
		}
	case strings.Contains(q, "agent") && (strings.Contains(q, "most calls") || strings.Contains(q, "volume")):
		counts := countBy(records, aggregator.DimensionAgent)
		top := topKeys(counts, 3)
		return DirectAnswer{
			Answer: fmt.Sprintf("Agents handling the most calls: %s", strings.Join(top, ", ")),
			Data:   counts,
		}
	case strings.Contains(q, "busiest"):
		counts := countBy(records, aggregator.DimensionHour)
		top := topKeys(counts, 3)
		for i, h := range top {
			top[i] = h + ":00"
		}
		return DirectAnswer{
			Answer: fmt.Sprintf("Busiest call times: %s", strings.Join(top, ", ")),
			Data:   counts,
		}
	case strings.Contains(q, "sentiment"):
		s := ExecutiveSummary(records)
		return DirectAnswer{
			Answer: fmt.Sprintf("Sentiment split: %.1f%% positive, %.1f%% neutral, %.1f%% negative",
				s.SentimentPct["positive"], s.SentimentPct["neutral"], s.SentimentPct["negative"]),
			Data: s.SentimentPct,
		}
	case strings.Contains(q, "topic") || strings.Contains(q, "complaint"):
		counts := map[string]float64{}
		for _, r := range records {
			counts[r.Topic]++
		}
		top := topKeys(counts, 3)
		return DirectAnswer{
			Answer: fmt.Sprintf("Most common topics: %s", strings.Join(top, ", ")),
			Data:   counts,
		}
	}
	return DirectAnswer{
		Answer: "I can help you analyze call data. Try asking about locations, agents, sentiment, or topics.",
	}
}

func countBy(records []types.EnrichedRecord, dimension string) map[string]float64 {
	stats, _ := aggregator.Summarize(records, dimension)
	out := make(map[string]float64, len(stats))
	for _, s := range stats {
		out[s.Key] = float64(s.Count)
	}
	return out
}

func meanQualityBy(records []types.EnrichedRecord, dimension string) map[string]float64 {
	stats, _ := aggregator.Summarize(records, dimension)
	out := make(map[string]float64, len(stats))
	for _, s := range stats {
		out[s.Key] = s.MeanQuality
	}
	return out
}

func topKeys(m map[string]float64, n int) []string {
	type kv struct {
		k string
		v float64
	}
	arr := make([]kv, 0, len(m))
	for k, v := range m {
		arr = append(arr, kv{k, v})
	}
	sort.Slice(arr, func(i, j int) bool {
		if arr[i].v != arr[j].v {
			return arr[i].v > arr[j].v
		}
		return arr[i].k < arr[j].k
	})
	out := make([]string, 0, n)
	for i := 0; i < len(arr) && i < n; i++ {
		out = append(out, arr[i].k)
	}
	return out
}
