// Package aggregator computes grouped summary statistics over the enriched
// collection. Summaries are derived views, recomputed on demand and never
// persisted.
package aggregator

import (
	"fmt"
	"sort"

	"spa-insights-go/internal/types"
)

// Grouping dimensions.
const (
	DimensionAgent    = "agent"
	DimensionLocation = "location"
	DimensionDay      = "day"
	DimensionHour     = "hour"
)

// Dimensions lists the supported grouping dimensions.
func Dimensions() []string {
	return []string{DimensionAgent, DimensionLocation, DimensionDay, DimensionHour}
}

// Summarize returns one SummaryStatistic per distinct group value present,
// sorted by key. Groups with zero records are simply absent; the input
// slice is never mutated and ordering of the input does not matter.
func Summarize(records []types.EnrichedRecord, dimension string) ([]types.SummaryStatistic, error) {
	keyFn, err := keyFunc(dimension)
	if err != nil {
		return nil, err
	}

	groups := map[string][]types.EnrichedRecord{}
	for _, rec := range records {
		key := keyFn(rec)
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], rec)
	}

	out := make([]types.SummaryStatistic, 0, len(groups))
	for key, recs := range groups {
		out = append(out, summarizeGroup(dimension, key, recs))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func keyFunc(dimension string) (func(types.EnrichedRecord) string, error) {
	switch dimension {
	case DimensionAgent:
		return func(r types.EnrichedRecord) string { return r.AgentName }, nil
	case DimensionLocation:
		return func(r types.EnrichedRecord) string { return r.Location }, nil
	case DimensionDay:
		return func(r types.EnrichedRecord) string { return r.CallDate }, nil
	case DimensionHour:
		return func(r types.EnrichedRecord) string { return fmt.Sprintf("%02d", r.CallHour) }, nil
	default:
		return nil, fmt.Errorf("unknown grouping dimension %q", dimension)
	}
}

func summarizeGroup(dimension, key string, recs []types.EnrichedRecord) types.SummaryStatistic {
	n := len(recs)
	sentiments := make([]float64, 0, n)
	qualities := make([]float64, 0, n)
	var sentimentSum, qualitySum, satisfactionSum, durationSum float64
	resolved := 0
	for _, r := range recs {
		sentiments = append(sentiments, r.SentimentScore)
		qualities = append(qualities, r.QualityScore)
		sentimentSum += r.SentimentScore
		qualitySum += r.QualityScore
		satisfactionSum += r.SatisfactionScore
		durationSum += r.DurationSeconds
		if r.Outcome == types.OutcomeResolved {
			resolved++
		}
	}
	return types.SummaryStatistic{
		Dimension:           dimension,
		Key:                 key,
		Count:               n,
		MeanSentiment:       sentimentSum / float64(n),
		MedianSentiment:     median(sentiments),
		MeanQuality:         qualitySum / float64(n),
		MedianQuality:       median(qualities),
		MeanSatisfaction:    satisfactionSum / float64(n),
		MeanDurationSeconds: durationSum / float64(n),
		ResolvedRate:        float64(resolved) / float64(n),
	}
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
