// Package insights turns the enriched collection into executive-level
// views: an overview summary, ranked locations, critical issues, and a
// bounded context blob for the chat layer.
package insights

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"spa-insights-go/internal/aggregator"
	"spa-insights-go/internal/types"
)

type LocationScore struct {
	Location string  `json:"location"`
	Score    float64 `json:"score"`
}

type Issue struct {
	Kind     string `json:"kind"`
	Location string `json:"location"`
	Detail   string `json:"detail"`
}

type Summary struct {
	TotalCalls         int               `json:"total_calls"`
	DateRangeStart     string            `json:"date_range_start"`
	DateRangeEnd       string            `json:"date_range_end"`
	AvgQuality         float64           `json:"avg_quality_score"`
	AvgSatisfaction    float64           `json:"avg_satisfaction"`
	AvgScriptAdherence float64           `json:"avg_script_adherence"`
	SentimentPct       map[string]float64 `json:"sentiment_pct"`
	TopLocations       []LocationScore   `json:"top_locations"`
	BottomLocations    []LocationScore   `json:"bottom_locations"`
	CriticalIssues     []Issue           `json:"critical_issues"`
}

// negativeShareAlert is the negative-sentiment share above which a location
// counts as a critical issue; lowQualityAlert is the mean quality below
// which it does.
const (
	negativeShareAlert = 0.30
	lowQualityAlert    = 6.0
)

// ExecutiveSummary computes the dashboard overview from the full
// collection.
func ExecutiveSummary(records []types.EnrichedRecord) Summary {
	s := Summary{SentimentPct: map[string]float64{"positive": 0, "neutral": 0, "negative": 0}}
	if len(records) == 0 {
		return s
	}
	s.TotalCalls = len(records)

	var qualitySum, satisfactionSum, adherenceSum float64
	sentimentCounts := map[string]int{}
	for _, r := range records {
		qualitySum += r.QualityScore
		satisfactionSum += r.SatisfactionScore
		adherenceSum += r.ScriptAdherence
		sentimentCounts[r.SentimentLabel]++
		if s.DateRangeStart == "" || r.CallDate < s.DateRangeStart {
			s.DateRangeStart = r.CallDate
		}
		if r.CallDate > s.DateRangeEnd {
			s.DateRangeEnd = r.CallDate
		}
	}
	n := float64(len(records))
	s.AvgQuality = qualitySum / n
	s.AvgSatisfaction = satisfactionSum / n
	s.AvgScriptAdherence = adherenceSum / n
	for label, count := range sentimentCounts {
		s.SentimentPct[label] = 100 * float64(count) / n
	}

	byLocation, _ := aggregator.Summarize(records, aggregator.DimensionLocation)
	ranked := append([]types.SummaryStatistic(nil), byLocation...)
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].MeanQuality > ranked[j].MeanQuality })
	for i := 0; i < len(ranked) && i < 3; i++ {
		s.TopLocations = append(s.TopLocations, LocationScore{ranked[i].Key, ranked[i].MeanQuality})
	}
	for i := len(ranked) - 1; i >= 0 && len(s.BottomLocations) < 3; i-- {
		s.BottomLocations = append(s.BottomLocations, LocationScore{ranked[i].Key, ranked[i].MeanQuality})
	}

	s.CriticalIssues = criticalIssues(records, byLocation)
	return s
}

func criticalIssues(records []types.EnrichedRecord, byLocation []types.SummaryStatistic) []Issue {
	negByLocation := map[string]int{}
	totalByLocation := map[string]int{}
	for _, r := range records {
		totalByLocation[r.Location]++
		if r.SentimentLabel == "negative" {
			negByLocation[r.Location]++
		}
	}
	var issues []Issue
	for _, stat := range byLocation {
		share := float64(negByLocation[stat.Key]) / float64(totalByLocation[stat.Key])
		if share > negativeShareAlert {
			issues = append(issues, Issue{
				Kind:     "negative_sentiment",
				Location: stat.Key,
				Detail:   fmt.Sprintf("%.0f%% of calls negative", share*100),
			})
		}
		if stat.MeanQuality < lowQualityAlert {
			issues = append(issues, Issue{
				Kind:     "low_quality",
				Location: stat.Key,
				Detail:   fmt.Sprintf("mean quality %.1f", stat.MeanQuality),
			})
		}
	}
	return issues
}

// BuildChatContext renders a bounded textual summary of current aggregates
// for the LLM prompt. Regenerated per query, never cached.
func BuildChatContext(records []types.EnrichedRecord, maxLen int) string {
	s := ExecutiveSummary(records)
	var b strings.Builder
	fmt.Fprintf(&b, "DATA OVERVIEW:\n")
	fmt.Fprintf(&b, "- Total conversations analyzed: %d\n", s.TotalCalls)
	fmt.Fprintf(&b, "- Date range: %s to %s\n", s.DateRangeStart, s.DateRangeEnd)
	fmt.Fprintf(&b, "- Average call quality score: %.1f/10\n", s.AvgQuality)
	fmt.Fprintf(&b, "- Average customer satisfaction: %.1f/10\n", s.AvgSatisfaction)
	fmt.Fprintf(&b, "- Average script adherence: %.0f%%\n", s.AvgScriptAdherence*100)
	fmt.Fprintf(&b, "- Sentiment split: %.1f%% positive, %.1f%% neutral, %.1f%% negative\n",
		s.SentimentPct["positive"], s.SentimentPct["neutral"], s.SentimentPct["negative"])
	for _, ls := range s.TopLocations {
		fmt.Fprintf(&b, "- Top location %s: quality %.1f\n", ls.Location, ls.Score)
	}
	for _, issue := range s.CriticalIssues {
		fmt.Fprintf(&b, "- Issue at %s: %s (%s)\n", issue.Location, issue.Kind, issue.Detail)
	}
	ctx := b.String()
	if maxLen > 0 {
		ctx = truncate(ctx, maxLen)
	}
	return ctx
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
