package insights

import (
	"math"
	"sort"

	"spa-insights-go/internal/types"
)

// Retention scoring thresholds and factor weights. A customer accrues risk
// per factor breached; the score is capped at 1.0.
const (
	satisfactionFloor    = 7.0
	qualityFloor         = 7.0
	adherenceFloor       = 0.7
	dissatisfactionFloor = 5.0

	lowSatisfactionWeight   = 0.30
	poorQualityWeight       = 0.25
	nonAdherenceWeight      = 0.20
	negativeSentimentWeight = 0.15
	dissatisfactionWeight   = 0.20

	highRiskCutoff   = 0.6
	mediumRiskCutoff = 0.3

	// trendSlopeBand is the per-month slope below which a trend counts as stable.
	trendSlopeBand = 0.1

	maxListedCustomers = 10
)

// MonthlyTrend is one calendar month of aggregate scores.
type MonthlyTrend struct {
	Month            string  `json:"month"` // YYYY-MM
	Count            int     `json:"count"`
	MeanSatisfaction float64 `json:"mean_satisfaction"`
	MeanQuality      float64 `json:"mean_quality"`
	MeanSentiment    float64 `json:"mean_sentiment"`
}

// TrendAnalysis is the satisfaction trajectory over the month buckets.
type TrendAnalysis struct {
	Monthly             []MonthlyTrend `json:"monthly"`
	Direction           string         `json:"direction"` // improving|declining|stable|insufficient_data
	Slope               float64        `json:"slope"`
	Strength            float64        `json:"strength"`
	RiskPeriods         int            `json:"risk_periods"`
	CurrentSatisfaction float64        `json:"current_satisfaction"`
	Volatility          float64        `json:"satisfaction_volatility"`
}

// CustomerRisk is one customer's interaction profile with its retention
// risk score.
type CustomerRisk struct {
	Customer        string  `json:"customer"`
	Interactions    int     `json:"interactions"`
	AvgSatisfaction float64 `json:"avg_satisfaction"`
	MinSatisfaction float64 `json:"min_satisfaction"`
	AvgQuality      float64 `json:"avg_quality"`
	AvgAdherence    float64 `json:"avg_script_adherence"`
	AvgSentiment    float64 `json:"avg_sentiment"`
	RiskScore       float64 `json:"risk_score"`
}

type RiskSegment struct {
	Count           int      `json:"count"`
	Percentage      float64  `json:"percentage"`
	AvgSatisfaction float64  `json:"avg_satisfaction"`
	Customers       []string `json:"customers,omitempty"`
}

// RetentionRisk segments the customer base by retention risk.
type RetentionRisk struct {
	TotalCustomers int                    `json:"total_customers"`
	Segments       map[string]RiskSegment `json:"segments"`
	Customers      []CustomerRisk         `json:"customers"`
}

// SatisfactionTrends buckets the collection by calendar month and fits a
// linear trend through the monthly satisfaction means. Fewer than two
// months yields the insufficient_data direction.
func SatisfactionTrends(records []types.EnrichedRecord) TrendAnalysis {
	out := TrendAnalysis{Direction: "insufficient_data"}

	type acc struct {
		count                             int
		satisfaction, quality, sentiment float64
	}
	byMonth := map[string]*acc{}
	for _, r := range records {
		if len(r.CallDate) < 7 {
			continue
		}
		month := r.CallDate[:7]
		a := byMonth[month]
		if a == nil {
			a = &acc{}
			byMonth[month] = a
		}
		a.count++
		a.satisfaction += r.SatisfactionScore
		a.quality += r.QualityScore
		a.sentiment += r.SentimentScore
	}
	if len(byMonth) == 0 {
		return out
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	means := make([]float64, 0, len(months))
	for _, m := range months {
		a := byMonth[m]
		n := float64(a.count)
		out.Monthly = append(out.Monthly, MonthlyTrend{
			Month:            m,
			Count:            a.count,
			MeanSatisfaction: a.satisfaction / n,
			MeanQuality:      a.quality / n,
			MeanSentiment:    a.sentiment / n,
		})
		means = append(means, a.satisfaction/n)
		if a.satisfaction/n < satisfactionFloor {
			out.RiskPeriods++
		}
	}
	out.CurrentSatisfaction = means[len(means)-1]

	if len(means) < 2 {
		return out
	}
	slope, r := linearTrend(means)
	out.Slope = slope
	out.Strength = math.Abs(r)
	out.Volatility = stddev(means)
	switch {
	case slope > trendSlopeBand:
		out.Direction = "improving"
	case slope < -trendSlopeBand:
		out.Direction = "declining"
	default:
		out.Direction = "stable"
	}
	return out
}

// CustomerRetentionRisk scores every customer against the risk factors and
// segments the base into high / medium / low buckets. Customers come back
// sorted by risk, riskiest first.
func CustomerRetentionRisk(records []types.EnrichedRecord) RetentionRisk {
	out := RetentionRisk{Segments: map[string]RiskSegment{}}
	if len(records) == 0 {
		return out
	}

	type acc struct {
		count                                       int
		satisfaction, quality, adherence, sentiment float64
		minSatisfaction                             float64
	}
	byCustomer := map[string]*acc{}
	for _, r := range records {
		a := byCustomer[r.CustomerName]
		if a == nil {
			a = &acc{minSatisfaction: r.SatisfactionScore}
			byCustomer[r.CustomerName] = a
		}
		a.count++
		a.satisfaction += r.SatisfactionScore
		a.quality += r.QualityScore
		a.adherence += r.ScriptAdherence
		a.sentiment += r.SentimentScore
		if r.SatisfactionScore < a.minSatisfaction {
			a.minSatisfaction = r.SatisfactionScore
		}
	}

	for name, a := range byCustomer {
		n := float64(a.count)
		c := CustomerRisk{
			Customer:        name,
			Interactions:    a.count,
			AvgSatisfaction: a.satisfaction / n,
			MinSatisfaction: a.minSatisfaction,
			AvgQuality:      a.quality / n,
			AvgAdherence:    a.adherence / n,
			AvgSentiment:    a.sentiment / n,
		}
		score := 0.0
		if c.AvgSatisfaction < satisfactionFloor {
			score += lowSatisfactionWeight
		}
		if c.AvgQuality < qualityFloor {
			score += poorQualityWeight
		}
		if c.AvgAdherence < adherenceFloor {
			score += nonAdherenceWeight
		}
		if c.AvgSentiment < 0 {
			score += negativeSentimentWeight
		}
		if c.MinSatisfaction < dissatisfactionFloor {
			score += dissatisfactionWeight
		}
		c.RiskScore = math.Min(score, 1.0)
		out.Customers = append(out.Customers, c)
	}
	sort.Slice(out.Customers, func(i, j int) bool {
		if out.Customers[i].RiskScore != out.Customers[j].RiskScore {
			return out.Customers[i].RiskScore > out.Customers[j].RiskScore
		}
		return out.Customers[i].Customer < out.Customers[j].Customer
	})
	out.TotalCustomers = len(out.Customers)

	segments := map[string][]CustomerRisk{"high_risk": nil, "medium_risk": nil, "low_risk": nil}
	for _, c := range out.Customers {
		switch {
		case c.RiskScore >= highRiskCutoff:
			segments["high_risk"] = append(segments["high_risk"], c)
		case c.RiskScore >= mediumRiskCutoff:
			segments["medium_risk"] = append(segments["medium_risk"], c)
		default:
			segments["low_risk"] = append(segments["low_risk"], c)
		}
	}
	total := float64(out.TotalCustomers)
	for name, members := range segments {
		seg := RiskSegment{
			Count:      len(members),
			Percentage: 100 * float64(len(members)) / total,
		}
		var satisfactionSum float64
		for _, c := range members {
			satisfactionSum += c.AvgSatisfaction
		}
		if len(members) > 0 {
			seg.AvgSatisfaction = satisfactionSum / float64(len(members))
		}
		if name == "high_risk" {
			for i := 0; i < len(members) && i < maxListedCustomers; i++ {
				seg.Customers = append(seg.Customers, members[i].Customer)
			}
		}
		out.Segments[name] = seg
	}
	return out
}

// linearTrend fits y over x = 0..n-1 and returns the slope and the
// correlation coefficient.
func linearTrend(ys []float64) (slope, r float64) {
	n := float64(len(ys))
	var sumX, sumY, sumXX, sumXY, sumYY float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXX += x * x
		sumXY += x * y
		sumYY += y * y
	}
	denomX := n*sumXX - sumX*sumX
	if denomX == 0 {
		return 0, 0
	}
	slope = (n*sumXY - sumX*sumY) / denomX
	denomY := n*sumYY - sumY*sumY
	if denomY <= 0 {
		return slope, 0
	}
	r = (n*sumXY - sumX*sumY) / math.Sqrt(denomX*denomY)
	return slope, r
}

func stddev(values []float64) float64 {
	n := float64(len(values))
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / n)
}
