package services

import (
	"math"
	"sort"

	"tourism-analytics/internal/models"

	"github.com/shopspring/decimal"
)

// Derived metrics are pure functions shared by the live and fallback paths.

// RevenuePerVisitor divides by max(visitors, 1) so an empty category never
// produces a division error. The result is rounded to cents, so
// revenue/visitors holds only to two decimal places.
func RevenuePerVisitor(revenue decimal.Decimal, visitors int64) decimal.Decimal {
	if visitors < 1 {
		visitors = 1
	}
	return revenue.Div(decimal.NewFromInt(visitors)).Round(2)
}

// PercentageShare returns part as a percentage of whole, or 0 for an empty whole.
func PercentageShare(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return round2(part / whole * 100)
}

// GrowthSign treats a zero rate as up.
func GrowthSign(rate float64) models.Direction {
	if rate < 0 {
		return models.DirectionDown
	}
	return models.DirectionUp
}

// GrowthRate is the percentage change from previous to current. A zero
// previous value yields 0 rather than an infinite rate.
func GrowthRate(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return round2((current - previous) / math.Abs(previous) * 100)
}

// TopBy returns the record with the largest value. Ties keep the earliest
// record in input order; there is no secondary sort key.
func TopBy[T any](records []T, value func(T) float64) (T, bool) {
	var top T
	if len(records) == 0 {
		return top, false
	}

	top = records[0]
	best := value(top)
	for _, record := range records[1:] {
		if v := value(record); v > best {
			top, best = record, v
		}
	}
	return top, true
}

var categoryFields = map[string]func(models.CategoryStat) float64{
	"count":             func(c models.CategoryStat) float64 { return float64(c.Count) },
	"totalVisitors":     func(c models.CategoryStat) float64 { return float64(c.TotalVisitors) },
	"totalRevenue":      func(c models.CategoryStat) float64 { return c.TotalRevenue.InexactFloat64() },
	"avgRating":         func(c models.CategoryStat) float64 { return c.AvgRating },
	"revenuePerVisitor": func(c models.CategoryStat) float64 { return c.RevenuePerVisitor.InexactFloat64() },
	"growthRate": func(c models.CategoryStat) float64 {
		if c.GrowthRate == nil {
			return math.Inf(-1)
		}
		return *c.GrowthRate
	},
}

// TopCategoryBy picks the top category by a named field. Unknown fields
// report false.
func TopCategoryBy(stats []models.CategoryStat, field string) (models.CategoryStat, bool) {
	value, ok := categoryFields[field]
	if !ok {
		return models.CategoryStat{}, false
	}
	return TopBy(stats, value)
}

// SummarizeCategories folds a category list into a summary. The average
// rating is weighted by attraction count, or a plain mean when no counts exist.
func SummarizeCategories(stats []models.CategoryStat) models.AggregatedSummary {
	summary := models.AggregatedSummary{
		TotalRevenue: decimal.Zero,
		Derived:      true,
	}

	var weightedRating, plainRating float64
	for i := range stats {
		stat := &stats[i]
		summary.TotalAttractions += stat.Count
		summary.TotalVisitors += stat.TotalVisitors
		summary.TotalRevenue = summary.TotalRevenue.Add(stat.TotalRevenue)
		weightedRating += stat.AvgRating * float64(stat.Count)
		plainRating += stat.AvgRating
	}

	switch {
	case summary.TotalAttractions > 0:
		summary.AvgRating = round2(weightedRating / float64(summary.TotalAttractions))
	case len(stats) > 0:
		summary.AvgRating = round2(plainRating / float64(len(stats)))
	}

	return summary
}

// BenchmarkGap is the percentage by which value sits above (positive) or
// below (negative) reference.
func BenchmarkGap(value, reference float64) float64 {
	if reference == 0 {
		return 0
	}
	return round2((value - reference) / math.Abs(reference) * 100)
}

// ForecastOrdered reports whether pessimistic <= realistic <= optimistic.
func ForecastOrdered(s models.ForecastScenario) bool {
	return s.Pessimistic <= s.Realistic && s.Realistic <= s.Optimistic
}

func applyBenchmarkGaps(b *models.BenchmarkStat) {
	b.GapToIndustry = BenchmarkGap(b.CityAvg, b.IndustryAvg)
	b.GapToTopPerformer = BenchmarkGap(b.CityAvg, b.TopPerformer)
}

func applyTrendGrowth(points []models.TrendPoint, supplied []bool) {
	for i := range points {
		if !supplied[i] && i > 0 {
			points[i].GrowthRate = GrowthRate(float64(points[i].Visitors), float64(points[i-1].Visitors))
		}
		points[i].Direction = GrowthSign(points[i].GrowthRate)
	}
}

func applyDemographicShares(segments []models.DemographicSegment, supplied []bool) {
	var total float64
	for i := range segments {
		total += float64(segments[i].Visitors)
	}
	for i := range segments {
		if !supplied[i] {
			segments[i].Share = PercentageShare(float64(segments[i].Visitors), total)
		}
	}
}

func applyRevenueShares(streams []models.RevenueStream, supplied []bool) {
	total := decimal.Zero
	for i := range streams {
		total = total.Add(streams[i].Amount)
	}
	for i := range streams {
		if !supplied[i] {
			streams[i].Share = PercentageShare(streams[i].Amount.InexactFloat64(), total.InexactFloat64())
		}
	}
}

// sortOpportunities orders by priority, keeping source order within a level.
func sortOpportunities(opportunities []models.ImprovementOpportunity) {
	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].Priority.Rank() < opportunities[j].Priority.Rank()
	})
}

func clamp(value, lower, upper float64) float64 {
	return math.Max(lower, math.Min(upper, value))
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
