package services

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"tourism-analytics/internal/models"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
)

const (
	fallbackTrendPoints    = 6
	fallbackForecastPoints = 6
	fallbackOpportunities  = 3
)

// categoryBaseline holds monthly baselines for one seed category. Each
// synthesized value is baseline + random(0, spread).
type categoryBaseline struct {
	name             string
	attractions      int
	attractionSpread int
	visitors         float64
	visitorSpread    float64
	spend            float64
	spendSpread      float64
	rating           float64
	ratingSpread     float64
	attractionNames  []string
}

var fallbackCatalogue = []categoryBaseline{
	{"Museums", 8, 4, 5000, 1500, 18, 6, 4.2, 0.6, []string{"Riverside Art Museum", "Old Town Heritage Museum"}},
	{"Parks & Nature", 12, 6, 9000, 3000, 6, 4, 4.4, 0.5, []string{"Greenway Botanical Park", "Lakeside Nature Reserve"}},
	{"Historical Sites", 6, 3, 4000, 1200, 14, 5, 4.1, 0.7, []string{"Fort Hill Historic Site", "Cathedral Square"}},
	{"Entertainment", 10, 5, 7000, 2500, 32, 10, 3.9, 0.8, []string{"Harbor Lights Amusement Park", "Grand Theatre"}},
	{"Cultural Centers", 5, 3, 2500, 900, 12, 4, 4.0, 0.6, []string{"Civic Arts Center", "Folk Culture House"}},
}

type fallbackIssue struct {
	issue           string
	description     string
	potentialImpact string
	recommendations []string
	priority        models.Priority
}

var fallbackIssues = []fallbackIssue{
	{
		issue:           "Low weekday attendance",
		description:     "Weekday visitor numbers sit well below weekend levels.",
		potentialImpact: "+12% monthly visitors",
		recommendations: []string{"Introduce weekday discount bundles", "Partner with schools for guided visits"},
		priority:        models.PriorityHigh,
	},
	{
		issue:           "Below-average visitor rating",
		description:     "Reviews mention long queues and limited signage.",
		potentialImpact: "+0.3 average rating",
		recommendations: []string{"Add timed-entry tickets", "Improve wayfinding signage"},
		priority:        models.PriorityHigh,
	},
	{
		issue:           "Low secondary spend",
		description:     "Revenue per visitor trails comparable attractions.",
		potentialImpact: "+8% revenue per visitor",
		recommendations: []string{"Expand the gift shop range", "Offer combo tickets with food and beverage"},
		priority:        models.PriorityMedium,
	},
	{
		issue:           "Weak online presence",
		description:     "Few bookings originate from online channels.",
		potentialImpact: "+15% online bookings",
		recommendations: []string{"Enable online ticket sales", "Refresh listing photos on travel platforms"},
		priority:        models.PriorityMedium,
	},
	{
		issue:           "Short visit duration",
		description:     "Most visitors leave within an hour.",
		potentialImpact: "+20 minutes average stay",
		recommendations: []string{"Add interactive exhibits", "Schedule short guided tours"},
		priority:        models.PriorityLow,
	},
}

var fallbackSegments = []struct {
	name   string
	weight float64
	spread float64
}{
	{"18-24", 14, 4},
	{"25-34", 24, 5},
	{"35-44", 22, 4},
	{"45-54", 18, 4},
	{"55+", 16, 5},
}

var fallbackStreams = []struct {
	name   string
	weight float64
	spread float64
}{
	{"Ticket Sales", 55, 8},
	{"Food & Beverage", 18, 5},
	{"Merchandise", 12, 4},
	{"Guided Tours", 9, 3},
	{"Events", 6, 3},
}

// RandomSource yields the generator used for one synthesis run, keyed by
// dashboard and filters.
type RandomSource func(key string) *gofakeit.Faker

// SeededRandomSource derives a generator per key from a fixed seed, so the
// same seed and key always produce the same sequence.
func SeededRandomSource(seed uint64) RandomSource {
	return func(key string) *gofakeit.Faker {
		h := fnv.New64a()
		_, _ = h.Write([]byte(key))
		derived := seed ^ h.Sum64()
		if derived == 0 {
			derived = 1
		}
		return gofakeit.New(derived)
	}
}

// FallbackSynthesizer produces complete view models from a fixed category
// catalogue with bounded jitter. Its output obeys the same invariants as
// normalized live data.
type FallbackSynthesizer struct {
	source RandomSource
}

func NewFallbackSynthesizer(source RandomSource) *FallbackSynthesizer {
	return &FallbackSynthesizer{source: source}
}

// Synthesize builds the fallback view for a recipe. The caller sets origin
// metadata such as the fallback reason and sequence.
func (s *FallbackSynthesizer) Synthesize(recipe Recipe, filters models.Filters) *models.ViewModel {
	run := s.begin(recipe.Dashboard(), filters)

	view := &models.ViewModel{
		Dashboard:  recipe.Dashboard(),
		Filters:    filters,
		DataOrigin: models.DataOriginFallback,
	}
	recipe.Synthesize(run, view)
	finalizeView(view)
	return view
}

func (s *FallbackSynthesizer) begin(dashboard models.Dashboard, filters models.Filters) *FallbackRun {
	return &FallbackRun{
		faker:   s.source(string(dashboard) + "|" + filters.Key()),
		scale:   filters.Period.Scale(),
		filters: filters,
	}
}

// FallbackRun is one synthesis pass. Sections must be generated in a fixed
// order for the output to be reproducible.
type FallbackRun struct {
	faker   *gofakeit.Faker
	scale   float64
	filters models.Filters
}

func (r *FallbackRun) jitter(spread float64) float64 {
	if spread <= 0 {
		return 0
	}
	return r.faker.Float64Range(0, spread)
}

// Categories synthesizes one stat per catalogue entry. Revenue is visitors
// times spend, and revenue per visitor is recomputed from those totals.
func (r *FallbackRun) Categories() []models.CategoryStat {
	stats := make([]models.CategoryStat, 0, len(fallbackCatalogue))
	for _, base := range fallbackCatalogue {
		count := base.attractions + r.faker.IntRange(0, base.attractionSpread)
		visitors := int64(math.Round((base.visitors + r.jitter(base.visitorSpread)) * r.scale))
		spend := decimal.NewFromFloat(base.spend + r.jitter(base.spendSpread)).Round(2)
		revenue := spend.Mul(decimal.NewFromInt(visitors)).Round(2)
		rating := math.Round(math.Min(5, base.rating+r.jitter(base.ratingSpread))*10) / 10
		growth := round2(r.faker.Float64Range(-5, 15))

		stats = append(stats, models.CategoryStat{
			Category:          base.name,
			Count:             count,
			TotalVisitors:     visitors,
			TotalRevenue:      revenue,
			AvgRating:         rating,
			RevenuePerVisitor: RevenuePerVisitor(revenue, visitors),
			GrowthRate:        &growth,
		})
	}
	return stats
}

func (r *FallbackRun) Benchmarks(summary models.AggregatedSummary) []models.BenchmarkStat {
	cityRPV := RevenuePerVisitor(summary.TotalRevenue, summary.TotalVisitors).InexactFloat64()

	benchmarks := []models.BenchmarkStat{
		{
			Metric:       "Average Rating",
			IndustryAvg:  round2(4.0 + r.jitter(0.3)),
			CityAvg:      summary.AvgRating,
			TopPerformer: round2(math.Min(5, 4.7+r.jitter(0.3))),
			Unit:         "stars",
		},
		{
			Metric:       "Revenue per Visitor",
			IndustryAvg:  round2(cityRPV * (0.85 + r.jitter(0.2))),
			CityAvg:      cityRPV,
			TopPerformer: round2(cityRPV * (1.3 + r.jitter(0.3))),
			Unit:         "USD",
		},
		{
			Metric:       "Repeat Visit Rate",
			IndustryAvg:  round2(28 + r.jitter(7)),
			CityAvg:      round2(25 + r.jitter(15)),
			TopPerformer: round2(50 + r.jitter(15)),
			Unit:         "%",
		},
		{
			Metric:       "Average Visit Duration",
			IndustryAvg:  round2(100 + r.jitter(20)),
			CityAvg:      round2(90 + r.jitter(50)),
			TopPerformer: round2(160 + r.jitter(40)),
			Unit:         "minutes",
		},
	}

	for i := range benchmarks {
		applyBenchmarkGaps(&benchmarks[i])
	}
	return benchmarks
}

// Opportunities picks distinct issues. With an attraction filter every
// opportunity targets that attraction.
func (r *FallbackRun) Opportunities() []models.ImprovementOpportunity {
	issues := make([]int, len(fallbackIssues))
	for i := range issues {
		issues[i] = i
	}
	for i := len(issues) - 1; i > 0; i-- {
		j := r.faker.IntRange(0, i)
		issues[i], issues[j] = issues[j], issues[i]
	}

	opportunities := make([]models.ImprovementOpportunity, 0, fallbackOpportunities)
	for n := 0; n < fallbackOpportunities; n++ {
		issue := fallbackIssues[issues[n]]
		catIdx := r.faker.IntRange(0, len(fallbackCatalogue)-1)
		base := fallbackCatalogue[catIdx]
		nameIdx := r.faker.IntRange(0, len(base.attractionNames)-1)

		attractionID := 100 + catIdx*10 + nameIdx
		if r.filters.AttractionID != nil {
			attractionID = *r.filters.AttractionID
		}

		recommendations := make([]string, len(issue.recommendations))
		copy(recommendations, issue.recommendations)

		opportunities = append(opportunities, models.ImprovementOpportunity{
			AttractionID:    attractionID,
			AttractionName:  base.attractionNames[nameIdx],
			Category:        base.name,
			Issue:           issue.issue,
			Description:     issue.description,
			PotentialImpact: issue.potentialImpact,
			Recommendations: recommendations,
			Priority:        issue.priority,
		})
	}

	sortOpportunities(opportunities)
	return opportunities
}

// Trends walks backwards from the summary totals so the latest point matches
// the current period.
func (r *FallbackRun) Trends(summary models.AggregatedSummary) []models.TrendPoint {
	spend := RevenuePerVisitor(summary.TotalRevenue, summary.TotalVisitors)
	points := make([]models.TrendPoint, fallbackTrendPoints)

	visitors := float64(summary.TotalVisitors)
	for i := fallbackTrendPoints - 1; i >= 0; i-- {
		v := int64(math.Round(visitors))
		points[i] = models.TrendPoint{
			Period:   periodLabel(r.filters.Period, i+1),
			Visitors: v,
			Revenue:  spend.Mul(decimal.NewFromInt(v)).Round(2),
		}
		visitors = visitors / (1 + r.faker.Float64Range(-0.04, 0.08))
	}

	applyTrendGrowth(points, make([]bool, len(points)))
	return points
}

// Forecasts continues the trend series. Scenarios are always ordered and
// confidence decays with distance.
func (r *FallbackRun) Forecasts(summary models.AggregatedSummary) []models.ForecastScenario {
	scenarios := make([]models.ForecastScenario, 0, fallbackForecastPoints)

	realistic := float64(summary.TotalVisitors)
	for i := 0; i < fallbackForecastPoints; i++ {
		realistic = realistic * (1 + r.faker.Float64Range(0, 0.06))
		scenario := models.ForecastScenario{
			Period:      periodLabel(r.filters.Period, fallbackTrendPoints+i+1),
			Realistic:   math.Round(realistic),
			Optimistic:  math.Round(realistic * (1.05 + r.jitter(0.15))),
			Pessimistic: math.Round(realistic * (0.8 + r.jitter(0.15))),
			Confidence:  round2(clamp(90-float64(i)*6-r.jitter(4), 0, 100)),
		}
		scenario.Ordered = ForecastOrdered(scenario)
		scenarios = append(scenarios, scenario)
	}
	return scenarios
}

// Demographics splits the summary visitors across fixed segments; the last
// segment takes the rounding remainder so the parts sum to the total.
func (r *FallbackRun) Demographics(summary models.AggregatedSummary) []models.DemographicSegment {
	weights := make([]float64, len(fallbackSegments))
	var totalWeight float64
	for i, seg := range fallbackSegments {
		weights[i] = seg.weight + r.jitter(seg.spread)
		totalWeight += weights[i]
	}

	segments := make([]models.DemographicSegment, len(fallbackSegments))
	remaining := summary.TotalVisitors
	for i, seg := range fallbackSegments {
		visitors := remaining
		if i < len(fallbackSegments)-1 {
			visitors = int64(math.Floor(float64(summary.TotalVisitors) * weights[i] / totalWeight))
			remaining -= visitors
		}
		segments[i] = models.DemographicSegment{Segment: seg.name, Visitors: visitors}
	}

	applyDemographicShares(segments, make([]bool, len(segments)))
	return segments
}

// RevenueStreams splits the summary revenue the same way Demographics splits
// visitors.
func (r *FallbackRun) RevenueStreams(summary models.AggregatedSummary) []models.RevenueStream {
	weights := make([]float64, len(fallbackStreams))
	var totalWeight float64
	for i, stream := range fallbackStreams {
		weights[i] = stream.weight + r.jitter(stream.spread)
		totalWeight += weights[i]
	}

	streams := make([]models.RevenueStream, len(fallbackStreams))
	remaining := summary.TotalRevenue
	for i, stream := range fallbackStreams {
		amount := remaining
		if i < len(fallbackStreams)-1 {
			amount = summary.TotalRevenue.Mul(decimal.NewFromFloat(weights[i] / totalWeight)).Round(2)
			remaining = remaining.Sub(amount)
		}
		streams[i] = models.RevenueStream{Source: stream.name, Amount: amount}
	}

	applyRevenueShares(streams, make([]bool, len(streams)))
	return streams
}

func periodLabel(period models.Period, n int) string {
	name := string(period)
	if name == "" {
		name = string(models.PeriodMonth)
	}
	return fmt.Sprintf("%s %d", strings.ToUpper(name[:1])+name[1:], n)
}
