package models

import "time"

type Dashboard string

const (
	DashboardCityOverview         Dashboard = "city-overview"
	DashboardAttractionComparison Dashboard = "attraction-comparison"
	DashboardPredictiveAnalytics  Dashboard = "predictive-analytics"
)

// ParseDashboard validates a dashboard name taken from a URL.
func ParseDashboard(raw string) (Dashboard, bool) {
	switch d := Dashboard(raw); d {
	case DashboardCityOverview, DashboardAttractionComparison, DashboardPredictiveAnalytics:
		return d, true
	default:
		return "", false
	}
}

type DataOrigin string

const (
	DataOriginLive     DataOrigin = "live"
	DataOriginFallback DataOrigin = "fallback"
)

type FallbackReason string

const (
	FallbackReasonUnauthenticated FallbackReason = "unauthenticated"
	FallbackReasonUnauthorized    FallbackReason = "unauthorized"
	FallbackReasonUpstream        FallbackReason = "upstream"
)

// ViewModel is the presentation-ready bundle for one dashboard. Every entity
// in it comes from the same origin; live and synthesized data never mix.
type ViewModel struct {
	Dashboard      Dashboard                `json:"dashboard"`
	Filters        Filters                  `json:"filters"`
	DataOrigin     DataOrigin               `json:"data_origin"`
	FallbackReason FallbackReason           `json:"fallback_reason,omitempty"`
	LastError      *string                  `json:"last_error"`
	Summary        AggregatedSummary        `json:"summary"`
	Categories     []CategoryStat           `json:"categories"`
	TopCategory    *CategoryStat            `json:"top_category,omitempty"`
	Benchmarks     []BenchmarkStat          `json:"benchmarks,omitempty"`
	Opportunities  []ImprovementOpportunity `json:"opportunities,omitempty"`
	Forecasts      []ForecastScenario       `json:"forecasts,omitempty"`
	VisitorTrends  []TrendPoint             `json:"visitor_trends,omitempty"`
	Demographics   []DemographicSegment     `json:"demographics,omitempty"`
	RevenueStreams []RevenueStream          `json:"revenue_streams,omitempty"`
	Sequence       uint64                   `json:"sequence"`
	GeneratedAt    time.Time                `json:"generated_at"`
}

func (v *ViewModel) IsFallback() bool {
	return v.DataOrigin == DataOriginFallback
}
