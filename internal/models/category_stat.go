package models

import "github.com/shopspring/decimal"

// CategoryStat holds aggregated performance for one attraction category
type CategoryStat struct {
	Category          string          `json:"category"`
	Count             int             `json:"count"`
	TotalVisitors     int64           `json:"total_visitors"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AvgRating         float64         `json:"avg_rating"`
	RevenuePerVisitor decimal.Decimal `json:"revenue_per_visitor"`
	GrowthRate        *float64        `json:"growth_rate,omitempty"`
}

// AggregatedSummary is the headline block of a dashboard. Derived is true when
// it was folded from the category list rather than supplied by a source.
type AggregatedSummary struct {
	TotalAttractions int             `json:"total_attractions"`
	AvgRating        float64         `json:"avg_rating"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalVisitors    int64           `json:"total_visitors"`
	Derived          bool            `json:"derived"`
}
