package models

import "github.com/shopspring/decimal"

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

type TrendPoint struct {
	Period     string          `json:"period"`
	Visitors   int64           `json:"visitors"`
	Revenue    decimal.Decimal `json:"revenue"`
	GrowthRate float64         `json:"growth_rate"`
	Direction  Direction       `json:"direction"`
}

type DemographicSegment struct {
	Segment  string  `json:"segment"`
	Visitors int64   `json:"visitors"`
	Share    float64 `json:"share"`
}

type RevenueStream struct {
	Source string          `json:"source"`
	Amount decimal.Decimal `json:"amount"`
	Share  float64         `json:"share"`
}
