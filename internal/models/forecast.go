package models

// ForecastScenario is one forecast period. Ordered reports whether
// pessimistic <= realistic <= optimistic holds; sources are not forced to
// respect it.
type ForecastScenario struct {
	Period      string  `json:"period"`
	Optimistic  float64 `json:"optimistic"`
	Realistic   float64 `json:"realistic"`
	Pessimistic float64 `json:"pessimistic"`
	Confidence  float64 `json:"confidence"`
	Ordered     bool    `json:"ordered"`
}
