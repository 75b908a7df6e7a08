package models

// BenchmarkStat compares one metric across the industry, the city and the
// best performer. The three values are independent observations.
type BenchmarkStat struct {
	Metric            string  `json:"metric"`
	IndustryAvg       float64 `json:"industry_avg"`
	CityAvg           float64 `json:"city_avg"`
	TopPerformer      float64 `json:"top_performer"`
	Unit              string  `json:"unit"`
	GapToIndustry     float64 `json:"gap_to_industry"`
	GapToTopPerformer float64 `json:"gap_to_top_performer"`
}
