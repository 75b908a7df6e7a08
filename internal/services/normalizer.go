package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"tourism-analytics/internal/models"

	"github.com/shopspring/decimal"
)

const (
	defaultLabel = "Unknown"
	defaultUnit  = "units"

	entityCategory    = "category_stat"
	entitySummary     = "summary"
	entityBenchmark   = "benchmark"
	entityOpportunity = "opportunity"
	entityForecast    = "forecast"
	entityTrend       = "trend"
	entityDemographic = "demographic"
	entityRevenue     = "revenue_stream"
)

// aliasTable maps a canonical field to the upstream keys that may carry it,
// in priority order. The first key holding a non-null value wins.
type aliasTable map[string][]string

var categoryAliases = aliasTable{
	"category":          {"category", "categoryName", "name", "type"},
	"count":             {"count", "attractionCount", "attractions", "totalAttractions"},
	"totalVisitors":     {"totalVisitors", "visitors", "visitorCount", "visits"},
	"totalRevenue":      {"totalRevenue", "revenue", "amount"},
	"avgRating":         {"avgRating", "averageRating", "rating"},
	"revenuePerVisitor": {"revenuePerVisitor", "avgRevenuePerVisitor", "rpv"},
	"growthRate":        {"growthRate", "growth", "change"},
}

var summaryAliases = aliasTable{
	"totalAttractions": {"totalAttractions", "attractionCount", "attractions", "count"},
	"avgRating":        {"avgRating", "averageRating", "rating"},
	"totalRevenue":     {"totalRevenue", "revenue", "amount"},
	"totalVisitors":    {"totalVisitors", "visitors", "visitorCount"},
}

var benchmarkAliases = aliasTable{
	"metric":       {"metric", "name", "label", "kpi"},
	"industryAvg":  {"industryAvg", "industryAverage", "industry"},
	"cityAvg":      {"cityAvg", "cityAverage", "city", "yourValue", "value"},
	"topPerformer": {"topPerformer", "best", "topValue", "max"},
	"unit":         {"unit", "units", "uom"},
}

var opportunityAliases = aliasTable{
	"attractionId":    {"attractionId", "attraction_id", "id"},
	"attractionName":  {"attractionName", "attraction", "name"},
	"category":        {"category", "categoryName", "type"},
	"issue":           {"issue", "title", "problem"},
	"description":     {"description", "details", "summary"},
	"potentialImpact": {"potentialImpact", "impact", "expectedImpact"},
	"recommendations": {"recommendations", "actions", "suggestions"},
	"priority":        {"priority", "severity", "urgency"},
}

var forecastAliases = aliasTable{
	"period":      {"period", "month", "label", "date"},
	"optimistic":  {"optimistic", "best", "high", "upper"},
	"realistic":   {"realistic", "expected", "predicted", "forecast"},
	"pessimistic": {"pessimistic", "worst", "low", "lower"},
	"confidence":  {"confidence", "confidenceLevel", "probability"},
}

var trendAliases = aliasTable{
	"period":     {"period", "date", "month", "label"},
	"visitors":   {"visitors", "totalVisitors", "visitorCount", "count"},
	"revenue":    {"revenue", "totalRevenue", "amount"},
	"growthRate": {"growthRate", "growth", "change"},
}

var demographicAliases = aliasTable{
	"segment":  {"segment", "ageGroup", "group", "origin", "label", "name"},
	"visitors": {"visitors", "count", "totalVisitors", "value"},
	"share":    {"share", "percentage", "percent"},
}

var revenueAliases = aliasTable{
	"source": {"source", "stream", "category", "label", "name"},
	"amount": {"amount", "revenue", "totalRevenue", "value"},
	"share":  {"share", "percentage", "percent"},
}

// Container keys under which list payloads may be wrapped.
var (
	categoryContainers    = []string{"categories", "categoryStats", "performance"}
	summaryContainers     = []string{"summary", "overview", "totals"}
	benchmarkContainers   = []string{"benchmarks", "metrics"}
	opportunityContainers = []string{"opportunities", "recommendations", "improvements"}
	forecastContainers    = []string{"scenarios", "forecasts", "predictions"}
	trendContainers       = []string{"trends", "visitorTrends", "series"}
	demographicContainers = []string{"demographics", "segments", "breakdown"}
	revenueContainers     = []string{"streams", "sources", "breakdown"}
	genericContainers     = []string{"items", "data", "results"}
)

type rawRecord map[string]any

// Normalizer maps raw upstream payloads onto canonical records. Missing
// required fields get a default and are passed to the report hook.
type Normalizer struct {
	report func(*PartialDataError)
}

func NewNormalizer(report func(*PartialDataError)) *Normalizer {
	if report == nil {
		report = func(*PartialDataError) {}
	}
	return &Normalizer{report: report}
}

// fieldReader reads fields of one record through an alias table.
type fieldReader struct {
	n      *Normalizer
	entity string
	table  aliasTable
	rec    rawRecord
}

func (n *Normalizer) reader(entity string, table aliasTable, rec rawRecord) fieldReader {
	return fieldReader{n: n, entity: entity, table: table, rec: rec}
}

func (f fieldReader) lookup(field string) (any, bool) {
	for _, key := range f.table[field] {
		if value, ok := f.rec[key]; ok && value != nil {
			return value, true
		}
	}
	return nil, false
}

func (f fieldReader) missing(field string) {
	f.n.report(&PartialDataError{Entity: f.entity, Field: field, Aliases: f.table[field]})
}

func (f fieldReader) float(field string, required bool) (float64, bool) {
	if raw, ok := f.lookup(field); ok {
		if value, ok := toFloat(raw); ok {
			return value, true
		}
	}
	if required {
		f.missing(field)
	}
	return 0, false
}

func (f fieldReader) integer(field string, required bool) (int64, bool) {
	value, ok := f.float(field, required)
	return int64(math.Round(value)), ok
}

func (f fieldReader) decimal(field string, required bool) (decimal.Decimal, bool) {
	if raw, ok := f.lookup(field); ok {
		if value, ok := toDecimal(raw); ok {
			return value, true
		}
	}
	if required {
		f.missing(field)
	}
	return decimal.Zero, false
}

func (f fieldReader) text(field, fallback string, required bool) string {
	if raw, ok := f.lookup(field); ok {
		if value, ok := toText(raw); ok && value != "" {
			return value
		}
	}
	if required {
		f.missing(field)
	}
	return fallback
}

func (f fieldReader) texts(field string) []string {
	raw, ok := f.lookup(field)
	if !ok {
		f.missing(field)
		return []string{}
	}

	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := toText(item); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s, ok := toText(v); ok && s != "" {
			return []string{s}
		}
		return []string{}
	}
}

// NormalizeCategories maps category performance payloads. A supplied
// revenuePerVisitor is trusted over the computed ratio.
func (n *Normalizer) NormalizeCategories(data json.RawMessage) ([]models.CategoryStat, error) {
	records, err := extractRecords(data, "category", categoryContainers)
	if err != nil {
		return nil, err
	}

	stats := make([]models.CategoryStat, 0, len(records))
	for _, rec := range records {
		f := n.reader(entityCategory, categoryAliases, rec)

		count, _ := f.integer("count", true)
		visitors, _ := f.integer("totalVisitors", true)
		revenue, _ := f.decimal("totalRevenue", true)
		rating, _ := f.float("avgRating", true)

		stat := models.CategoryStat{
			Category:      f.text("category", defaultLabel, true),
			Count:         int(count),
			TotalVisitors: visitors,
			TotalRevenue:  revenue,
			AvgRating:     clamp(rating, 0, 5),
		}

		if rpv, ok := f.decimal("revenuePerVisitor", false); ok {
			stat.RevenuePerVisitor = rpv
		} else {
			stat.RevenuePerVisitor = RevenuePerVisitor(revenue, visitors)
		}

		if growth, ok := f.float("growthRate", false); ok {
			stat.GrowthRate = &growth
		}

		stats = append(stats, stat)
	}
	return stats, nil
}

// NormalizeSummary reads a supplied summary. Fields the source did not
// supply are folded from categories; a summary with no supplied fields is
// entirely derived.
func (n *Normalizer) NormalizeSummary(data json.RawMessage, categories []models.CategoryStat) (models.AggregatedSummary, error) {
	folded := SummarizeCategories(categories)

	rec, err := extractObject(data, summaryContainers)
	if err != nil {
		return models.AggregatedSummary{}, err
	}
	if rec == nil {
		return folded, nil
	}

	f := n.reader(entitySummary, summaryAliases, rec)
	summary := folded
	supplied := 0

	if v, ok := f.integer("totalAttractions", false); ok {
		summary.TotalAttractions = int(v)
		supplied++
	}
	if v, ok := f.float("avgRating", false); ok {
		summary.AvgRating = clamp(v, 0, 5)
		supplied++
	}
	if v, ok := f.decimal("totalRevenue", false); ok {
		summary.TotalRevenue = v
		supplied++
	}
	if v, ok := f.integer("totalVisitors", false); ok {
		summary.TotalVisitors = v
		supplied++
	}

	summary.Derived = supplied == 0
	return summary, nil
}

func (n *Normalizer) NormalizeBenchmarks(data json.RawMessage) ([]models.BenchmarkStat, error) {
	records, err := extractRecords(data, "metric", benchmarkContainers)
	if err != nil {
		return nil, err
	}

	benchmarks := make([]models.BenchmarkStat, 0, len(records))
	for _, rec := range records {
		f := n.reader(entityBenchmark, benchmarkAliases, rec)

		industry, _ := f.float("industryAvg", true)
		city, _ := f.float("cityAvg", true)
		top, _ := f.float("topPerformer", true)

		benchmark := models.BenchmarkStat{
			Metric:       f.text("metric", defaultLabel, true),
			IndustryAvg:  industry,
			CityAvg:      city,
			TopPerformer: top,
			Unit:         f.text("unit", defaultUnit, true),
		}
		applyBenchmarkGaps(&benchmark)
		benchmarks = append(benchmarks, benchmark)
	}
	return benchmarks, nil
}

// NormalizeOpportunities keeps source order within each priority level.
func (n *Normalizer) NormalizeOpportunities(data json.RawMessage) ([]models.ImprovementOpportunity, error) {
	records, err := extractRecords(data, "issue", opportunityContainers)
	if err != nil {
		return nil, err
	}

	opportunities := make([]models.ImprovementOpportunity, 0, len(records))
	for _, rec := range records {
		f := n.reader(entityOpportunity, opportunityAliases, rec)

		id, _ := f.integer("attractionId", true)
		opportunities = append(opportunities, models.ImprovementOpportunity{
			AttractionID:    int(id),
			AttractionName:  f.text("attractionName", defaultLabel, true),
			Category:        f.text("category", defaultLabel, true),
			Issue:           f.text("issue", defaultLabel, true),
			Description:     f.text("description", "", false),
			PotentialImpact: f.text("potentialImpact", "", false),
			Recommendations: f.texts("recommendations"),
			Priority:        models.ParsePriority(f.text("priority", string(models.PriorityMedium), false)),
		})
	}

	sortOpportunities(opportunities)
	return opportunities, nil
}

// NormalizeForecasts keeps supplied values as they are and flags scenarios
// whose bounds are out of order.
func (n *Normalizer) NormalizeForecasts(data json.RawMessage) ([]models.ForecastScenario, error) {
	records, err := extractRecords(data, "period", forecastContainers)
	if err != nil {
		return nil, err
	}

	scenarios := make([]models.ForecastScenario, 0, len(records))
	for _, rec := range records {
		f := n.reader(entityForecast, forecastAliases, rec)

		optimistic, _ := f.float("optimistic", true)
		realistic, _ := f.float("realistic", true)
		pessimistic, _ := f.float("pessimistic", true)
		confidence, _ := f.float("confidence", true)

		scenario := models.ForecastScenario{
			Period:      f.text("period", defaultLabel, true),
			Optimistic:  optimistic,
			Realistic:   realistic,
			Pessimistic: pessimistic,
			Confidence:  clamp(confidence, 0, 100),
		}
		scenario.Ordered = ForecastOrdered(scenario)
		if !scenario.Ordered {
			slog.Debug("forecast scenario kept out of order",
				"period", scenario.Period,
				"pessimistic", scenario.Pessimistic,
				"realistic", scenario.Realistic,
				"optimistic", scenario.Optimistic)
		}
		scenarios = append(scenarios, scenario)
	}
	return scenarios, nil
}

// NormalizeTrends computes growth against the previous point when the source
// did not supply it.
func (n *Normalizer) NormalizeTrends(data json.RawMessage) ([]models.TrendPoint, error) {
	records, err := extractRecords(data, "period", trendContainers)
	if err != nil {
		return nil, err
	}

	points := make([]models.TrendPoint, 0, len(records))
	supplied := make([]bool, 0, len(records))
	for _, rec := range records {
		f := n.reader(entityTrend, trendAliases, rec)

		visitors, _ := f.integer("visitors", true)
		revenue, _ := f.decimal("revenue", false)
		growth, ok := f.float("growthRate", false)

		points = append(points, models.TrendPoint{
			Period:     f.text("period", defaultLabel, true),
			Visitors:   visitors,
			Revenue:    revenue,
			GrowthRate: growth,
		})
		supplied = append(supplied, ok)
	}

	applyTrendGrowth(points, supplied)
	return points, nil
}

func (n *Normalizer) NormalizeDemographics(data json.RawMessage) ([]models.DemographicSegment, error) {
	records, err := extractRecords(data, "segment", demographicContainers)
	if err != nil {
		return nil, err
	}

	segments := make([]models.DemographicSegment, 0, len(records))
	supplied := make([]bool, 0, len(records))
	for _, rec := range records {
		f := n.reader(entityDemographic, demographicAliases, rec)

		visitors, _ := f.integer("visitors", true)
		share, ok := f.float("share", false)

		segments = append(segments, models.DemographicSegment{
			Segment:  f.text("segment", defaultLabel, true),
			Visitors: visitors,
			Share:    clamp(share, 0, 100),
		})
		supplied = append(supplied, ok)
	}

	applyDemographicShares(segments, supplied)
	return segments, nil
}

func (n *Normalizer) NormalizeRevenueStreams(data json.RawMessage) ([]models.RevenueStream, error) {
	records, err := extractRecords(data, "source", revenueContainers)
	if err != nil {
		return nil, err
	}

	streams := make([]models.RevenueStream, 0, len(records))
	supplied := make([]bool, 0, len(records))
	for _, rec := range records {
		f := n.reader(entityRevenue, revenueAliases, rec)

		amount, _ := f.decimal("amount", true)
		share, ok := f.float("share", false)

		streams = append(streams, models.RevenueStream{
			Source: f.text("source", defaultLabel, true),
			Amount: amount,
			Share:  clamp(share, 0, 100),
		})
		supplied = append(supplied, ok)
	}

	applyRevenueShares(streams, supplied)
	return streams, nil
}

func decodeRaw(data json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	return value, nil
}

// extractRecords accepts a bare array, an object wrapping an array or a
// keyed object under a known container key, or an object keyed by record
// name. For the keyed form the key is stored under nameKey unless the record
// already has it.
func extractRecords(data json.RawMessage, nameKey string, containers []string) ([]rawRecord, error) {
	value, err := decodeRaw(data)
	if err != nil || value == nil {
		return nil, err
	}

	switch v := value.(type) {
	case []any:
		return toRecords(v), nil
	case map[string]any:
		keys := make([]string, 0, len(containers)+len(genericContainers))
		keys = append(append(keys, containers...), genericContainers...)
		for _, key := range keys {
			switch nested := v[key].(type) {
			case []any:
				return toRecords(nested), nil
			case map[string]any:
				return keyedRecords(nested, nameKey), nil
			}
		}
		return keyedRecords(v, nameKey), nil
	default:
		return nil, fmt.Errorf("invalid payload: expected list or object, got %T", value)
	}
}

func extractObject(data json.RawMessage, containers []string) (rawRecord, error) {
	value, err := decodeRaw(data)
	if err != nil || value == nil {
		return nil, err
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid payload: expected object, got %T", value)
	}
	for _, key := range containers {
		if nested, ok := obj[key].(map[string]any); ok {
			return nested, nil
		}
	}
	return obj, nil
}

func toRecords(list []any) []rawRecord {
	records := make([]rawRecord, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			records = append(records, obj)
		}
	}
	return records
}

func keyedRecords(obj map[string]any, nameKey string) []rawRecord {
	keys := make([]string, 0, len(obj))
	for key, value := range obj {
		if _, ok := value.(map[string]any); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	records := make([]rawRecord, 0, len(keys))
	for _, key := range keys {
		rec := rawRecord(obj[key].(map[string]any))
		if _, ok := rec[nameKey]; !ok {
			rec[nameKey] = key
		}
		records = append(records, rec)
	}
	return records
}

func toFloat(raw any) (float64, bool) {
	var value float64
	switch v := raw.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		value = f
	case float64:
		value = v
	case int:
		value = float64(v)
	case int64:
		value = float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		value = f
	default:
		return 0, false
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

func toDecimal(raw any) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	default:
		f, ok := toFloat(raw)
		if !ok {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(f), true
	}
}

func toText(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v), true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}
