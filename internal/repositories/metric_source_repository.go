package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tourism-analytics/internal/models"
)

const (
	SourceCityMetrics         = "city-metrics"
	SourceCategoryPerformance = "category-performance"
	SourceRevenueAnalysis     = "revenue"
	SourceVisitorTrends       = "visitor-trends"
	SourceDemographics        = "demographics"
	SourceBenchmarks          = "benchmarks"
	SourceRecommendations     = "recommendations"
	SourceForecasts           = "forecast"

	maxSourceResponseBytes = 4 << 20
)

var (
	ErrSourceUnavailable = errors.New("metric source unavailable")
	ErrInvalidSourceURL  = errors.New("metric source base URL is invalid")
)

type MetricSourceConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// metricSourceRepository calls the upstream analytics REST endpoints.
// It never retries; a failed call is reported to the caller immediately.
type metricSourceRepository struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
}

// NewMetricSourceRepository creates an HTTP-backed metric source. A nil client
// gets a default one using cfg.Timeout.
func NewMetricSourceRepository(cfg MetricSourceConfig, client *http.Client) (MetricSourceInterface, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSourceURL, cfg.BaseURL)
	}

	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &metricSourceRepository{
		baseURL: base,
		apiKey:  cfg.APIKey,
		client:  client,
	}, nil
}

func (r *metricSourceRepository) GetCityMetrics(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error) {
	return r.fetch(ctx, SourceCityMetrics, filters)
}

func (r *metricSourceRepository) GetCategoryPerformance(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error) {
	return r.fetch(ctx, SourceCategoryPerformance, filters)
}

func (r *metricSourceRepository) GetRevenueAnalysis(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error) {
	return r.fetch(ctx, SourceRevenueAnalysis, filters)
}

func (r *metricSourceRepository) GetVisitorTrends(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error) {
	return r.fetch(ctx, SourceVisitorTrends, filters)
}

func (r *metricSourceRepository) GetDemographics(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error) {
	return r.fetch(ctx, SourceDemographics, filters)
}

func (r *metricSourceRepository) GetBenchmarks(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error) {
	return r.fetch(ctx, SourceBenchmarks, filters)
}

func (r *metricSourceRepository) GetImprovementRecommendations(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error) {
	return r.fetch(ctx, SourceRecommendations, filters)
}

func (r *metricSourceRepository) GetForecastScenarios(ctx context.Context, filters models.Filters) (*models.SourceEnvelope, error) {
	return r.fetch(ctx, SourceForecasts, filters)
}

func (r *metricSourceRepository) fetch(ctx context.Context, source string, filters models.Filters) (*models.SourceEnvelope, error) {
	endpoint := r.baseURL.JoinPath("api", "analytics", source)
	endpoint.RawQuery = buildSourceQuery(filters).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", source, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("X-API-Key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", source, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", source, err)
	}

	var envelope models.SourceEnvelope
	decodeErr := json.Unmarshal(body, &envelope)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		message := envelope.Message
		if decodeErr != nil || message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s returned %d: %s", ErrSourceUnavailable, source, resp.StatusCode, message)
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", source, decodeErr)
	}

	return &envelope, nil
}

func buildSourceQuery(filters models.Filters) url.Values {
	query := url.Values{}
	query.Set("period", string(filters.Period))
	if filters.AttractionID != nil {
		query.Set("attractionId", strconv.Itoa(*filters.AttractionID))
	}
	if filters.Breakdown != "" {
		query.Set("breakdown", string(filters.Breakdown))
	}
	return query
}
