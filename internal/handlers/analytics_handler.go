package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apierrors "tourism-analytics/internal/errors"
	"tourism-analytics/internal/models"
	"tourism-analytics/internal/services"
	"tourism-analytics/internal/validation"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const ViewerIDHeader = "X-Viewer-ID"

type AnalyticsHandler struct {
	analyticsService services.AnalyticsServiceInterface
	validator        *validation.Validator
}

func NewAnalyticsHandler(analyticsService services.AnalyticsServiceInterface) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		validator:        validation.GetValidator(),
	}
}

// ViewMeta describes where a view came from without unpacking it
type ViewMeta struct {
	DataOrigin     models.DataOrigin     `json:"data_origin"`
	FallbackReason models.FallbackReason `json:"fallback_reason,omitempty"`
	Sequence       uint64                `json:"sequence"`
	ViewerID       string                `json:"viewer_id,omitempty"`
}

// GetDashboard builds a dashboard view for one request
//
// Method: GET /api/v1/analytics/:dashboard
// Authentication: Optional (JWT). Without a token the view is synthesized.
//
// Path parameters:
//   - dashboard: city-overview, attraction-comparison or predictive-analytics
//
// Query parameters:
//   - period: week, month, quarter or year (default: month)
//   - attractionId: positive integer (optional)
//   - breakdown: category, attraction or time (optional)
//
// Success Response: 200 OK
//   - data: the dashboard view model
//   - meta: data_origin, fallback_reason, sequence
//
// Error Responses:
//   - 400: Invalid filters
//   - 401: Invalid or expired token
//   - 404: Unknown dashboard
//   - 500: Internal server error
func (h *AnalyticsHandler) GetDashboard(c echo.Context) error {
	dashboard, filters, rejection := h.parseRequest(c)
	if rejection != nil {
		return SendError(c, rejection.code, apierrors.WithDetails(rejection.details...))
	}

	view, err := h.analyticsService.BuildView(c.Request().Context(), dashboard, filters)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{
		Data: view,
		Meta: metaFor(view, ""),
	})
}

// RefreshDashboard re-runs the caller's dashboard session. A newer refresh
// for the same viewer and dashboard supersedes this one, and the superseded
// caller is answered with the newer view once it settles.
//
// Method: POST /api/v1/analytics/:dashboard/refresh
// Authentication: Optional (JWT)
//
// Headers:
//   - X-Viewer-ID: session key for anonymous callers (optional; generated and
//     returned in meta.viewer_id when absent)
//
// Query parameters: same as GetDashboard
//
// Success Response: 200 OK
//   - data: the dashboard view model, including last_error
//   - meta: data_origin, fallback_reason, sequence, viewer_id
//
// Error Responses:
//   - 400: Invalid filters
//   - 401: Invalid or expired token
//   - 404: Unknown dashboard
//   - 409: Superseded, and the caller left before the newer refresh settled
//   - 500: Internal server error
func (h *AnalyticsHandler) RefreshDashboard(c echo.Context) error {
	dashboard, filters, rejection := h.parseRequest(c)
	if rejection != nil {
		return SendError(c, rejection.code, apierrors.WithDetails(rejection.details...))
	}

	viewerID := getViewerID(c)

	view, err := h.analyticsService.RefreshView(c.Request().Context(), viewerID, dashboard, filters)
	if err != nil {
		return h.handleServiceError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{
		Data: view,
		Meta: metaFor(view, viewerID),
	})
}

type requestRejection struct {
	code    apierrors.ErrorCode
	details []string
}

func (h *AnalyticsHandler) parseRequest(c echo.Context) (models.Dashboard, models.Filters, *requestRejection) {
	dashboard, ok := models.ParseDashboard(c.Param("dashboard"))
	if !ok {
		return "", models.Filters{}, &requestRejection{
			code:    apierrors.AnalyticsUnknownDashboard,
			details: []string{"dashboard: " + c.Param("dashboard")},
		}
	}

	filters := models.Filters{
		Period:    models.Period(c.QueryParam("period")),
		Breakdown: models.Breakdown(c.QueryParam("breakdown")),
		Role:      getViewerRole(c),
	}

	if raw := c.QueryParam("attractionId"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return "", models.Filters{}, &requestRejection{
				code:    apierrors.AnalyticsInvalidFilters,
				details: []string{"attraction_id: must be an integer"},
			}
		}
		filters.AttractionID = &id
	}

	filters = filters.WithDefaults()
	if fieldErrors := h.validator.ValidateFilters(filters); len(fieldErrors) > 0 {
		return "", models.Filters{}, &requestRejection{
			code:    apierrors.AnalyticsInvalidFilters,
			details: validation.FormatFieldErrors(fieldErrors),
		}
	}

	return dashboard, filters, nil
}

func (h *AnalyticsHandler) handleServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrUnknownDashboard):
		return SendError(c, apierrors.AnalyticsUnknownDashboard)
	case errors.Is(err, services.ErrMissingViewer):
		return SendError(c, apierrors.AnalyticsMissingViewer)
	case errors.Is(err, services.ErrRefreshSuperseded):
		return SendError(c, apierrors.AnalyticsRefreshSuperseded)
	default:
		slog.Error("analytics request failed",
			"path", c.Path(),
			"trace_id", getTraceID(c),
			"error", err)
		return SendSystemError(c, err)
	}
}

func metaFor(view *models.ViewModel, viewerID string) ViewMeta {
	return ViewMeta{
		DataOrigin:     view.DataOrigin,
		FallbackReason: view.FallbackReason,
		Sequence:       view.Sequence,
		ViewerID:       viewerID,
	}
}

// getViewerID prefers the token's viewer, then the header, then a new ID.
func getViewerID(c echo.Context) string {
	if viewerID, ok := c.Get(ViewerIDContextKey).(string); ok && viewerID != "" {
		return viewerID
	}
	if header := c.Request().Header.Get(ViewerIDHeader); header != "" {
		if parsed, err := uuid.Parse(header); err == nil {
			return parsed.String()
		}
	}
	return uuid.New().String()
}
