package handlers

import (
	"errors"
	"net/http"
	"time"

	apierrors "tourism-analytics/internal/errors"
	"tourism-analytics/internal/models"
	"tourism-analytics/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// DevHandler handles development-only endpoints
type DevHandler struct {
	tokenService services.TokenServiceInterface
}

func NewDevHandler(tokenService services.TokenServiceInterface) *DevHandler {
	return &DevHandler{tokenService: tokenService}
}

type IssueTokenRequest struct {
	Role     models.Role `json:"role" validate:"required,viewer_role"`
	ViewerID string      `json:"viewer_id,omitempty" validate:"omitempty,uuid"`
}

type IssueTokenResponse struct {
	Token     string      `json:"token"`
	ViewerID  string      `json:"viewer_id"`
	Role      models.Role `json:"role"`
	ExpiresAt string      `json:"expires_at"`
}

// IssueToken signs a viewer token so dashboards can be tried with live data
//
// Method: POST /api/v1/dev/token
// Environment: Development only
//
// Request body:
//   - role: AUTHORITY or OWNER
//   - viewer_id: UUID (optional, generated when absent)
//
// Success Response: 201 Created
//
// Error Responses:
//   - 400: Invalid role or viewer ID
//   - 404: Signing key not configured
func (h *DevHandler) IssueToken(c echo.Context) error {
	var req IssueTokenRequest
	if err := c.Bind(&req); err != nil {
		return SendError(c, apierrors.ValidationInvalidFormat, apierrors.WithDetails("request body must be JSON"))
	}
	if err := c.Validate(&req); err != nil {
		return SendError(c, apierrors.ValidationGeneral, apierrors.WithDetails(validationDetails(err)...))
	}

	viewerID := uuid.New()
	if req.ViewerID != "" {
		viewerID = uuid.MustParse(req.ViewerID)
	}

	token, expiresAt, err := h.tokenService.GenerateViewerToken(viewerID, req.Role)
	if err != nil {
		if errors.Is(err, services.ErrSigningDisabled) {
			return SendError(c, apierrors.AnalyticsTokenUnavailable)
		}
		return SendSystemError(c, err)
	}

	return c.JSON(http.StatusCreated, SuccessResponse{
		Data: IssueTokenResponse{
			Token:     token,
			ViewerID:  viewerID.String(),
			Role:      req.Role,
			ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		},
	})
}
