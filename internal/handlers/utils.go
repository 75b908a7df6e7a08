package handlers

import (
	"tourism-analytics/internal/models"

	"github.com/labstack/echo/v4"
)

const (
	ViewerIDContextKey   = "viewer_id"
	ViewerRoleContextKey = "viewer_role"
)

// getViewerRole returns the role set by the auth middleware. An empty role
// means the caller is not authenticated.
func getViewerRole(c echo.Context) models.Role {
	role, ok := c.Get(ViewerRoleContextKey).(models.Role)
	if !ok {
		return ""
	}
	return role
}
