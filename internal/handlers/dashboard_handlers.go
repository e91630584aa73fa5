package handlers

import (
	"net/http"

	"punchcard_backend/internal/services"
	"punchcard_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the operator landing page figures.
type DashboardHandler struct {
	loyaltyService services.LoyaltyService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(ls services.LoyaltyService) *DashboardHandler {
	return &DashboardHandler{loyaltyService: ls}
}

func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	stats, err := h.loyaltyService.Dashboard(c.Request.Context())
	if err != nil {
		utils.LogError(err, "GetDashboard: Error from loyaltyService.Dashboard")
		respondServiceError(c, err, "Failed to load dashboard.")
		return
	}
	c.JSON(http.StatusOK, stats)
}
