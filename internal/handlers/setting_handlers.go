package handlers

import (
	"net/http"

	"punchcard_backend/internal/models"

	"github.com/gin-gonic/gin"
)

// SettingHandler exposes the configured loyalty policy. Settings come from the
// environment at startup and cannot be changed over the API.
type SettingHandler struct {
	settings models.PolicySettings
}

// NewSettingHandler creates a new SettingHandler.
func NewSettingHandler(policy models.LoyaltyPolicy) *SettingHandler {
	return &SettingHandler{settings: models.NewPolicySettings(policy)}
}

// GetSettings returns the active loyalty policy.
func (h *SettingHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings)
}
