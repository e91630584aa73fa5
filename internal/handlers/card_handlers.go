package handlers

import (
	"net/http"

	"punchcard_backend/internal/models"
	"punchcard_backend/internal/services"
	"punchcard_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// CardHandler serves the public, slug-addressed card endpoints a customer reaches by QR code.
type CardHandler struct {
	loyaltyService services.LoyaltyService
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(ls services.LoyaltyService) *CardHandler {
	return &CardHandler{loyaltyService: ls}
}

type requestRedemptionRequest struct {
	RewardID int64 `json:"reward_id" binding:"required"`
}

// GetCard returns the customer's card with totals and per-reward eligibility.
func (h *CardHandler) GetCard(c *gin.Context) {
	card, err := h.loyaltyService.Card(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondServiceError(c, err, "Failed to load card.")
		return
	}
	c.JSON(http.StatusOK, card)
}

// PunchCard records a QR punch and returns the recomputed card.
// Once the punch is stored the response is always 201; a card that cannot be reloaded
// is left out of the body rather than reported as a failure.
func (h *CardHandler) PunchCard(c *gin.Context) {
	slug := c.Param("slug")
	ctx := c.Request.Context()

	punch, err := h.loyaltyService.RecordPunch(ctx, slug, models.PunchKindQR)
	if err != nil {
		utils.LogError(err, "PunchCard: Error from loyaltyService.RecordPunch")
		respondServiceError(c, err, "Failed to record punch.")
		return
	}
	card, err := h.loyaltyService.Card(ctx, slug)
	if err != nil {
		utils.LogError(err, "PunchCard: punch stored but card reload failed", map[string]interface{}{"punch_id": punch.ID})
		c.JSON(http.StatusCreated, gin.H{"punch": punch})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"punch": punch, "card": card})
}

// RequestRedemption files a pending claim against a reward.
func (h *CardHandler) RequestRedemption(c *gin.Context) {
	var req requestRedemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	redemption, err := h.loyaltyService.RequestRedemption(c.Request.Context(), c.Param("slug"), req.RewardID)
	if err != nil {
		utils.LogError(err, "RequestRedemption: Error from loyaltyService.RequestRedemption", map[string]interface{}{"reward_id": req.RewardID})
		respondServiceError(c, err, "Failed to request redemption.")
		return
	}
	c.JSON(http.StatusCreated, redemption)
}
