package handlers

import (
	"net/http"

	"punchcard_backend/internal/models"
	"punchcard_backend/internal/services"
	"punchcard_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// RedemptionHandler exposes the operator queue of redemption requests.
type RedemptionHandler struct {
	redemptionService services.RedemptionService
}

// NewRedemptionHandler creates a new RedemptionHandler.
func NewRedemptionHandler(rs services.RedemptionService) *RedemptionHandler {
	return &RedemptionHandler{redemptionService: rs}
}

type setStatusRequest struct {
	Status models.RedemptionStatus `json:"status" binding:"required"`
}

type setNoteRequest struct {
	Note string `json:"note"`
}

// GetRedemptions lists requests newest first, optionally filtered by ?status=.
func (h *RedemptionHandler) GetRedemptions(c *gin.Context) {
	filters := models.RedemptionFilters{Limit: utils.PositiveIntOr(c.Query("limit"), 0)}
	if statusStr := c.Query("status"); statusStr != "" {
		status := models.RedemptionStatus(statusStr)
		if !status.IsValid() {
			utils.RespondValidationFailed(c, "status must be one of pending, fulfilled, cancelled")
			return
		}
		filters.Status = &status
	}

	views, err := h.redemptionService.List(c.Request.Context(), filters)
	if err != nil {
		utils.LogError(err, "GetRedemptions: Error from redemptionService.List")
		respondServiceError(c, err, "Failed to fetch redemption requests.")
		return
	}
	c.JSON(http.StatusOK, views)
}

// UpdateRedemptionStatus applies a state machine transition.
func (h *RedemptionHandler) UpdateRedemptionStatus(c *gin.Context) {
	requestID, ok := parseIDParam(c, "id", "redemption request")
	if !ok {
		return
	}

	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	updated, err := h.redemptionService.SetStatus(c.Request.Context(), requestID, req.Status)
	if err != nil {
		utils.LogError(err, "UpdateRedemptionStatus: Error from redemptionService.SetStatus", map[string]interface{}{"request_id": requestID})
		respondServiceError(c, err, "Failed to update redemption status.")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// UpdateRedemptionNote sets or clears the operator note.
func (h *RedemptionHandler) UpdateRedemptionNote(c *gin.Context) {
	requestID, ok := parseIDParam(c, "id", "redemption request")
	if !ok {
		return
	}

	var req setNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	updated, err := h.redemptionService.SetNote(c.Request.Context(), requestID, req.Note)
	if err != nil {
		respondServiceError(c, err, "Failed to update redemption note.")
		return
	}
	c.JSON(http.StatusOK, updated)
}
