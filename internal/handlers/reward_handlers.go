package handlers

import (
	"net/http"

	"punchcard_backend/internal/models"
	"punchcard_backend/internal/services"
	"punchcard_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// RewardHandler holds the reward service.
type RewardHandler struct {
	rewardService services.RewardService
}

// NewRewardHandler creates a new RewardHandler.
func NewRewardHandler(rs services.RewardService) *RewardHandler {
	return &RewardHandler{rewardService: rs}
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// CreateReward handles the creation of a new reward.
func (h *RewardHandler) CreateReward(c *gin.Context) {
	var req services.CreateRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreateReward: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	reward, err := h.rewardService.Create(c.Request.Context(), req)
	if err != nil {
		utils.LogError(err, "CreateReward: Error from rewardService.Create")
		respondServiceError(c, err, "Failed to create reward.")
		return
	}
	c.JSON(http.StatusCreated, reward)
}

// GetRewards lists the catalog, optionally only active rewards.
func (h *RewardHandler) GetRewards(c *gin.Context) {
	var filters models.RewardFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}

	rewards, err := h.rewardService.List(c.Request.Context(), filters)
	if err != nil {
		utils.LogError(err, "GetRewards: Error from rewardService.List")
		respondServiceError(c, err, "Failed to fetch rewards.")
		return
	}
	if rewards == nil {
		rewards = []models.Reward{}
	}
	c.JSON(http.StatusOK, rewards)
}

// GetRewardByID handles fetching a single reward by ID.
func (h *RewardHandler) GetRewardByID(c *gin.Context) {
	rewardID, ok := parseIDParam(c, "id", "reward")
	if !ok {
		return
	}

	reward, err := h.rewardService.Get(c.Request.Context(), rewardID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch reward.")
		return
	}
	c.JSON(http.StatusOK, reward)
}

// UpdateReward replaces the editable fields of a reward.
func (h *RewardHandler) UpdateReward(c *gin.Context) {
	rewardID, ok := parseIDParam(c, "id", "reward")
	if !ok {
		return
	}

	var req services.UpdateRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "UpdateReward: Failed to bind JSON", map[string]interface{}{"reward_id": rewardID})
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	reward, err := h.rewardService.Update(c.Request.Context(), rewardID, req)
	if err != nil {
		utils.LogError(err, "UpdateReward: Error from rewardService.Update", map[string]interface{}{"reward_id": rewardID})
		respondServiceError(c, err, "Failed to update reward.")
		return
	}
	c.JSON(http.StatusOK, reward)
}

// SetRewardActive toggles whether a reward can be redeemed.
func (h *RewardHandler) SetRewardActive(c *gin.Context) {
	rewardID, ok := parseIDParam(c, "id", "reward")
	if !ok {
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	reward, err := h.rewardService.SetActive(c.Request.Context(), rewardID, *req.Active)
	if err != nil {
		utils.LogError(err, "SetRewardActive: Error from rewardService.SetActive", map[string]interface{}{"reward_id": rewardID})
		respondServiceError(c, err, "Failed to update reward.")
		return
	}
	c.JSON(http.StatusOK, reward)
}

// DeleteReward handles deleting a reward. Redemption history is kept.
func (h *RewardHandler) DeleteReward(c *gin.Context) {
	rewardID, ok := parseIDParam(c, "id", "reward")
	if !ok {
		return
	}

	if err := h.rewardService.Delete(c.Request.Context(), rewardID); err != nil {
		utils.LogError(err, "DeleteReward: Error from rewardService.Delete", map[string]interface{}{"reward_id": rewardID})
		respondServiceError(c, err, "Failed to delete reward.")
		return
	}
	c.Status(http.StatusNoContent)
}
