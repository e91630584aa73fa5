package handlers

import (
	"errors"
	"net/http"

	"punchcard_backend/internal/services"
	"punchcard_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// parseIDParam reads a positive int64 path parameter, responding 400 when it is not one.
func parseIDParam(c *gin.Context, name, label string) (int64, bool) {
	idStr := c.Param(name)
	id, err := utils.StrToInt64(idStr)
	if err != nil || id <= 0 {
		details := "must be a positive integer"
		if err != nil {
			details = err.Error()
		}
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+label+" ID format.", details))
		return 0, false
	}
	return id, true
}

// respondServiceError maps a service error to its HTTP representation. failMsg is used
// for unexpected failures, whose details are not leaked to the client.
func respondServiceError(c *gin.Context, err error, failMsg string) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed: "+err.Error(), err.Error()))
	case errors.Is(err, services.ErrCustomerNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Customer not found.", err.Error()))
	case errors.Is(err, services.ErrRewardNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Reward not found.", err.Error()))
	case errors.Is(err, services.ErrRedemptionNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Redemption request not found.", err.Error()))
	case errors.Is(err, services.ErrNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Resource not found.", err.Error()))
	case errors.Is(err, services.ErrRewardInactive):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeRewardInactive, "Reward is not available.", err.Error()))
	case errors.Is(err, services.ErrInsufficientPunches):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnprocessableEntity, utils.ErrCodeInsufficientPunches, "Not enough punches for this reward.", err.Error()))
	case errors.Is(err, services.ErrDuplicatePendingRequest):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeDuplicatePending, "A request for this reward is already pending.", err.Error()))
	case errors.Is(err, services.ErrAlreadyRedeemed):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeAlreadyRedeemed, "This reward has already been redeemed.", err.Error()))
	case errors.Is(err, services.ErrInvalidStateTransition):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeInvalidStateTransition, "Status change not allowed.", err.Error()))
	case errors.Is(err, services.ErrPunchCooldown):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusTooManyRequests, utils.ErrCodePunchCooldown, "Punch recorded too recently, try again later.", err.Error()))
	case errors.Is(err, services.ErrIdentityIssuanceExhausted):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusServiceUnavailable, utils.ErrCodeIdentityExhausted, "Could not issue a customer code, try again.", "Internal error"))
	case errors.Is(err, services.ErrStorageUnavailable):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusServiceUnavailable, utils.ErrCodeServiceUnavailable, failMsg, "Storage unavailable"))
	default:
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, failMsg, "Internal error"))
	}
}
