package handlers

import (
	"net/http"

	"punchcard_backend/internal/models"
	"punchcard_backend/internal/services"
	"punchcard_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// CustomerHandler serves the operator side of customer management.
type CustomerHandler struct {
	identityService services.IdentityService
	punchService    services.PunchService
	loyaltyService  services.LoyaltyService
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(is services.IdentityService, ps services.PunchService, ls services.LoyaltyService) *CustomerHandler {
	return &CustomerHandler{identityService: is, punchService: ps, loyaltyService: ls}
}

type customerNameRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

type recordPunchRequest struct {
	Kind models.PunchKind `json:"kind"`
}

// CreateCustomer issues a new customer identity.
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req customerNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError(err, "CreateCustomer: Failed to bind JSON")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	customer, err := h.identityService.Issue(c.Request.Context(), req.DisplayName)
	if err != nil {
		utils.LogError(err, "CreateCustomer: Error from identityService.Issue")
		respondServiceError(c, err, "Failed to create customer.")
		return
	}
	c.JSON(http.StatusCreated, customer)
}

// GetCustomers lists customers with search and pagination.
func (h *CustomerHandler) GetCustomers(c *gin.Context) {
	filters := models.CustomerFilters{
		Search:   c.Query("search"),
		Page:     utils.PositiveIntOr(c.Query("page"), 1),
		PageSize: utils.PositiveIntOr(c.Query("page_size"), 20),
	}

	customers, total, err := h.identityService.List(c.Request.Context(), filters)
	if err != nil {
		utils.LogError(err, "GetCustomers: Error from identityService.List")
		respondServiceError(c, err, "Failed to fetch customers.")
		return
	}
	if customers == nil {
		customers = []models.CustomerSummary{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      customers,
		"total":     total,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

// GetCustomerByID returns the full card of one customer, as the operator sees it.
func (h *CustomerHandler) GetCustomerByID(c *gin.Context) {
	customerID, ok := parseIDParam(c, "id", "customer")
	if !ok {
		return
	}

	card, err := h.loyaltyService.CardByID(c.Request.Context(), customerID)
	if err != nil {
		utils.LogError(err, "GetCustomerByID: Error from loyaltyService.CardByID", map[string]interface{}{"customer_id": customerID})
		respondServiceError(c, err, "Failed to fetch customer.")
		return
	}
	c.JSON(http.StatusOK, card)
}

// RenameCustomer changes the display name, the only mutable customer field.
func (h *CustomerHandler) RenameCustomer(c *gin.Context) {
	customerID, ok := parseIDParam(c, "id", "customer")
	if !ok {
		return
	}

	var req customerNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
		return
	}

	customer, err := h.identityService.Rename(c.Request.Context(), customerID, req.DisplayName)
	if err != nil {
		utils.LogError(err, "RenameCustomer: Error from identityService.Rename", map[string]interface{}{"customer_id": customerID})
		respondServiceError(c, err, "Failed to update customer.")
		return
	}
	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer removes a customer with its punches and redemption requests.
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	customerID, ok := parseIDParam(c, "id", "customer")
	if !ok {
		return
	}

	if err := h.identityService.Delete(c.Request.Context(), customerID); err != nil {
		utils.LogError(err, "DeleteCustomer: Error from identityService.Delete", map[string]interface{}{"customer_id": customerID})
		respondServiceError(c, err, "Failed to delete customer.")
		return
	}
	c.Status(http.StatusNoContent)
}

// RecordPunch lets the operator punch a card. Kind defaults to manual.
func (h *CustomerHandler) RecordPunch(c *gin.Context) {
	customerID, ok := parseIDParam(c, "id", "customer")
	if !ok {
		return
	}

	var req recordPunchRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload: "+err.Error(), err.Error()))
			return
		}
	}
	if req.Kind == "" {
		req.Kind = models.PunchKindManual
	}

	punch, err := h.punchService.Record(c.Request.Context(), customerID, req.Kind)
	if err != nil {
		utils.LogError(err, "RecordPunch: Error from punchService.Record", map[string]interface{}{"customer_id": customerID})
		respondServiceError(c, err, "Failed to record punch.")
		return
	}
	c.JSON(http.StatusCreated, punch)
}

// GetCustomerPunches returns the punch history, newest first. limit=0 (default) returns all.
func (h *CustomerHandler) GetCustomerPunches(c *gin.Context) {
	customerID, ok := parseIDParam(c, "id", "customer")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.identityService.GetByID(ctx, customerID); err != nil {
		respondServiceError(c, err, "Failed to fetch punches.")
		return
	}
	punches, err := h.punchService.HistoryFor(ctx, customerID, utils.PositiveIntOr(c.Query("limit"), 0))
	if err != nil {
		utils.LogError(err, "GetCustomerPunches: Error from punchService.HistoryFor", map[string]interface{}{"customer_id": customerID})
		respondServiceError(c, err, "Failed to fetch punches.")
		return
	}
	total, err := h.punchService.TotalFor(ctx, customerID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch punches.")
		return
	}
	if punches == nil {
		punches = []models.Punch{}
	}

	c.JSON(http.StatusOK, gin.H{"data": punches, "total": total})
}
