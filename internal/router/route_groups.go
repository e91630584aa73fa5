package router

import (
	"punchcard_backend/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupCardRoutes sets up the public card routes addressed by slug.
func SetupCardRoutes(apiGroup *gin.RouterGroup, cardHandler *handlers.CardHandler) {
	cardRoutes := apiGroup.Group("/cards/:slug")
	{
		cardRoutes.GET("", cardHandler.GetCard)
		cardRoutes.POST("/punches", cardHandler.PunchCard)
		cardRoutes.POST("/redemptions", cardHandler.RequestRedemption)
	}
}

// SetupCustomerRoutes sets up the customer routes.
func SetupCustomerRoutes(adminGroup *gin.RouterGroup, customerHandler *handlers.CustomerHandler) {
	customerRoutes := adminGroup.Group("/customers")
	{
		customerRoutes.POST("", customerHandler.CreateCustomer)
		customerRoutes.GET("", customerHandler.GetCustomers)
		customerRoutes.GET("/:id", customerHandler.GetCustomerByID)
		customerRoutes.PATCH("/:id", customerHandler.RenameCustomer)
		customerRoutes.DELETE("/:id", customerHandler.DeleteCustomer)
		customerRoutes.POST("/:id/punches", customerHandler.RecordPunch)
		customerRoutes.GET("/:id/punches", customerHandler.GetCustomerPunches)
	}
}

// SetupRewardRoutes sets up the reward catalog routes.
func SetupRewardRoutes(adminGroup *gin.RouterGroup, rewardHandler *handlers.RewardHandler) {
	rewardRoutes := adminGroup.Group("/rewards")
	{
		rewardRoutes.POST("", rewardHandler.CreateReward)
		rewardRoutes.GET("", rewardHandler.GetRewards)
		rewardRoutes.GET("/:id", rewardHandler.GetRewardByID)
		rewardRoutes.PUT("/:id", rewardHandler.UpdateReward)
		rewardRoutes.PATCH("/:id/active", rewardHandler.SetRewardActive)
		rewardRoutes.DELETE("/:id", rewardHandler.DeleteReward)
	}
}

// SetupRedemptionRoutes sets up the redemption queue routes.
func SetupRedemptionRoutes(adminGroup *gin.RouterGroup, redemptionHandler *handlers.RedemptionHandler) {
	redemptionRoutes := adminGroup.Group("/redemptions")
	{
		redemptionRoutes.GET("", redemptionHandler.GetRedemptions)
		redemptionRoutes.PATCH("/:id/status", redemptionHandler.UpdateRedemptionStatus)
		redemptionRoutes.PATCH("/:id/note", redemptionHandler.UpdateRedemptionNote)
	}
}

// SetupDashboardRoutes sets up the dashboard route.
func SetupDashboardRoutes(adminGroup *gin.RouterGroup, dashboardHandler *handlers.DashboardHandler) {
	adminGroup.GET("/dashboard", dashboardHandler.GetDashboard)
}

// SetupSettingsRoutes sets up the read-only settings route.
func SetupSettingsRoutes(adminGroup *gin.RouterGroup, settingHandler *handlers.SettingHandler) {
	adminGroup.GET("/settings", settingHandler.GetSettings)
}
