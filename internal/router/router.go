package router

import (
	"net/http"

	"punchcard_backend/internal/handlers"
	"punchcard_backend/internal/metrics"
	"punchcard_backend/internal/models"
	"punchcard_backend/internal/repositories"
	"punchcard_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// Setup initializes the routing for the application.
// m may be nil, in which case /metrics is not mounted.
func Setup(engine *gin.Engine, store repositories.Store, policy models.LoyaltyPolicy, m *metrics.Metrics) {
	opts := []services.Option{services.WithMetrics(m)}

	// Initialize Services
	identityService := services.NewIdentityService(store.Customers, services.NewSlugGenerator(), opts...)
	punchService := services.NewPunchService(store.Punches, store.Customers, policy.PunchCooldown, opts...)
	rewardService := services.NewRewardService(store.Rewards, opts...)
	redemptionService := services.NewRedemptionService(store.Redemptions, store.Customers, store.Rewards, store.Punches, policy.Redemption, opts...)
	loyaltyService := services.NewLoyaltyService(identityService, punchService, rewardService, redemptionService, policy)

	// Initialize Handlers
	cardHandler := handlers.NewCardHandler(loyaltyService)
	customerHandler := handlers.NewCustomerHandler(identityService, punchService, loyaltyService)
	rewardHandler := handlers.NewRewardHandler(rewardService)
	redemptionHandler := handlers.NewRedemptionHandler(redemptionService)
	dashboardHandler := handlers.NewDashboardHandler(loyaltyService)
	settingHandler := handlers.NewSettingHandler(policy)

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if m != nil {
		engine.GET("/metrics", gin.WrapH(m.Handler()))
	}

	apiV1 := engine.Group("/api/v1")
	SetupCardRoutes(apiV1, cardHandler)

	// The operator surface sits behind the deployment's own access control.
	admin := apiV1.Group("/admin")
	{
		SetupCustomerRoutes(admin, customerHandler)
		SetupRewardRoutes(admin, rewardHandler)
		SetupRedemptionRoutes(admin, redemptionHandler)
		SetupDashboardRoutes(admin, dashboardHandler)
		SetupSettingsRoutes(admin, settingHandler)
	}
}
