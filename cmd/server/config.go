package main

import (
	"strings"
	"time"

	"punchcard_backend/internal/database"
	"punchcard_backend/internal/models"
	"punchcard_backend/pkg/utils"
)

const (
	storageDriverPostgres = "postgres"
	storageDriverMemory   = "memory"
)

type config struct {
	Port           string
	StorageDriver  string
	DB             database.Config
	AllowedOrigins []string
	Policy         models.LoyaltyPolicy
	RequestTimeout time.Duration
	MetricsEnabled bool
	LogLevel       string
	LogFormat      string
}

func loadConfig() config {
	defaults := models.DefaultLoyaltyPolicy()

	cfg := config{
		Port:          utils.Getenv("PORT", "8080"),
		StorageDriver: strings.ToLower(utils.Getenv("STORAGE_DRIVER", storageDriverPostgres)),
		DB: database.Config{
			Host:       utils.Getenv("DB_HOST", "localhost"),
			Port:       utils.Getenv("DB_PORT", "5432"),
			User:       utils.Getenv("DB_USER", "punchcard_user"),
			Password:   utils.Getenv("DB_PASSWORD", "punchcard_password"),
			Name:       utils.Getenv("DB_NAME", "punchcard_db"),
			SSLMode:    utils.Getenv("DB_SSLMODE", "disable"),
			SchemaPath: utils.Getenv("DB_SCHEMA_PATH", ""),
		},
		Policy: models.LoyaltyPolicy{
			Redemption:    models.RedemptionPolicy(strings.ToLower(utils.Getenv("REDEMPTION_POLICY", string(defaults.Redemption)))),
			PunchCooldown: utils.GetenvDuration("PUNCH_COOLDOWN", defaults.PunchCooldown),
			HistoryLimit:  utils.GetenvInt("HISTORY_LIMIT", defaults.HistoryLimit),
		},
		RequestTimeout: utils.GetenvDuration("REQUEST_TIMEOUT", 10*time.Second),
		MetricsEnabled: utils.GetenvBool("METRICS_ENABLED", true),
		LogLevel:       utils.Getenv("LOG_LEVEL", "info"),
		LogFormat:      utils.Getenv("LOG_FORMAT", "console"),
	}

	if !cfg.Policy.Redemption.IsValid() {
		utils.LogWarn("Unknown REDEMPTION_POLICY, using default", map[string]interface{}{
			"value": cfg.Policy.Redemption, "default": defaults.Redemption,
		})
		cfg.Policy.Redemption = defaults.Redemption
	}
	if cfg.Policy.PunchCooldown < 0 {
		cfg.Policy.PunchCooldown = 0
	}

	if origins := utils.Getenv("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:3001"}
	}
	return cfg
}
