package config

import (
	"storefront_server/structs"
	"sync"
	"time"
)

var (
	configInstance *structs.Config
	configOnce     sync.Once
)

func GetConfig() *structs.Config {
	configOnce.Do(func() {
		configInstance = Load()
	})
	return configInstance
}

// Load builds a fresh configuration from the environment without touching the singleton.
func Load() *structs.Config {
	return &structs.Config{
		Server: &structs.ServerConfig{
			AppName:        getEnvAsString("APP_NAME", "Storefront_no_env"),
			Environment:    getEnvAsString("APP_ENV", "development"),
			Port:           getEnvAsString("APP_PORT", ":8082"),
			ReadTimeout:    getEnvAsTimeDuration("SERVER_READ_TIME_OUT", 15*time.Second),
			WriteTimeout:   getEnvAsTimeDuration("SERVER_WRITE_TIME_OUT", 35*time.Second),
			IdleTimeout:    getEnvAsTimeDuration("SERVER_IDLE_TIME_OUT", 60*time.Second),
			MaxHeaderBytes: getEnvAsInt("SERVER_MAX_HEADER_BYTES", 1<<20), // 1 MB
			BodyLimit:      int64(getEnvAsInt("SERVER_BODY_LIMIT", 1<<20)),
		},
		Cors: &structs.CorsConfig{
			AllowedOrigins:   getEnvAsSlice("CORS_ALLOW_ORIGINS", []string{"http://localhost:4321", "http://localhost:3000"}),
			AllowedMethods:   getEnvAsSlice("CORS_ALLOW_METHODS", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders:   getEnvAsSlice("CORS_ALLOW_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", false),
			ExposedHeaders:   getEnvAsSlice("CORS_EXPOSED_HEADERS", []string{"Content-Length", "Location"}),
			MaxAge:           getEnvAsInt("CORS_MAX_AGE", 300),
		},
		Database: &structs.DatabaseConfig{
			Driver:       getEnvAsString("DB_DRIVER", "pgdriver"),
			Host:         getEnvAsString("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnvAsString("DB_USER", "postgres"),
			Password:     getEnvAsString("DB_PASSWORD", "password"),
			Name:         getEnvAsString("DB_NAME", "storefront_db"),
			SSLMode:      getEnvAsString("DB_SSL_MODE", "disable"),
			MaxConns:     getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:     getEnvAsInt("DB_MIN_CONNS", 2),
			MaxLifetime:  getEnvAsTimeDuration("DB_MAX_LIFETIME", 30*time.Minute),
			MaxIdleTime:  getEnvAsTimeDuration("DB_MAX_IDLE_TIME", 5*time.Minute),
			ReadTimeout:  getEnvAsTimeDuration("DB_READ_TIMEOUT", 5*time.Second),
			WriteTimeout: getEnvAsTimeDuration("DB_WRITE_TIMEOUT", 5*time.Second),
			AutoMigrate:  getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Store: &structs.StoreConfig{
			Driver: getEnvAsString("STORE_DRIVER", "postgres"),
		},
		Cache: &structs.CacheConfig{
			Enabled:         getEnvAsBool("CACHE_ENABLED", true),
			Address:         getEnvAsString("REDIS_ADDRESS", "localhost:6379"),
			Username:        getEnvAsString("REDIS_USERNAME", ""),
			Password:        getEnvAsString("REDIS_PASSWORD", ""),
			DB:              getEnvAsInt("REDIS_DB", 0),
			PoolSize:        getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns:    getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
			MaxIdleConns:    getEnvAsInt("REDIS_MAX_IDLE_CONNS", 5),
			PoolTimeout:     getEnvAsTimeDuration("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:     getEnvAsTimeDuration("REDIS_IDLE_TIMEOUT", 5*time.Minute),
			DialTimeout:     getEnvAsTimeDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:     getEnvAsTimeDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:    getEnvAsTimeDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			MaxRetries:      getEnvAsInt("REDIS_MAX_RETRIES", 3),
			MinRetryBackoff: getEnvAsTimeDuration("REDIS_MIN_RETRY_BACKOFF", 8*time.Millisecond),
			MaxRetryBackoff: getEnvAsTimeDuration("REDIS_MAX_RETRY_BACKOFF", 512*time.Millisecond),
			VariantListTTL:  getEnvAsTimeDuration("CACHE_VARIANT_LIST_TTL", 5*time.Minute),
		},
		Stock: &structs.StockConfig{
			RecomputeDelay:       getEnvAsTimeDuration("STOCK_RECOMPUTE_DELAY", 500*time.Millisecond),
			RecomputeTimeout:     getEnvAsTimeDuration("STOCK_RECOMPUTE_TIMEOUT", 10*time.Second),
			VariantLookupTimeout: getEnvAsTimeDuration("STOCK_VARIANT_LOOKUP_TIMEOUT", 25*time.Second),
			DeductionRetries:     getEnvAsInt("STOCK_DEDUCTION_RETRIES", 2),
			FallbackConcurrency:  getEnvAsInt("STOCK_FALLBACK_CONCURRENCY", 4),
		},
		Jobs: &structs.JobsConfig{
			CleanupOnStartup: getEnvAsBool("JOBS_CLEANUP_ON_STARTUP", true),
			CleanupSchedule:  getEnvAsString("JOBS_CLEANUP_SCHEDULE", "@daily"),
			CleanupBatchSize: getEnvAsInt("JOBS_CLEANUP_BATCH_SIZE", 100),
			Timezone:         getEnvAsString("JOBS_TIMEZONE", "Europe/Amsterdam"),
		},
		Checkout: &structs.CheckoutConfig{
			SuccessPath:       getEnvAsString("CHECKOUT_SUCCESS_PATH", "/checkout/success"),
			OrderNumberPrefix: getEnvAsString("CHECKOUT_ORDER_PREFIX", "SF"),
		},
		Auth: &structs.AuthConfig{
			AdminTokenSecret: getEnvAsString("AUTH_ADMIN_TOKEN_SECRET", "default_admin_secret"),
			AdminTokenIssuer: getEnvAsString("AUTH_ADMIN_TOKEN_ISSUER", "storefront-cms"),
			AdminRole:        getEnvAsString("AUTH_ADMIN_ROLE", "admin"),
		},
		Encryption: &structs.EncryptionConfig{
			Key: getEnvAsString("ENCRYPTION_KEY", ""),
		},
		Email: &structs.EmailConfig{
			Enabled:    getEnvAsBool("EMAIL_ENABLED", false),
			ApiKey:     getEnvAsString("RESEND_API_KEY", ""),
			From:       getEnvAsString("EMAIL_FROM", "Storefront <orders@example.com>"),
			AdminEmail: getEnvAsString("EMAIL_ADMIN", ""),
		},
		RateLimit: &structs.RateLimitConfig{
			Enabled:        getEnvAsBool("RATE_LIMIT_ENABLED", true),
			CheckoutLimit:  getEnvAsInt("RATE_LIMIT_CHECKOUT", 10),
			CheckoutWindow: getEnvAsTimeDuration("RATE_LIMIT_CHECKOUT_WINDOW", time.Minute),
			GeneralLimit:   getEnvAsInt("RATE_LIMIT_GENERAL", 120),
			GeneralWindow:  getEnvAsTimeDuration("RATE_LIMIT_GENERAL_WINDOW", time.Minute),
		},
	}
}

func GetLogLevel() string {
	if GetConfig().Server.Environment == "production" {
		return "info"
	}
	return "debug"
}

func IsProduction() bool {
	return GetConfig().Server.Environment == "production"
}
