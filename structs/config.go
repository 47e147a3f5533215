package structs

import "time"

type Config struct {
	Server     *ServerConfig
	Cors       *CorsConfig
	Database   *DatabaseConfig
	Store      *StoreConfig
	Cache      *CacheConfig
	Stock      *StockConfig
	Jobs       *JobsConfig
	Checkout   *CheckoutConfig
	Auth       *AuthConfig
	Encryption *EncryptionConfig
	Email      *EmailConfig
	RateLimit  *RateLimitConfig
}

type ServerConfig struct {
	AppName        string        // Storefront
	Environment    string        // development, production
	Port           string        // :8082
	ReadTimeout    time.Duration // in seconds
	WriteTimeout   time.Duration // in seconds
	IdleTimeout    time.Duration // in seconds
	MaxHeaderBytes int           // in bytes
	BodyLimit      int64         // in bytes
}

type CorsConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type DatabaseConfig struct {
	Driver       string // pgdriver, pgx
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxConns     int
	MinConns     int
	MaxLifetime  time.Duration
	MaxIdleTime  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	AutoMigrate  bool
}

// StoreConfig selects the record store backing the services.
type StoreConfig struct {
	Driver string // postgres, memory
}

type CacheConfig struct {
	Enabled         bool
	Address         string
	Username        string
	Password        string
	DB              int
	PoolSize        int
	MinIdleConns    int
	MaxIdleConns    int
	PoolTimeout     time.Duration
	IdleTimeout     time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
	VariantListTTL  time.Duration
}

type StockConfig struct {
	RecomputeDelay       time.Duration // debounce window for mapping changes
	RecomputeTimeout     time.Duration // upper bound for one recompute run
	VariantLookupTimeout time.Duration // upper bound for GET /product-variants/{id}
	DeductionRetries     int           // compare-and-swap attempts per mapping
	FallbackConcurrency  int           // parallel per-id product fetches in checkout
}

type JobsConfig struct {
	CleanupOnStartup bool
	CleanupSchedule  string // cron expression, empty disables
	CleanupBatchSize int
	Timezone         string
}

type CheckoutConfig struct {
	SuccessPath       string
	OrderNumberPrefix string
}

type AuthConfig struct {
	AdminTokenSecret string
	AdminTokenIssuer string
	AdminRole        string
}

type EncryptionConfig struct {
	Key string // 32 bytes, empty disables PII sealing
}

type EmailConfig struct {
	Enabled    bool
	ApiKey     string
	From       string
	AdminEmail string
}

type RateLimitConfig struct {
	Enabled        bool
	CheckoutLimit  int
	CheckoutWindow time.Duration
	GeneralLimit   int
	GeneralWindow  time.Duration
}
