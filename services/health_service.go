package services

import (
	"context"
	"runtime"
	"time"

	"storefront_server/database"

	"github.com/MonkyMars/gecho"
)

var uptimeStart time.Time

func init() {
	uptimeStart = time.Now()
}

type serverHealthStatus struct {
	Uptime       float64   `json:"uptime"`        // in seconds
	CurrentTime  time.Time `json:"current_time"`  // server current time
	ServiceAlive bool      `json:"service_alive"` // always true if service is running
	RamStats     *RamStats `json:"ram_stats"`
}

type RamStats struct {
	TotalMB     uint64 `json:"total_mb"`
	UsedMB      uint64 `json:"used_mb"`
	FreeMB      uint64 `json:"free_mb"`
	UsedPercent uint64 `json:"used_percent"`
}

type dependencyHealthStatus struct {
	Name           string    `json:"name"`
	Enabled        bool      `json:"enabled"`
	Connected      bool      `json:"connected"`
	LastChecked    time.Time `json:"last_checked"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	Pool           any       `json:"pool,omitempty"`
}

type HealthService struct {
	logger *gecho.Logger
	db     *database.DB // nil with the memory store
	cache  *CacheService
	status serverHealthStatus
}

func NewHealthService(logger *gecho.Logger, db *database.DB, cache *CacheService) *HealthService {
	return &HealthService{
		logger: logger,
		db:     db,
		cache:  cache,
		status: serverHealthStatus{
			CurrentTime:  time.Now(),
			ServiceAlive: true,
			RamStats:     getRamStats(),
		},
	}
}

func getRamStats() *RamStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	totalMB := m.Sys / 1024 / 1024
	usedMB := m.Alloc / 1024 / 1024
	freeMB := totalMB - usedMB
	usedPercent := uint64(0)
	if totalMB > 0 {
		usedPercent = (usedMB * 100) / totalMB
	}

	return &RamStats{
		TotalMB:     totalMB,
		UsedMB:      usedMB,
		FreeMB:      freeMB,
		UsedPercent: usedPercent,
	}
}

func (hs *HealthService) GetServerHealthStatus() serverHealthStatus {
	hs.status.Uptime = time.Since(uptimeStart).Seconds()
	hs.status.CurrentTime = time.Now()
	hs.status.RamStats = getRamStats()
	return hs.status
}

// GetDatabaseHealthStatus pings postgres. The memory store always reports healthy.
func (hs *HealthService) GetDatabaseHealthStatus(ctx context.Context) (dependencyHealthStatus, error) {
	if hs.db == nil {
		return dependencyHealthStatus{Name: "memory", Enabled: true, Connected: true, LastChecked: time.Now()}, nil
	}
	status, err := hs.check(ctx, "postgres", hs.db.Health)
	status.Pool = hs.db.GetStats()
	return status, err
}

// GetCacheHealthStatus pings redis. A disabled cache is healthy.
func (hs *HealthService) GetCacheHealthStatus(ctx context.Context) (dependencyHealthStatus, error) {
	if hs.cache == nil || !hs.cache.Enabled() {
		return dependencyHealthStatus{Name: "redis", LastChecked: time.Now()}, nil
	}
	status, err := hs.check(ctx, "redis", hs.cache.Ping)
	status.Pool = hs.cache.GetConnectionStats()
	return status, err
}

func (hs *HealthService) check(ctx context.Context, name string, ping func(context.Context) error) (dependencyHealthStatus, error) {
	start := time.Now()
	err := ping(ctx)
	elapsed := time.Since(start).Milliseconds()

	status := dependencyHealthStatus{
		Name:           name,
		Enabled:        true,
		Connected:      err == nil,
		LastChecked:    time.Now(),
		ResponseTimeMs: elapsed,
	}

	if err != nil {
		hs.logger.Error("Health check failed", gecho.Field("dependency", name), gecho.Field("error", err))
	}
	return status, err
}
