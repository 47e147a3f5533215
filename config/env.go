package config

import (
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"
)

// Values that are set but unparseable fall back to their default and are remembered here.
var (
	invalidMu   sync.Mutex
	invalidKeys []string
)

// InvalidEnvKeys lists environment variables whose values were ignored.
func InvalidEnvKeys() []string {
	invalidMu.Lock()
	defer invalidMu.Unlock()
	return slices.Clone(invalidKeys)
}

func markInvalid(key string) {
	invalidMu.Lock()
	defer invalidMu.Unlock()
	if !slices.Contains(invalidKeys, key) {
		invalidKeys = append(invalidKeys, key)
	}
}

func getEnvAsString(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr, exists := lookupEnvValue(key)
	if !exists {
		return defaultVal
	}
	value, err := cast.ToIntE(valueStr)
	if err != nil {
		markInvalid(key)
		return defaultVal
	}
	return value
}

// getEnvAsTimeDuration accepts Go durations ("750ms", "2m") and bare integers as seconds.
func getEnvAsTimeDuration(key string, defaultVal time.Duration) time.Duration {
	valueStr, exists := lookupEnvValue(key)
	if !exists {
		return defaultVal
	}
	if seconds, err := cast.ToIntE(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	value, err := cast.ToDurationE(valueStr)
	if err != nil {
		markInvalid(key)
		return defaultVal
	}
	return value
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valueStr, exists := lookupEnvValue(key)
	if !exists {
		return defaultVal
	}
	value, err := cast.ToBoolE(valueStr)
	if err != nil {
		markInvalid(key)
		return defaultVal
	}
	return value
}

// getEnvAsSlice splits a comma separated value. An empty value yields an empty slice.
func getEnvAsSlice(key string, defaultVal []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}

	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, v := range parts {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// lookupEnvValue is os.LookupEnv for parsed values: surrounding whitespace is
// dropped and a blank value counts as unset.
func lookupEnvValue(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	value = strings.TrimSpace(value)
	return value, exists && value != ""
}
