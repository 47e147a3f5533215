package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func resetInvalidKeys(t *testing.T) {
	t.Helper()
	invalidMu.Lock()
	invalidKeys = nil
	invalidMu.Unlock()
}

func TestGetEnvAsTimeDuration(t *testing.T) {
	resetInvalidKeys(t)

	t.Setenv("SF_TEST_TIMEOUT", "45")
	assert.Equal(t, 45*time.Second, getEnvAsTimeDuration("SF_TEST_TIMEOUT", time.Second))

	t.Setenv("SF_TEST_TIMEOUT", " 750ms ")
	assert.Equal(t, 750*time.Millisecond, getEnvAsTimeDuration("SF_TEST_TIMEOUT", time.Second))

	t.Setenv("SF_TEST_TIMEOUT", "   ")
	assert.Equal(t, time.Second, getEnvAsTimeDuration("SF_TEST_TIMEOUT", time.Second))

	t.Setenv("SF_TEST_TIMEOUT", "soon")
	assert.Equal(t, time.Second, getEnvAsTimeDuration("SF_TEST_TIMEOUT", time.Second))
	assert.Equal(t, []string{"SF_TEST_TIMEOUT"}, InvalidEnvKeys())
}

func TestGetEnvAsIntAndBool(t *testing.T) {
	resetInvalidKeys(t)

	t.Setenv("SF_TEST_LIMIT", "12")
	assert.Equal(t, 12, getEnvAsInt("SF_TEST_LIMIT", 5))

	t.Setenv("SF_TEST_LIMIT", "twelve")
	assert.Equal(t, 5, getEnvAsInt("SF_TEST_LIMIT", 5))

	t.Setenv("SF_TEST_FLAG", "false")
	assert.False(t, getEnvAsBool("SF_TEST_FLAG", true))

	t.Setenv("SF_TEST_FLAG", "nope")
	assert.True(t, getEnvAsBool("SF_TEST_FLAG", true))

	// Reported once per key.
	getEnvAsInt("SF_TEST_LIMIT", 5)
	assert.Equal(t, []string{"SF_TEST_LIMIT", "SF_TEST_FLAG"}, InvalidEnvKeys())
}

func TestGetEnvAsString_KeepsExplicitEmptyValue(t *testing.T) {
	assert.Equal(t, "@daily", getEnvAsString("SF_TEST_UNSET_SCHEDULE", "@daily"))

	t.Setenv("SF_TEST_SCHEDULE", "")
	assert.Equal(t, "", getEnvAsString("SF_TEST_SCHEDULE", "@daily"))
}

func TestGetEnvAsSlice(t *testing.T) {
	t.Setenv("SF_TEST_ORIGINS", " https://shop.example , ,https://cms.example")
	assert.Equal(t, []string{"https://shop.example", "https://cms.example"}, getEnvAsSlice("SF_TEST_ORIGINS", nil))

	t.Setenv("SF_TEST_ORIGINS", "")
	assert.Empty(t, getEnvAsSlice("SF_TEST_ORIGINS", []string{"*"}))
}
