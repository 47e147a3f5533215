package lib

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEffectivePrice(t *testing.T) {
	override := decimal.RequireFromString("12.50")
	zero := decimal.Zero
	base := decimal.RequireFromString("9.99")

	assert.True(t, override.Equal(EffectivePrice(&override, &base)))
	assert.True(t, base.Equal(EffectivePrice(&zero, &base)))
	assert.True(t, base.Equal(EffectivePrice(nil, &base)))
	assert.True(t, EffectivePrice(nil, nil).IsZero())
	assert.True(t, EffectivePrice().IsZero())
}

func TestLineTotalAndValidity(t *testing.T) {
	assert.Equal(t, "29.97", LineTotal(decimal.RequireFromString("9.99"), 3).StringFixed(2))
	assert.True(t, IsValidPrice(decimal.Zero))
	assert.False(t, IsValidPrice(decimal.NewFromInt(-1)))
}
