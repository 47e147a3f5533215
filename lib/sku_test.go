package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSKU(t *testing.T) {
	sku, err := GenerateSKU("pe-ony rose", 5)
	assert.NoError(t, err)
	assert.Regexp(t, `^PEO-[A-Z0-9]{5}$`, sku)

	sku, err = GenerateSKU("!!", 4)
	assert.NoError(t, err)
	assert.Regexp(t, `^[A-Z0-9]{4}$`, sku)
}
