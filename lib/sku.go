package lib

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const skuAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateSKU builds a SKU from the first three alphanumerics of name and a random suffix.
func GenerateSKU(name string, suffixLength int) (string, error) {
	namePart := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, strings.ToUpper(name))
	if len(namePart) > 3 {
		namePart = namePart[:3]
	}

	suffix, err := gonanoid.Generate(skuAlphabet, suffixLength)
	if err != nil {
		return "", err
	}
	if namePart == "" {
		return suffix, nil
	}
	return fmt.Sprintf("%s-%s", namePart, suffix), nil
}
