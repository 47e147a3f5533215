package lib

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateOrderNumber generates an order number in the format: PREFIX-XXXXXXXX
func GenerateOrderNumber(prefix string) (string, error) {
	id, err := gonanoid.Generate(orderNumberAlphabet, 8)
	if err != nil {
		return "", err
	}
	if prefix == "" {
		return id, nil
	}
	return fmt.Sprintf("%s-%s", prefix, id), nil
}
