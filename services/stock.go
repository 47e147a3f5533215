package services

import "storefront_server/structs/tables"

// TotalStock sums the quantity of every active mapping. A nil quantity counts as 0.
//
// This is the only place stock is summed.
func TotalStock(mappings []tables.VariantMapping) int {
	total := 0
	for _, m := range mappings {
		if !m.IsActive {
			continue
		}
		total += MappingStock(m)
	}
	return total
}

// MappingStock returns the quantity of a mapping, 0 when unset or negative.
func MappingStock(m tables.VariantMapping) int {
	if m.Quantity == nil || *m.Quantity < 0 {
		return 0
	}
	return *m.Quantity
}

// IsMappingInStock reports whether an active mapping can cover quantity units.
func IsMappingInStock(m tables.VariantMapping, quantity int) bool {
	return m.IsActive && MappingStock(m) >= quantity
}
