package inventory

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultSeed is the stock the shop opens with.
func DefaultSeed() map[string]int {
	return map[string]int{
		"Margherita": 0,
		"Pepperoni":  5,
		"Cheese":     3,
		"Olives":     2,
		"Mushrooms":  34,
	}
}

// ParseSeed reads "Name=qty,Name=qty" into a quantity map.
func ParseSeed(s string) (map[string]int, error) {
	seed := make(map[string]int)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("inventory: seed entry %q: %w", pair, ErrInvalidName)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("inventory: seed entry %q: %w", pair, err)
		}
		if qty < 0 {
			return nil, fmt.Errorf("inventory: seed entry %q: %w", pair, ErrInvalidQuantity)
		}
		seed[name] = qty
	}
	return seed, nil
}
