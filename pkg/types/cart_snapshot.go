package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// CartLine is one item of a cart: a product, a quantity, and the chosen
// variation when the product has one. VariationID 0 means no variation.
type CartLine struct {
	ProductID           int64             `json:"product_id"`
	Quantity            int               `json:"quantity"`
	VariationID         int64             `json:"variation_id,omitempty"`
	VariationAttributes map[string]string `json:"variation,omitempty"`
}

// HasVariation reports whether the line targets a specific variation.
func (l CartLine) HasVariation() bool {
	return l.VariationID != 0
}

// Normalized returns a copy safe to persist: empty attribute maps become nil and
// the attribute map is detached from the caller.
func (l CartLine) Normalized() CartLine {
	out := l
	if len(l.VariationAttributes) == 0 {
		out.VariationAttributes = nil
		return out
	}
	out.VariationAttributes = make(map[string]string, len(l.VariationAttributes))
	for k, v := range l.VariationAttributes {
		out.VariationAttributes[k] = v
	}
	return out
}

// CartSnapshot is the ordered, by-value copy of a cart stored on a share link.
type CartSnapshot []CartLine

// Clone copies the snapshot so later cart mutations cannot leak into it.
func (s CartSnapshot) Clone() CartSnapshot {
	if s == nil {
		return nil
	}
	out := make(CartSnapshot, len(s))
	for i, line := range s {
		out[i] = line.Normalized()
	}
	return out
}

// TotalQuantity sums the quantity of every line.
func (s CartSnapshot) TotalQuantity() int {
	total := 0
	for _, line := range s {
		total += line.Quantity
	}
	return total
}

// Value implements driver.Valuer.
func (s CartSnapshot) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]CartLine(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *CartSnapshot) Scan(src any) error {
	if src == nil {
		*s = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported cart snapshot source %T", src)
	}
	var lines []CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return err
	}
	*s = CartSnapshot(lines)
	return nil
}
