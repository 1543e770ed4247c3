package enums

import "fmt"

// DiscountSource distinguishes catalog offers from user-entered promo codes.
type DiscountSource string

const (
	DiscountSourceOffer     DiscountSource = "offer"
	DiscountSourcePromoCode DiscountSource = "promo_code"
)

var validDiscountSources = []DiscountSource{
	DiscountSourceOffer,
	DiscountSourcePromoCode,
}

// String implements fmt.Stringer.
func (d DiscountSource) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DiscountSource.
func (d DiscountSource) IsValid() bool {
	for _, candidate := range validDiscountSources {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscountSource converts raw input into a DiscountSource.
func ParseDiscountSource(value string) (DiscountSource, error) {
	for _, candidate := range validDiscountSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount source %q", value)
}
