package enums

import "fmt"

// DiscountType is the closed set of discount structures an offer can carry.
// Marketing copy lives in the offer label; it never drives control flow.
type DiscountType string

const (
	DiscountTypePercentage   DiscountType = "percentage"
	DiscountTypeFixedAmount  DiscountType = "fixed_amount"
	DiscountTypeFreeShipping DiscountType = "free_shipping"
	DiscountTypeBogo         DiscountType = "bogo"
	DiscountTypeBulk         DiscountType = "bulk"
	DiscountTypeCustom       DiscountType = "custom"
)

var validDiscountTypes = []DiscountType{
	DiscountTypePercentage,
	DiscountTypeFixedAmount,
	DiscountTypeFreeShipping,
	DiscountTypeBogo,
	DiscountTypeBulk,
	DiscountTypeCustom,
}

// String implements fmt.Stringer.
func (d DiscountType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DiscountType.
func (d DiscountType) IsValid() bool {
	for _, candidate := range validDiscountTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscountType converts raw input into a DiscountType.
func ParseDiscountType(value string) (DiscountType, error) {
	for _, candidate := range validDiscountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount type %q", value)
}

// PromoDiscountType is the discount structure of a user-entered promo code.
type PromoDiscountType string

const (
	PromoDiscountPercentage   PromoDiscountType = "percentage"
	PromoDiscountFixed        PromoDiscountType = "fixed"
	PromoDiscountFreeShipping PromoDiscountType = "free_shipping"
)

var validPromoDiscountTypes = []PromoDiscountType{
	PromoDiscountPercentage,
	PromoDiscountFixed,
	PromoDiscountFreeShipping,
}

// String implements fmt.Stringer.
func (p PromoDiscountType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PromoDiscountType.
func (p PromoDiscountType) IsValid() bool {
	for _, candidate := range validPromoDiscountTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePromoDiscountType converts raw input into a PromoDiscountType.
func ParsePromoDiscountType(value string) (PromoDiscountType, error) {
	for _, candidate := range validPromoDiscountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promo discount type %q", value)
}
