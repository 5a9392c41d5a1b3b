package domain

// PaymentType is the closed set of payment-network tags a record may carry.
// Unknown tags are rejected at the boundary rather than stored as free text.
type PaymentType string

const (
	PaymentBitcoinLightning PaymentType = "bitcoin-lightning"
	PaymentBitcoinKeysend   PaymentType = "bitcoin-keysend"
	PaymentMonero           PaymentType = "monero"
)

// ParsePaymentType validates s against the known tags.
// Returns ErrInvalidType for anything outside the closed set.
func ParsePaymentType(s string) (PaymentType, error) {
	pt := PaymentType(s)
	if !pt.Valid() {
		return "", ErrInvalidType
	}
	return pt, nil
}

// String returns the wire form of the tag.
func (p PaymentType) String() string { return string(p) }

// Valid reports whether p is one of the known tags.
func (p PaymentType) Valid() bool {
	switch p {
	case PaymentBitcoinLightning, PaymentBitcoinKeysend, PaymentMonero:
		return true
	}
	return false
}
