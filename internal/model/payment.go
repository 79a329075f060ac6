package model

// PaymentMethod values are persisted in Thai, matching existing snapshots.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "เงินสด"
	PaymentTransfer PaymentMethod = "เงินโอน"
	PaymentCredit   PaymentMethod = "เครดิต"
)

// PaymentMethods lists every method in report order.
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentTransfer, PaymentCredit}

// Normalize maps a missing method to cash.
func (p PaymentMethod) Normalize() PaymentMethod {
	if p == "" {
		return PaymentCash
	}
	return p
}

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentTransfer, PaymentCredit:
		return true
	}
	return false
}
