package domain

type DeliveryTypeName string

const (
	DeliveryShipping   DeliveryTypeName = "Shipping"
	DeliveryWithdrawal DeliveryTypeName = "Withdrawal"
)

type DeliveryType struct {
	ID         string           `json:"id"`
	Name       DeliveryTypeName `json:"name"`
	Enabled    bool             `json:"enabled"`
	PriceCents int64            `json:"priceCents"`
}

// Fee is the amount added to an order total for this delivery type.
func (d DeliveryType) Fee() int64 {
	if d.Name == DeliveryShipping {
		return d.PriceCents
	}
	return 0
}

// PaymentMethod names a payment type row and selects how checkout is settled.
type PaymentMethod string

const (
	PaymentStripe         PaymentMethod = "Stripe"
	PaymentPayPal         PaymentMethod = "PayPal"
	PaymentCashOnDelivery PaymentMethod = "CashOnDelivery"
	PaymentWireTransfer   PaymentMethod = "WireTransfer"
)

// Offline methods are settled outside the system and skip the gateway.
func (m PaymentMethod) Offline() bool {
	return m == PaymentCashOnDelivery || m == PaymentWireTransfer
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentStripe, PaymentPayPal, PaymentCashOnDelivery, PaymentWireTransfer:
		return true
	}
	return false
}

type PaymentType struct {
	ID      string        `json:"id"`
	Name    PaymentMethod `json:"name"`
	Enabled bool          `json:"enabled"`
}

type BankDetails struct {
	BankName      string `json:"bankName"`
	AccountHolder string `json:"accountHolder"`
	IBAN          string `json:"iban"`
	SWIFT         string `json:"swift"`
}

type Setting struct {
	Currency     string `json:"currency"`
	ContactEmail string `json:"contactEmail"`
	BankDetails
}
