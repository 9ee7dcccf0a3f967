package models

import "github.com/google/uuid"

type DonationType string

const (
	DonationTypeOneTime DonationType = "oneTime"
	DonationTypeMonthly DonationType = "monthly"
)

func ValidDonationType(value string) bool {
	switch DonationType(value) {
	case DonationTypeOneTime, DonationTypeMonthly:
		return true
	default:
		return false
	}
}

type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "creditCard"
	PaymentMethodPaypal     PaymentMethod = "paypal"
	PaymentMethodTmoney     PaymentMethod = "tmoney"
	PaymentMethodFlooz      PaymentMethod = "flooz"
)

func ValidPaymentMethod(value string) bool {
	switch PaymentMethod(value) {
	case PaymentMethodCreditCard, PaymentMethodPaypal, PaymentMethodTmoney, PaymentMethodFlooz:
		return true
	default:
		return false
	}
}

type Donation struct {
	BaseModel
	Amount        float64       `json:"amount" gorm:"not null"`
	Type          DonationType  `json:"type" gorm:"type:varchar(20);not null;index"`
	PaymentMethod PaymentMethod `json:"paymentMethod" gorm:"type:varchar(20);not null;index"`
	IsAnonymous   bool          `json:"isAnonymous" gorm:"not null;default:false"`
	Reference     string        `json:"reference,omitempty" gorm:"type:varchar(100)"`
	UserID        *uuid.UUID    `json:"userId,omitempty" gorm:"type:uuid;index"`

	Donor *User `json:"donor,omitempty" gorm:"foreignKey:UserID;references:ID"`
}
