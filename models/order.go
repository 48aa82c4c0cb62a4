package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Order records a purchase. Orders are written by the payment
// subsystem; this service only reads them.
type Order struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	BuyerID   uuid.UUID `gorm:"type:uuid;not null;index" json:"buyer_id"`
	Status    string    `gorm:"type:varchar(20)" json:"status"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// PaymentSucceededStatuses is the canonical set of order statuses that
// entitle the buyer to the product file. Different payment paths write
// different strings: Stripe checkout webhooks write "paid" or
// "completed", PaymentIntent confirmations write "succeeded", and the
// legacy manual-settlement flow wrote "success". All are equivalent.
var PaymentSucceededStatuses = []string{"paid", "completed", "succeeded", "success"}

// PaymentSucceeded reports whether status is in the entitled family.
// Comparison is case-insensitive.
func PaymentSucceeded(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	for _, ok := range PaymentSucceededStatuses {
		if s == ok {
			return true
		}
	}
	return false
}
