package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CustomRequest is a bespoke work item between a buyer and a creator.
// The fulfillment workflow mutates it; this service only reads it.
type CustomRequest struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BuyerID   uuid.UUID `gorm:"type:uuid;not null;index" json:"buyer_id"`
	CreatorID uuid.UUID `gorm:"type:uuid;index" json:"creator_id"`

	Title  string `json:"title"`
	Status string `gorm:"type:varchar(20)" json:"status"`

	// CreatorAttachmentPath is the delivery file uploaded by the
	// creator; AttachmentPath is the older single-attachment column
	// kept as a fallback. When both are set the creator path wins.
	CreatorAttachmentPath string `json:"creator_attachment_path"`
	AttachmentPath        string `json:"attachment_path"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeliveredStatuses is the lifecycle family in which the delivery file
// may be downloaded by the buyer.
var DeliveredStatuses = []string{"delivered", "complete", "completed"}

// Delivered reports whether status is in the delivered family,
// case-insensitively.
func Delivered(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	for _, ok := range DeliveredStatuses {
		if s == ok {
			return true
		}
	}
	return false
}
