package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	// ProductTypePurchase marks a sellable digital good backed by a
	// stored file. Only purchase products are file-entitled.
	ProductTypePurchase = "purchase"
	// ProductTypeService marks listings fulfilled through custom
	// requests; they carry no downloadable file of their own.
	ProductTypeService = "service"
)

type Product struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	OwnerID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`

	ProductType string `gorm:"type:varchar(20);default:'purchase';index" json:"product_type"`
	Title       string `json:"title"`
	// Filename is the stored reference to the product file. Older rows
	// hold a full public URL, newer rows a bare storage key; always go
	// through storage.NormalizeKey before signing.
	Filename  string `json:"filename"`
	BasePrice int64  `json:"base_price"`
	Active    bool   `gorm:"default:true" json:"active"`

	Portfolio datatypes.JSON `json:"portfolio"` // { video_url: "...", images: [...] }

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
