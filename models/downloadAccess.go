package models

import "time"

// DownloadAccess is a per-(order, product) download tally. Rows are
// created on first access and incremented in place afterwards; the
// counter never decreases. Custom-request deliveries share the table:
// their rows carry the request id in OrderID and a zero ProductID,
// which no purchase row can have.
type DownloadAccess struct {
	ID        uint `gorm:"primaryKey"`
	OrderID   uint `gorm:"not null;uniqueIndex:idx_download_access_order_product"`
	ProductID uint `gorm:"not null;uniqueIndex:idx_download_access_order_product"`

	Downloads      uint64 `gorm:"not null;default:0"`
	LastDownloadAt time.Time
	CreatedAt      time.Time
}
