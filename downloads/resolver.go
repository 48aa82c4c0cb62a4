package downloads

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/averose/craftmarket-backend/models"
	"github.com/averose/craftmarket-backend/storage"
)

// Entitlement is a positive access decision: the caller may download
// the object at Key, presented under Filename. GrantID is the order or
// custom-request id backing the decision and is what the access
// recorder counts against.
type Entitlement struct {
	GrantID  uint
	Key      string
	Filename string
}

// DenialError carries the HTTP status and user-facing message for a
// negative access decision.
type DenialError struct {
	Status  int
	Message string
}

func (e *DenialError) Error() string { return e.Message }

func deny(status int, message string) *DenialError {
	return &DenialError{Status: status, Message: message}
}

// Resolver decides whether a caller may download a file and, when they
// may, resolves the canonical storage key and display filename.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// ResolvePurchase checks that buyerID holds a payment-succeeded order
// for a purchase-type product. The newest qualifying order wins when a
// buyer bought the same product more than once.
func (r *Resolver) ResolvePurchase(buyerID uuid.UUID, productID uint) (*Entitlement, error) {
	var product models.Product
	err := r.db.
		Where("id = ? AND product_type = ?", productID, models.ProductTypePurchase).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, deny(http.StatusForbidden, "No access or not a purchase product")
	}
	if err != nil {
		return nil, err
	}

	var order models.Order
	err = r.db.
		Where("product_id = ? AND buyer_id = ?", productID, buyerID).
		Where("LOWER(status) IN ?", models.PaymentSucceededStatuses).
		Order("id DESC").
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, deny(http.StatusForbidden, "No access or not a purchase product")
	}
	if err != nil {
		return nil, err
	}

	key := storage.NormalizeKey(product.Filename)
	if key == "" {
		return nil, deny(http.StatusNotFound, "File not found")
	}

	return &Entitlement{
		GrantID:  order.ID,
		Key:      key,
		Filename: displayName(product.Title, key, "download"),
	}, nil
}

// ResolveRequestDelivery checks that buyerID owns the custom request
// and that it has reached the delivered family. The creator-uploaded
// attachment wins over the legacy fallback column.
func (r *Resolver) ResolveRequestDelivery(buyerID uuid.UUID, requestID uint) (*Entitlement, error) {
	var req models.CustomRequest
	err := r.db.First(&req, requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, deny(http.StatusNotFound, "Request not found")
	}
	if err != nil {
		return nil, err
	}

	if req.BuyerID != buyerID {
		return nil, deny(http.StatusForbidden, "Not your request")
	}
	if !models.Delivered(req.Status) {
		return nil, deny(http.StatusForbidden, "Not ready for download")
	}

	key := storage.NormalizeKey(req.CreatorAttachmentPath)
	if key == "" {
		key = storage.NormalizeKey(req.AttachmentPath)
	}
	if key == "" {
		return nil, deny(http.StatusNotFound, "No delivery file")
	}

	return &Entitlement{
		GrantID:  req.ID,
		Key:      key,
		Filename: displayName(req.Title, key, "delivery"),
	}, nil
}

func displayName(title, key, fallback string) string {
	if title != "" {
		return title
	}
	if base := storage.BaseName(key); base != "" && base != "." && base != "/" {
		return base
	}
	return fallback
}
