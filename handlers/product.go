package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/averose/craftmarket-backend/auth/middleware"
	"github.com/averose/craftmarket-backend/config"
	"github.com/averose/craftmarket-backend/models"
)

type ProductHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewProductHandler(db *gorm.DB, cfg *config.Config) *ProductHandler {
	return &ProductHandler{db: db, cfg: cfg}
}

// ShareQR handles GET /api/products/:id/qr (owner only): a PNG QR code
// pointing at the product's storefront page.
func (h *ProductHandler) ShareQR(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	productID, ok := idParam(c)
	if !ok {
		return
	}

	var product models.Product
	if err := h.db.First(&product, productID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	if product.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not your product"})
		return
	}

	link := fmt.Sprintf("%s/products/%d", h.cfg.FrontendURL, product.ID)
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate QR code"})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
