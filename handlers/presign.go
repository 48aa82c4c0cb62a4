package handlers

import (
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	"github.com/sirupsen/logrus"

	"github.com/averose/craftmarket-backend/auth/middleware"
	"github.com/averose/craftmarket-backend/config"
	"github.com/averose/craftmarket-backend/storage"
)

// UploadHandler hands out write-capable signed URLs so product files
// and request deliveries go straight to storage without passing
// through this service.
type UploadHandler struct {
	storage storage.Backend
	cfg     *config.Config
}

func NewUploadHandler(backend storage.Backend, cfg *config.Config) *UploadHandler {
	return &UploadHandler{storage: backend, cfg: cfg}
}

type presignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	RequestID   uint   `json:"requestId"`
}

// PresignProduct handles POST /api/uploads/presign-product
// (creator only).
func (h *UploadHandler) PresignProduct(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var body presignRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Filename == "" || body.ContentType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filename and contentType are required"})
		return
	}

	key := fmt.Sprintf("products/%s/%s_%s", userID, shortuuid.New(), safeFilename(body.Filename))
	h.respondPresigned(c, key, body.ContentType)
}

// PresignRequestAttachment handles POST /api/uploads/presign-request.
func (h *UploadHandler) PresignRequestAttachment(c *gin.Context) {
	var body presignRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Filename == "" || body.ContentType == "" || body.RequestID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "requestId, filename and contentType are required"})
		return
	}

	key := fmt.Sprintf("requests/%d/%s_%s", body.RequestID, shortuuid.New(), safeFilename(body.Filename))
	h.respondPresigned(c, key, body.ContentType)
}

func (h *UploadHandler) respondPresigned(c *gin.Context, key, contentType string) {
	url, err := h.storage.PresignedPutURL(c.Request.Context(), key, storage.PresignPutOptions{
		ContentType: contentType,
		ExpiresIn:   h.cfg.Storage.UploadTTL,
	})
	if err != nil {
		logrus.WithError(err).WithField("key", key).Error("failed to presign upload URL")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key":         key,
		"url":         url,
		"contentType": contentType,
	})
}

// safeFilename keeps the client-supplied name usable as a key segment.
func safeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." {
		return "file"
	}
	return name
}
