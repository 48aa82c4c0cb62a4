package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/averose/craftmarket-backend/auth/middleware"
	"github.com/averose/craftmarket-backend/config"
	"github.com/averose/craftmarket-backend/downloads"
	"github.com/averose/craftmarket-backend/storage"
)

// DownloadHandler gates file delivery: resolve the caller's
// entitlement, bump the access counter, mint a short-lived signed URL
// and redirect to it.
type DownloadHandler struct {
	resolver *downloads.Resolver
	recorder *downloads.Recorder
	storage  storage.Backend
	cfg      *config.Config
}

func NewDownloadHandler(resolver *downloads.Resolver, recorder *downloads.Recorder, backend storage.Backend, cfg *config.Config) *DownloadHandler {
	return &DownloadHandler{resolver: resolver, recorder: recorder, storage: backend, cfg: cfg}
}

// ViewProduct handles GET /api/downloads/view/:id — inline
// presentation of a purchased file.
func (h *DownloadHandler) ViewProduct(c *gin.Context) {
	h.serveProduct(c, storage.DispositionInline)
}

// DownloadProduct handles GET /api/downloads/file/:id — forced
// download of a purchased file.
func (h *DownloadHandler) DownloadProduct(c *gin.Context) {
	h.serveProduct(c, storage.DispositionAttachment)
}

func (h *DownloadHandler) serveProduct(c *gin.Context, disposition string) {
	buyerID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	productID, ok := idParam(c)
	if !ok {
		return
	}

	ent, err := h.resolver.ResolvePurchase(buyerID, productID)
	if err != nil {
		h.denyOrFail(c, err)
		return
	}

	// Best-effort telemetry; never changes the HTTP outcome.
	h.recorder.Record(ent.GrantID, productID)

	h.redirectSigned(c, ent, disposition)
}

// DownloadRequestDelivery handles GET /api/downloads/request/:id —
// forced download of a delivered custom-request file.
func (h *DownloadHandler) DownloadRequestDelivery(c *gin.Context) {
	buyerID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	requestID, ok := idParam(c)
	if !ok {
		return
	}

	ent, err := h.resolver.ResolveRequestDelivery(buyerID, requestID)
	if err != nil {
		h.denyOrFail(c, err)
		return
	}

	// Best-effort telemetry; never changes the HTTP outcome.
	h.recorder.RecordRequest(ent.GrantID)

	h.redirectSigned(c, ent, storage.DispositionAttachment)
}

func (h *DownloadHandler) redirectSigned(c *gin.Context, ent *downloads.Entitlement, disposition string) {
	opts := storage.SignedDownloadOptions{
		Filename:    ent.Filename,
		ExpiresIn:   h.cfg.Storage.DownloadTTL,
		Disposition: disposition,
	}

	if disposition == storage.DispositionInline {
		// Refine the content type for in-browser viewing when the
		// object is reachable; failure here must not block issuance.
		if info, err := h.storage.Head(c.Request.Context(), ent.Key); err == nil {
			opts.ContentType = info.ContentType
		}
	}

	url, err := h.storage.SignedDownloadURL(c.Request.Context(), ent.Key, opts)
	if err != nil {
		logrus.WithError(err).WithField("key", ent.Key).Error("failed to sign download URL")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Download failed"})
		return
	}

	// Signed URLs must never be cached by intermediaries.
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, url)
}

func (h *DownloadHandler) denyOrFail(c *gin.Context, err error) {
	var denial *downloads.DenialError
	if errors.As(err, &denial) {
		c.JSON(denial.Status, gin.H{"error": denial.Message})
		return
	}
	logrus.WithError(err).Error("entitlement lookup failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Download failed"})
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return 0, false
	}
	return uint(id), true
}
