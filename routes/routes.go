package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/averose/craftmarket-backend/auth/middleware"
	"github.com/averose/craftmarket-backend/handlers"
	"github.com/averose/craftmarket-backend/models"
	"github.com/averose/craftmarket-backend/storage"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	Download *handlers.DownloadHandler
	Upload   *handlers.UploadHandler
	Product  *handlers.ProductHandler

	// Local is non-nil only when the local storage driver is active;
	// it serves the signed-object routes that S3 serves itself.
	Local *storage.LocalBackend
}

func Register(r *gin.Engine, jwtSecret string, h Handlers) {
	authGroup := r.Group("/api/auth")
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)

	downloadGroup := r.Group("/api/downloads")
	downloadGroup.Use(middleware.AuthRequired(jwtSecret))
	downloadGroup.GET("/view/:id", h.Download.ViewProduct)
	downloadGroup.GET("/file/:id", h.Download.DownloadProduct)
	downloadGroup.GET("/request/:id", h.Download.DownloadRequestDelivery)

	uploadGroup := r.Group("/api/uploads")
	uploadGroup.Use(middleware.AuthRequired(jwtSecret))
	uploadGroup.POST("/presign-product", middleware.RequireRole(models.RoleCreator), h.Upload.PresignProduct)
	uploadGroup.POST("/presign-request", h.Upload.PresignRequestAttachment)

	productGroup := r.Group("/api/products")
	productGroup.Use(middleware.AuthRequired(jwtSecret))
	productGroup.GET("/:id/qr", h.Product.ShareQR)

	if h.Local != nil {
		// Signed-URL routes; auth is the HMAC signature, not a bearer
		// token, matching how a presigned S3 URL behaves.
		r.GET("/local/object/*key", h.Local.ServeObject)
		r.PUT("/local/object/*key", h.Local.ReceiveObject)
	}
}
