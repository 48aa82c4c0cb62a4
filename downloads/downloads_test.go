package downloads

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/averose/craftmarket-backend/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps the in-memory database alive and
	// serializes concurrent statements the way a real server pool
	// would against one row lock.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.CustomRequest{},
		&models.DownloadAccess{},
	))
	return db
}

func seedPurchase(t *testing.T, db *gorm.DB, buyerID uuid.UUID, filename, status string) (productID, orderID uint) {
	t.Helper()

	product := models.Product{
		OwnerID:     uuid.New(),
		ProductType: models.ProductTypePurchase,
		Title:       "Icon Pack",
		Filename:    filename,
		Active:      true,
	}
	require.NoError(t, db.Create(&product).Error)

	order := models.Order{ProductID: product.ID, BuyerID: buyerID, Status: status}
	require.NoError(t, db.Create(&order).Error)

	return product.ID, order.ID
}

func TestResolvePurchase(t *testing.T) {
	buyer := uuid.New()
	stranger := uuid.New()

	t.Run("paid order grants access", func(t *testing.T) {
		db := testDB(t)
		productID, orderID := seedPurchase(t, db, buyer, "products/icons.zip", "paid")

		ent, err := NewResolver(db).ResolvePurchase(buyer, productID)
		require.NoError(t, err)
		assert.Equal(t, orderID, ent.GrantID)
		assert.Equal(t, "products/icons.zip", ent.Key)
		assert.Equal(t, "Icon Pack", ent.Filename)
	})

	t.Run("status comparison is case-insensitive", func(t *testing.T) {
		db := testDB(t)
		productID, _ := seedPurchase(t, db, buyer, "products/icons.zip", "Succeeded")

		_, err := NewResolver(db).ResolvePurchase(buyer, productID)
		assert.NoError(t, err)
	})

	t.Run("full URL reference is normalized", func(t *testing.T) {
		db := testDB(t)
		productID, _ := seedPurchase(t, db, buyer,
			"https://my-bucket.s3.amazonaws.com/products/icons.zip", "paid")

		ent, err := NewResolver(db).ResolvePurchase(buyer, productID)
		require.NoError(t, err)
		assert.Equal(t, "products/icons.zip", ent.Key)
	})

	t.Run("unpaid order is denied", func(t *testing.T) {
		db := testDB(t)
		productID, _ := seedPurchase(t, db, buyer, "products/icons.zip", "pending")

		_, err := NewResolver(db).ResolvePurchase(buyer, productID)
		var denial *DenialError
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, http.StatusForbidden, denial.Status)
	})

	t.Run("other buyer is denied", func(t *testing.T) {
		db := testDB(t)
		productID, _ := seedPurchase(t, db, buyer, "products/icons.zip", "paid")

		_, err := NewResolver(db).ResolvePurchase(stranger, productID)
		var denial *DenialError
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, http.StatusForbidden, denial.Status)
	})

	t.Run("missing product is denied not not-found", func(t *testing.T) {
		db := testDB(t)

		_, err := NewResolver(db).ResolvePurchase(buyer, 4242)
		var denial *DenialError
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, http.StatusForbidden, denial.Status)
	})

	t.Run("service product is denied", func(t *testing.T) {
		db := testDB(t)
		product := models.Product{
			OwnerID:     uuid.New(),
			ProductType: models.ProductTypeService,
			Filename:    "products/irrelevant.zip",
		}
		require.NoError(t, db.Create(&product).Error)
		require.NoError(t, db.Create(&models.Order{
			ProductID: product.ID, BuyerID: buyer, Status: "paid",
		}).Error)

		_, err := NewResolver(db).ResolvePurchase(buyer, product.ID)
		var denial *DenialError
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, http.StatusForbidden, denial.Status)
	})

	t.Run("paid order with empty filename is not found", func(t *testing.T) {
		db := testDB(t)
		productID, _ := seedPurchase(t, db, buyer, "", "paid")

		_, err := NewResolver(db).ResolvePurchase(buyer, productID)
		var denial *DenialError
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, http.StatusNotFound, denial.Status)
		assert.Equal(t, "File not found", denial.Message)
	})

	t.Run("untitled product falls back to key basename", func(t *testing.T) {
		db := testDB(t)
		product := models.Product{
			OwnerID:     uuid.New(),
			ProductType: models.ProductTypePurchase,
			Filename:    "products/icons.zip",
		}
		require.NoError(t, db.Create(&product).Error)
		require.NoError(t, db.Create(&models.Order{
			ProductID: product.ID, BuyerID: buyer, Status: "paid",
		}).Error)

		ent, err := NewResolver(db).ResolvePurchase(buyer, product.ID)
		require.NoError(t, err)
		assert.Equal(t, "icons.zip", ent.Filename)
	})

	t.Run("newest qualifying order wins", func(t *testing.T) {
		db := testDB(t)
		productID, _ := seedPurchase(t, db, buyer, "products/icons.zip", "paid")
		newer := models.Order{ProductID: productID, BuyerID: buyer, Status: "completed"}
		require.NoError(t, db.Create(&newer).Error)

		ent, err := NewResolver(db).ResolvePurchase(buyer, productID)
		require.NoError(t, err)
		assert.Equal(t, newer.ID, ent.GrantID)
	})
}

func TestResolveRequestDelivery(t *testing.T) {
	buyer := uuid.New()
	stranger := uuid.New()

	seed := func(t *testing.T, db *gorm.DB, req models.CustomRequest) uint {
		t.Helper()
		require.NoError(t, db.Create(&req).Error)
		return req.ID
	}

	t.Run("delivered request grants access", func(t *testing.T) {
		db := testDB(t)
		id := seed(t, db, models.CustomRequest{
			BuyerID:               buyer,
			Status:                "delivered",
			Title:                 "Logo redesign",
			CreatorAttachmentPath: "deliveries/abc.zip",
		})

		ent, err := NewResolver(db).ResolveRequestDelivery(buyer, id)
		require.NoError(t, err)
		assert.Equal(t, "deliveries/abc.zip", ent.Key)
		assert.Equal(t, "Logo redesign", ent.Filename)
	})

	t.Run("creator attachment wins over fallback", func(t *testing.T) {
		db := testDB(t)
		id := seed(t, db, models.CustomRequest{
			BuyerID:               buyer,
			Status:                "completed",
			CreatorAttachmentPath: "deliveries/final.zip",
			AttachmentPath:        "deliveries/draft.zip",
		})

		ent, err := NewResolver(db).ResolveRequestDelivery(buyer, id)
		require.NoError(t, err)
		assert.Equal(t, "deliveries/final.zip", ent.Key)
	})

	t.Run("fallback attachment is used when creator path empty", func(t *testing.T) {
		db := testDB(t)
		id := seed(t, db, models.CustomRequest{
			BuyerID:        buyer,
			Status:         "complete",
			AttachmentPath: "deliveries/draft.zip",
		})

		ent, err := NewResolver(db).ResolveRequestDelivery(buyer, id)
		require.NoError(t, err)
		assert.Equal(t, "deliveries/draft.zip", ent.Key)
		assert.Equal(t, "draft.zip", ent.Filename)
	})

	t.Run("missing request is not found", func(t *testing.T) {
		db := testDB(t)

		_, err := NewResolver(db).ResolveRequestDelivery(buyer, 4242)
		var denial *DenialError
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, http.StatusNotFound, denial.Status)
	})

	t.Run("buyer mismatch is denied regardless of status", func(t *testing.T) {
		db := testDB(t)
		id := seed(t, db, models.CustomRequest{
			BuyerID:               buyer,
			Status:                "delivered",
			CreatorAttachmentPath: "deliveries/abc.zip",
		})

		_, err := NewResolver(db).ResolveRequestDelivery(stranger, id)
		var denial *DenialError
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, http.StatusForbidden, denial.Status)
		assert.Equal(t, "Not your request", denial.Message)
	})

	t.Run("undelivered request is denied", func(t *testing.T) {
		db := testDB(t)
		id := seed(t, db, models.CustomRequest{
			BuyerID:               buyer,
			Status:                "in_progress",
			CreatorAttachmentPath: "deliveries/abc.zip",
		})

		_, err := NewResolver(db).ResolveRequestDelivery(buyer, id)
		var denial *DenialError
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, http.StatusForbidden, denial.Status)
		assert.Equal(t, "Not ready for download", denial.Message)
	})

	t.Run("delivered without any file is not found", func(t *testing.T) {
		db := testDB(t)
		id := seed(t, db, models.CustomRequest{
			BuyerID: buyer,
			Status:  "delivered",
		})

		_, err := NewResolver(db).ResolveRequestDelivery(buyer, id)
		var denial *DenialError
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, http.StatusNotFound, denial.Status)
		assert.Equal(t, "No delivery file", denial.Message)
	})
}

func TestRecorderCreatesAndIncrements(t *testing.T) {
	db := testDB(t)
	rec := NewRecorder(db)

	rec.Record(1, 2)

	var access models.DownloadAccess
	require.NoError(t, db.Where("order_id = ? AND product_id = ?", 1, 2).First(&access).Error)
	assert.Equal(t, uint64(1), access.Downloads)
	assert.WithinDuration(t, time.Now(), access.LastDownloadAt, 5*time.Second)

	rec.Record(1, 2)
	require.NoError(t, db.Where("order_id = ? AND product_id = ?", 1, 2).First(&access).Error)
	assert.Equal(t, uint64(2), access.Downloads)

	// A different pair gets its own row.
	rec.Record(7, 2)
	var count int64
	require.NoError(t, db.Model(&models.DownloadAccess{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRecorderRequestDeliveries(t *testing.T) {
	db := testDB(t)
	rec := NewRecorder(db)

	rec.RecordRequest(9)
	rec.RecordRequest(9)

	var access models.DownloadAccess
	require.NoError(t, db.Where("order_id = ? AND product_id = ?", 9, 0).First(&access).Error)
	assert.Equal(t, uint64(2), access.Downloads)

	// A purchase against order 9 keeps its own row: product ids are
	// never zero for purchases.
	rec.Record(9, 3)
	var count int64
	require.NoError(t, db.Model(&models.DownloadAccess{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRecorderConcurrentNoLostIncrements(t *testing.T) {
	db := testDB(t)
	rec := NewRecorder(db)

	const n = 50
	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			rec.Record(10, 20)
		}()
	}
	wg.Wait()

	var access models.DownloadAccess
	require.NoError(t, db.Where("order_id = ? AND product_id = ?", 10, 20).First(&access).Error)
	assert.Equal(t, uint64(n), access.Downloads)

	// The timestamp tracks the calls as well: every Record stamps its
	// own time, so the surviving value cannot predate the burst.
	assert.False(t, access.LastDownloadAt.Before(start))
	assert.WithinDuration(t, time.Now(), access.LastDownloadAt, 5*time.Second)
}
