package jobs

import (
	"os"
	"path/filepath"
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

func TestSweepOrphans(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.CustomRequest{}))

	dir := t.TempDir()
	write := func(key string, age time.Duration) string {
		p := filepath.Join(dir, filepath.FromSlash(key))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		old := time.Now().Add(-age)
		require.NoError(t, os.Chtimes(p, old, old))
		return p
	}

	kept := write("products/kept.zip", 48*time.Hour)
	delivered := write("deliveries/final.zip", 48*time.Hour)
	orphanOld := write("products/orphan.zip", 48*time.Hour)
	orphanFresh := write("products/fresh.zip", time.Hour)

	require.NoError(t, db.Create(&models.Product{
		OwnerID:  uuid.New(),
		Filename: "products/kept.zip",
	}).Error)
	require.NoError(t, db.Create(&models.CustomRequest{
		BuyerID:               uuid.New(),
		Status:                "delivered",
		CreatorAttachmentPath: "deliveries/final.zip",
	}).Error)

	sweepOrphans(db, dir)

	assert.FileExists(t, kept)
	assert.FileExists(t, delivered)
	assert.FileExists(t, orphanFresh, "files inside the grace period stay")
	assert.NoFileExists(t, orphanOld)
}
