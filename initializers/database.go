package initializers

import (
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/averose/craftmarket-backend/models"
)

func ConnectToDatabase(dsn string) *gorm.DB {
	if dsn == "" {
		log.Fatal("❌ DB_URL is not set in environment variables")
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	if err != nil {
		log.Fatalf("❌ Failed to connect to the database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.CustomRequest{},
		&models.DownloadAccess{},
	); err != nil {
		log.Fatalf("❌ Failed to migrate database schema: %v", err)
	}
	log.Println("✅ Database connected and migrated successfully")

	return db
}
