package initializers

import (
	"context"
	"log"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/averose/craftmarket-backend/config"
	"github.com/averose/craftmarket-backend/storage"
)

// NewStorageBackend is the one place that knows which storage driver
// is in play. Everything downstream sees storage.Backend.
func NewStorageBackend(cfg *config.Config) storage.Backend {
	switch cfg.Storage.Driver {
	case config.DriverS3:
		awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(cfg.AWS.Region),
		)
		if err != nil {
			log.Fatalf("unable to load AWS SDK config: %v", err)
		}
		return storage.NewS3Backend(s3.NewFromConfig(awsCfg), cfg.AWS.Bucket)
	default:
		return storage.NewLocalBackend(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL, cfg.Storage.LocalSecret)
	}
}
