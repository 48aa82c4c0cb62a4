package jobs

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/averose/craftmarket-backend/models"
	"github.com/averose/craftmarket-backend/storage"
)

// Uploads go straight to storage via presigned PUT, so a client that
// uploads and never finishes creating its product or delivery leaves
// an orphan behind. With the local driver nothing else will ever
// reclaim that disk, so a background sweep deletes objects older than
// the grace period that no product filename and no request attachment
// references. S3 deployments handle the same problem with bucket
// lifecycle rules.

const orphanGracePeriod = 24 * time.Hour

func StartLocalOrphanSweep(db *gorm.DB, dir string) {
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		for range ticker.C {
			sweepOrphans(db, dir)
		}
	}()
}

func sweepOrphans(db *gorm.DB, dir string) {
	referenced, err := referencedKeys(db)
	if err != nil {
		logrus.WithError(err).Error("orphan sweep: failed to load referenced keys")
		return
	}

	cutoff := time.Now().Add(-orphanGracePeriod)
	removed := 0

	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		key := filepath.ToSlash(rel)
		if _, ok := referenced[key]; ok {
			return nil
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("orphan sweep: failed to remove object")
			return nil
		}
		removed++
		return nil
	})
	if err != nil {
		logrus.WithError(err).Error("orphan sweep: walk failed")
		return
	}

	if removed > 0 {
		logrus.WithField("removed", removed).Info("orphan sweep: removed unreferenced objects")
	}
}

func referencedKeys(db *gorm.DB) (map[string]struct{}, error) {
	keys := make(map[string]struct{})

	var filenames []string
	if err := db.Model(&models.Product{}).Where("filename <> ''").Pluck("filename", &filenames).Error; err != nil {
		return nil, err
	}
	for _, f := range filenames {
		if k := storage.NormalizeKey(f); k != "" {
			keys[k] = struct{}{}
		}
	}

	var requests []models.CustomRequest
	if err := db.Select("creator_attachment_path", "attachment_path").
		Where("creator_attachment_path <> '' OR attachment_path <> ''").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	for _, r := range requests {
		for _, raw := range []string{r.CreatorAttachmentPath, r.AttachmentPath} {
			if k := storage.NormalizeKey(strings.TrimSpace(raw)); k != "" {
				keys[k] = struct{}{}
			}
		}
	}

	return keys, nil
}
