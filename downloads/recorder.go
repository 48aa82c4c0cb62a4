package downloads

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/averose/craftmarket-backend/models"
)

// Recorder keeps the per-(order, product) download tally. Recording is
// best-effort telemetry: failures are logged and swallowed so they can
// never change the outcome of a download request.
type Recorder struct {
	db *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// RecordRequest bumps the tally for a custom-request delivery.
// Request rows live in the same table with the request id in the
// order slot and product 0; purchases always carry a real product id,
// so the two families cannot collide.
func (r *Recorder) RecordRequest(requestID uint) {
	r.Record(requestID, 0)
}

// Record bumps the counter for (orderID, productID), creating the row
// on first access. The insert-or-increment is a single ON CONFLICT
// statement, so concurrent accesses to the same pair never lose an
// increment.
func (r *Recorder) Record(orderID, productID uint) {
	now := time.Now()
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"downloads":        gorm.Expr("download_accesses.downloads + 1"),
			"last_download_at": now,
		}),
	}).Create(&models.DownloadAccess{
		OrderID:        orderID,
		ProductID:      productID,
		Downloads:      1,
		LastDownloadAt: now,
	}).Error
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"order_id":   orderID,
			"product_id": productID,
		}).Warn("failed to record download access")
	}
}
