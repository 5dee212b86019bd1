package migrations

import (
	"github.com/shashiranjanraj/giftkart/app/models"
	"github.com/shashiranjanraj/giftkart/pkg/migration"
	"github.com/shashiranjanraj/giftkart/pkg/queue"
	"gorm.io/gorm"
)

func init() {
	migration.Register("20260101000000_create_users_table", table{&models.User{}})
	migration.Register("20260101000001_create_gift_cards_table", table{&models.GiftCard{}})
	migration.Register("20260101000002_create_orders_table", table{&models.Order{}})
	migration.Register("20260101000003_create_testimonials_table", table{&models.Testimonial{}})
	migration.Register("20260101000004_create_failed_jobs_table", table{&queue.FailedJobRecord{}})
}

// table creates (or widens) the table for one model and drops it on rollback.
type table struct{ model interface{} }

func (m table) Up(db *gorm.DB) error {
	return db.AutoMigrate(m.model)
}

func (m table) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(m.model)
}
