package migration_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/giftkart/pkg/migration"
)

type widget struct {
	ID   uint
	Name string
}

type createWidgets struct{}

func (createWidgets) Up(db *gorm.DB) error   { return db.AutoMigrate(&widget{}) }
func (createWidgets) Down(db *gorm.DB) error { return db.Migrator().DropTable(&widget{}) }

type addIndex struct{}

func (addIndex) Up(db *gorm.DB) error {
	return db.Exec("CREATE INDEX idx_widgets_name ON widgets(name)").Error
}
func (addIndex) Down(db *gorm.DB) error { return db.Exec("DROP INDEX idx_widgets_name").Error }

func newRunner(t *testing.T) (*migration.Runner, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	set := &migration.Set{}
	set.Add("20260101000001_add_index", addIndex{})
	set.Add("20260101000000_create_widgets", createWidgets{})

	r := migration.NewWithSet(db, set)
	r.Out = io.Discard
	return r, db
}

func TestRunAppliesInNameOrderAndIsIdempotent(t *testing.T) {
	r, db := newRunner(t)

	require.NoError(t, r.Run())
	assert.True(t, db.Migrator().HasTable(&widget{}))

	require.NoError(t, r.Run())

	rows, err := r.Status()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "20260101000000_create_widgets", rows[0].Name)
	assert.True(t, rows[0].Ran)
	assert.True(t, rows[1].Ran)
	assert.Equal(t, 1, rows[1].Batch)
}

func TestRollbackUndoesLastBatch(t *testing.T) {
	r, db := newRunner(t)
	require.NoError(t, r.Run())

	require.NoError(t, r.Rollback())
	assert.False(t, db.Migrator().HasTable(&widget{}))

	rows, err := r.Status()
	require.NoError(t, err)
	for _, row := range rows {
		assert.False(t, row.Ran, row.Name)
	}

	require.NoError(t, r.Rollback())
}
