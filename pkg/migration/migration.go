// Package migration runs versioned schema migrations and records them in a
// tracking table.
//
//	func init() {
//	    migration.Register("20260101000000_create_users_table", &CreateUsersTable{})
//	}
//
// Run with `giftkart migrate`; undo the last batch with `giftkart migrate:rollback`.
package migration

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/shashiranjanraj/giftkart/pkg/logger"
	"gorm.io/gorm"
)

// Migration is the interface every migration must implement.
type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

type migrationRecord struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (migrationRecord) TableName() string { return "schema_migrations" }

type entry struct {
	name string
	m    Migration
}

// Set is an ordered collection of named migrations.
type Set struct {
	mu      sync.Mutex
	entries []entry
}

// Add registers m under name. Names sort chronologically, so prefix them
// with a timestamp.
func (s *Set) Add(name string, m Migration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry{name: name, m: m})
}

func (s *Set) sorted() []entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]entry(nil), s.entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Default is the set filled by Register from init() functions.
var Default = &Set{}

// Register adds a migration to Default.
func Register(name string, m Migration) { Default.Add(name, m) }

// StatusRow reports whether one migration has run.
type StatusRow struct {
	Name  string
	Ran   bool
	Batch int
}

// Runner executes and tracks migrations.
type Runner struct {
	db  *gorm.DB
	set *Set
	Out io.Writer
}

// New creates a Runner over the Default set.
func New(db *gorm.DB) *Runner {
	return NewWithSet(db, Default)
}

// NewWithSet creates a Runner over a specific set.
func NewWithSet(db *gorm.DB, set *Set) *Runner {
	return &Runner{db: db, set: set, Out: os.Stdout}
}

func (r *Runner) ensureTable() error {
	return r.db.AutoMigrate(&migrationRecord{})
}

func (r *Runner) ran() (map[string]migrationRecord, error) {
	var recs []migrationRecord
	if err := r.db.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make(map[string]migrationRecord, len(recs))
	for _, rec := range recs {
		out[rec.Name] = rec
	}
	return out, nil
}

// Run executes all pending migrations as one batch. Each migration and its
// tracking row commit together.
func (r *Runner) Run() error {
	if err := r.ensureTable(); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}

	done, err := r.ran()
	if err != nil {
		return fmt.Errorf("migration: fetch ran: %w", err)
	}

	var pending []entry
	for _, e := range r.set.sorted() {
		if _, ok := done[e.name]; !ok {
			pending = append(pending, e)
		}
	}
	if len(pending) == 0 {
		fmt.Fprintln(r.Out, "Nothing to migrate.")
		return nil
	}

	batch := r.lastBatch() + 1
	for _, e := range pending {
		e := e // per-iteration copy (go 1.21 loop semantics)
		fmt.Fprintf(r.Out, "  ▶ Migrating: %s\n", e.name)
		err := r.db.Transaction(func(tx *gorm.DB) error {
			if err := e.m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&migrationRecord{Name: e.name, Batch: batch}).Error
		})
		if err != nil {
			return fmt.Errorf("migration: %s up: %w", e.name, err)
		}
	}

	logger.Info("migration: done", "ran", len(pending), "batch", batch)
	return nil
}

// Rollback reverses every migration of the most recent batch, newest first.
func (r *Runner) Rollback() error {
	if err := r.ensureTable(); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}

	last := r.lastBatch()
	if last == 0 {
		fmt.Fprintln(r.Out, "Nothing to roll back.")
		return nil
	}

	var recs []migrationRecord
	if err := r.db.Where("batch = ?", last).Order("name desc").Find(&recs).Error; err != nil {
		return err
	}

	known := make(map[string]Migration)
	for _, e := range r.set.sorted() {
		known[e.name] = e.m
	}

	for _, rec := range recs {
		rec := rec // per-iteration copy (go 1.21 loop semantics)
		m, ok := known[rec.Name]
		if !ok {
			return fmt.Errorf("migration: cannot roll back %s: not registered", rec.Name)
		}

		fmt.Fprintf(r.Out, "  ◀ Rolling back: %s\n", rec.Name)
		err := r.db.Transaction(func(tx *gorm.DB) error {
			if err := m.Down(tx); err != nil {
				return err
			}
			return tx.Delete(&rec).Error
		})
		if err != nil {
			return fmt.Errorf("migration: %s down: %w", rec.Name, err)
		}
	}
	return nil
}

// Status lists every registered migration in order.
func (r *Runner) Status() ([]StatusRow, error) {
	if err := r.ensureTable(); err != nil {
		return nil, err
	}
	done, err := r.ran()
	if err != nil {
		return nil, err
	}

	var rows []StatusRow
	for _, e := range r.set.sorted() {
		rec, ok := done[e.name]
		rows = append(rows, StatusRow{Name: e.name, Ran: ok, Batch: rec.Batch})
	}
	return rows, nil
}

func (r *Runner) lastBatch() int {
	var max struct{ Max int }
	r.db.Model(&migrationRecord{}).Select("COALESCE(MAX(batch), 0) as max").Scan(&max)
	return max.Max
}
