package database

import (
	"time"

	"github.com/thereayou/talk-signaling/internal/events"
	"gorm.io/gorm"
)

const defaultTokenEntropy = 8

// Database is the room store: rooms, participants and their sessions, chat
// lines and user accounts.
type Database struct {
	db           *gorm.DB
	bus          events.Bus
	tokenEntropy int
	now          func() time.Time
}

type Option func(*Database)

// WithEvents makes the store publish lifecycle events on bus.
func WithEvents(bus events.Bus) Option {
	return func(d *Database) { d.bus = bus }
}

// WithTokenEntropy sets the length of generated room tokens.
func WithTokenEntropy(n int) Option {
	return func(d *Database) {
		if n > 0 {
			d.tokenEntropy = n
		}
	}
}

// WithClock replaces time.Now for timestamps the store sets itself.
func WithClock(now func() time.Time) Option {
	return func(d *Database) { d.now = now }
}

func NewDatabase(db *gorm.DB, opts ...Option) *Database {
	d := &Database{db: db, bus: events.Nop{}, tokenEntropy: defaultTokenEntropy, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
