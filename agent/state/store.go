package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var (
	ErrNilRecord       = errors.New("order record is nil")
	ErrRecordHasID     = errors.New("order record already has an id")
	ErrUnsupportedDB   = errors.New("unsupported database driver")
	ErrInvalidDelivery = errors.New("delivery date must be after order date")
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is the persistence contract for placed orders. There is no update or
// delete.
type Store interface {
	Insert(ctx context.Context, rec *OrderRecord) (int64, error)
	ScanAll(ctx context.Context) ([]OrderRecord, error)
}

type Config struct {
	Driver string `split_words:"true" default:"sqlite"`
	DSN    string `envconfig:"DSN" default:"file:orders.db"`
}

// StoreOption customizes BunStore.
type StoreOption func(*BunStore)

// WithoutSchema skips table creation, for databases managed elsewhere.
func WithoutSchema() StoreOption {
	return func(s *BunStore) {
		s.skipSchema = true
	}
}

// BunStore persists orders in a single relational table through bun.
type BunStore struct {
	db         *bun.DB
	mu         sync.Mutex
	skipSchema bool
}

// Open connects to the configured database and ensures the orders table exists.
func Open(ctx context.Context, cfg Config, opts ...StoreOption) (*BunStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("orders database dsn is required")
	}

	var db *bun.DB
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// One connection keeps SQLite to a single writer.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDB, cfg.Driver)
	}

	return NewBunStore(ctx, db, opts...)
}

// NewBunStore wraps an existing bun handle.
func NewBunStore(ctx context.Context, db *bun.DB, opts ...StoreOption) (*BunStore, error) {
	if db == nil {
		return nil, errors.New("bun db is nil")
	}

	store := &BunStore{db: db}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping orders database: %w", err)
	}
	if !store.skipSchema {
		if err := store.createSchema(ctx); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func (s *BunStore) createSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*OrderRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create orders table: %w", err)
	}
	return nil
}

// Insert appends rec inside a transaction and sets rec.ID from the database.
// Writers are serialized so ids are handed out in commit order.
func (s *BunStore) Insert(ctx context.Context, rec *OrderRecord) (int64, error) {
	if rec == nil {
		return 0, ErrNilRecord
	}
	if rec.ID != 0 {
		return 0, fmt.Errorf("%w: id=%d", ErrRecordHasID, rec.ID)
	}

	rec.OrderDate = normalizeTimestamp(rec.OrderDate)
	rec.DeliveryDate = normalizeTimestamp(rec.DeliveryDate)
	if !rec.DeliveryDate.After(rec.OrderDate) {
		return 0, ErrInvalidDelivery
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := *rec
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&row).
			Returning("id").
			Exec(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	rec.ID = row.ID
	log.Debug().Int64("order_id", rec.ID).Msg("order inserted")
	return rec.ID, nil
}

// ScanAll returns every order in insertion order.
func (s *BunStore) ScanAll(ctx context.Context) ([]OrderRecord, error) {
	records := make([]OrderRecord, 0)
	err := s.db.NewSelect().
		Model(&records).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}

	for i := range records {
		records[i].OrderDate = records[i].OrderDate.UTC()
		records[i].DeliveryDate = records[i].DeliveryDate.UTC()
	}
	return records, nil
}

func (s *BunStore) Close() error {
	return s.db.Close()
}
