package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	goSSO "github.com/MrEthical07/goSSO"
	"github.com/MrEthical07/goSSO/permission"
)

// ErrMenuHasChildren is returned by DeleteMenu for a node that still has children.
var ErrMenuHasChildren = fmt.Errorf("%w: menu has children", goSSO.ErrConflict)

// Store is the relational store.
type Store struct {
	db *sql.DB
}

var (
	_ goSSO.PrincipalStore = (*Store)(nil)
	_ goSSO.RBACWriter     = (*Store)(nil)
	_ permission.Source    = (*Store)(nil)
)

// Open connects to Postgres through the pgx driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping checks database reachability.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
