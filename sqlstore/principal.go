package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	goSSO "github.com/MrEthical07/goSSO"
)

const principalColumns = `id, account, password_hash, status, failed_attempts, locked_at`

// FindPrincipal matches account against the username, email and phone columns.
func (s *Store) FindPrincipal(ctx context.Context, account string) (*goSSO.Principal, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+principalColumns+`
		from users
		where account = $1 or email = $1 or phone = $1
		order by id
		limit 1
	`, account)
	return scanPrincipal(row)
}

// GetPrincipal loads a principal by id.
func (s *Store) GetPrincipal(ctx context.Context, id int64) (*goSSO.Principal, error) {
	row := s.db.QueryRowContext(ctx, `select `+principalColumns+` from users where id = $1`, id)
	return scanPrincipal(row)
}

// RecordLoginFailure persists the current failure count.
func (s *Store) RecordLoginFailure(ctx context.Context, id int64, failures int) error {
	return s.execOne(ctx, `update users set failed_attempts = $2 where id = $1`, id, failures)
}

// ResetLoginFailures sets the failure count back to zero.
func (s *Store) ResetLoginFailures(ctx context.Context, id int64) error {
	return s.execOne(ctx, `update users set failed_attempts = 0 where id = $1`, id)
}

// UpdatePasswordHash stores a rehashed password.
func (s *Store) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return s.execOne(ctx, `update users set password_hash = $2 where id = $1`, id, hash)
}

// SetPrincipalStatus changes the status. locked_at is set for LOCKED, kept for
// DISABLED and cleared otherwise.
func (s *Store) SetPrincipalStatus(ctx context.Context, id int64, status goSSO.AccountStatus, at time.Time) error {
	if status == goSSO.AccountDisabled {
		return s.execOne(ctx, `update users set status = $2 where id = $1`, id, int16(status))
	}
	var lockedAt sql.NullTime
	if status == goSSO.AccountLocked {
		lockedAt = sql.NullTime{Time: at.UTC(), Valid: true}
	}
	return s.execOne(ctx, `update users set status = $2, locked_at = $3 where id = $1`, id, int16(status), lockedAt)
}

func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return goSSO.ErrAccountNotFound
	}
	return nil
}

func scanPrincipal(row *sql.Row) (*goSSO.Principal, error) {
	var (
		p        goSSO.Principal
		status   int16
		lockedAt sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Account, &p.PasswordHash, &status, &p.FailedAttempts, &lockedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goSSO.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	if status < 0 || status > int16(goSSO.AccountLocked) {
		return nil, fmt.Errorf("principal %d: unknown status %d", p.ID, status)
	}
	p.Status = goSSO.AccountStatus(status)
	if lockedAt.Valid {
		p.LockedAt = lockedAt.Time
	}
	return &p, nil
}
