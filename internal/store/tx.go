package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/utakatalp/ucl-solkoff/internal/league"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Tx groups writes so they are committed together or not at all.
type Tx struct {
	tx *sql.Tx
}

// InTx runs fn inside one transaction and commits only when fn returns nil.
// fn must write through tx alone: on SQLite the store holds a single
// connection, which the transaction owns until it ends.
func (s *Store) InTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (t *Tx) UpsertTeam(ctx context.Context, tm league.Team) error {
	return upsertTeam(ctx, t.tx, tm)
}

func (t *Tx) UpsertMatch(ctx context.Context, m league.Match) error {
	return upsertMatch(ctx, t.tx, m)
}

// ReplaceStandings clears the standings table and writes rows.
func (t *Tx) ReplaceStandings(ctx context.Context, rows []league.Standing, updatedAt string) error {
	return replaceStandings(ctx, t.tx, rows, updatedAt)
}
