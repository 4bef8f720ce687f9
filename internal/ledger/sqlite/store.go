// Package sqlite is a durable ledger backend on a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/danmuck/fundgov/internal/ledger"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Store persists committed accounts in one table keyed by base58 address.
type Store struct {
	db *sql.DB
}

var _ ledger.Backend = (*Store)(nil)

// Open opens (or creates) the database at path and migrates it. Use
// ":memory:" for a private in-process database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info().Str("path", path).Msg("sqlite ledger opened")
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			address  TEXT PRIMARY KEY,
			owner    TEXT NOT NULL,
			lamports TEXT NOT NULL,
			data     BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_owner ON accounts(owner)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, addr solana.PublicKey) (ledger.Account, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT owner, lamports, data FROM accounts WHERE address = ?`, addr.String())
	acc, err := scanAccount(addr, row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, false, nil
	}
	if err != nil {
		return ledger.Account{}, false, err
	}
	return acc, true, nil
}

// Apply upserts every account inside one SQL transaction.
func (s *Store) Apply(ctx context.Context, accounts []ledger.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO accounts (address, owner, lamports, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET owner = excluded.owner, lamports = excluded.lamports, data = excluded.data`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, acc := range accounts {
		data := acc.Data
		if data == nil {
			data = []byte{}
		}
		if _, err := stmt.ExecContext(ctx,
			acc.Address.String(),
			acc.Owner.String(),
			strconv.FormatUint(acc.Lamports, 10),
			data,
		); err != nil {
			return fmt.Errorf("upsert %s: %w", acc.Address, err)
		}
	}
	return tx.Commit()
}

// ByOwner lists every account owned by owner, ordered by address.
func (s *Store) ByOwner(ctx context.Context, owner solana.PublicKey) ([]ledger.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT address, owner, lamports, data FROM accounts WHERE owner = ? ORDER BY address`, owner.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Account
	for rows.Next() {
		var rawAddr string
		var rawOwner, rawLamports string
		var data []byte
		if err := rows.Scan(&rawAddr, &rawOwner, &rawLamports, &data); err != nil {
			return nil, err
		}
		addr, err := solana.PublicKeyFromBase58(rawAddr)
		if err != nil {
			return nil, fmt.Errorf("address %q: %w", rawAddr, err)
		}
		acc, err := buildAccount(addr, rawOwner, rawLamports, data)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func scanAccount(addr solana.PublicKey, row *sql.Row) (ledger.Account, error) {
	var rawOwner, rawLamports string
	var data []byte
	if err := row.Scan(&rawOwner, &rawLamports, &data); err != nil {
		return ledger.Account{}, err
	}
	return buildAccount(addr, rawOwner, rawLamports, data)
}

func buildAccount(addr solana.PublicKey, rawOwner, rawLamports string, data []byte) (ledger.Account, error) {
	owner, err := solana.PublicKeyFromBase58(rawOwner)
	if err != nil {
		return ledger.Account{}, fmt.Errorf("owner of %s: %w", addr, err)
	}
	lamports, err := strconv.ParseUint(rawLamports, 10, 64)
	if err != nil {
		return ledger.Account{}, fmt.Errorf("lamports of %s: %w", addr, err)
	}
	if data == nil {
		data = []byte{}
	}
	return ledger.Account{Address: addr, Owner: owner, Lamports: lamports, Data: data}, nil
}
