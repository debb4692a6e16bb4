// Copyright (c) 2026 Repleo
// BounCA - certificate authority console client
// This source code is licensed under the MIT license found in the LICENSE file.

package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/repleo/bounca/internal/model"

	_ "modernc.org/sqlite"

	// SQL drivers for the non-default backends.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// sessionRow holds the single persisted session token, sealed at rest.
type sessionRow struct {
	bun.BaseModel `bun:"table:session_state"`
	ID            int       `bun:"id,pk"`
	Token         []byte    `bun:"token"`
	UpdatedAt     time.Time `bun:"updated_at"`
}

// secretRow holds the per-install sealing secret.
type secretRow struct {
	bun.BaseModel `bun:"table:install_secret"`
	ID            int    `bun:"id,pk"`
	Secret        []byte `bun:"secret"`
}

// journalRow maps the mutation journal table.
type journalRow struct {
	bun.BaseModel `bun:"table:mutation_journal"`
	ID            int       `bun:"id,pk,autoincrement"`
	Action        string    `bun:"action"`
	Subject       string    `bun:"subject"`
	CreatedAt     time.Time `bun:"created_at"`
}

type bunStore struct {
	db *bun.DB
}

// sqlOpenFunc allows tests to override database opening behavior.
var sqlOpenFunc = sql.Open

func newBunStore(dbType, dsn string) (*bunStore, error) {
	var (
		sqlDB *sql.DB
		err   error
		bdb   *bun.DB
	)
	switch dbType {
	case "sqlite":
		sqlDB, err = sqlOpenFunc("sqlite", dsn)
		if err == nil {
			// modernc sqlite misbehaves with more than one connection.
			sqlDB.SetMaxOpenConns(1)
			bdb = bun.NewDB(sqlDB, sqlitedialect.New())
		}
	case "postgres":
		sqlDB, err = sqlOpenFunc("pgx", dsn)
		if err == nil {
			bdb = bun.NewDB(sqlDB, pgdialect.New())
		}
	case "mysql":
		sqlDB, err = sqlOpenFunc("mysql", dsn)
		if err == nil {
			bdb = bun.NewDB(sqlDB, mysqldialect.New())
		}
	default:
		return nil, fmt.Errorf("unsupported database type: %q", dbType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", dbType, err)
	}

	s := &bunStore{db: bdb}
	if err := s.createSchema(); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("failed to create local schema: %w", err)
	}
	return s, nil
}

func (s *bunStore) createSchema() error {
	ctx := context.Background()
	for _, m := range []any{(*sessionRow)(nil), (*secretRow)(nil), (*journalRow)(nil)} {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *bunStore) SaveToken(sealed []byte) error {
	row := &sessionRow{ID: 1, Token: sealed, UpdatedAt: time.Now().UTC()}
	_, err := s.saveTokenQuery(row).Exec(context.Background())
	return err
}

// saveTokenQuery builds the single-row upsert. MySQL has no ON CONFLICT
// clause, so the conflict handling is spelled per dialect.
func (s *bunStore) saveTokenQuery(row *sessionRow) *bun.InsertQuery {
	q := s.db.NewInsert().Model(row)
	if s.db.Dialect().Name() == dialect.MySQL {
		return q.On("DUPLICATE KEY UPDATE").
			Set("token = VALUES(token)").
			Set("updated_at = VALUES(updated_at)")
	}
	return q.On("CONFLICT (id) DO UPDATE").
		Set("token = EXCLUDED.token").
		Set("updated_at = EXCLUDED.updated_at")
}

func (s *bunStore) LoadToken() ([]byte, error) {
	ctx := context.Background()
	var row sessionRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", 1).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(row.Token) == 0 {
		return nil, nil
	}
	return row.Token, nil
}

func (s *bunStore) ClearToken() error {
	ctx := context.Background()
	_, err := s.db.NewDelete().Model((*sessionRow)(nil)).Where("id = ?", 1).Exec(ctx)
	return err
}

func (s *bunStore) InstallSecret() ([]byte, error) {
	ctx := context.Background()
	var row secretRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", 1).Limit(1).Scan(ctx)
	if err == nil && len(row.Secret) > 0 {
		return row.Secret, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate install secret: %w", err)
	}
	if _, err := s.db.NewInsert().Model(&secretRow{ID: 1, Secret: secret}).Exec(ctx); err != nil {
		return nil, err
	}
	return secret, nil
}

func (s *bunStore) AppendJournal(action, subject string) error {
	ctx := context.Background()
	row := &journalRow{Action: action, Subject: subject, CreatedAt: time.Now().UTC()}
	_, err := s.db.NewInsert().Model(row).Exec(ctx)
	return err
}

func (s *bunStore) JournalEntries() ([]model.JournalEntry, error) {
	ctx := context.Background()
	var rows []journalRow
	if err := s.db.NewSelect().Model(&rows).Order("id DESC").Scan(ctx); err != nil {
		return nil, err
	}
	entries := make([]model.JournalEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, model.JournalEntry{
			ID:        r.ID,
			Action:    r.Action,
			Subject:   r.Subject,
			CreatedAt: r.CreatedAt,
		})
	}
	return entries, nil
}

func (s *bunStore) Close() error {
	return s.db.Close()
}
