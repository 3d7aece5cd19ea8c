package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS odds_snapshots (
		snapshot_id TEXT PRIMARY KEY,
		kind        TEXT NOT NULL,
		game_id     TEXT NOT NULL,
		source      TEXT NOT NULL,
		captured_at TEXT NOT NULL,
		payload     TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_odds_snapshots_game ON odds_snapshots (game_id, kind);
`

// SQLite é o backend local de um único nó, com o mesmo contrato do Postgres
type SQLite struct {
	DB *sql.DB
}

// NewSQLite aplica o schema e retorna o store
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLite, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("ensure odds_snapshots schema: %w", err)
	}
	return &SQLite{DB: db}, nil
}

// Upsert verifica a existência e grava na mesma transação
func (r *SQLite) Upsert(ctx context.Context, s snapshots.OddsSnapshot) (bool, error) {
	const q = `
		INSERT INTO odds_snapshots
		  (snapshot_id, kind, game_id, source, captured_at, payload, updated_at)
		VALUES
		  (?,?,?,?,?,?,?)
		ON CONFLICT (snapshot_id) DO UPDATE SET
		  kind        = excluded.kind,
		  game_id     = excluded.game_id,
		  source      = excluded.source,
		  captured_at = excluded.captured_at,
		  payload     = excluded.payload,
		  updated_at  = excluded.updated_at
	`
	s = s.Normalized()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var existed bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM odds_snapshots WHERE snapshot_id = ?)`, s.SnapshotID,
	).Scan(&existed); err != nil {
		return false, err
	}

	if _, err := tx.ExecContext(ctx, q,
		s.SnapshotID, string(s.Kind), s.GameID, s.Source,
		s.CapturedAtUTC.Format(time.RFC3339Nano), string(s.Payload),
		time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return false, err
	}

	return existed, tx.Commit()
}

func (r *SQLite) Get(ctx context.Context, snapshotID string) (snapshots.OddsSnapshot, error) {
	const q = `
		SELECT snapshot_id, kind, game_id, source, captured_at, payload
		FROM odds_snapshots
		WHERE snapshot_id = ?
	`
	return scanSnapshot(r.DB.QueryRowContext(ctx, q, snapshotID))
}

func (r *SQLite) ListByGame(ctx context.Context, gameID string, kind snapshots.Kind) ([]snapshots.OddsSnapshot, error) {
	const q = `
		SELECT snapshot_id, kind, game_id, source, captured_at, payload
		FROM odds_snapshots
		WHERE game_id = ? AND (? = '' OR kind = ?)
		ORDER BY snapshot_id
	`
	rows, err := r.DB.QueryContext(ctx, q, gameID, string(kind), string(kind))
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

func (r *SQLite) Ping(ctx context.Context) error { return r.DB.PingContext(ctx) }
