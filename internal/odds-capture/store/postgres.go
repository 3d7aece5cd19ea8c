package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS odds_snapshots (
		snapshot_id TEXT PRIMARY KEY,
		kind        TEXT        NOT NULL,
		game_id     TEXT        NOT NULL,
		source      TEXT        NOT NULL,
		captured_at TIMESTAMPTZ NOT NULL,
		payload     JSONB       NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_odds_snapshots_game ON odds_snapshots (game_id, kind);
`

// Postgres implementa o store de snapshots em um banco Postgres
// DB: conexão com o banco de dados
type Postgres struct {
	DB *sql.DB
}

// NewPostgres retorna uma instância de store Postgres
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{DB: db}
}

// EnsureSchema cria a tabela odds_snapshots se ainda não existir
func (r *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ensure odds_snapshots schema: %w", err)
	}
	return nil
}

// Upsert insere ou atualiza o snapshot na tabela odds_snapshots
// Utiliza ON CONFLICT para garantir atomicidade; xmax <> 0 indica que a linha já existia
func (r *Postgres) Upsert(ctx context.Context, s snapshots.OddsSnapshot) (bool, error) {
	const q = `
		INSERT INTO odds_snapshots
		  (snapshot_id, kind, game_id, source, captured_at, payload, updated_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6,NOW())
		ON CONFLICT (snapshot_id) DO UPDATE SET
		  kind        = EXCLUDED.kind,
		  game_id     = EXCLUDED.game_id,
		  source      = EXCLUDED.source,
		  captured_at = EXCLUDED.captured_at,
		  payload     = EXCLUDED.payload,
		  updated_at  = NOW()
		RETURNING (xmax <> 0) AS existed
	`
	s = s.Normalized()
	var existed bool
	err := r.DB.QueryRowContext(ctx, q,
		s.SnapshotID, string(s.Kind), s.GameID, s.Source, s.CapturedAtUTC, string(s.Payload),
	).Scan(&existed)
	if err != nil {
		return false, err
	}
	return existed, nil
}

func (r *Postgres) Get(ctx context.Context, snapshotID string) (snapshots.OddsSnapshot, error) {
	const q = `
		SELECT snapshot_id, kind, game_id, source, captured_at, payload
		FROM odds_snapshots
		WHERE snapshot_id = $1
	`
	return scanSnapshot(r.DB.QueryRowContext(ctx, q, snapshotID))
}

// ListByGame lista os snapshots de um jogo; kind vazio traz poll e close
func (r *Postgres) ListByGame(ctx context.Context, gameID string, kind snapshots.Kind) ([]snapshots.OddsSnapshot, error) {
	const q = `
		SELECT snapshot_id, kind, game_id, source, captured_at, payload
		FROM odds_snapshots
		WHERE game_id = $1 AND ($2 = '' OR kind = $2)
		ORDER BY snapshot_id
	`
	rows, err := r.DB.QueryContext(ctx, q, gameID, string(kind))
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

func (r *Postgres) Ping(ctx context.Context) error { return r.DB.PingContext(ctx) }
