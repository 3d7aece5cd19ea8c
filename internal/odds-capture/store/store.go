package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xpoes123/SharpLab/pkg/contracts/snapshots"
)

// ErrNotFound é retornado por Get quando o snapshot id não existe
var ErrNotFound = errors.New("snapshot not found")

// Store é o contrato completo do store de snapshots: upsert por id + leituras
type Store interface {
	Upsert(ctx context.Context, s snapshots.OddsSnapshot) (existed bool, err error)
	Get(ctx context.Context, snapshotID string) (snapshots.OddsSnapshot, error)
	ListByGame(ctx context.Context, gameID string, kind snapshots.Kind) ([]snapshots.OddsSnapshot, error)
	Ping(ctx context.Context) error
}

// scanner cobre *sql.Row e *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// scanSnapshot lê as colunas na ordem de snapshotColumns
func scanSnapshot(sc scanner) (snapshots.OddsSnapshot, error) {
	var (
		s        snapshots.OddsSnapshot
		kind     string
		captured timeValue
		payload  []byte
	)
	if err := sc.Scan(&s.SnapshotID, &kind, &s.GameID, &s.Source, &captured, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return snapshots.OddsSnapshot{}, ErrNotFound
		}
		return snapshots.OddsSnapshot{}, err
	}
	s.Kind = snapshots.Kind(kind)
	s.CapturedAtUTC = captured.t.UTC()
	s.Payload = payload
	return s, nil
}

func scanAll(rows *sql.Rows) ([]snapshots.OddsSnapshot, error) {
	defer rows.Close()
	var out []snapshots.OddsSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// timeValue aceita TIMESTAMPTZ (postgres) e texto RFC3339 (sqlite)
type timeValue struct{ t time.Time }

func (v *timeValue) Scan(src any) error {
	switch x := src.(type) {
	case time.Time:
		v.t = x
		return nil
	case string:
		return v.parse(x)
	case []byte:
		return v.parse(string(x))
	}
	return fmt.Errorf("scan captured_at: unsupported type %T", src)
}

func (v *timeValue) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("scan captured_at: %w", err)
	}
	v.t = t
	return nil
}
