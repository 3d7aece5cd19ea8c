package store

import (
	"context"
	"fmt"

	"github.com/xpoes123/SharpLab/internal/shared/config"
	"github.com/xpoes123/SharpLab/internal/shared/db"
)

// Open escolhe o backend pelo STORE_BACKEND e garante o schema.
// A função devolvida fecha a conexão; para memory é um no-op.
func Open(ctx context.Context, cfg config.Config) (Store, func() error, error) {
	switch cfg.StoreBackend {
	case "postgres":
		pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		st := NewPostgres(pg)
		if err := st.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return st, pg.Close, nil
	case "sqlite":
		sq, err := db.ConnectSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		st, err := NewSQLite(ctx, sq)
		if err != nil {
			sq.Close()
			return nil, nil, err
		}
		return st, sq.Close, nil
	case "memory":
		return NewMemory(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q (postgres|sqlite|memory)", cfg.StoreBackend)
	}
}
