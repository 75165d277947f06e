// internal/history/postgres.go
package history

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Store persists cycle records in Postgres.
type Store struct {
	conn *pgx.Conn
}

func NewStore(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &Store{conn: conn}, nil
}

func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// EnsureSchema creates the cycle_records table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS cycle_records (
			id           BIGSERIAL PRIMARY KEY,
			at           TIMESTAMPTZ NOT NULL,
			outcome      TEXT NOT NULL,
			success      BOOLEAN NOT NULL,
			row_count    INTEGER NOT NULL,
			deviation_mm DOUBLE PRECISION NOT NULL,
			lateral_px   DOUBLE PRECISION NOT NULL,
			diagnostic   TEXT NOT NULL DEFAULT ''
		)
	`)
	return err
}

func (s *Store) Record(ctx context.Context, r Record) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO cycle_records (at, outcome, success, row_count, deviation_mm, lateral_px, diagnostic)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.At, r.Outcome, r.Success, r.RowCount, r.DeviationMM, r.LateralPx, r.Diagnostic)
	return err
}
