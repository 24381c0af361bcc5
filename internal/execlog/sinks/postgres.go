package sinks

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/siteproof/linkaudit/internal/execlog"
)

// Execer is the subset of pgxpool.Pool the Postgres sink needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSink appends entries to the execution_log table:
//
//	CREATE TABLE execution_log (
//		id      BIGSERIAL PRIMARY KEY,
//		ts      TIMESTAMPTZ NOT NULL,
//		level   TEXT NOT NULL,
//		action  TEXT NOT NULL,
//		message TEXT NOT NULL
//	);
type PostgresSink struct {
	db Execer
}

// NewPostgresSink wraps a connection pool.
func NewPostgresSink(db Execer) *PostgresSink {
	return &PostgresSink{db: db}
}

// Append implements execlog.Sink.
func (s *PostgresSink) Append(ctx context.Context, batch []execlog.Entry) error {
	for _, e := range batch {
		_, err := s.db.Exec(ctx,
			`INSERT INTO execution_log (ts, level, action, message) VALUES ($1, $2, $3, $4);`,
			e.TS, string(e.Level), e.Action, e.Message,
		)
		if err != nil {
			return fmt.Errorf("append execution log entry: %w", err)
		}
	}
	return nil
}

// Close implements execlog.Sink; the pool is owned by the caller.
func (s *PostgresSink) Close(context.Context) error { return nil }
