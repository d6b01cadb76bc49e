package infra

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// SQLExecutor defines the contract required by repositories for executing SQL queries.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

// TxRunner is an SQLExecutor that can also run a function inside a database
// transaction. fn's executor is bound to the transaction; the transaction
// commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	SQLExecutor
	InTx(ctx context.Context, fn func(q SQLExecutor) error) error
}

var markerRegexp = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type SQLRunner struct {
	Pool   *pgxpool.Pool
	Logger zerolog.Logger
}

func NewSQLRunner(pool *pgxpool.Pool, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{Pool: pool, Logger: logger}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return markedExecutor{q: r.Pool, logger: r.Logger}.Exec(ctx, query, args...)
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return markedExecutor{q: r.Pool, logger: r.Logger}.QueryRow(ctx, query, args...)
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return markedExecutor{q: r.Pool, logger: r.Logger}.Query(ctx, query, args...)
}

func (r *SQLRunner) InTx(ctx context.Context, fn func(q SQLExecutor) error) error {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txID := fmt.Sprintf("%p", tx)
	logger := r.Logger.With().Str("tx", txID).Logger()
	logger.Debug().Msg("sql tx begin")

	if err := fn(markedExecutor{q: tx, logger: logger}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.Error().Err(rbErr).Msg("sql tx rollback error")
		}
		logger.Debug().Err(err).Msg("sql tx rolled back")
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		logger.Error().Err(err).Msg("sql tx commit error")
		return fmt.Errorf("commit tx: %w", err)
	}
	logger.Debug().Msg("sql tx committed")
	return nil
}

// markedExecutor enforces and logs the audit marker of every statement.
type markedExecutor struct {
	q      querier
	logger zerolog.Logger
}

func (m markedExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	m.logger.Info().Msgf("sql[%s] exec", marker)
	tag, err := m.q.Exec(ctx, trimmed, args...)
	if err != nil {
		m.logger.Error().Err(err).Msgf("sql[%s] error", marker)
		return tag, err
	}
	m.logger.Info().Msgf("sql[%s] ok", marker)
	return tag, nil
}

func (m markedExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return errorRow{err: err}
	}
	m.logger.Info().Msgf("sql[%s] query_row", marker)
	row := m.q.QueryRow(ctx, trimmed, args...)
	return loggingRow{row: row, logger: m.logger, marker: marker}
}

func (m markedExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return nil, err
	}
	m.logger.Info().Msgf("sql[%s] query", marker)
	rows, err := m.q.Query(ctx, trimmed, args...)
	if err != nil {
		m.logger.Error().Err(err).Msgf("sql[%s] error", marker)
		return nil, err
	}
	return loggingRows{Rows: rows, logger: m.logger, marker: marker}, nil
}

type loggingRow struct {
	row    pgx.Row
	logger zerolog.Logger
	marker string
}

func (l loggingRow) Scan(dest ...any) error {
	err := l.row.Scan(dest...)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		l.logger.Error().Err(err).Msgf("sql[%s] scan error", l.marker)
	}
	return err
}

type loggingRows struct {
	pgx.Rows
	logger zerolog.Logger
	marker string
}

func (l loggingRows) Close() {
	l.logger.Info().Msgf("sql[%s] rows close", l.marker)
	l.Rows.Close()
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(dest ...any) error {
	return e.err
}

func extractMarker(query string) (string, string, error) {
	trimmed := strings.TrimSpace(query)
	lines := strings.Split(trimmed, "\n")
	if len(lines) == 0 {
		return "", "", errors.New("empty query")
	}
	markerLine := strings.TrimSpace(lines[0])
	if !markerRegexp.MatchString(markerLine) {
		return "", "", errors.New("sql marker missing or invalid")
	}
	return strings.TrimSpace(strings.TrimPrefix(markerLine, "--sql ")), strings.Join(lines[1:], "\n"), nil
}

var (
	_ TxRunner    = (*SQLRunner)(nil)
	_ SQLExecutor = markedExecutor{}
)
