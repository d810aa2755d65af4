package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/fairvalue-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies
// it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run": `INSERT INTO runs (id, ticker, company_name, current_price, estimates, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"get_run":    `SELECT id, ticker, company_name, current_price, estimates, created_at FROM runs WHERE id = $1`,
	"latest_run": `SELECT id, ticker, company_name, current_price, estimates, created_at FROM runs WHERE ticker = $1 ORDER BY created_at DESC LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool, mainly for tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	ticker        TEXT NOT NULL,
	company_name  TEXT,
	current_price DOUBLE PRECISION,
	estimates     JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_ticker ON runs(ticker);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_runs_ticker_created ON runs(ticker, created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	estimatesJSON, err := json.Marshal(run.Estimates)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal estimates")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, ticker, company_name, current_price, estimates, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.Ticker, run.CompanyName, run.CurrentPrice, estimatesJSON, run.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert run")
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, ticker, company_name, current_price, estimates, created_at FROM runs WHERE id = $1`,
		runID,
	)
	return scanPgRun(row)
}

func (s *PostgresStore) LatestRun(ctx context.Context, ticker string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, ticker, company_name, current_price, estimates, created_at FROM runs
		 WHERE ticker = $1 ORDER BY created_at DESC LIMIT 1`,
		ticker,
	)
	run, err := scanPgRun(row)
	if eris.Is(err, errRunNotFound) {
		return nil, nil
	}
	return run, err
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, ticker, company_name, current_price, estimates, created_at FROM runs`
	var args []any

	if filter.Ticker != "" {
		query += ` WHERE ticker = $1`
		args = append(args, filter.Ticker)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) PruneRuns(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM runs WHERE created_at < $1`, before.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "postgres: prune runs")
	}
	return int(tag.RowsAffected()), nil
}

func scanPgRun(row scannable) (*model.Run, error) {
	var r model.Run
	var companyName *string
	var estimatesJSON []byte

	err := row.Scan(&r.ID, &r.Ticker, &companyName, &r.CurrentPrice, &estimatesJSON, &r.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, errRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}

	if companyName != nil {
		r.CompanyName = *companyName
	}
	if err := json.Unmarshal(estimatesJSON, &r.Estimates); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal estimates")
	}
	return &r, nil
}
