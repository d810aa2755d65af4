package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/fairvalue-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	ticker        TEXT NOT NULL,
	company_name  TEXT,
	current_price REAL,
	estimates     TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_ticker ON runs(ticker);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	estimatesJSON, err := json.Marshal(run.Estimates)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal estimates")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, ticker, company_name, current_price, estimates, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Ticker, run.CompanyName, run.CurrentPrice, string(estimatesJSON), run.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert run")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, ticker, company_name, current_price, estimates, created_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) LatestRun(ctx context.Context, ticker string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, ticker, company_name, current_price, estimates, created_at FROM runs
		 WHERE ticker = ? ORDER BY created_at DESC LIMIT 1`,
		ticker,
	)
	run, err := scanRun(row)
	if eris.Is(err, errRunNotFound) {
		return nil, nil
	}
	return run, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, ticker, company_name, current_price, estimates, created_at FROM runs WHERE 1=1`
	var args []any

	if filter.Ticker != "" {
		query += ` AND ticker = ?`
		args = append(args, filter.Ticker)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) PruneRuns(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, before.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prune runs")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

var errRunNotFound = eris.New("run not found")

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var companyName sql.NullString
	var currentPrice sql.NullFloat64
	var estimatesJSON string

	err := row.Scan(&r.ID, &r.Ticker, &companyName, &currentPrice, &estimatesJSON, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan run")
	}

	r.CompanyName = companyName.String
	if currentPrice.Valid {
		r.CurrentPrice = model.Ptr(currentPrice.Float64)
	}
	if err := json.Unmarshal([]byte(estimatesJSON), &r.Estimates); err != nil {
		return nil, eris.Wrap(err, "unmarshal estimates")
	}
	return &r, nil
}
