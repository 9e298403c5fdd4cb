package backtest

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/brendanplayford/tsaw-go/pkg/model"
)

// Store persists graded runs so they can be compared later.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the run store under dir.
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	dbPath := filepath.Join(dir, "runs.db")

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_at DATETIME NOT NULL,
		vcs_revision TEXT,
		data_path TEXT NOT NULL,
		data_sha256 TEXT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		trades INTEGER NOT NULL,
		total_pnl REAL NOT NULL,
		mean_brier REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		market TEXT NOT NULL,
		trade_date DATE NOT NULL,
		side TEXT NOT NULL,
		prob REAL NOT NULL,
		fill_price REAL NOT NULL,
		outcome INTEGER NOT NULL,
		contract_price REAL NOT NULL,
		pnl REAL NOT NULL,
		brier REAL NOT NULL,
		logloss REAL NOT NULL,
		edge REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_trades_grade ON trades(run_id, market, trade_date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveRun stores a run's metadata, headline metrics, and trades in one
// transaction. Returns the new run id.
func (s *Store) SaveRun(meta RunMetadata, metrics Metrics, results []Result) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO runs (run_at, vcs_revision, data_path, data_sha256, start_date, end_date, trades, total_pnl, mean_brier)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.RunAt, meta.VCSRevision, meta.DataPath, meta.DataSHA256,
		meta.Start.Format("2006-01-02"), meta.End.Format("2006-01-02"),
		metrics.Trades, metrics.TotalPnL, metrics.MeanBrier,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO trades (run_id, market, trade_date, side, prob, fill_price, outcome, contract_price, pnl, brier, logloss, edge)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare trades: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err := stmt.Exec(runID, r.Market, r.Date.Format("2006-01-02"), string(r.Side),
			r.Prob, r.FillPrice, r.Outcome, r.ContractPrice, r.PnL, r.Brier, r.LogLoss, r.Edge); err != nil {
			return 0, fmt.Errorf("insert trade %s: %w", r.Market, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return runID, nil
}

// LoadRunResults reads back the trades of a stored run.
func (s *Store) LoadRunResults(runID int64) ([]Result, error) {
	rows, err := s.db.Query(`
		SELECT market, trade_date, side, prob, fill_price, outcome, contract_price, pnl, brier, logloss, edge
		FROM trades WHERE run_id = ? ORDER BY trade_date, market`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var dateStr, side string
		if err := rows.Scan(&r.Market, &dateStr, &side, &r.Prob, &r.FillPrice,
			&r.Outcome, &r.ContractPrice, &r.PnL, &r.Brier, &r.LogLoss, &r.Edge); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		d, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("bad trade date %q: %w", dateStr, err)
		}
		r.Date = d
		r.Side = model.Side(side)
		results = append(results, r)
	}
	return results, rows.Err()
}
