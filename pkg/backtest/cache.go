package backtest

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// CandleCache persists raw candlestick responses keyed by request shape, so
// repeated backtest runs replay history without refetching it.
type CandleCache struct {
	db *sql.DB
}

// OpenCandleCache opens (creating if needed) the candle cache under dir.
func OpenCandleCache(dir string) (*CandleCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	dbPath := filepath.Join(dir, "candles.db")

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	// WAL keeps concurrent readers cheap
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	c := &CandleCache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return c, nil
}

// Close closes the database connection.
func (c *CandleCache) Close() error {
	return c.db.Close()
}

func (c *CandleCache) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS candles (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		fetched_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

// CacheKey identifies one candlestick request. Identical parameters always
// produce the identical key.
func CacheKey(ticker string, intervalMinutes int, startTs, endTs int64, includeLatest bool) string {
	return fmt.Sprintf("%s_%dm_%d_%d_%t", ticker, intervalMinutes, startTs, endTs, includeLatest)
}

// Get returns the stored payload for key, or ok=false on a miss.
func (c *CandleCache) Get(key string) ([]byte, bool, error) {
	var payload []byte
	err := c.db.QueryRow("SELECT payload FROM candles WHERE key = ?", key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup %s: %w", key, err)
	}
	return payload, true, nil
}

// Put stores payload under key, replacing any previous entry.
func (c *CandleCache) Put(key string, payload []byte) error {
	_, err := c.db.Exec(`
		INSERT INTO candles (key, payload) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, fetched_at = CURRENT_TIMESTAMP`,
		key, payload)
	if err != nil {
		return fmt.Errorf("cache store %s: %w", key, err)
	}
	return nil
}
