// Package ledger implements the durable dedup store on an embedded SQLite
// key-value table keyed as post:{guid}.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/cf-vnkr/autoblog/internal/domain"
	"github.com/cf-vnkr/autoblog/internal/ports"
)

const (
	keyPrefix = "post:"
	pageSize  = 100
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
)`

// Store is the SQLite-backed ledger. Reads fail open (a broken store reports
// "not processed"); writes fail closed and surface their error.
type Store struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.Ledger = (*Store)(nil)

// Open creates or opens the ledger database at path. ttl = 0 keeps entries
// forever; otherwise rows past their expiry read as absent.
func Open(path string, ttl time.Duration, logger *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}

	return &Store{db: db, ttl: ttl, logger: logger, now: time.Now}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Key maps a guid to its storage key.
func Key(guid string) string {
	return keyPrefix + guid
}

// IsProcessed reports whether the guid completed a previous run. Read
// failures report false: reprocessing is idempotent at the publisher, a
// silent skip is not recoverable.
func (s *Store) IsProcessed(ctx context.Context, guid string) bool {
	entry, err := s.get(ctx, Key(guid))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.warn("ledger read failed, treating as unprocessed", "guid", guid, "error", err)
		}
		return false
	}
	return entry.Processed
}

// BatchIsProcessed fans out independent point reads. No atomicity is implied
// across the batch.
func (s *Store) BatchIsProcessed(ctx context.Context, guids []string) (map[string]bool, error) {
	results := make(map[string]bool, len(guids))
	if len(guids) == 0 {
		return results, nil
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, guid := range guids {
		wg.Add(1)
		go func(guid string) {
			defer wg.Done()
			processed := s.IsProcessed(ctx, guid)
			mu.Lock()
			results[guid] = processed
			mu.Unlock()
		}(guid)
	}
	wg.Wait()

	return results, nil
}

// MarkProcessed writes the completion marker for entry.GUID. CompletedAt is
// stamped here, at write time.
func (s *Store) MarkProcessed(ctx context.Context, entry domain.LedgerEntry) error {
	if entry.GUID == "" {
		return errors.New("ledger: empty guid")
	}

	entry.Processed = true
	entry.CompletedAt = s.now().UTC()
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode ledger value: %w", err)
	}

	var expires int64
	if s.ttl > 0 {
		expires = s.now().Add(s.ttl).Unix()
	}

	query, args, err := sq.Insert("ledger").
		Columns("key", "value", "expires_at").
		Values(Key(entry.GUID), string(raw), expires).
		Suffix("ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build ledger upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("write ledger entry %s: %w", entry.GUID, err)
	}
	return nil
}

// Count returns the number of live entries under the post: prefix.
func (s *Store) Count(ctx context.Context) (int, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("ledger").
		Where(sq.Like{"key": keyPrefix + "%"}).
		Where(sq.Or{sq.Eq{"expires_at": 0}, sq.Gt{"expires_at": s.now().Unix()}}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build ledger count: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return count, nil
}

// ListAll enumerates entries under the post: prefix in key order, paging on
// a key cursor until the store is exhausted or limit entries are collected.
// limit <= 0 means no cap.
func (s *Store) ListAll(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	cursor := ""
	for {
		page := pageSize
		if limit > 0 && limit-len(entries) < page {
			page = limit - len(entries)
		}
		if page <= 0 {
			break
		}

		batch, lastKey, err := s.listPage(ctx, cursor, page)
		if err != nil {
			return nil, err
		}
		entries = append(entries, batch...)
		if len(batch) < page {
			break
		}
		cursor = lastKey
	}
	return entries, nil
}

func (s *Store) listPage(ctx context.Context, cursor string, page int) ([]domain.LedgerEntry, string, error) {
	builder := sq.Select("key", "value").
		From("ledger").
		Where(sq.Like{"key": keyPrefix + "%"}).
		Where(sq.Or{sq.Eq{"expires_at": 0}, sq.Gt{"expires_at": s.now().Unix()}}).
		OrderBy("key").
		Limit(uint64(page))
	if cursor != "" {
		builder = builder.Where(sq.Gt{"key": cursor})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, "", fmt.Errorf("build ledger page: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("list ledger page: %w", err)
	}
	defer rows.Close()

	var (
		entries []domain.LedgerEntry
		lastKey string
	)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, "", fmt.Errorf("scan ledger row: %w", err)
		}
		lastKey = key

		var entry domain.LedgerEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			s.warn("skipping undecodable ledger value", "key", key, "error", err)
			continue
		}
		entry.GUID = strings.TrimPrefix(key, keyPrefix)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate ledger rows: %w", err)
	}

	return entries, lastKey, nil
}

func (s *Store) get(ctx context.Context, key string) (domain.LedgerEntry, error) {
	query, args, err := sq.Select("value", "expires_at").
		From("ledger").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("build ledger lookup: %w", err)
	}

	var (
		raw     string
		expires int64
	)
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw, &expires); err != nil {
		return domain.LedgerEntry{}, err
	}

	if expires > 0 && expires <= s.now().Unix() {
		s.deleteKey(ctx, key)
		return domain.LedgerEntry{}, sql.ErrNoRows
	}

	var entry domain.LedgerEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("decode ledger value %s: %w", key, err)
	}
	entry.GUID = strings.TrimPrefix(key, keyPrefix)
	return entry, nil
}

// deleteKey lazily drops an expired row; failures only cost a retry later.
func (s *Store) deleteKey(ctx context.Context, key string) {
	query, args, err := sq.Delete("ledger").Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.warn("could not delete expired ledger entry", "key", key, "error", err)
	}
}

func (s *Store) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
