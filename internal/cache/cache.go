// Package cache 提供基于 SQLite 的译文缓存。
// 键为 模型+目标语言+原文 的摘要；同键幂等覆盖。
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store 管理译文缓存的持久化。
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS translations (
    key        TEXT PRIMARY KEY,
    model      TEXT NOT NULL,
    target     TEXT NOT NULL,
    translated TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_translations_target ON translations(model, target);
`

// Open 初始化或连接缓存库。dir 为缓存目录，库文件固定名。
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache dir: %w", err)
	}
	dbPath := filepath.Join(dir, "translations.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

// Close 关闭底层连接。nil 接收者安全。
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path 返回库文件路径。
func (s *Store) Path() string { return s.path }

// Key 计算缓存键：模型、目标语言与原文共同决定命中。
func Key(model, target, text string) string {
	h := sha256.Sum256([]byte(model + "\x00" + target + "\x00" + text))
	return hex.EncodeToString(h[:])
}

// Get 查询译文；未命中返回 ok=false 且无错误。
func (s *Store) Get(ctx context.Context, model, target, text string) (translated string, ok bool, err error) {
	if s == nil {
		return "", false, nil
	}
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT translated FROM translations WHERE key = ?`, Key(model, target, text))
	switch err := row.Scan(&translated); {
	case err == nil:
		return translated, true, nil
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("cache lookup: %w", err)
	}
}

// Put 写入译文；同键覆盖。
func (s *Store) Put(ctx context.Context, model, target, text, translated string) error {
	if s == nil {
		return nil
	}
	return s.execWithRetry(ensureContext(ctx),
		`INSERT INTO translations (key, model, target, translated, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET translated = excluded.translated, created_at = excluded.created_at`,
		Key(model, target, text), model, target, translated, time.Now().UTC().Format(time.RFC3339))
}

// Stats 汇总缓存规模。
type Stats struct {
	Entries   int64
	FileBytes int64
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if s == nil {
		return Stats{}, nil
	}
	var st Stats
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(*) FROM translations`)
	if err := row.Scan(&st.Entries); err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	if fi, err := os.Stat(s.path); err == nil {
		st.FileBytes = fi.Size()
	}
	return st, nil
}

// Clear 清空全部条目；返回删除数。
func (s *Store) Clear(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, nil
	}
	res, err := s.execResultWithRetry(ensureContext(ctx), `DELETE FROM translations`)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func (s *Store) execResultWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}
