// Package embedded implements kvault.Storage on an embedded SQLite database,
// one file per DBName and one table per StoreName. The schema version lives
// in PRAGMA user_version and only moves forward.
//
// Every operation runs in its own transaction: reads read-only, writes
// read-write. Lazy expiry is two transactions, a read that finds the past
// deadline followed by a delete bound to the row that was read, so a value
// written in between survives.
package embedded

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/unkn0wn-root/kvault"
	"github.com/unkn0wn-root/kvault/internal/payload"
	"github.com/unkn0wn-root/kvault/internal/util"
)

// TotalKiB is the reported capacity ceiling (1 GiB).
const TotalKiB = 1024 * 1024

// UpgradeFunc runs inside the upgrade transaction after the store table
// exists, when the on-disk version is older than the requested one.
type UpgradeFunc func(ctx context.Context, tx *sql.Tx, oldVersion, newVersion int) error

type Storage struct {
	path    string
	dbName  string
	store   string
	table   string // quoted store identifier
	version int
	upgrade UpgradeFunc

	prefix     string
	defaultTTL time.Duration
	ser        *payload.Serializer
	log        kvault.Logger
	hooks      kvault.Hooks
	now        func() time.Time

	mu sync.Mutex
	db *sql.DB
}

var _ kvault.Storage = (*Storage)(nil)

func New(opts kvault.Options) (*Storage, error) {
	return NewWithUpgrade(opts, nil)
}

// NewWithUpgrade is New with a caller migration step. The database is not
// opened until the first operation or an explicit Open.
func NewWithUpgrade(opts kvault.Options, upgrade UpgradeFunc) (*Storage, error) {
	o := opts.WithDefaults()
	if err := o.Validate(); err != nil {
		return nil, err
	}
	ser, err := payload.FromOptions(o)
	if err != nil {
		return nil, err
	}
	dir := o.Dir
	if dir == "" {
		dir = "."
	}
	return &Storage{
		path:       filepath.Join(dir, o.DBName+".db"),
		dbName:     o.DBName,
		store:      o.StoreName,
		table:      quoteIdent(o.StoreName),
		version:    o.Version,
		upgrade:    upgrade,
		prefix:     o.Prefix,
		defaultTTL: o.Expire,
		ser:        ser,
		log:        o.Logger,
		hooks:      o.Hooks,
		now:        o.Now,
	}, nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Path is the database file location.
func (s *Storage) Path() string { return s.path }

// Open opens the database and runs the upgrade if needed. Operations call it
// implicitly; an explicit call surfaces open errors such as a version downgrade.
func (s *Storage) Open(ctx context.Context) error {
	_, err := s.handle(ctx)
	return err
}

func (s *Storage) handle(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := "file:" + filepath.Clean(s.path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := s.migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.db = db
	s.log.Debug("embedded: database opened", kvault.Fields{"path": s.path, "version": s.version})
	return db, nil
}

func (s *Storage) migrate(ctx context.Context, db *sql.DB) error {
	var onDisk int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&onDisk); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if onDisk > s.version {
		return &kvault.VersionError{DBName: s.dbName, OnDisk: onDisk, Requested: s.version}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upgrade: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// The store table is ensured on every open so a new StoreName in an
	// existing database works without a version bump.
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + s.table + ` (key TEXT PRIMARY KEY, value BLOB NOT NULL, expire INTEGER NOT NULL DEFAULT 0)`,
		`CREATE INDEX IF NOT EXISTS ` + quoteIdent(s.store+"_expire") + ` ON ` + s.table + ` (expire)`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create store: %w", err)
		}
	}
	if onDisk < s.version {
		if s.upgrade != nil {
			if err := s.upgrade(ctx, tx, onDisk, s.version); err != nil {
				return fmt.Errorf("upgrade %d -> %d: %w", onDisk, s.version, err)
			}
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", s.version)); err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
		s.log.Info("embedded: schema upgraded", kvault.Fields{"db": s.dbName, "from": onDisk, "to": s.version})
	}
	return tx.Commit()
}

func (s *Storage) view(ctx context.Context, fn func(*sql.Tx) error) error {
	return s.txn(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (s *Storage) update(ctx context.Context, fn func(*sql.Tx) error) error {
	return s.txn(ctx, nil, fn)
}

func (s *Storage) txn(ctx context.Context, opts *sql.TxOptions, fn func(*sql.Tx) error) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Storage) fail(op, key string, err error) {
	s.log.Error("embedded: "+op+" failed", kvault.Fields{"key": key, "err": err})
	s.hooks.BackendError(op, key, err)
}

func (s *Storage) Set(ctx context.Context, key string, value any) bool {
	return s.set(ctx, key, value, s.defaultTTL)
}

func (s *Storage) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) bool {
	return s.set(ctx, key, value, ttl)
}

func (s *Storage) set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	sk := s.prefix + key
	expireAt := kvault.ExpireAt(s.now(), ttl)
	b, err := s.ser.Encode(value, expireAt)
	if err != nil {
		s.log.Error("embedded: encode failed", kvault.Fields{"key": sk, "err": err})
		return false
	}
	err = s.update(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO `+s.table+` (key, value, expire) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expire = excluded.expire`,
			sk, b, expireAt)
		return err
	})
	if err != nil {
		s.fail("set", sk, err)
		return false
	}
	return true
}

func (s *Storage) Get(ctx context.Context, key string, dst any) bool {
	sk := s.prefix + key
	var (
		b        []byte
		expireAt int64
		found    bool
	)
	err := s.view(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT value, expire FROM `+s.table+` WHERE key = ?`, sk).Scan(&b, &expireAt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		s.fail("get", sk, err)
		return false
	}
	if !found {
		return false
	}
	now := s.now()
	if kvault.Expired(expireAt, now) {
		s.expire(ctx, sk, b, expireAt)
		return false
	}
	it, err := s.ser.Decode(b)
	if err != nil {
		s.corrupt(sk, err)
		return false
	}
	// The column is only an index; the sealed deadline is authoritative.
	if kvault.Expired(it.ExpireAt, now) {
		s.expire(ctx, sk, b, expireAt)
		return false
	}
	if s.ser.IsNull(it.Value) {
		return false
	}
	if err := s.ser.Value(it.Value, dst); err != nil {
		s.corrupt(sk, err)
		return false
	}
	return true
}

// expire deletes the row only if it still holds the bytes and deadline that
// were read.
func (s *Storage) expire(ctx context.Context, sk string, b []byte, expireAt int64) {
	s.hooks.ExpiredOnRead(sk)
	err := s.update(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM `+s.table+` WHERE key = ? AND expire = ? AND value = ?`,
			sk, expireAt, b)
		return err
	})
	if err != nil {
		s.fail("remove", sk, err)
	}
}

func (s *Storage) corrupt(sk string, err error) {
	s.log.Warn("embedded: unreadable entry", kvault.Fields{"key": sk, "err": err})
	s.hooks.CorruptOnRead(sk, payload.Reason(err))
}

func (s *Storage) Has(ctx context.Context, key string) bool {
	return s.Get(ctx, key, nil)
}

func (s *Storage) Remove(ctx context.Context, key string) bool {
	sk := s.prefix + key
	err := s.update(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM `+s.table+` WHERE key = ?`, sk)
		return err
	})
	if err != nil {
		s.fail("remove", sk, err)
		return false
	}
	return true
}

// Clear deletes the rows under this instance's prefix.
func (s *Storage) Clear(ctx context.Context) bool {
	err := s.update(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM `+s.table+` WHERE key LIKE ? ESCAPE '\'`, util.LikePrefix(s.prefix))
		return err
	})
	if err != nil {
		s.fail("clear", s.prefix, err)
		return false
	}
	return true
}

func (s *Storage) Keys(ctx context.Context) []string {
	var keys []string
	err := s.view(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT key FROM `+s.table+` WHERE key LIKE ? ESCAPE '\'`, util.LikePrefix(s.prefix))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				return err
			}
			keys = append(keys, k)
		}
		return rows.Err()
	})
	if err != nil {
		s.fail("keys", s.prefix, err)
		return []string{}
	}
	return util.StripPrefix(keys, s.prefix)
}

// Size walks the rows under the prefix and sums key, value and deadline bytes.
func (s *Storage) Size(ctx context.Context) kvault.Size {
	var used int64
	err := s.view(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT length(key) + length(value) + 8 FROM `+s.table+` WHERE key LIKE ? ESCAPE '\'`,
			util.LikePrefix(s.prefix))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var n int64
			if err := rows.Scan(&n); err != nil {
				return err
			}
			used += n
		}
		return rows.Err()
	})
	if err != nil {
		s.fail("size", s.prefix, err)
		return kvault.Size{Total: TotalKiB}
	}
	return kvault.Size{Used: util.KiB(used), Total: TotalKiB}
}

// Purge deletes every expired row under the prefix without reading values,
// and returns how many were removed.
func (s *Storage) Purge(ctx context.Context) (int64, error) {
	var n int64
	err := s.update(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM `+s.table+` WHERE key LIKE ? ESCAPE '\' AND expire > 0 AND expire < ?`,
			util.LikePrefix(s.prefix), s.now().UnixMilli())
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		s.fail("purge", s.prefix, err)
		return 0, err
	}
	return n, nil
}

// Close releases the handle. The next operation reopens the database.
func (s *Storage) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
