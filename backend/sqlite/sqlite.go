package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/unkn0wn-root/playstate/backend"
)

const (
	driverName         = "sqlite"
	defaultBusyTimeout = 5 * time.Second

	readSQL   = "select data from userdata where key = ? and userId = ?"
	upsertSQL = "replace into userdata (key, userId, data) values (?, ?, ?)"
)

var schemaQueries = []string{
	"create table if not exists userdata (key nvarchar, userId GUID, data BLOB)",
	"create unique index if not exists userdataindex on userdata (key, userId)",
	"create table if not exists schema_version (table_name primary key, version)",
	// pragmas
	"pragma temp_store = memory",
	"insert or ignore into schema_version (table_name, version) values ('userdata', 1)",
}

// UserIDFormat selects how user ids are bound to the userId column.
type UserIDFormat int

const (
	// UserIDBlob stores 16 bytes in .NET Guid.ToByteArray order (the first three
	// groups little-endian). This is what System.Data.SQLite writes by default.
	UserIDBlob UserIDFormat = iota
	// UserIDText stores the canonical lower-case text form.
	UserIDText
)

// Options tune the SQLite backend. The zero value is ready to use.
type Options struct {
	UserIDFormat UserIDFormat
	BusyTimeout  time.Duration // 0 => 5s
	JournalMode  string        // e.g. "WAL"; empty leaves the file's mode alone
}

// Store is a backend.Backend over one SQLite file.
type Store struct {
	db     *sql.DB
	format UserIDFormat
}

var _ backend.Backend = (*Store)(nil)

// Open opens (creating if absent) the database at path and applies the schema.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite: path is required")
	}
	db, err := sql.Open(driverName, dsn(filepath.Clean(path), opts))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	for _, q := range schemaQueries {
		if _, err := db.ExecContext(ctx, q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema %q: %w", q, err)
		}
	}
	return &Store{db: db, format: opts.UserIDFormat}, nil
}

// Opener returns a backend.Opener for path.
func Opener(path string, opts Options) backend.Opener {
	return func(ctx context.Context) (backend.Backend, error) {
		return Open(ctx, path, opts)
	}
}

func dsn(path string, opts Options) string {
	timeout := opts.BusyTimeout
	if timeout <= 0 {
		timeout = defaultBusyTimeout
	}
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", timeout.Milliseconds()))
	q.Add("_pragma", "temp_store(memory)")
	if opts.JournalMode != "" {
		q.Add("_pragma", fmt.Sprintf("journal_mode(%s)", opts.JournalMode))
	}
	q.Set("_txlock", "immediate")
	return path + "?" + q.Encode()
}

func (s *Store) Read(ctx context.Context, userID uuid.UUID, key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, readSQL, key, s.userIDArg(userID)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read userdata: %w", err)
	}
	return data, true, nil
}

func (s *Store) Begin(ctx context.Context) (backend.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &txn{tx: tx, s: s}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) userIDArg(id uuid.UUID) any {
	if s.format == UserIDText {
		return id.String()
	}
	return guidBytes(id)
}

type txn struct {
	tx *sql.Tx
	s  *Store
}

func (t *txn) Upsert(ctx context.Context, userID uuid.UUID, key string, payload []byte) error {
	if _, err := t.tx.ExecContext(ctx, upsertSQL, key, t.s.userIDArg(userID), payload); err != nil {
		return fmt.Errorf("replace userdata: %w", err)
	}
	return nil
}

func (t *txn) Commit() error   { return t.tx.Commit() }
func (t *txn) Rollback() error { return t.tx.Rollback() }
