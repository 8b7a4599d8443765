package ledger

import (
	"context"
	"errors"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/dgretton/pyhamilton-sub000/logger"
)

// Table names one durable ledger table. Each logical class of consumable gets
// its own table.
type Table string

const (
	// TableTips holds pipette tip occupancy.
	TableTips Table = "tips"
	// TableStacks holds stacked and bulk resource occupancy; rows carry an
	// ordinal locating the slot within its stack.
	TableStacks Table = "stacks"
)

// tableName validates a Table against the known set. Table names are
// interpolated into SQL, so unknown values must never reach a query.
func tableName(t Table) (string, error) {
	switch t {
	case TableTips, TableStacks:
		return string(t), nil
	default:
		return "", fmt.Errorf("unknown ledger table %q", t)
	}
}

// Row is the durable mirror of exactly one tracker slot: (tracker identity,
// slot index) → (rack name, occupancy flag, optional ordinal).
type Row struct {
	Tracker   string
	SlotIndex int
	Rack      string
	Occupied  bool
	Ordinal   int
}

// Config holds the parameters for opening a ledger store.
type Config struct {
	// Path is the filesystem path to the SQLite database file. The file is
	// created if it does not exist. Use ":memory:" for tests; the pool size is
	// then forced to 1 since each in-memory connection is independent.
	Path string

	// PoolSize is the number of connections in the pool. Defaults to 4 if
	// zero or negative. Writes are serialized by SQLite regardless; extra
	// connections only help concurrent readers.
	PoolSize int

	// Logger receives operational messages. Defaults to the package default
	// logger.
	Logger logger.Logger
}

// Store is the embedded, process-independent ledger of physical inventory.
// It is a pure persistence primitive: point reads and writes plus full-table
// scans, no business logic. Occupancy state written here survives process
// crashes, which is what makes "no double-allocation after restart" hold.
//
// Store is safe for concurrent use.
type Store struct {
	pool   *sqlitex.Pool
	logger logger.Logger
	path   string
}

const schema = `
CREATE TABLE IF NOT EXISTS tips (
	tracker    TEXT    NOT NULL,
	slot_index INTEGER NOT NULL,
	rack       TEXT    NOT NULL,
	occupied   INTEGER NOT NULL,
	ordinal    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (tracker, slot_index)
);
CREATE TABLE IF NOT EXISTS stacks (
	tracker    TEXT    NOT NULL,
	slot_index INTEGER NOT NULL,
	rack       TEXT    NOT NULL,
	occupied   INTEGER NOT NULL,
	ordinal    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (tracker, slot_index)
);
`

// Open creates a ledger store backed by the SQLite file at cfg.Path, creating
// the file and schema as needed. The caller must Close the store when done.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("ledger: path is required")
	}

	log := cfg.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}
	if cfg.Path == ":memory:" {
		poolSize = 1
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: opening %s: %w", cfg.Path, err)
	}

	log.Info("ledger store opened", "path", cfg.Path, "pool_size", poolSize)

	return &Store{pool: pool, logger: log, path: cfg.Path}, nil
}

// prepareConnection applies pragmas and ensures the schema on every pooled
// connection.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA foreign_keys = ON;",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}

	return sqlitex.ExecuteScript(conn, schema, nil)
}

// Close closes the underlying connection pool. Blocks until all borrowed
// connections are returned.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Put upserts a single row. The write is durable when Put returns.
func (s *Store) Put(ctx context.Context, table Table, row Row) error {
	return s.PutAll(ctx, table, []Row{row})
}

// PutAll upserts a batch of rows in a single transaction: either every row is
// durably recorded or none is. Trackers rely on this for all-or-nothing
// multi-slot allocation.
func (s *Store) PutAll(ctx context.Context, table Table, rows []Row) (err error) {
	if len(rows) == 0 {
		return nil
	}

	name, err := tableName(table)
	if err != nil {
		return err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("ledger: put: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("ledger: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	query := fmt.Sprintf(
		`INSERT INTO %s (tracker, slot_index, rack, occupied, ordinal) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (tracker, slot_index) DO UPDATE SET rack = excluded.rack, occupied = excluded.occupied, ordinal = excluded.ordinal`,
		name,
	)
	for _, row := range rows {
		occupied := 0
		if row.Occupied {
			occupied = 1
		}
		err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: []any{row.Tracker, row.SlotIndex, row.Rack, occupied, row.Ordinal},
		})
		if err != nil {
			return fmt.Errorf("ledger: put row (%s, %d): %w", row.Tracker, row.SlotIndex, err)
		}
	}

	return nil
}

// Get reads the row for (tracker, slot index). The second return value is
// false when no such row exists.
func (s *Store) Get(ctx context.Context, table Table, tracker string, slotIndex int) (Row, bool, error) {
	name, err := tableName(table)
	if err != nil {
		return Row{}, false, err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Row{}, false, fmt.Errorf("ledger: get: %w", err)
	}
	defer s.pool.Put(conn)

	var row Row
	found := false
	query := fmt.Sprintf(
		"SELECT tracker, slot_index, rack, occupied, ordinal FROM %s WHERE tracker = ? AND slot_index = ?",
		name,
	)
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: []any{tracker, slotIndex},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			row = rowFromStmt(stmt)
			found = true
			return nil
		},
	})
	if err != nil {
		return Row{}, false, fmt.Errorf("ledger: get (%s, %d): %w", tracker, slotIndex, err)
	}

	return row, found, nil
}

// Scan returns every row stored under the given tracker identity, ordered by
// slot index.
func (s *Store) Scan(ctx context.Context, table Table, tracker string) ([]Row, error) {
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: scan: %w", err)
	}
	defer s.pool.Put(conn)

	var rows []Row
	query := fmt.Sprintf(
		"SELECT tracker, slot_index, rack, occupied, ordinal FROM %s WHERE tracker = ? ORDER BY slot_index",
		name,
	)
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: []any{tracker},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			rows = append(rows, rowFromStmt(stmt))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: scan %s: %w", tracker, err)
	}

	return rows, nil
}

// Trackers returns the distinct tracker identities present in the table, in
// sorted order.
func (s *Store) Trackers(ctx context.Context, table Table) ([]string, error) {
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: trackers: %w", err)
	}
	defer s.pool.Put(conn)

	var trackers []string
	query := fmt.Sprintf("SELECT DISTINCT tracker FROM %s ORDER BY tracker", name)
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			trackers = append(trackers, stmt.ColumnText(0))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: trackers: %w", err)
	}

	return trackers, nil
}

// DeleteTracker removes every row stored under the given tracker identity.
func (s *Store) DeleteTracker(ctx context.Context, table Table, tracker string) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("ledger: delete tracker: %w", err)
	}
	defer s.pool.Put(conn)

	query := fmt.Sprintf("DELETE FROM %s WHERE tracker = ?", name)
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: []any{tracker},
	})
	if err != nil {
		return fmt.Errorf("ledger: delete tracker %s: %w", tracker, err)
	}

	return nil
}

func rowFromStmt(stmt *sqlite.Stmt) Row {
	return Row{
		Tracker:   stmt.ColumnText(0),
		SlotIndex: int(stmt.ColumnInt64(1)),
		Rack:      stmt.ColumnText(2),
		Occupied:  stmt.ColumnInt64(3) != 0,
		Ordinal:   int(stmt.ColumnInt64(4)),
	}
}
