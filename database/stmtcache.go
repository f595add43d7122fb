package database

import (
	"database/sql"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (creating if needed) a sqlite database file. Use ":memory:"
// for a throwaway database; it is limited to one connection so every
// statement sees the same in-memory database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// StmtCache caches prepared statements by query string.
type StmtCache struct {
	db *sql.DB
	m  sync.Map
}

func NewStmtCache(db *sql.DB) *StmtCache {
	return &StmtCache{db: db}
}

func (sc *StmtCache) Prepare(query string) (*sql.Stmt, error) {
	if cached, ok := sc.m.Load(query); ok {
		return cached.(*sql.Stmt), nil
	}
	stmt, err := sc.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	// another goroutine may have stored the same query meanwhile
	if actual, loaded := sc.m.LoadOrStore(query, stmt); loaded {
		_ = stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

func (sc *StmtCache) Exec(query string, args ...any) (sql.Result, error) {
	stmt, err := sc.Prepare(query)
	if err != nil {
		return nil, err
	}
	return stmt.Exec(args...)
}

func (sc *StmtCache) Query(query string, args ...any) (*sql.Rows, error) {
	stmt, err := sc.Prepare(query)
	if err != nil {
		return nil, err
	}
	return stmt.Query(args...)
}

// QueryRow returns the preparation error directly, before any row is read.
func (sc *StmtCache) QueryRow(query string, args ...any) (*sql.Row, error) {
	stmt, err := sc.Prepare(query)
	if err != nil {
		return nil, err
	}
	return stmt.QueryRow(args...), nil
}

// Close closes all cached statements. The cache stays usable.
func (sc *StmtCache) Close() {
	sc.m.Range(func(k, v any) bool {
		_ = v.(*sql.Stmt).Close()
		sc.m.Delete(k)
		return true
	})
}
