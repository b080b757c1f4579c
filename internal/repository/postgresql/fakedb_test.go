package postgresql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
	"testing"
)

// scriptedQuery records one query and answers it with fixed rows.
type scriptedQuery struct {
	query string
	args  []any
}

type scriptedDB struct {
	mu      sync.Mutex
	columns []string
	rows    [][]driver.Value
	queries []scriptedQuery
}

// newScriptedDB returns a *sql.DB whose every query yields columns/rows.
// Values go through database/sql's own conversion into the scan targets.
func newScriptedDB(t *testing.T, columns []string, rows ...[]driver.Value) (*sql.DB, *scriptedDB) {
	t.Helper()
	s := &scriptedDB{columns: columns, rows: rows}
	db := sql.OpenDB(s)
	t.Cleanup(func() { db.Close() })
	return db, s
}

func (s *scriptedDB) lastQuery(t *testing.T) scriptedQuery {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queries) == 0 {
		t.Fatal("no query was executed")
	}
	return s.queries[len(s.queries)-1]
}

func (s *scriptedDB) Connect(context.Context) (driver.Conn, error) { return &scriptedConn{db: s}, nil }
func (s *scriptedDB) Driver() driver.Driver                        { return nil }

type scriptedConn struct {
	db *scriptedDB
}

func (c *scriptedConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}
func (c *scriptedConn) Close() error              { return nil }
func (c *scriptedConn) Begin() (driver.Tx, error) { return nil, errors.New("transactions not supported") }

func (c *scriptedConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	recorded := scriptedQuery{query: query}
	for _, a := range args {
		recorded.args = append(recorded.args, a.Value)
	}
	c.db.queries = append(c.db.queries, recorded)
	return &scriptedRows{columns: c.db.columns, rows: c.db.rows}, nil
}

type scriptedRows struct {
	columns []string
	rows    [][]driver.Value
	next    int
}

func (r *scriptedRows) Columns() []string { return r.columns }
func (r *scriptedRows) Close() error      { return nil }

func (r *scriptedRows) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.next])
	r.next++
	return nil
}
