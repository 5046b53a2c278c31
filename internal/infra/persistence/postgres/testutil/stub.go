// Package testutil provides a scripted stub database for postgres store tests.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// Statement is one recorded Exec or Query call.
type Statement struct {
	Query string
	Args  []any
	InTx  bool
}

// Result is the scripted answer to a query: either rows or an error.
type Result struct {
	Columns []string
	Rows    [][]driver.Value
	Err     error
}

// Responder returns the scripted result for a statement. Returning a zero
// Result yields an empty row set (or one affected row for Exec).
type Responder func(query string, args []any) Result

// StubConn records normalized statements for the postgres store during tests.
type StubConn struct {
	mu         sync.Mutex
	Statements []Statement
	Respond    Responder
	FailPing   bool
	FailBegin  bool
	FailCommit bool
	Commits    int
	Rollbacks  int
	inTx       bool
}

var stubSeq atomic.Int64

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB(respond Responder) (*sql.DB, *StubConn) {
	conn := &StubConn{Respond: respond}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	db.SetMaxOpenConns(1)
	return db, conn
}

// Queries returns the normalized text of every recorded statement.
func (c *StubConn) Queries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.Statements))
	for i, st := range c.Statements {
		out[i] = st.Query
	}
	return out
}

// Find returns recorded statements whose normalized text contains fragment.
func (c *StubConn) Find(fragment string) []Statement {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Statement
	for _, st := range c.Statements {
		if strings.Contains(st.Query, Normalize(fragment)) {
			out = append(out, st)
		}
	}
	return out
}

// Normalize collapses whitespace so tests can match statements by fragment.
func Normalize(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	c.mu.Lock()
	c.inTx = true
	c.mu.Unlock()
	return &stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	res := c.record(query, args)
	if res.Err != nil {
		return nil, res.Err
	}
	return driver.RowsAffected(1), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	res := c.record(query, args)
	if res.Err != nil {
		return nil, res.Err
	}
	return &stubRows{cols: res.Columns, rows: res.Rows}, nil
}

func (c *StubConn) record(query string, named []driver.NamedValue) Result {
	args := make([]any, len(named))
	for i, nv := range named {
		args[i] = nv.Value
	}
	norm := Normalize(query)
	c.mu.Lock()
	c.Statements = append(c.Statements, Statement{Query: norm, Args: args, InTx: c.inTx})
	respond := c.Respond
	c.mu.Unlock()
	if respond == nil {
		return Result{}
	}
	return respond(norm, args)
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	t.conn.inTx = false
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	t.conn.Commits++
	return nil
}

func (t *stubTx) Rollback() error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	t.conn.inTx = false
	t.conn.Rollbacks++
	return nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
