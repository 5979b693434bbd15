package adapters

import (
	"context"
	"database/sql"
)

// SQLAdapter implements DBAdapter for sql.DB.
type SQLAdapter struct {
	db *sql.DB
}

// NewSQLAdapter creates a new SQL adapter backed by the given database handle.
func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

// Acquire checks out one dedicated connection as an exclusive session.
func (s *SQLAdapter) Acquire(ctx context.Context) (DBConn, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	return &sqlConn{conn: conn}, nil
}

// sqlConn wraps sql.Conn to implement the DBConn interface.
type sqlConn struct {
	conn *sql.Conn
}

// Query executes a query on this session and returns wrapped rows.
func (c *sqlConn) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}

// Exec executes a statement on this session and returns the wrapped result.
func (c *sqlConn) Exec(ctx context.Context, query string) (DBResult, error) {
	result, err := c.conn.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &stdResult{result: result}, nil
}

// Begin starts an explicit transaction on this session.
func (c *sqlConn) Begin(ctx context.Context) (DBTx, error) {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &stdTx{tx: tx}, nil
}

// Release returns the connection to the pool.
func (c *sqlConn) Release() error {
	return c.conn.Close()
}
