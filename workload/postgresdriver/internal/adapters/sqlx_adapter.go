package adapters

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// SQLXAdapter implements DBAdapter for sqlx.DB.
type SQLXAdapter struct {
	db *sqlx.DB
}

// NewSQLXAdapter creates a new SQLX adapter backed by the given database handle.
func NewSQLXAdapter(db *sqlx.DB) *SQLXAdapter {
	return &SQLXAdapter{db: db}
}

// Acquire checks out one dedicated connection as an exclusive session.
func (s *SQLXAdapter) Acquire(ctx context.Context) (DBConn, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}

	return &sqlxConn{conn: conn}, nil
}

// sqlxConn wraps sqlx.Conn to implement the DBConn interface.
type sqlxConn struct {
	conn *sqlx.Conn
}

// Query executes a query on this session and returns wrapped rows.
func (c *sqlxConn) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}

// Exec executes a statement on this session and returns the wrapped result.
func (c *sqlxConn) Exec(ctx context.Context, query string) (DBResult, error) {
	result, err := c.conn.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &stdResult{result: result}, nil
}

// Begin starts an explicit transaction on this session.
func (c *sqlxConn) Begin(ctx context.Context) (DBTx, error) {
	tx, err := c.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &stdTx{tx: tx.Tx}, nil
}

// Release returns the connection to the pool.
func (c *sqlxConn) Release() error {
	return c.conn.Close()
}
