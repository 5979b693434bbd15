package adapters

import "context"

// DBAdapter defines the interface for acquiring database sessions for the workload driver.
type DBAdapter interface {
	Acquire(ctx context.Context) (DBConn, error)
}

// DBConn is a single database session, exclusively owned by one workload
// operation for its duration. The owner must call Release on every exit path.
type DBConn interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
	Begin(ctx context.Context) (DBTx, error)
	Release() error
}

// DBTx is an explicit transaction on a session. Exactly one of Commit or
// Rollback must be called; afterwards the session is back in auto-commit mode.
type DBTx interface {
	Query(ctx context.Context, query string) (DBRows, error)
	Exec(ctx context.Context, query string) (DBResult, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}
