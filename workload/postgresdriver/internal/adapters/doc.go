// Package adapters provides database abstractions for the workload driver.
//
// The adapters hand out one exclusive session per workload operation and
// expose explicit transactions on top of it, so that the driver never shares
// transaction state between concurrent operations. Implementations exist for
// pgxpool.Pool, database/sql and sqlx.
package adapters
