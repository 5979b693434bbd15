// Package postgresdriver executes the e-commerce workload against PostgreSQL.
//
// The Driver owns schema creation, base data seeding and the nine operation
// handlers, dispatching each operation on its own database session obtained
// from one of the supported adapters (pgx, sql.DB, sqlx).
//
// Order placement is the only multi-statement transaction: it locks the
// product row with SELECT ... FOR UPDATE, checks the stock, and either
// decrements stock and inserts the order atomically, or rolls back. The lock
// wait is bounded with a transaction-scoped lock_timeout so that a blocked
// worker slot surfaces as a failed operation instead of hanging.
//
// Usage:
//
//	pool, _ := pgxpool.NewWithConfig(ctx, cfg)
//	driver, _ := postgresdriver.NewDriverFromPGXPool(pool,
//		postgresdriver.WithLogger(logger),
//		postgresdriver.WithLockTimeout(2*time.Second),
//	)
//	if err := driver.EnsureSchema(ctx); err != nil { ... }
//	if err := driver.Seed(ctx, rng); err != nil { ... }
package postgresdriver
