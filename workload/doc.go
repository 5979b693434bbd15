// Package workload provides the core abstractions for a concurrent
// transactional workload against a relational e-commerce schema
// (cities, products, users, orders).
//
// This package defines the operation kinds, the weighted operation mix,
// the tagged order-placement outcome, per-operation reports with their
// aggregate summary, and the bounded worker-pool runner that drives an
// Executor implementation.
//
// Key types:
//   - OperationKind: one of the nine workload operations
//   - Mix: weighted random selection over operation kinds
//   - OrderOutcome: terminal state of an order placement (committed,
//     insufficient stock, or failed)
//   - Runner: fixed-size worker pool that submits operations and blocks
//     until all of them have completed
//
// Common usage pattern:
//
//	driver, _ := postgresdriver.NewDriverFromPGXPool(pool)
//	runner, _ := workload.NewRunner(driver, workload.RunnerConfig{
//		Workers:    20,
//		Operations: 5000,
//		Mix:        workload.UniformMix(),
//		Seed:       time.Now().UnixNano(),
//	})
//	summary, err := runner.Run(ctx)
package workload
