package postgresdriver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopbench/shopbench-go/workload"
)

func Test_PlaceOrder_CommitsWhenStockCoversTheQuantity(t *testing.T) {
	tx := &fakeTx{rowValues: [][]any{{100}}}
	conn := &fakeConn{tx: tx}
	driver := newTestDriver(t, conn)

	report := driver.ExecuteOperation(context.Background(), workload.OpPlaceOrder, testRNG())

	require.NotNil(t, report.Order)
	assert.Equal(t, workload.OrderCommitted, report.Order.Status)
	assert.Equal(t, int64(1), report.RowsAffected)
	assert.False(t, report.Failed())

	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
	assert.True(t, conn.released)

	// lock, decrement and insert all ran inside the transaction
	require.Len(t, tx.queries, 1)
	assert.Contains(t, tx.queries[0], "FOR UPDATE")
	assert.Equal(t, 1, countContaining(tx.execs, `UPDATE "products"`))
	assert.Equal(t, 1, countContaining(tx.execs, `INSERT INTO "orders"`))
	assert.Equal(t, 1, countContaining(tx.execs, "CURRENT_DATE"))

	assert.GreaterOrEqual(t, report.Order.Quantity, 1)
	assert.LessOrEqual(t, report.Order.Quantity, 5)
	assert.Equal(t, 100-report.Order.Quantity, report.Order.Stock)
}

func Test_PlaceOrder_BoundsTheLockWaitPerTransaction(t *testing.T) {
	tx := &fakeTx{rowValues: [][]any{{100}}}
	conn := &fakeConn{tx: tx}
	driver := newTestDriver(t, conn, WithLockTimeout(1500*time.Millisecond))

	report := driver.ExecuteOperation(context.Background(), workload.OpPlaceOrder, testRNG())

	require.NotNil(t, report.Order)
	require.NotEmpty(t, tx.execs)
	assert.Equal(t, "SET LOCAL lock_timeout = '1500ms'", tx.execs[0])
}

func Test_PlaceOrder_SkipsTheLockTimeoutWhenDisabled(t *testing.T) {
	tx := &fakeTx{rowValues: [][]any{{100}}}
	conn := &fakeConn{tx: tx}
	driver := newTestDriver(t, conn, WithLockTimeout(0))

	report := driver.ExecuteOperation(context.Background(), workload.OpPlaceOrder, testRNG())

	require.NotNil(t, report.Order)
	assert.Equal(t, 0, countContaining(tx.execs, "SET LOCAL"))
}

func Test_PlaceOrder_RollsBackWhenStockIsInsufficient(t *testing.T) {
	tx := &fakeTx{rowValues: [][]any{{0}}}
	conn := &fakeConn{tx: tx}
	driver := newTestDriver(t, conn)

	report := driver.ExecuteOperation(context.Background(), workload.OpPlaceOrder, testRNG())

	require.NotNil(t, report.Order)
	assert.Equal(t, workload.OrderInsufficientStock, report.Order.Status)
	assert.Equal(t, 0, report.Order.Stock)
	assert.NoError(t, report.Order.Err)

	// an expected business outcome, not a failure
	assert.False(t, report.Failed())
	assert.Equal(t, int64(0), report.RowsAffected)

	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
	assert.Equal(t, 0, countContaining(tx.execs, `UPDATE "products"`))
	assert.Equal(t, 0, countContaining(tx.execs, `INSERT INTO "orders"`))
	assert.True(t, conn.released)
}

func Test_PlaceOrder_FailsWhenTheTransactionCannotStart(t *testing.T) {
	conn := &fakeConn{beginErr: errors.New("too many clients")}
	driver := newTestDriver(t, conn)

	report := driver.ExecuteOperation(context.Background(), workload.OpPlaceOrder, testRNG())

	require.NotNil(t, report.Order)
	assert.Equal(t, workload.OrderFailed, report.Order.Status)
	assert.ErrorIs(t, report.Order.Err, workload.ErrPlacingOrderFailed)
	assert.True(t, report.Failed())
	assert.True(t, conn.released)
}

func Test_PlaceOrder_RollsBackWhenTheLockQueryErrors(t *testing.T) {
	tx := &fakeTx{queryErr: errors.New("canceling statement due to lock timeout")}
	conn := &fakeConn{tx: tx}
	driver := newTestDriver(t, conn)

	report := driver.ExecuteOperation(context.Background(), workload.OpPlaceOrder, testRNG())

	require.NotNil(t, report.Order)
	assert.Equal(t, workload.OrderFailed, report.Order.Status)
	assert.ErrorIs(t, report.Order.Err, workload.ErrPlacingOrderFailed)
	assert.ErrorContains(t, report.Order.Err, "lock timeout")
	assert.True(t, report.Failed())
	assert.True(t, tx.rolledBack)
}

func Test_PlaceOrder_RollsBackWhenTheProductIsMissing(t *testing.T) {
	tx := &fakeTx{rowValues: nil}
	conn := &fakeConn{tx: tx}
	driver := newTestDriver(t, conn)

	report := driver.ExecuteOperation(context.Background(), workload.OpPlaceOrder, testRNG())

	require.NotNil(t, report.Order)
	assert.Equal(t, workload.OrderFailed, report.Order.Status)
	assert.ErrorIs(t, report.Order.Err, workload.ErrProductNotFound)
	assert.True(t, tx.rolledBack)
}

func Test_PlaceOrder_FailsWithoutRollbackWhenCommitErrors(t *testing.T) {
	tx := &fakeTx{rowValues: [][]any{{100}}, commitErr: errors.New("connection reset")}
	conn := &fakeConn{tx: tx}
	driver := newTestDriver(t, conn)

	report := driver.ExecuteOperation(context.Background(), workload.OpPlaceOrder, testRNG())

	require.NotNil(t, report.Order)
	assert.Equal(t, workload.OrderFailed, report.Order.Status)
	assert.ErrorIs(t, report.Order.Err, workload.ErrPlacingOrderFailed)

	// a failed commit has already ended the transaction
	assert.False(t, tx.rolledBack)
	assert.True(t, conn.released)
}

func Test_RunOrderTransaction_ReportsTheRemainingStockAfterCommit(t *testing.T) {
	tx := &fakeTx{rowValues: [][]any{{7}}}
	conn := &fakeConn{tx: tx}
	driver := newTestDriver(t, conn)

	outcome := driver.runOrderTransaction(context.Background(), conn, 3, 12, 5)

	assert.Equal(t, workload.OrderCommitted, outcome.Status)
	assert.Equal(t, 3, outcome.ProductID)
	assert.Equal(t, 12, outcome.UserID)
	assert.Equal(t, 5, outcome.Quantity)
	assert.Equal(t, 2, outcome.Stock)
}

func Test_RunOrderTransaction_RejectsAtTheExactBoundary(t *testing.T) {
	tx := &fakeTx{rowValues: [][]any{{4}}}
	conn := &fakeConn{tx: tx}
	driver := newTestDriver(t, conn)

	outcome := driver.runOrderTransaction(context.Background(), conn, 3, 12, 5)

	assert.Equal(t, workload.OrderInsufficientStock, outcome.Status)
	assert.Equal(t, 4, outcome.Stock)
	assert.True(t, tx.rolledBack)
}

func Test_RunOrderTransaction_AcceptsAnOrderConsumingAllStock(t *testing.T) {
	tx := &fakeTx{rowValues: [][]any{{5}}}
	conn := &fakeConn{tx: tx}
	driver := newTestDriver(t, conn)

	outcome := driver.runOrderTransaction(context.Background(), conn, 3, 12, 5)

	assert.Equal(t, workload.OrderCommitted, outcome.Status)
	assert.Equal(t, 0, outcome.Stock)
	assert.True(t, tx.committed)
}
