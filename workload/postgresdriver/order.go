package postgresdriver

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/shopbench/shopbench-go/workload"
	"github.com/shopbench/shopbench-go/workload/postgresdriver/internal/adapters"
)

const (
	logMsgOrderPlaced        = "order placed"
	logMsgInsufficientStock  = "insufficient stock"
	logMsgOrderRolledBack    = "order transaction rolled back"
	logMsgRollbackFailed     = "failed to roll back order transaction"
	logAttrProductID         = "product_id"
	logAttrUserID            = "user_id"
	logAttrQuantity          = "quantity"
	logAttrStock             = "stock"
	logActionLockStock       = "lock product stock"
	logActionDecrementStock  = "decrement product stock"
	logActionInsertOrder     = "insert order"
	logActionSetLockTimeout  = "set lock timeout"
)

// placeOrder attempts to order a random quantity of a random product for a
// random user inside one explicit transaction.
//
// The product row is read under SELECT ... FOR UPDATE, which serializes
// concurrent placements against the same product while leaving unrelated
// products uncontended. If the locked stock covers the quantity, the stock is
// decremented and the order inserted atomically; otherwise the transaction is
// rolled back and the attempt reported as insufficient stock. Any store error
// also rolls back; nothing is retried.
func (d *Driver) placeOrder(ctx context.Context, conn adapters.DBConn, rng *rand.Rand) workload.Report {
	productID := 1 + rng.Intn(d.seedSpec.Products)
	userID := 1 + rng.Intn(d.seedSpec.Users)
	quantity := 1 + rng.Intn(maxOrderQuantity)

	outcome := d.runOrderTransaction(ctx, conn, productID, userID, quantity)

	report := workload.Report{Kind: workload.OpPlaceOrder, Order: &outcome}
	if outcome.Status == workload.OrderCommitted {
		report.RowsAffected = 1
	}

	return report
}

// runOrderTransaction drives the order placement state machine to one of its
// terminal states. The transaction ends on every path, so the session is back
// in auto-commit mode when it returns.
func (d *Driver) runOrderTransaction(
	ctx context.Context,
	conn adapters.DBConn,
	productID int,
	userID int,
	quantity int,
) workload.OrderOutcome {

	tx, beginErr := conn.Begin(ctx)
	if beginErr != nil {
		return workload.OrderOutcome{
			Status:    workload.OrderFailed,
			ProductID: productID,
			UserID:    userID,
			Quantity:  quantity,
			Err:       errors.Join(workload.ErrPlacingOrderFailed, beginErr),
		}
	}

	// Bound the row-lock wait for this transaction only. A lock timeout
	// surfaces as a store error and therefore as a rollback, distinct from
	// the insufficient-stock outcome.
	if d.lockTimeout > 0 {
		setStmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", d.lockTimeout.Milliseconds())

		start := time.Now()
		_, setErr := tx.Exec(ctx, setStmt)
		d.logQueryWithDuration(setStmt, logActionSetLockTimeout, time.Since(start))

		if setErr != nil {
			return d.rollbackOrder(ctx, tx, productID, userID, quantity, setErr)
		}
	}

	stock, found, lockErr := d.lockProductStock(ctx, tx, productID)
	if lockErr != nil {
		return d.rollbackOrder(ctx, tx, productID, userID, quantity, lockErr)
	}

	if !found {
		return d.rollbackOrder(ctx, tx, productID, userID, quantity, workload.ErrProductNotFound)
	}

	if stock < quantity {
		return d.rejectOrder(ctx, tx, productID, userID, quantity, stock)
	}

	if decrementErr := d.decrementStock(ctx, tx, productID, quantity); decrementErr != nil {
		return d.rollbackOrder(ctx, tx, productID, userID, quantity, decrementErr)
	}

	if insertErr := d.insertOrder(ctx, tx, productID, userID, quantity); insertErr != nil {
		return d.rollbackOrder(ctx, tx, productID, userID, quantity, insertErr)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		// a failed commit has already ended the transaction
		return workload.OrderOutcome{
			Status:    workload.OrderFailed,
			ProductID: productID,
			UserID:    userID,
			Quantity:  quantity,
			Err:       errors.Join(workload.ErrPlacingOrderFailed, commitErr),
		}
	}

	d.logInfoCtx(ctx, logMsgOrderPlaced,
		logAttrProductID, productID,
		logAttrUserID, userID,
		logAttrQuantity, quantity)

	return workload.OrderOutcome{
		Status:    workload.OrderCommitted,
		ProductID: productID,
		UserID:    userID,
		Quantity:  quantity,
		Stock:     stock - quantity,
	}
}

// lockProductStock reads the product's stock under a row-level exclusive lock.
func (d *Driver) lockProductStock(ctx context.Context, tx adapters.DBTx, productID int) (int, bool, error) {
	selectStmt := d.builder().
		From(tableProducts).
		Select(goqu.C(colStock)).
		Where(goqu.C(colProductID).Eq(productID)).
		ForUpdate(exp.Wait)

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return 0, false, errors.Join(workload.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	rows, queryErr := tx.Query(ctx, sqlQuery)
	d.logQueryWithDuration(sqlQuery, logActionLockStock, time.Since(start))

	if queryErr != nil {
		return 0, false, queryErr
	}
	defer d.closeRows(rows)

	if !rows.Next() {
		return 0, false, nil
	}

	var stock int
	if scanErr := rows.Scan(&stock); scanErr != nil {
		return 0, false, scanErr
	}

	return stock, true, nil
}

// decrementStock subtracts the ordered quantity from the locked product row.
func (d *Driver) decrementStock(ctx context.Context, tx adapters.DBTx, productID int, quantity int) error {
	updateStmt := d.builder().
		Update(tableProducts).
		Set(goqu.Record{colStock: goqu.L("stock - ?", quantity)}).
		Where(goqu.C(colProductID).Eq(productID))

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		return errors.Join(workload.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	_, execErr := tx.Exec(ctx, sqlQuery)
	d.logQueryWithDuration(sqlQuery, logActionDecrementStock, time.Since(start))

	return execErr
}

// insertOrder creates the order row dated today.
func (d *Driver) insertOrder(ctx context.Context, tx adapters.DBTx, productID int, userID int, quantity int) error {
	insertStmt := d.builder().
		Insert(tableOrders).
		Cols(colUserID, colProductID, colQuantity, colOrderDate).
		Vals(goqu.Vals{userID, productID, quantity, goqu.L("CURRENT_DATE")})

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return errors.Join(workload.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	_, execErr := tx.Exec(ctx, sqlQuery)
	d.logQueryWithDuration(sqlQuery, logActionInsertOrder, time.Since(start))

	return execErr
}

// rejectOrder rolls the transaction back because the stock does not cover the
// requested quantity. This is an expected outcome of contention, not an error.
func (d *Driver) rejectOrder(
	ctx context.Context,
	tx adapters.DBTx,
	productID int,
	userID int,
	quantity int,
	stock int,
) workload.OrderOutcome {

	d.rollback(ctx, tx)

	d.logInfoCtx(ctx, logMsgInsufficientStock,
		logAttrProductID, productID,
		logAttrQuantity, quantity,
		logAttrStock, stock)

	return workload.OrderOutcome{
		Status:    workload.OrderInsufficientStock,
		ProductID: productID,
		UserID:    userID,
		Quantity:  quantity,
		Stock:     stock,
	}
}

// rollbackOrder rolls the transaction back after a store-level error.
func (d *Driver) rollbackOrder(
	ctx context.Context,
	tx adapters.DBTx,
	productID int,
	userID int,
	quantity int,
	cause error,
) workload.OrderOutcome {

	d.rollback(ctx, tx)

	d.logErrorCtx(ctx, logMsgOrderRolledBack,
		logAttrProductID, productID,
		logAttrError, cause.Error())

	return workload.OrderOutcome{
		Status:    workload.OrderFailed,
		ProductID: productID,
		UserID:    userID,
		Quantity:  quantity,
		Err:       errors.Join(workload.ErrPlacingOrderFailed, cause),
	}
}

// rollback ends the transaction and logs rollback failures.
func (d *Driver) rollback(ctx context.Context, tx adapters.DBTx) {
	if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
		d.logWarn(logMsgRollbackFailed, logAttrError, rollbackErr.Error())
	}
}
