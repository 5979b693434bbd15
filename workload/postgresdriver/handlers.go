package postgresdriver

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/shopbench/shopbench-go/workload"
	"github.com/shopbench/shopbench-go/workload/postgresdriver/internal/adapters"
)

// The eight single-statement handlers run under the session's default
// auto-commit behavior. Each either reports its row count or surfaces the
// store's error; failures are never retried here.

// insertUser adds one user with random age and city assignment.
func (d *Driver) insertUser(ctx context.Context, conn adapters.DBConn, rng *rand.Rand) workload.Report {
	name := fmt.Sprintf("User_%s", uuid.NewString()[:8])

	insertStmt := d.builder().
		Insert(tableUsers).
		Cols(colName, colAge, colCityID).
		Vals(goqu.Vals{name, 18 + rng.Intn(60), 1 + rng.Intn(d.seedSpec.Cities)})

	return d.execStatement(ctx, conn, workload.OpInsertUser, insertStmt.ToSQL)
}

// queryUserOrders reads the order count of one random user.
func (d *Driver) queryUserOrders(ctx context.Context, conn adapters.DBConn, rng *rand.Rand) workload.Report {
	userID := 1 + rng.Intn(d.seedSpec.Users)

	selectStmt := d.builder().
		From(goqu.T(tableUsers).As("u")).
		Select(goqu.I("u.name"), goqu.COUNT(goqu.I("o.order_id")).As("order_count")).
		LeftJoin(goqu.T(tableOrders).As("o"), goqu.On(goqu.I("u.user_id").Eq(goqu.I("o.user_id")))).
		Where(goqu.I("u.user_id").Eq(userID)).
		GroupBy(goqu.I("u.user_id"))

	return d.execQuery(ctx, conn, workload.OpQueryUserOrders, selectStmt.ToSQL)
}

// deleteInactiveUsers removes users above the age threshold that never ordered.
// This is the only destructive operation in the workload.
func (d *Driver) deleteInactiveUsers(ctx context.Context, conn adapters.DBConn) workload.Report {
	deleteStmt := d.builder().
		Delete(tableUsers).
		Where(
			goqu.L("NOT EXISTS (SELECT 1 FROM orders WHERE orders.user_id = users.user_id)"),
			goqu.C(colAge).Gt(inactiveAgeThreshold),
		)

	return d.execStatement(ctx, conn, workload.OpDeleteInactiveUsers, deleteStmt.ToSQL)
}

// updateUserCity moves one random user to a random city.
func (d *Driver) updateUserCity(ctx context.Context, conn adapters.DBConn, rng *rand.Rand) workload.Report {
	updateStmt := d.builder().
		Update(tableUsers).
		Set(goqu.Record{colCityID: 1 + rng.Intn(d.seedSpec.Cities)}).
		Where(goqu.C(colUserID).Eq(1 + rng.Intn(d.seedSpec.Users)))

	return d.execStatement(ctx, conn, workload.OpUpdateUserCity, updateStmt.ToSQL)
}

// complexJoinQuery reads the five best-selling cities with average user age.
func (d *Driver) complexJoinQuery(ctx context.Context, conn adapters.DBConn) workload.Report {
	selectStmt := d.builder().
		From(goqu.T(tableCities).As("c")).
		Select(
			goqu.I("c.city_name"),
			goqu.AVG(goqu.I("u.age")).As("avg_age"),
			goqu.COALESCE(goqu.SUM(goqu.I("o.quantity")), 0).As("total_sales"),
		).
		LeftJoin(goqu.T(tableUsers).As("u"), goqu.On(goqu.I("c.city_id").Eq(goqu.I("u.city_id")))).
		LeftJoin(goqu.T(tableOrders).As("o"), goqu.On(goqu.I("u.user_id").Eq(goqu.I("o.user_id")))).
		GroupBy(goqu.I("c.city_id")).
		Order(goqu.I("total_sales").Desc()).
		Limit(5)

	return d.execQuery(ctx, conn, workload.OpComplexJoinQuery, selectStmt.ToSQL)
}

// paginateUsers reads one page of users with a row-number window function.
func (d *Driver) paginateUsers(ctx context.Context, conn adapters.DBConn, rng *rand.Rand) workload.Report {
	offset := uint(rng.Intn(100)) * usersPageSize

	selectStmt := d.builder().
		From(tableUsers).
		Select(
			goqu.C(colUserID),
			goqu.C(colName),
			goqu.C(colAge),
			goqu.ROW_NUMBER().Over(goqu.W().OrderBy(goqu.C(colUserID).Asc())).As("row_num"),
		).
		Order(goqu.C(colUserID).Asc()).
		Limit(usersPageSize).
		Offset(offset)

	return d.execQuery(ctx, conn, workload.OpPaginateUsers, selectStmt.ToSQL)
}

// updateProductPrice adjusts one random product's price by up to ten percent.
func (d *Driver) updateProductPrice(ctx context.Context, conn adapters.DBConn, rng *rand.Rand) workload.Report {
	factor := 0.9 + rng.Float64()*0.2

	updateStmt := d.builder().
		Update(tableProducts).
		Set(goqu.Record{colPrice: goqu.L("ROUND(price * ?, 2)", factor)}).
		Where(goqu.C(colProductID).Eq(1 + rng.Intn(d.seedSpec.Products)))

	return d.execStatement(ctx, conn, workload.OpUpdateProductPrice, updateStmt.ToSQL)
}

// analyzeCityDemographics reads the cities with above-average user counts via a CTE.
func (d *Driver) analyzeCityDemographics(ctx context.Context, conn adapters.DBConn) workload.Report {
	cityStats := d.builder().
		From(goqu.T(tableCities).As("c")).
		Select(
			goqu.I("c.city_name"),
			goqu.COUNT(goqu.I("u.user_id")).As("user_count"),
			goqu.AVG(goqu.I("u.age")).As("avg_age"),
		).
		LeftJoin(goqu.T(tableUsers).As("u"), goqu.On(goqu.I("c.city_id").Eq(goqu.I("u.city_id")))).
		GroupBy(goqu.I("c.city_id"))

	avgUserCount := d.builder().
		From("city_stats").
		Select(goqu.AVG(goqu.C("user_count")))

	selectStmt := d.builder().
		From("city_stats").
		Select(goqu.Star()).
		With("city_stats", cityStats).
		Where(goqu.C("user_count").Gt(avgUserCount))

	return d.execQuery(ctx, conn, workload.OpAnalyzeCityDemographics, selectStmt.ToSQL)
}

// toSQLFunc is the shared shape of goqu dataset ToSQL methods.
type toSQLFunc func() (string, []any, error)

// execStatement builds and executes one write statement and reports the rows affected.
func (d *Driver) execStatement(
	ctx context.Context,
	conn adapters.DBConn,
	kind workload.OperationKind,
	toSQL toSQLFunc,
) workload.Report {

	sqlQuery, _, toSQLErr := toSQL()
	if toSQLErr != nil {
		return workload.Report{Kind: kind, Err: errors.Join(workload.ErrBuildingQueryFailed, toSQLErr)}
	}

	start := time.Now()
	result, execErr := conn.Exec(ctx, sqlQuery)
	d.logQueryWithDuration(sqlQuery, kind.String(), time.Since(start))

	if execErr != nil {
		d.logErrorCtx(ctx, logMsgOperationErrored,
			logAttrOperation, kind.String(),
			logAttrError, execErr.Error(),
			logAttrQuery, sqlQuery)

		return workload.Report{Kind: kind, Err: execErr}
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		return workload.Report{Kind: kind, Err: rowsAffectedErr}
	}

	return workload.Report{Kind: kind, RowsAffected: rowsAffected}
}

// execQuery builds and executes one read query and reports the rows read.
func (d *Driver) execQuery(
	ctx context.Context,
	conn adapters.DBConn,
	kind workload.OperationKind,
	toSQL toSQLFunc,
) workload.Report {

	sqlQuery, _, toSQLErr := toSQL()
	if toSQLErr != nil {
		return workload.Report{Kind: kind, Err: errors.Join(workload.ErrBuildingQueryFailed, toSQLErr)}
	}

	start := time.Now()
	rows, queryErr := conn.Query(ctx, sqlQuery)
	d.logQueryWithDuration(sqlQuery, kind.String(), time.Since(start))

	if queryErr != nil {
		d.logErrorCtx(ctx, logMsgOperationErrored,
			logAttrOperation, kind.String(),
			logAttrError, queryErr.Error(),
			logAttrQuery, sqlQuery)

		return workload.Report{Kind: kind, Err: queryErr}
	}
	defer d.closeRows(rows)

	var rowsRead int64
	for rows.Next() {
		rowsRead++
	}

	return workload.Report{Kind: kind, RowsAffected: rowsRead}
}
