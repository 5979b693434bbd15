package postgresdriver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/shopbench/shopbench-go/workload"
	"github.com/shopbench/shopbench-go/workload/postgresdriver/internal/adapters"
)

const logActionSeed = "seed"

// SeedSpec describes the base population created by Seed.
type SeedSpec struct {
	Cities    int
	Products  int
	Users     int
	BatchSize int
}

// DefaultSeedSpec returns the standard base population:
// 100 cities, 100 products, 1000 users, inserted in batches of 500.
func DefaultSeedSpec() SeedSpec {
	return SeedSpec{
		Cities:    seedCityCount,
		Products:  seedProductCount,
		Users:     seedUserCount,
		BatchSize: 500,
	}
}

func (s SeedSpec) validate() error {
	if s.Cities <= 0 || s.Products <= 0 || s.Users <= 0 || s.BatchSize <= 0 {
		return workload.ErrInvalidSeedSpec
	}

	return nil
}

// Seed populates the reference data (cities, products) and the base user
// population. It must complete before the harness submits operations.
//
// Cities and products carry unique names and tolerate re-runs via
// ON CONFLICT DO NOTHING; user inserts are not deduplicated and append new
// rows on every run, which is accepted since users grow over time anyway.
func (d *Driver) Seed(ctx context.Context, rng *rand.Rand) error {
	conn, err := d.db.Acquire(ctx)
	if err != nil {
		return errors.Join(workload.ErrSeedingFailed, err)
	}
	defer d.releaseConn(conn)

	if seedErr := d.seedCities(ctx, conn); seedErr != nil {
		return errors.Join(workload.ErrSeedingFailed, seedErr)
	}

	if seedErr := d.seedProducts(ctx, conn, rng); seedErr != nil {
		return errors.Join(workload.ErrSeedingFailed, seedErr)
	}

	if seedErr := d.seedUsers(ctx, conn, rng); seedErr != nil {
		return errors.Join(workload.ErrSeedingFailed, seedErr)
	}

	return nil
}

func (d *Driver) seedCities(ctx context.Context, conn adapters.DBConn) error {
	rows := make([][]any, 0, d.seedSpec.Cities)
	for i := 0; i < d.seedSpec.Cities; i++ {
		rows = append(rows, []any{fmt.Sprintf("City%d", i)})
	}

	return d.execSeedBatches(ctx, conn, tableCities, []any{colCityName}, rows, true)
}

func (d *Driver) seedProducts(ctx context.Context, conn adapters.DBConn, rng *rand.Rand) error {
	rows := make([][]any, 0, d.seedSpec.Products)
	for i := 0; i < d.seedSpec.Products; i++ {
		price := math.Round((10+rng.Float64()*100)*100) / 100 // uniform in [10, 110), two decimals
		rows = append(rows, []any{fmt.Sprintf("Product%d", i), price})
	}

	return d.execSeedBatches(ctx, conn, tableProducts, []any{colProductName, colPrice}, rows, true)
}

func (d *Driver) seedUsers(ctx context.Context, conn adapters.DBConn, rng *rand.Rand) error {
	rows := make([][]any, 0, d.seedSpec.Users)
	for i := 0; i < d.seedSpec.Users; i++ {
		age := 18 + rng.Intn(60)
		cityID := 1 + rng.Intn(d.seedSpec.Cities)
		rows = append(rows, []any{fmt.Sprintf("User%d", i), age, cityID})
	}

	return d.execSeedBatches(ctx, conn, tableUsers, []any{colName, colAge, colCityID}, rows, false)
}

// execSeedBatches inserts the rows in batches of at most SeedSpec.BatchSize
// to bound statement size.
func (d *Driver) execSeedBatches(
	ctx context.Context,
	conn adapters.DBConn,
	table string,
	cols []any,
	rows [][]any,
	ignoreConflicts bool,
) error {

	for start := 0; start < len(rows); start += d.seedSpec.BatchSize {
		end := start + d.seedSpec.BatchSize
		if end > len(rows) {
			end = len(rows)
		}

		vals := make([][]any, 0, end-start)
		for _, row := range rows[start:end] {
			vals = append(vals, row)
		}

		insertStmt := d.builder().
			Insert(table).
			Cols(cols...).
			Vals(vals...)

		if ignoreConflicts {
			insertStmt = insertStmt.OnConflict(goqu.DoNothing())
		}

		sqlQuery, _, toSQLErr := insertStmt.ToSQL()
		if toSQLErr != nil {
			return errors.Join(workload.ErrBuildingQueryFailed, toSQLErr)
		}

		execStart := time.Now()
		_, execErr := conn.Exec(ctx, sqlQuery)
		d.logQueryWithDuration(sqlQuery, logActionSeed, time.Since(execStart))

		if execErr != nil {
			return execErr
		}
	}

	return nil
}
