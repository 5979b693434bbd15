package postgresdriver

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/shopbench/shopbench-go/workload"
	"github.com/shopbench/shopbench-go/workload/postgresdriver/internal/adapters"
)

const (
	// DefaultLockTimeout bounds how long an order placement may wait on a
	// product row lock before the attempt is treated as a failure.
	DefaultLockTimeout = 2 * time.Second

	dialectPostgres = "postgres"

	tableCities   = "cities"
	tableProducts = "products"
	tableUsers    = "users"
	tableOrders   = "orders"

	colCityID      = "city_id"
	colCityName    = "city_name"
	colProductID   = "product_id"
	colProductName = "product_name"
	colPrice       = "price"
	colStock       = "stock"
	colUserID      = "user_id"
	colName        = "name"
	colAge         = "age"
	colOrderID     = "order_id"
	colQuantity    = "quantity"
	colOrderDate   = "order_date"

	seedCityCount    = 100
	seedProductCount = 100
	seedUserCount    = 1000

	maxOrderQuantity     = 5
	inactiveAgeThreshold = 30
	usersPageSize        = 10

	logMsgSQLExecuted       = "executed sql for: "
	logMsgReleaseConnFailed = "failed to release database session"
	logMsgCloseRowsFailed   = "failed to close database rows"
	logMsgOperationErrored  = "operation surfaced a store error"
	logAttrError            = "error"
	logAttrQuery            = "query"
	logAttrOperation        = "operation"
	logAttrDurationMS       = "duration_ms"
)

// Driver executes workload operations against a PostgreSQL database.
// It implements workload.Executor.
type Driver struct {
	db          adapters.DBAdapter
	logger      workload.Logger
	ctxLogger   workload.ContextualLogger
	lockTimeout time.Duration
	seedSpec    SeedSpec
}

// Option defines a functional option for configuring a Driver.
type Option func(*Driver) error

// WithLogger sets the logger for the Driver.
//
// Debug level: SQL statements with execution timing (development use)
// Info level: operation outcomes such as placed orders (production-safe)
// Warn level: non-critical issues like session release failures
// Error level: store-level failures of individual operations.
func WithLogger(logger workload.Logger) Option {
	return func(d *Driver) error {
		d.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger for the Driver, used for
// per-operation messages so log records correlate with traces.
func WithContextualLogger(logger workload.ContextualLogger) Option {
	return func(d *Driver) error {
		d.ctxLogger = logger
		return nil
	}
}

// WithLockTimeout bounds the row-lock wait of order placements.
// A zero duration disables the bound and falls back to the server default.
func WithLockTimeout(timeout time.Duration) Option {
	return func(d *Driver) error {
		if timeout < 0 {
			return workload.ErrInvalidLockTimeout
		}

		d.lockTimeout = timeout
		return nil
	}
}

// WithSeedSpec overrides the base population created by Seed.
func WithSeedSpec(spec SeedSpec) Option {
	return func(d *Driver) error {
		if err := spec.validate(); err != nil {
			return err
		}

		d.seedSpec = spec
		return nil
	}
}

// NewDriverFromPGXPool creates a Driver using a pgx pool with optional configuration.
func NewDriverFromPGXPool(pool *pgxpool.Pool, options ...Option) (*Driver, error) {
	if pool == nil {
		return nil, workload.ErrNilDatabaseConnection
	}

	return newDriver(adapters.NewPGXAdapter(pool), options...)
}

// NewDriverFromSQLDB creates a Driver using a sql.DB with optional configuration.
func NewDriverFromSQLDB(db *sql.DB, options ...Option) (*Driver, error) {
	if db == nil {
		return nil, workload.ErrNilDatabaseConnection
	}

	return newDriver(adapters.NewSQLAdapter(db), options...)
}

// NewDriverFromSQLX creates a Driver using a sqlx.DB with optional configuration.
func NewDriverFromSQLX(db *sqlx.DB, options ...Option) (*Driver, error) {
	if db == nil {
		return nil, workload.ErrNilDatabaseConnection
	}

	return newDriver(adapters.NewSQLXAdapter(db), options...)
}

func newDriver(db adapters.DBAdapter, options ...Option) (*Driver, error) {
	d := &Driver{
		db:          db,
		lockTimeout: DefaultLockTimeout,
		seedSpec:    DefaultSeedSpec(),
	}

	for _, option := range options {
		if err := option(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// ExecuteOperation acquires a dedicated session, dispatches the operation of
// the given kind on it, and releases the session on every exit path.
func (d *Driver) ExecuteOperation(ctx context.Context, kind workload.OperationKind, rng *rand.Rand) workload.Report {
	conn, err := d.db.Acquire(ctx)
	if err != nil {
		return workload.Report{
			Kind: kind,
			Err:  errors.Join(workload.ErrAcquiringConnectionFailed, err),
		}
	}
	defer d.releaseConn(conn)

	return d.dispatch(ctx, conn, kind, rng)
}

// dispatch invokes exactly one handler for the drawn operation kind.
func (d *Driver) dispatch(ctx context.Context, conn adapters.DBConn, kind workload.OperationKind, rng *rand.Rand) workload.Report {
	switch kind {
	case workload.OpInsertUser:
		return d.insertUser(ctx, conn, rng)
	case workload.OpQueryUserOrders:
		return d.queryUserOrders(ctx, conn, rng)
	case workload.OpDeleteInactiveUsers:
		return d.deleteInactiveUsers(ctx, conn)
	case workload.OpUpdateUserCity:
		return d.updateUserCity(ctx, conn, rng)
	case workload.OpPlaceOrder:
		return d.placeOrder(ctx, conn, rng)
	case workload.OpComplexJoinQuery:
		return d.complexJoinQuery(ctx, conn)
	case workload.OpPaginateUsers:
		return d.paginateUsers(ctx, conn, rng)
	case workload.OpUpdateProductPrice:
		return d.updateProductPrice(ctx, conn, rng)
	case workload.OpAnalyzeCityDemographics:
		return d.analyzeCityDemographics(ctx, conn)
	default:
		return workload.Report{Kind: kind, Err: workload.ErrUnknownOperation}
	}
}

// builder returns the goqu dialect builder used for all workload SQL.
func (d *Driver) builder() goqu.DialectWrapper {
	return goqu.Dialect(dialectPostgres)
}

// releaseConn returns the session and logs release failures.
func (d *Driver) releaseConn(conn adapters.DBConn) {
	if releaseErr := conn.Release(); releaseErr != nil {
		d.logWarn(logMsgReleaseConnFailed, logAttrError, releaseErr.Error())
	}
}

// closeRows safely closes database rows and logs any errors.
func (d *Driver) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		d.logWarn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

// logQueryWithDuration logs SQL statements with execution time at debug level.
func (d *Driver) logQueryWithDuration(sqlQuery string, operation string, duration time.Duration) {
	if d.logger != nil {
		d.logger.Debug(logMsgSQLExecuted+operation,
			logAttrDurationMS, durationToMilliseconds(duration),
			logAttrQuery, sqlQuery)
	}
}

func (d *Driver) logInfoCtx(ctx context.Context, msg string, args ...any) {
	if d.ctxLogger != nil {
		d.ctxLogger.InfoContext(ctx, msg, args...)
		return
	}

	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}

func (d *Driver) logErrorCtx(ctx context.Context, msg string, args ...any) {
	if d.ctxLogger != nil {
		d.ctxLogger.ErrorContext(ctx, msg, args...)
		return
	}

	if d.logger != nil {
		d.logger.Error(msg, args...)
	}
}

func (d *Driver) logWarn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	ms := float64(d.Nanoseconds()) / 1e6
	return float64(int64(ms*1000)) / 1000
}
