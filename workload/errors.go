package workload

import (
	"errors"
)

var ErrNilDatabaseConnection = errors.New("database connection must not be nil")
var ErrNilExecutor = errors.New("executor must not be nil")
var ErrInvalidMixWeights = errors.New("mix weights must cover all operation kinds and sum to a positive value")
var ErrInvalidWorkerCount = errors.New("worker count must be positive")
var ErrInvalidOperationCount = errors.New("operation count must be positive")
var ErrUnknownOperation = errors.New("unknown operation kind")
var ErrInvalidLockTimeout = errors.New("lock timeout must not be negative")
var ErrInvalidSeedSpec = errors.New("seed spec counts and batch size must be positive")
var ErrAcquiringConnectionFailed = errors.New("acquiring a database session failed")
var ErrBuildingQueryFailed = errors.New("building the sql query failed")
var ErrSchemaCreationFailed = errors.New("creating the schema failed")
var ErrSeedingFailed = errors.New("seeding base data failed")
var ErrProductNotFound = errors.New("product does not exist")
var ErrPlacingOrderFailed = errors.New("placing the order failed")
