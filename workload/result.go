package workload

// OrderStatus is the terminal state of an order placement transaction.
type OrderStatus int

const (
	// OrderCommitted means the stock check passed, the stock was decremented,
	// the order row was inserted and the transaction committed.
	OrderCommitted OrderStatus = iota + 1

	// OrderInsufficientStock means the locked product row did not hold enough
	// stock and the transaction was rolled back. This is an expected business
	// outcome of contention, not an error.
	OrderInsufficientStock

	// OrderFailed means a store-level error occurred and the transaction was
	// rolled back. The operation is not retried.
	OrderFailed
)

// String returns the terminal state name of the order status.
func (s OrderStatus) String() string {
	switch s {
	case OrderCommitted:
		return "committed"
	case OrderInsufficientStock:
		return "insufficient_stock"
	case OrderFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// OrderOutcome is the tagged result of one order placement attempt.
//
// Exactly one of the three variants applies, indicated by Status:
//   - OrderCommitted: Quantity items of ProductID were ordered by UserID
//   - OrderInsufficientStock: Stock holds the locked stock value that was too low
//   - OrderFailed: Err holds the store-level cause
type OrderOutcome struct {
	Status    OrderStatus
	ProductID int
	UserID    int
	Quantity  int
	Stock     int
	Err       error
}

// Report is the outcome of a single dispatched operation.
type Report struct {
	Kind         OperationKind
	RowsAffected int64
	Order        *OrderOutcome // only set for OpPlaceOrder
	Err          error
}

// Failed reports whether the operation surfaced a store-level error.
// An insufficient-stock order placement is not a failure.
func (r Report) Failed() bool {
	if r.Err != nil {
		return true
	}

	return r.Order != nil && r.Order.Status == OrderFailed
}
