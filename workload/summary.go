package workload

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Summary aggregates the outcomes of a complete workload run.
//
// OrderedQuantity only counts quantities of committed orders, so together
// with the initial and final product stocks it allows checking the stock
// conservation law after a run.
type Summary struct {
	Operations        int64            `json:"operations"`
	Failures          int64            `json:"failures"`
	OrdersCommitted   int64            `json:"orders_committed"`
	OrderedQuantity   int64            `json:"ordered_quantity"`
	InsufficientStock int64            `json:"insufficient_stock"`
	PerOperation      map[string]int64 `json:"per_operation"`
	Duration          time.Duration    `json:"duration_ns"`
}

// newSummary creates an empty Summary with all per-operation counters present.
func newSummary() Summary {
	perOperation := make(map[string]int64, NumOperationKinds)
	for kind := range NumOperationKinds {
		perOperation[OperationKind(kind).String()] = 0
	}

	return Summary{PerOperation: perOperation}
}

// record folds one operation report into the summary.
// Not safe for concurrent use; the Runner serializes calls.
func (s *Summary) record(report Report) {
	s.Operations++
	s.PerOperation[report.Kind.String()]++

	if report.Failed() {
		s.Failures++
	}

	if report.Order == nil {
		return
	}

	switch report.Order.Status {
	case OrderCommitted:
		s.OrdersCommitted++
		s.OrderedQuantity += int64(report.Order.Quantity)
	case OrderInsufficientStock:
		s.InsufficientStock++
	case OrderFailed:
		// already counted as a failure above
	}
}

// JSON encodes the summary for the final run report.
func (s Summary) JSON() ([]byte, error) {
	return jsoniter.ConfigFastest.Marshal(s)
}
