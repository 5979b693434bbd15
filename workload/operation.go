package workload

import (
	"math/rand"
)

// OperationKind identifies one of the workload operations executed against the store.
type OperationKind int

// The nine workload operations. PlaceOrder is the only multi-statement
// transactional operation; all others run under the session's default
// auto-commit behavior.
const (
	OpInsertUser OperationKind = iota
	OpQueryUserOrders
	OpDeleteInactiveUsers
	OpUpdateUserCity
	OpPlaceOrder
	OpComplexJoinQuery
	OpPaginateUsers
	OpUpdateProductPrice
	OpAnalyzeCityDemographics
)

// NumOperationKinds is the number of distinct operation kinds in the workload.
const NumOperationKinds = 9

var operationKindNames = [NumOperationKinds]string{
	"insert_user",
	"query_user_orders",
	"delete_inactive_users",
	"update_user_city",
	"place_order",
	"complex_join_query",
	"paginate_users",
	"update_product_price",
	"analyze_city_demographics",
}

// String returns the snake_case name of the operation kind.
func (k OperationKind) String() string {
	if k < 0 || int(k) >= NumOperationKinds {
		return "unknown_operation"
	}

	return operationKindNames[k]
}

// Mix is a weighted distribution over the operation kinds.
//
// It is immutable after construction and safe for concurrent use; the
// randomness source is supplied by the caller on every draw so that no
// process-wide random state is shared between workers.
type Mix struct {
	weights [NumOperationKinds]int
	total   int
}

// UniformMix returns a Mix with equal selection probability for all nine
// operation kinds.
func UniformMix() Mix {
	m := Mix{}
	for i := range m.weights {
		m.weights[i] = 1
	}
	m.total = NumOperationKinds

	return m
}

// NewMix builds a Mix from one weight per operation kind.
// Weights must not be negative and at least one must be positive.
func NewMix(weights []int) (Mix, error) {
	if len(weights) != NumOperationKinds {
		return Mix{}, ErrInvalidMixWeights
	}

	m := Mix{}
	for i, w := range weights {
		if w < 0 {
			return Mix{}, ErrInvalidMixWeights
		}
		m.weights[i] = w
		m.total += w
	}

	if m.total == 0 {
		return Mix{}, ErrInvalidMixWeights
	}

	return m, nil
}

// Pick draws one operation kind according to the configured weights,
// using the supplied randomness source.
func (m Mix) Pick(rng *rand.Rand) OperationKind {
	r := rng.Intn(m.total)

	for kind, weight := range m.weights {
		if r < weight {
			return OperationKind(kind)
		}
		r -= weight
	}

	// unreachable as long as total equals the sum of weights
	return OperationKind(NumOperationKinds - 1)
}

// Weights returns a copy of the configured weights.
func (m Mix) Weights() []int {
	weights := make([]int, NumOperationKinds)
	copy(weights, m.weights[:])

	return weights
}
