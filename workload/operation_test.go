package workload_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopbench/shopbench-go/workload"
)

func Test_OperationKind_String(t *testing.T) {
	assert.Equal(t, "insert_user", workload.OpInsertUser.String())
	assert.Equal(t, "place_order", workload.OpPlaceOrder.String())
	assert.Equal(t, "analyze_city_demographics", workload.OpAnalyzeCityDemographics.String())
	assert.Equal(t, "unknown_operation", workload.OperationKind(99).String())
}

func Test_NewMix_RejectsInvalidWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights []int
	}{
		{name: "too_few_weights", weights: []int{1, 1, 1}},
		{name: "negative_weight", weights: []int{1, 1, 1, 1, -1, 1, 1, 1, 1}},
		{name: "all_zero_weights", weights: []int{0, 0, 0, 0, 0, 0, 0, 0, 0}},
		{name: "nil_weights", weights: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := workload.NewMix(tt.weights)
			assert.ErrorIs(t, err, workload.ErrInvalidMixWeights)
		})
	}
}

func Test_Mix_PickHonorsConcentratedWeight(t *testing.T) {
	weights := make([]int, workload.NumOperationKinds)
	weights[int(workload.OpPlaceOrder)] = 7

	mix, err := workload.NewMix(weights)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		assert.Equal(t, workload.OpPlaceOrder, mix.Pick(rng))
	}
}

func Test_UniformMix_PickCoversAllKinds(t *testing.T) {
	mix := workload.UniformMix()
	rng := rand.New(rand.NewSource(42))

	counts := make(map[workload.OperationKind]int)
	const draws = 9000

	for i := 0; i < draws; i++ {
		counts[mix.Pick(rng)]++
	}

	require.Len(t, counts, workload.NumOperationKinds)

	// every kind should land reasonably close to draws / 9
	for kind, count := range counts {
		assert.Greater(t, count, draws/18, "kind %s drawn too rarely", kind)
		assert.Less(t, count, draws/4, "kind %s drawn too often", kind)
	}
}

func Test_Mix_WeightsReturnsCopy(t *testing.T) {
	mix := workload.UniformMix()

	weights := mix.Weights()
	weights[0] = 1000

	assert.Equal(t, 1, mix.Weights()[0])
}
