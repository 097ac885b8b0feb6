package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToLamports(t *testing.T) {
	tests := []struct {
		sol  float64
		want uint64
	}{
		{sol: 1, want: 1_000_000_000},
		{sol: 1.5, want: 1_500_000_000},
		{sol: 0.25, want: 250_000_000},
		{sol: 0, want: 0},
		{sol: -0.5, want: 0},
		{sol: 1e-10, want: 0}, // sub-lamport amounts truncate
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToLamports(tt.sol), "ToLamports(%v)", tt.sol)
	}
}

func TestUniformSampler_Range(t *testing.T) {
	s := UniformSampler{Min: DefaultMinAmount, Max: DefaultMaxAmount}

	for i := 0; i < 10000; i++ {
		v := s.Sample()
		if v < DefaultMinAmount || v >= DefaultMaxAmount {
			t.Fatalf("sample %d out of range: %v", i, v)
		}
	}
}

func TestUniformSampler_Bounds(t *testing.T) {
	low := UniformSampler{Min: 1, Max: 2, Float64: func() float64 { return 0 }}
	assert.Equal(t, 1.0, low.Sample())

	high := UniformSampler{Min: 1, Max: 2, Float64: func() float64 { return 0.9999999999999999 }}
	v := high.Sample()
	assert.Less(t, v, 2.0)
	assert.GreaterOrEqual(t, v, 1.0)

	mid := UniformSampler{Min: 1, Max: 2, Float64: func() float64 { return 0.5 }}
	assert.Equal(t, 1.5, mid.Sample())
}
