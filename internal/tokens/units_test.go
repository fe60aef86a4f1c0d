package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		decimals int
		want     uint64
	}{
		{"one SOL", 1, 9, 1_000_000_000},
		{"one USDC", 1, 6, 1_000_000},
		{"fraction", 0.5, 6, 500_000},
		{"dust truncated", 0.0000001, 6, 0},
		{"zero decimals", 42, 0, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToUnits(tt.amount, tt.decimals)
			require.NoError(t, err)
			if got != tt.want {
				t.Errorf("ToUnits(%v, %d) = %d, want %d", tt.amount, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestToUnits_Invalid(t *testing.T) {
	_, err := ToUnits(1, -1)
	assert.Error(t, err)

	_, err = ToUnits(-1, 6)
	assert.Error(t, err)

	_, err = ToUnits(1e30, 9)
	assert.Error(t, err)
}

func TestFromUnits(t *testing.T) {
	assert.Equal(t, 1.0, FromUnits(1_000_000_000, 9))
	assert.Equal(t, 2.5, FromUnits(2_500_000, 6))
	assert.Equal(t, 7.0, FromUnits(7, 0))

	v, err := FromUnitsString("123450000", 6)
	require.NoError(t, err)
	assert.Equal(t, 123.45, v)

	_, err = FromUnitsString("x", 6)
	assert.Error(t, err)
}
