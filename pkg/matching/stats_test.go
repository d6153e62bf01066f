package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeTradeStatsEmpty(t *testing.T) {
	s := ComputeTradeStats(nil)
	assert.Equal(t, 0, s.Count)
}

func TestComputeTradeStatsVWAP(t *testing.T) {
	trades := []Trade{
		{Price: 100, Quantity: 10},
		{Price: 110, Quantity: 10},
	}
	s := ComputeTradeStats(trades)
	assert.Equal(t, 2, s.Count)
	assert.InDelta(t, 105.0, s.VWAP, 1e-9)
}
