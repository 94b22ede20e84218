package auction

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swap-backend/internal/models"
)

func TestCurrentAmountEndpoints(t *testing.T) {
	a := Params{StartTime: 1_000, Duration: 120}

	amount, err := CurrentAmount(a, "100000000", "99000000", 1_000)
	require.NoError(t, err)
	assert.Equal(t, "100000000", amount, "amount at elapsed=0 must equal makingAmount")

	amount, err = CurrentAmount(a, "100000000", "99000000", 1_000+120)
	require.NoError(t, err)
	assert.Equal(t, "99000000", amount, "amount at elapsed=duration must equal takingAmount")

	amount, err = CurrentAmount(a, "100000000", "99000000", 1_000+3600)
	require.NoError(t, err)
	assert.Equal(t, "99000000", amount, "amount past the window stays at the floor")

	// Clock before the auction start behaves like elapsed=0.
	amount, err = CurrentAmount(a, "100000000", "99000000", 500)
	require.NoError(t, err)
	assert.Equal(t, "100000000", amount)
}

func TestCurrentAmountMidpoint(t *testing.T) {
	// Scenario: making=100_000000, taking=99_000000, duration=120s.
	// At elapsed=60s the price is exactly halfway: 99_500000.
	a := Params{StartTime: 0, Duration: 120}
	amount, err := CurrentAmount(a, "100000000", "99000000", 60)
	require.NoError(t, err)
	assert.Equal(t, "99500000", amount)
}

func TestCurrentAmountMonotonic(t *testing.T) {
	a := Params{StartTime: 0, Duration: 300}
	prev := new(big.Int)
	prev.SetString("500000000000000000000", 10) // above making, sentinel

	for now := int64(0); now <= 330; now += 7 {
		amount, err := CurrentAmount(a, "250000000000000000000", "240000000000000000000", now)
		require.NoError(t, err)
		cur, ok := new(big.Int).SetString(amount, 10)
		require.True(t, ok)
		assert.True(t, cur.Cmp(prev) <= 0, "amount must be non-increasing, got %s after %s", cur, prev)
		prev = cur
	}
}

func TestCurrentAmountRejectsBadInput(t *testing.T) {
	a := Params{StartTime: 0, Duration: 60}

	_, err := CurrentAmount(a, "not-a-number", "1", 10)
	assert.Error(t, err)

	_, err = CurrentAmount(a, "100", "abc", 10)
	assert.Error(t, err)

	_, err = CurrentAmount(Params{StartTime: 0, Duration: 0}, "100", "90", 10)
	assert.Error(t, err)
}

func TestIsOrderValid(t *testing.T) {
	order := &models.Order{
		Status:           models.OrderStatusPendingAuction,
		AuctionStartTime: 1_000,
		AuctionDuration:  120,
	}

	assert.True(t, IsOrderValid(order, 1_000))
	assert.True(t, IsOrderValid(order, 1_120))
	assert.False(t, IsOrderValid(order, 1_121), "order past its window is not assignable")

	assigned := &models.Order{
		Status:           models.OrderStatusAssigned,
		AuctionStartTime: 1_000,
		AuctionDuration:  120,
	}
	assert.False(t, IsOrderValid(assigned, 1_010), "non-pending order is not assignable")
}

func TestIsExpired(t *testing.T) {
	order := &models.Order{AuctionStartTime: 100, AuctionDuration: 50}
	assert.False(t, IsExpired(order, 150))
	assert.True(t, IsExpired(order, 151))
}
