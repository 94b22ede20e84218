// Dutch auction pricing for swap orders.
//
// The amount a resolver pays decays linearly from makingAmount at the
// auction start down to takingAmount at the end of the window. All math is
// big-integer on the decimal string amounts; the monetary result never
// touches floating point.
package auction

import (
	"fmt"
	"math/big"

	"swap-backend/internal/models"
)

// Params is the auction window of an order.
type Params struct {
	StartTime int64 // unix seconds
	Duration  int64 // seconds
}

// CurrentAmount returns the decaying trade amount at time now.
//
//	amount = making − (making−taking) · clamp(elapsed/duration, 0, 1)
//
// computed as making − (making−taking)·min(elapsed,duration)/duration in
// exact integer arithmetic.
func CurrentAmount(a Params, makingAmount, takingAmount string, now int64) (string, error) {
	making, ok := new(big.Int).SetString(makingAmount, 10)
	if !ok {
		return "", fmt.Errorf("invalid makingAmount: %q", makingAmount)
	}
	taking, ok := new(big.Int).SetString(takingAmount, 10)
	if !ok {
		return "", fmt.Errorf("invalid takingAmount: %q", takingAmount)
	}
	if a.Duration <= 0 {
		return "", fmt.Errorf("invalid auction duration: %d", a.Duration)
	}

	elapsed := now - a.StartTime
	if elapsed <= 0 {
		return making.String(), nil
	}
	if elapsed >= a.Duration {
		return taking.String(), nil
	}

	// decay = (making − taking) · elapsed / duration
	decay := new(big.Int).Sub(making, taking)
	decay.Mul(decay, big.NewInt(elapsed))
	decay.Quo(decay, big.NewInt(a.Duration))

	return new(big.Int).Sub(making, decay).String(), nil
}

// IsOrderValid reports whether the order is still assignable: the auction
// window has not elapsed and the order is still in pending_auction.
// Expired orders are abandoned, not cancelled; the maker's remedy is
// re-submission under a new nonce.
func IsOrderValid(order *models.Order, now int64) bool {
	if order.Status != models.OrderStatusPendingAuction {
		return false
	}
	return now-order.AuctionStartTime <= order.AuctionDuration
}

// IsExpired reports whether the auction window has elapsed regardless of
// order status.
func IsExpired(order *models.Order, now int64) bool {
	return now-order.AuctionStartTime > order.AuctionDuration
}
