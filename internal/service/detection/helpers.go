package detection

import (
	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
)

// lossUSD converts a computed dollar figure into a Money loss estimate,
// clamped at zero so rounding noise never produces a negative loss.
func lossUSD(amount float64) values.Money {
	if amount < 0 {
		amount = 0
	}
	return values.MustNewMoneyFromFloat(amount, "USD").RoundToNearestCent()
}
