// Package fee computes operation fees from a configurable fee table:
// percentage plus fixed amount, clamped to min/max bounds, with optional
// volume, payment-method and role discounts applied after the base
// computation.
package fee

import (
	"sort"
)

// Calculator is a pure fee calculator. It holds no mutable state and is
// safe for concurrent use.
type Calculator struct {
	config Config
}

// NewCalculator builds a Calculator from the given config. Volume tiers
// are sorted descending by threshold so the highest qualifying tier is
// found first.
func NewCalculator(config Config) *Calculator {
	if config.Structures == nil {
		config.Structures = map[Type]Structure{}
	}
	tiers := make([]VolumeTier, len(config.VolumeTiers))
	copy(tiers, config.VolumeTiers)
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].Threshold > tiers[j].Threshold
	})
	config.VolumeTiers = tiers

	return &Calculator{config: config}
}

// DefaultConfig returns the platform's standard fee schedule.
func DefaultConfig() Config {
	return Config{
		Structures: map[Type]Structure{
			TypeDeposit:     {Percentage: 2.0, FixedAmount: 0, MinimumFee: 0},
			TypeWithdrawal:  {Percentage: 1.5, FixedAmount: 0.30, MinimumFee: 0.50},
			TypeTransfer:    {Percentage: 0.5, FixedAmount: 0, MinimumFee: 0},
			TypeDonation:    {Percentage: 5.0, FixedAmount: 0, MinimumFee: 0},
			TypeTransaction: {Percentage: 1.0, FixedAmount: 0, MinimumFee: 0},
		},
		VolumeTiers: []VolumeTier{
			{Threshold: 1000, DiscountRate: 0.05},
			{Threshold: 10000, DiscountRate: 0.10},
			{Threshold: 100000, DiscountRate: 0.20},
		},
		MethodDiscounts: map[string]float64{
			"wallet": 0.10,
		},
		RoleDiscounts: map[string]float64{
			"partner": 0.25,
		},
	}
}

// Calculate returns the fee amount for an operation, using the configured
// structure for feeType. Unknown types cost nothing.
func (c *Calculator) Calculate(amount float64, feeType Type) float64 {
	return c.CalculateDetailed(amount, feeType, Options{}).FeeAmount
}

// CalculateDetailed computes the fee with a full breakdown.
//
// fee = clamp(amount*Percentage/100 + FixedAmount, MinimumFee, MaximumFee),
// then discounts multiply the clamped base. Negative amounts cost nothing.
func (c *Calculator) CalculateDetailed(amount float64, feeType Type, opts Options) Result {
	structure, ok := c.config.Structures[feeType]
	if opts.Override != nil {
		structure, ok = *opts.Override, true
	}
	if !ok || amount < 0 {
		return Result{Currency: structure.Currency}
	}

	percentagePart := amount * structure.Percentage / 100
	base := percentagePart + structure.FixedAmount

	breakdown := Breakdown{
		PercentagePart: percentagePart,
		FixedPart:      structure.FixedAmount,
	}

	if base < structure.MinimumFee {
		base = structure.MinimumFee
		breakdown.ClampedToMin = true
	}
	if structure.MaximumFee > 0 && base > structure.MaximumFee {
		base = structure.MaximumFee
		breakdown.ClampedToMax = true
	}
	breakdown.BaseFee = base

	discount := c.discountRate(amount, opts)
	breakdown.DiscountRate = discount

	return Result{
		FeeAmount: base * (1 - discount),
		Currency:  structure.Currency,
		Breakdown: breakdown,
	}
}

// discountRate combines the applicable discounts multiplicatively. At most
// one volume tier applies: the highest threshold not exceeding the amount.
func (c *Calculator) discountRate(amount float64, opts Options) float64 {
	keep := 1.0

	for _, tier := range c.config.VolumeTiers {
		if amount >= tier.Threshold {
			keep *= 1 - tier.DiscountRate
			break
		}
	}
	if rate, ok := c.config.MethodDiscounts[opts.PaymentMethod]; ok {
		keep *= 1 - rate
	}
	if rate, ok := c.config.RoleDiscounts[opts.Role]; ok {
		keep *= 1 - rate
	}

	return 1 - keep
}
