package fee

// Type identifies the operation a fee is charged for.
type Type string

const (
	TypeDeposit     Type = "DEPOSIT"
	TypeWithdrawal  Type = "WITHDRAWAL"
	TypeTransfer    Type = "TRANSFER"
	TypeDonation    Type = "DONATION"
	TypeTransaction Type = "TRANSACTION"
)

// Structure describes how the fee for one operation type is computed.
// MaximumFee of zero means uncapped.
type Structure struct {
	Percentage  float64
	FixedAmount float64
	MinimumFee  float64
	MaximumFee  float64
	Currency    string
}

// VolumeTier grants a discount once the transaction amount reaches
// Threshold. Tiers are evaluated in descending threshold order and the
// highest tier not exceeding the amount wins; only one volume discount
// ever applies.
type VolumeTier struct {
	Threshold    float64
	DiscountRate float64
}

// Config is the full fee table. It is built once and injected into the
// Calculator; swapping fee schedules means constructing a new Calculator.
type Config struct {
	Structures      map[Type]Structure
	VolumeTiers     []VolumeTier
	MethodDiscounts map[string]float64
	RoleDiscounts   map[string]float64
}

// Options carries per-call context for discount selection. A non-nil
// Override replaces the configured structure for this call only.
type Options struct {
	Override      *Structure
	PaymentMethod string
	Role          string
}

// Breakdown explains how a fee was assembled.
type Breakdown struct {
	BaseFee        float64 `json:"base_fee"`
	PercentagePart float64 `json:"percentage_part"`
	FixedPart      float64 `json:"fixed_part"`
	DiscountRate   float64 `json:"discount_rate"`
	ClampedToMin   bool    `json:"clamped_to_min"`
	ClampedToMax   bool    `json:"clamped_to_max"`
}

// Result is the outcome of a fee calculation.
type Result struct {
	FeeAmount float64   `json:"fee_amount"`
	Currency  string    `json:"currency"`
	Breakdown Breakdown `json:"breakdown"`
}
