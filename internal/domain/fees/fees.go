package fees

import (
	"errors"

	"vendibook/internal/domain/shared/money"
)

var (
	ErrNegativeInput = errors.New("fees: amounts cannot be negative")
	ErrInvalidRate   = errors.New("fees: basis points must be within 0..10000")
)

// Breakdown is the money split of one rental.
type Breakdown struct {
	Subtotal           money.Money `json:"subtotal"`
	RenterFee          money.Money `json:"renter_fee"`
	PlatformCommission money.Money `json:"platform_commission"`
	CustomerTotal      money.Money `json:"customer_total"`
	SellerPayout       money.Money `json:"seller_payout"`
}

// Func computes a breakdown from the base rental price and the delivery fee.
// Implementations must be deterministic and non-decreasing in base.
type Func func(base, delivery money.Money) (Breakdown, error)

// Engine applies an injected fee function after checking its inputs.
type Engine struct {
	fn Func
}

func NewEngine(fn Func) Engine {
	if fn == nil {
		fn = DefaultSchedule.Calculate
	}
	return Engine{fn: fn}
}

func (e Engine) Compute(base, delivery money.Money) (Breakdown, error) {
	if base.IsNegative() || delivery.IsNegative() {
		return Breakdown{}, ErrNegativeInput
	}
	if delivery.Currency == "" {
		delivery = money.Zero(base.Currency)
	}
	if base.Currency != delivery.Currency {
		return Breakdown{}, money.ErrCurrencyMismatch
	}
	fn := e.fn
	if fn == nil {
		fn = DefaultSchedule.Calculate
	}
	return fn(base, delivery)
}

// Schedule charges percentages of the base price, in basis points.
// Delivery passes through untouched.
type Schedule struct {
	RenterBps int64
	HostBps   int64
}

var DefaultSchedule = Schedule{RenterBps: 1290, HostBps: 1290}

func (s Schedule) Validate() error {
	if s.RenterBps < 0 || s.RenterBps > 10000 || s.HostBps < 0 || s.HostBps > 10000 {
		return ErrInvalidRate
	}
	return nil
}

func (s Schedule) Calculate(base, delivery money.Money) (Breakdown, error) {
	if err := s.Validate(); err != nil {
		return Breakdown{}, err
	}
	subtotal, err := base.Add(delivery)
	if err != nil {
		return Breakdown{}, err
	}
	renterFee := base.BasisPoints(s.RenterBps)
	commission := base.BasisPoints(s.HostBps)
	total, err := subtotal.Add(renterFee)
	if err != nil {
		return Breakdown{}, err
	}
	payout, err := subtotal.Sub(commission)
	if err != nil {
		return Breakdown{}, err
	}
	return Breakdown{
		Subtotal:           subtotal,
		RenterFee:          renterFee,
		PlatformCommission: commission,
		CustomerTotal:      total,
		SellerPayout:       payout,
	}, nil
}
