package dto

import (
	"vendibook/internal/domain/fees"
	"vendibook/internal/domain/pricing"
)

type QuoteLine struct {
	Unit   string   `json:"unit"`
	Count  int      `json:"count"`
	Rate   MoneyDTO `json:"rate"`
	Amount MoneyDTO `json:"amount"`
	Label  string   `json:"label"`
}

type FeeBreakdown struct {
	Subtotal           MoneyDTO `json:"subtotal"`
	RenterFee          MoneyDTO `json:"renter_fee"`
	PlatformCommission MoneyDTO `json:"platform_commission"`
	CustomerTotal      MoneyDTO `json:"customer_total"`
	SellerPayout       MoneyDTO `json:"seller_payout"`
}

type Quote struct {
	DurationLabel string       `json:"duration_label"`
	BasePrice     MoneyDTO     `json:"base_price"`
	Breakdown     string       `json:"breakdown"`
	Lines         []QuoteLine  `json:"lines"`
	DeliveryFee   MoneyDTO     `json:"delivery_fee"`
	ServiceFee    MoneyDTO     `json:"service_fee"`
	TotalWithFees MoneyDTO     `json:"total_with_fees"`
	Display       string       `json:"display_total"`
	Fees          FeeBreakdown `json:"fees"`
}

func MapFees(b fees.Breakdown) FeeBreakdown {
	return FeeBreakdown{
		Subtotal:           MapMoney(b.Subtotal),
		RenterFee:          MapMoney(b.RenterFee),
		PlatformCommission: MapMoney(b.PlatformCommission),
		CustomerTotal:      MapMoney(b.CustomerTotal),
		SellerPayout:       MapMoney(b.SellerPayout),
	}
}

func MapQuote(q pricing.Quote) Quote {
	lines := make([]QuoteLine, 0, len(q.Lines))
	for _, l := range q.Lines {
		lines = append(lines, QuoteLine{
			Unit:   string(l.Unit),
			Count:  l.Count,
			Rate:   MapMoney(l.Rate),
			Amount: MapMoney(l.Amount),
			Label:  l.Label(),
		})
	}
	out := Quote{
		DurationLabel: q.DurationLabel,
		BasePrice:     MapMoney(q.BasePrice),
		Breakdown:     q.Breakdown,
		Lines:         lines,
		DeliveryFee:   MapMoney(q.DeliveryFee),
		ServiceFee:    MapMoney(q.ServiceFee),
		TotalWithFees: MapMoney(q.TotalWithFees),
		Fees:          MapFees(q.Fees),
	}
	if !q.IsZero() {
		out.Display = q.TotalWithFees.Format()
	}
	return out
}
