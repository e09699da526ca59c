// Package billing computes tax split, discount, and multi-tender settlement
// state for a bill. Calculate is pure: no I/O, no hidden state, safe to call
// from the payment UI and from the sync replay path with identical results.
package billing

import (
	"github.com/khanabook/pos-station/internal/enum"
	"github.com/khanabook/pos-station/internal/model"
	"github.com/shopspring/decimal"
)

// Config carries the shop-level tax settings.
type Config struct {
	GSTEnabled        bool
	DefaultGSTPercent decimal.Decimal
}

// Input is everything a settlement depends on. AmountReceived applies in
// single-tender mode; Tenders applies in split mode. SettleRemainingOnline
// marks that the outstanding balance will be collected through the digital
// gateway for exactly the remaining amount.
type Input struct {
	Bill                  model.Bill
	Discount              decimal.Decimal
	AmountReceived        decimal.Decimal
	Tenders               []model.Tender
	SettleRemainingOnline bool
}

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// Calculate derives the settlement state of a bill.
//
// Per-item tax is itemTotal * gstPercent / 100 (shop default when the item
// carries no rate), split equally into CGST and SGST. The aggregate CGST and
// SGST are each rounded to 2 decimal places independently and the rounded
// components are summed into the total, so the printed component lines always
// add up to the printed total.
func Calculate(in Input, cfg Config) model.BillCalculation {
	cgst := decimal.Zero
	sgst := decimal.Zero
	if cfg.GSTEnabled && in.Bill.GSTEnabled {
		for _, item := range in.Bill.Items {
			rate := cfg.DefaultGSTPercent
			if item.GSTPercent != nil {
				rate = *item.GSTPercent
			}
			tax := item.Total.Mul(rate).Div(hundred)
			half := tax.Div(two)
			cgst = cgst.Add(half)
			sgst = sgst.Add(half)
		}
		cgst = cgst.Round(2)
		sgst = sgst.Round(2)
	}

	total := in.Bill.Subtotal.Sub(in.Discount).Add(cgst).Add(sgst)

	change := in.AmountReceived.Sub(total)
	if change.IsNegative() {
		change = decimal.Zero
	}

	paid := decimal.Zero
	for _, t := range in.Tenders {
		paid = paid.Add(t.Amount)
	}
	remaining := total.Sub(paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	permitted := remaining.IsZero()
	if !permitted && in.SettleRemainingOnline {
		// The gateway is trusted to collect exactly the shortfall before
		// confirming, so the operator may settle with remaining > 0.
		permitted = true
	}

	return model.BillCalculation{
		Subtotal:            in.Bill.Subtotal,
		Discount:            in.Discount,
		CGST:                cgst,
		SGST:                sgst,
		Total:               total,
		AmountReceived:      in.AmountReceived,
		Change:              change,
		Remaining:           remaining,
		SettlementPermitted: permitted,
	}
}

// OnlineShortfall returns the ONLINE tender that would settle the outstanding
// balance of calc through the digital gateway, and whether one is needed.
func OnlineShortfall(calc model.BillCalculation) (model.Tender, bool) {
	if calc.Remaining.IsZero() {
		return model.Tender{}, false
	}
	return model.Tender{Mode: enum.PaymentModeOnline, Amount: calc.Remaining}, true
}

// ClampDiscount bounds a requested discount to [0, subtotal].
func ClampDiscount(discount, subtotal decimal.Decimal) decimal.Decimal {
	if discount.IsNegative() {
		return decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		return subtotal
	}
	return discount
}
