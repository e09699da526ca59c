package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/khanabook/pos-station/internal/api"
	"github.com/khanabook/pos-station/internal/billing"
	"github.com/khanabook/pos-station/internal/enum"
	"github.com/khanabook/pos-station/internal/model"
	"github.com/shopspring/decimal"
)

type paymentRequest struct {
	model.PaymentDraft
	SettleRemainingOnline bool `json:"settleRemainingOnline,omitempty"`
}

type calculateRequest struct {
	Bill                  model.Bill      `json:"bill"`
	Discount              decimal.Decimal `json:"discount"`
	AmountReceived        decimal.Decimal `json:"amountReceived"`
	Tenders               []model.Tender  `json:"paymentModes,omitempty"`
	SettleRemainingOnline bool            `json:"settleRemainingOnline,omitempty"`
}

// ProcessPayment validates the tenders against the calculator, then settles
// with the backend. A network failure queues the payment for replay; gateway
// and validation errors are surfaced and never queued.
func (s *Station) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.OrderID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "orderId is required"})
		return
	}
	if req.Discount.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "discount cannot be negative"})
		return
	}
	if req.IdempotencyKey == uuid.Nil {
		req.IdempotencyKey = uuid.New()
	}

	bill, err := s.remote.GetBill(r.Context(), req.OrderID)
	switch {
	case err == nil:
		calc := billing.Calculate(billing.Input{
			Bill:                  bill,
			Discount:              billing.ClampDiscount(req.Discount, bill.Subtotal),
			AmountReceived:        req.AmountReceived,
			Tenders:               req.Tenders,
			SettleRemainingOnline: req.SettleRemainingOnline,
		}, s.billing)
		if len(req.Tenders) > 0 && !calc.SettlementPermitted {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":     "tenders do not cover the bill",
				"remaining": calc.Remaining.StringFixed(2),
			})
			return
		}
		if len(req.Tenders) == 0 && req.PaymentMode == enum.PaymentModeCash &&
			req.AmountReceived.LessThan(calc.Total) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":     "amount received is below the bill total",
				"total":     calc.Total.StringFixed(2),
				"remaining": calc.Total.Sub(req.AmountReceived).StringFixed(2),
			})
			return
		}
	case api.IsNetworkClass(err):
		// Cannot fetch the bill to validate; the backend will validate on
		// replay. Queue the payment as-is.
		s.queuePayment(w, r, req.PaymentDraft)
		return
	default:
		s.writeRemoteError(w, err)
		return
	}

	payment, err := s.remote.ProcessPayment(r.Context(), req.PaymentDraft)
	if err == nil {
		writeJSON(w, http.StatusOK, payment)
		return
	}
	if api.IsNetworkClass(err) {
		s.queuePayment(w, r, req.PaymentDraft)
		return
	}
	s.writeRemoteError(w, err)
}

func (s *Station) queuePayment(w http.ResponseWriter, r *http.Request, draft model.PaymentDraft) {
	if _, err := s.store.Enqueue(r.Context(), enum.ActionProcessPayment, draft.IdempotencyKey, draft); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save payment locally"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": true})
}

// InitiateDigitalPayment hands the settlement to the gateway. Failures are
// surfaced, never queued: replaying an ambiguous gateway handoff could
// charge the customer twice.
func (s *Station) InitiateDigitalPayment(w http.ResponseWriter, r *http.Request) {
	var req api.DigitalPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "orderId is required"})
		return
	}

	resp, err := s.remote.InitiateDigitalPayment(r.Context(), req)
	if err != nil {
		s.writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// VerifyEasebuzzPayment confirms a completed gateway transaction.
func (s *Station) VerifyEasebuzzPayment(w http.ResponseWriter, r *http.Request) {
	var payload map[string]string
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	payment, err := s.remote.VerifyEasebuzzPayment(r.Context(), payload)
	if err != nil {
		s.writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// CalculateBill runs the pure calculator for the payment screen. No remote
// call, no persistence.
func (s *Station) CalculateBill(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	calc := billing.Calculate(billing.Input{
		Bill:                  req.Bill,
		Discount:              billing.ClampDiscount(req.Discount, req.Bill.Subtotal),
		AmountReceived:        req.AmountReceived,
		Tenders:               req.Tenders,
		SettleRemainingOnline: req.SettleRemainingOnline,
	}, s.billing)
	writeJSON(w, http.StatusOK, calc)
}
