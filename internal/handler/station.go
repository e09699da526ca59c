// Package handler exposes the station's local HTTP surface. The thin UI in
// front of the daemon talks only to these endpoints; everything remote,
// durable, or stateful lives behind them.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/khanabook/pos-station/internal/api"
	"github.com/khanabook/pos-station/internal/auth"
	"github.com/khanabook/pos-station/internal/billing"
	"github.com/khanabook/pos-station/internal/model"
	"github.com/khanabook/pos-station/internal/pending"
	"github.com/khanabook/pos-station/internal/reconcile"
)

// Remote is the slice of the backend client the handlers call.
// Satisfied by *api.Client; narrow interface for testability.
type Remote interface {
	CreateOrder(ctx context.Context, draft model.OrderDraft) (model.Order, error)
	AddItems(ctx context.Context, orderID int64, items []model.OrderItemDraft) (model.Order, error)
	ProcessPayment(ctx context.Context, draft model.PaymentDraft) (model.Payment, error)
	UpdateStatus(ctx context.Context, orderID int64, status string) (model.Order, error)
	CancelOrder(ctx context.Context, orderID int64) (model.Order, error)
	GetBill(ctx context.Context, orderID int64) (model.Bill, error)
	InitiateDigitalPayment(ctx context.Context, req api.DigitalPaymentRequest) (api.DigitalPaymentResponse, error)
	VerifyEasebuzzPayment(ctx context.Context, payload map[string]string) (model.Payment, error)
}

// Syncer is the slice of the sync coordinator the handlers call.
type Syncer interface {
	Drain(ctx context.Context) error
	Online() bool
}

// Station handles every local endpoint.
type Station struct {
	remote  Remote
	store   pending.Store
	drafts  pending.DraftLog
	session *auth.Session
	sync    Syncer
	boards  map[string]*reconcile.Reconciler
	billing billing.Config
}

func NewStation(remote Remote, store pending.Store, drafts pending.DraftLog,
	session *auth.Session, sync Syncer, boards map[string]*reconcile.Reconciler,
	billingCfg billing.Config) *Station {
	return &Station{
		remote:  remote,
		store:   store,
		drafts:  drafts,
		session: session,
		sync:    sync,
		boards:  boards,
		billing: billingCfg,
	}
}

// RegisterRoutes registers all station endpoints on the given Chi router.
func (s *Station) RegisterRoutes(r chi.Router) {
	r.Post("/orders", s.PlaceOrder)
	r.Get("/orders", s.ListOrders)
	r.Post("/orders/{id}/items", s.AddItems)
	r.Put("/orders/{id}/status", s.UpdateStatus)
	r.Put("/orders/{id}/cancel", s.CancelOrder)
	r.Post("/orders/delivered/clear", s.ClearDelivered)

	r.Post("/payments", s.ProcessPayment)
	r.Post("/payments/initiate-digital", s.InitiateDigitalPayment)
	r.Post("/payments/easebuzz/verify", s.VerifyEasebuzzPayment)
	r.Post("/bill/calculate", s.CalculateBill)

	r.Get("/sync/pending", s.ListPending)
	r.Get("/sync/offline-orders", s.ListOfflineOrders)
	r.Get("/sync/dead-letters", s.ListDeadLetters)
	r.Get("/sync/status", s.SyncStatus)
	r.Post("/sync/trigger", s.TriggerSync)

	r.Post("/session", s.OpenSession)
	r.Get("/session", s.GetSession)
	r.Delete("/session", s.CloseSession)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// writeRemoteError maps the backend error taxonomy onto local HTTP statuses.
// Network-class errors reaching here were not queueable and become 503.
func (s *Station) writeRemoteError(w http.ResponseWriter, err error) {
	var ve *api.ValidationError
	var ge *api.GatewayError
	switch {
	case errors.Is(err, api.ErrAuthExpired):
		s.session.Clear()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "session expired"})
	case errors.As(err, &ve):
		status := ve.StatusCode
		if status == 0 {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": ve.Message})
	case errors.As(err, &ge):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": ge.Message})
	case api.IsNetworkClass(err):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "backend unreachable"})
	default:
		log.Printf("ERROR: remote call failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
