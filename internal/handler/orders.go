package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/khanabook/pos-station/internal/api"
	"github.com/khanabook/pos-station/internal/enum"
	"github.com/khanabook/pos-station/internal/model"
	"github.com/khanabook/pos-station/internal/reconcile"
)

var orderStatuses = map[string]bool{
	enum.OrderStatusNew:       true,
	enum.OrderStatusCooking:   true,
	enum.OrderStatusReady:     true,
	enum.OrderStatusServed:    true,
	enum.OrderStatusPaid:      true,
	enum.OrderStatusCancelled: true,
}

// PlaceOrder sends the draft to the backend. When the backend is
// unreachable the draft is queued and recorded locally instead, and the
// UI gets 202 so it can show "saved locally".
func (s *Station) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	draft, ok := decodeOrderDraft(w, r)
	if !ok {
		return
	}

	order, err := s.remote.CreateOrder(r.Context(), draft)
	if err == nil {
		writeJSON(w, http.StatusCreated, order)
		return
	}

	if api.IsNetworkClass(err) {
		key := uuid.New()
		if _, qErr := s.store.Enqueue(r.Context(), enum.ActionCreateOrder, key, draft); qErr != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save order locally"})
			return
		}
		if _, dErr := s.drafts.Record(r.Context(), key, draft); dErr != nil {
			// The queued action is what gets replayed; the draft record is
			// only for the operator's offline list.
			log.Printf("ERROR: record offline draft: %v", dErr)
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"queued": true})
		return
	}

	s.writeRemoteError(w, err)
}

// ListOrders returns the reconciled board for a role. Kitchen can ask for
// partition=delivered to see served-but-uncleared orders.
func (s *Station) ListOrders(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role == "" {
		role = s.session.Role()
	}
	board, ok := s.boards[role]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown role"})
		return
	}

	if r.URL.Query().Get("partition") == "delivered" {
		writeJSON(w, http.StatusOK, board.Delivered())
		return
	}
	writeJSON(w, http.StatusOK, board.Snapshot())
}

// AddItems appends lines to an open order. Item additions are not queued
// offline: they mutate an order the backend owns, and a blind replay could
// land after the bill was settled.
func (s *Station) AddItems(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var items []model.OrderItemDraft
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil || len(items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no items to add"})
		return
	}

	order, err := s.remote.AddItems(r.Context(), id, items)
	if err != nil {
		s.writeRemoteError(w, err)
		return
	}
	for _, board := range s.boards {
		board.Apply(order)
	}
	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus patches every board optimistically, then confirms with the
// backend. The authoritative snapshot from the response re-folds on top.
func (s *Station) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	status := r.URL.Query().Get("status")
	if !orderStatuses[status] {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	for _, board := range s.boards {
		board.ApplyLocalOptimistic(id, reconcile.Patch{Status: status})
	}

	order, err := s.remote.UpdateStatus(r.Context(), id, status)
	if err != nil {
		s.writeRemoteError(w, err)
		return
	}
	for _, board := range s.boards {
		board.Apply(order)
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Station) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	for _, board := range s.boards {
		board.ApplyLocalOptimistic(id, reconcile.Patch{Status: enum.OrderStatusCancelled})
	}

	order, err := s.remote.CancelOrder(r.Context(), id)
	if err != nil {
		s.writeRemoteError(w, err)
		return
	}
	for _, board := range s.boards {
		board.Apply(order)
	}
	writeJSON(w, http.StatusOK, order)
}

// ClearDelivered empties the kitchen's delivered partition.
func (s *Station) ClearDelivered(w http.ResponseWriter, r *http.Request) {
	board, ok := s.boards[enum.RoleKitchen]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no kitchen board on this station"})
		return
	}
	board.ClearDelivered()
	w.WriteHeader(http.StatusNoContent)
}

func decodeOrderDraft(w http.ResponseWriter, r *http.Request) (model.OrderDraft, bool) {
	var draft model.OrderDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return draft, false
	}
	if len(draft.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order has no items"})
		return draft, false
	}
	if draft.OrderType != enum.OrderTypeDineIn && draft.OrderType != enum.OrderTypeTakeaway {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order type"})
		return draft, false
	}
	return draft, true
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order id"})
		return 0, false
	}
	return id, true
}
