package handler

import (
	"errors"
	"net/http"

	"github.com/khanabook/pos-station/internal/pending"
	"github.com/khanabook/pos-station/internal/syncer"
)

func (s *Station) ListPending(w http.ResponseWriter, r *http.Request) {
	actions, err := s.store.ListPending(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read queue"})
		return
	}
	if actions == nil {
		actions = []pending.PendingAction{}
	}
	writeJSON(w, http.StatusOK, actions)
}

// ListOfflineOrders returns the drafts saved while offline that have not
// been replayed yet.
func (s *Station) ListOfflineOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.drafts.ListUnsynced(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read offline orders"})
		return
	}
	if orders == nil {
		orders = []pending.OfflineOrder{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Station) ListDeadLetters(w http.ResponseWriter, r *http.Request) {
	letters, err := s.store.ListDeadLetters(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read dead letters"})
		return
	}
	if letters == nil {
		letters = []pending.DeadLetter{}
	}
	writeJSON(w, http.StatusOK, letters)
}

func (s *Station) SyncStatus(w http.ResponseWriter, r *http.Request) {
	actions, err := s.store.ListPending(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read queue"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"online":  s.sync.Online(),
		"pending": len(actions),
	})
}

// TriggerSync runs a drain right now instead of waiting for the ticker.
func (s *Station) TriggerSync(w http.ResponseWriter, r *http.Request) {
	err := s.sync.Drain(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
	case errors.Is(err, syncer.ErrAlreadyDraining):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "sync already in progress"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
