package handler

import (
	"encoding/json"
	"net/http"
	"time"
)

type openSessionRequest struct {
	Token string `json:"token"`
}

type sessionResponse struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Expired  bool   `json:"expired"`
}

// OpenSession installs the operator token the UI obtained from the backend
// login endpoint. The station only parses the claims; it does not verify
// the signature.
func (s *Station) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token is required"})
		return
	}
	if err := s.session.SetToken(req.Token); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed token"})
		return
	}
	claims, _ := s.session.Claims()
	writeJSON(w, http.StatusOK, sessionResponse{
		Username: claims.Username,
		Role:     claims.Role,
	})
}

func (s *Station) GetSession(w http.ResponseWriter, r *http.Request) {
	claims, err := s.session.Claims()
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not logged in"})
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Username: claims.Username,
		Role:     claims.Role,
		Expired:  s.session.Expired(time.Now()),
	})
}

func (s *Station) CloseSession(w http.ResponseWriter, r *http.Request) {
	s.session.Clear()
	w.WriteHeader(http.StatusNoContent)
}
