package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/hlothaire/miniLastPass/internal/auth"
	"github.com/hlothaire/miniLastPass/internal/vault"
)

// handleVault serves /api/vault: GET lists metadata, POST creates an item.
func (s *Server) handleVault(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	switch r.Method {
	case http.MethodGet:
		list, err := s.vaults.List(r.Context(), p.AccountID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, list)
	case http.MethodPost:
		var req vault.CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			writeError(w, http.StatusBadRequest, "title required")
			return
		}
		view, err := s.vaults.Create(r.Context(), p.AccountID, p.VaultKey, req)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSONStatus(w, http.StatusCreated, view)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleVaultItem serves /api/vault/{id} and /api/vault/{id}/reveal.
func (s *Server) handleVaultItem(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/vault/")
	idStr, reveal := rest, false
	if sub, found := strings.CutSuffix(rest, "/reveal"); found {
		idStr, reveal = sub, true
	}
	itemID, err := uuid.Parse(idStr)
	if err != nil {
		// Malformed ids look the same as missing items.
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	if reveal {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		secret, err := s.vaults.Reveal(r.Context(), p.AccountID, itemID, p.VaultKey, getClientIP(r))
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]string{"secret": secret})
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req vault.UpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		view, err := s.vaults.Update(r.Context(), p.AccountID, itemID, p.VaultKey, req)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, view)
	case http.MethodDelete:
		if err := s.vaults.Delete(r.Context(), p.AccountID, itemID); err != nil {
			s.writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
