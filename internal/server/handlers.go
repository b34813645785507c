package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/veil-sh/veil/internal/redact"
	"github.com/veil-sh/veil/internal/requestctx"
	"github.com/veil-sh/veil/internal/vault"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	}
	if r.URL.Query().Get("detail") == "true" {
		components := map[string]string{
			"redactor": "ok",
		}
		if s.vaultStore == nil {
			components["mapping_vault"] = "disabled"
		} else {
			components["mapping_vault"] = "ok"
		}
		resp["components"] = components
	}
	writeJSON(w, http.StatusOK, resp)
}

type redactRequest struct {
	Text         string   `json:"text"`
	Entities     []string `json:"entities,omitempty"`
	CustomWords  []string `json:"custom_words,omitempty"`
	FuzzyMapping int      `json:"fuzzy_mapping,omitempty"`
	Store        bool     `json:"store,omitempty"`
}

type redactResponse struct {
	RedactedText string         `json:"redacted_text"`
	Mapping      redact.Mapping `json:"mapping"`
	MappingID    string         `json:"mapping_id,omitempty"`
}

func (s *Server) handleRedact(w http.ResponseWriter, r *http.Request) {
	var req redactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}
	if req.FuzzyMapping < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "fuzzy_mapping must be >= 0")
		return
	}

	redactor := s.defaultRedactor
	if len(req.Entities) > 0 || len(req.CustomWords) > 0 || req.FuzzyMapping > 0 {
		var err error
		redactor, err = s.newRedactor(req.Entities, req.CustomWords, req.FuzzyMapping)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
	}

	redacted, mapping, err := redactor.Redact(r.Context(), req.Text)
	if err != nil {
		log.Error().Err(err).Msg("Redaction failed")
		writeError(w, http.StatusInternalServerError, "redact_failed", err.Error())
		return
	}

	resp := redactResponse{RedactedText: redacted, Mapping: mapping}
	if req.Store {
		if s.vaultStore == nil {
			writeError(w, http.StatusBadRequest, "vault_disabled", "mapping persistence is not enabled on this server")
			return
		}
		id, err := s.vaultStore.Save(r.Context(), requestctx.CallerID(r.Context()), mapping)
		if err != nil {
			log.Error().Err(err).Msg("Storing mapping failed")
			writeError(w, http.StatusInternalServerError, "vault_error", "storing mapping failed")
			return
		}
		resp.MappingID = id
	}
	writeJSON(w, http.StatusOK, resp)
}

type restoreRequest struct {
	Text      string         `json:"text"`
	Mapping   redact.Mapping `json:"mapping,omitempty"`
	MappingID string         `json:"mapping_id,omitempty"`
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}
	if len(req.Mapping) > 0 && req.MappingID != "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "provide either mapping or mapping_id, not both")
		return
	}

	mapping := req.Mapping
	if req.MappingID != "" {
		if s.vaultStore == nil {
			writeError(w, http.StatusBadRequest, "vault_disabled", "mapping persistence is not enabled on this server")
			return
		}
		var err error
		mapping, err = s.vaultStore.Load(r.Context(), req.MappingID)
		if errors.Is(err, vault.ErrMappingNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "mapping not found")
			return
		}
		if err != nil {
			log.Error().Err(err).Str("mapping_id", req.MappingID).Msg("Loading mapping failed")
			writeError(w, http.StatusInternalServerError, "vault_error", "loading mapping failed")
			return
		}
	}

	restored := s.defaultRedactor.Restore(r.Context(), req.Text, mapping)
	writeJSON(w, http.StatusOK, map[string]string{"restored_text": restored})
}

func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	if s.vaultStore == nil {
		writeError(w, http.StatusBadRequest, "vault_disabled", "mapping persistence is not enabled on this server")
		return
	}
	metas, err := s.vaultStore.List(r.Context(), requestctx.CallerID(r.Context()))
	if err != nil {
		log.Error().Err(err).Msg("Listing mappings failed")
		writeError(w, http.StatusInternalServerError, "vault_error", "listing mappings failed")
		return
	}
	if metas == nil {
		metas = []vault.Metadata{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"mappings": metas})
}

func (s *Server) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	if s.vaultStore == nil {
		writeError(w, http.StatusBadRequest, "vault_disabled", "mapping persistence is not enabled on this server")
		return
	}
	id := chi.URLParam(r, "id")
	err := s.vaultStore.Delete(r.Context(), id)
	if errors.Is(err, vault.ErrMappingNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "mapping not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("mapping_id", id).Msg("Deleting mapping failed")
		writeError(w, http.StatusInternalServerError, "vault_error", "deleting mapping failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}
