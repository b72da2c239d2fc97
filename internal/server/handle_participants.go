package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/cluegame/internal/cluegame"
	"github.com/playperu/cluegame/internal/store"
)

// CheckResponse is the body of GET /api/participants/{name}/check.
type CheckResponse struct {
	Valid bool `json:"valid"`
}

// ParticipantRequest is the body of POST /api/admin/participants.
type ParticipantRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

func handleCheckParticipant(participants *store.Participants) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		valid, err := participants.Check(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, CheckResponse{Valid: valid})
	}
}

func handleAdminListParticipants(participants *store.Participants) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := participants.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, names)
	}
}

func handleAdminAddParticipant(participants *store.Participants) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ParticipantRequest
		if msg := readValid(r, &req); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		if err := participants.Add(r.Context(), req.Name); err != nil {
			if errors.Is(err, cluegame.ErrInvalidInput) {
				writeError(w, http.StatusBadRequest, "name is required")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, req)
	}
}

func handleAdminRemoveParticipant(participants *store.Participants) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := participants.Remove(r.Context(), chi.URLParam(r, "name"))
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "participant not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
