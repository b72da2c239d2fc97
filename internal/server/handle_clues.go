package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/playperu/cluegame/internal/cluegame"
)

// ClueStore is the clue source the API reads and admins write.
type ClueStore interface {
	cluegame.ClueProvider
	Save(ctx context.Context, set cluegame.ClueSet) error
}

// ClueSetResponse is the body of GET /api/clues.
type ClueSetResponse struct {
	Date   string   `json:"date"`
	Slot   string   `json:"slot"`
	Clues  []string `json:"clues"`
	Answer string   `json:"answer"`
}

// ClueSetRequest is the body of PUT /api/admin/clues.
type ClueSetRequest struct {
	Date   string   `json:"date" validate:"required,datetime=2006-01-02"`
	Slot   string   `json:"slot" validate:"required,oneof=morning evening am pm"`
	Clues  []string `json:"clues" validate:"required,min=1,dive,required"`
	Answer string   `json:"answer" validate:"required"`
}

func keyFromQuery(r *http.Request) (cluegame.Key, error) {
	date, err := cluegame.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		return cluegame.Key{}, errors.New("date must be YYYY-MM-DD")
	}
	slot, err := cluegame.ParseSlot(r.URL.Query().Get("slot"))
	if err != nil {
		return cluegame.Key{}, errors.New("slot must be morning or evening")
	}
	return cluegame.Key{Date: date, Slot: slot}, nil
}

func clueSetResponse(set cluegame.ClueSet) ClueSetResponse {
	clues := set.Clues
	if clues == nil {
		clues = []string{}
	}
	return ClueSetResponse{
		Date:   set.Key.Date.String(),
		Slot:   set.Key.Slot.String(),
		Clues:  clues,
		Answer: set.Answer,
	}
}

// handleGetClues serves GET /api/clues and GET /api/admin/clues.
func handleGetClues(clues ClueStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := keyFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		set, err := clues.Fetch(r.Context(), key)
		if errors.Is(err, cluegame.ErrNotFound) {
			writeError(w, http.StatusNotFound, "clue set not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, clueSetResponse(set))
	}
}

func handleAdminPutClues(clues ClueStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ClueSetRequest
		if msg := readValid(r, &req); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		date, err := cluegame.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		slot, err := cluegame.ParseSlot(req.Slot)
		if err != nil {
			writeError(w, http.StatusBadRequest, "slot must be morning or evening")
			return
		}

		set := cluegame.ClueSet{
			Key:    cluegame.Key{Date: date, Slot: slot},
			Clues:  req.Clues,
			Answer: req.Answer,
		}
		if err := clues.Save(r.Context(), set); err != nil {
			if errors.Is(err, cluegame.ErrInvalidInput) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, clueSetResponse(set))
	}
}
