package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/cluegame/internal/cluegame"
)

// writeGameError maps engine errors to HTTP responses.
func writeGameError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, cluegame.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, cluegame.ErrNoClues):
		writeError(w, http.StatusNotFound, "no clues are available for the current slot")
	case errors.Is(err, cluegame.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, cluegame.ErrInvalidParticipant):
		writeError(w, http.StatusForbidden, "participant is not registered")
	case errors.Is(err, cluegame.ErrValidatorUnavailable), errors.Is(err, cluegame.ErrTransport):
		logger.Error("upstream unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	case errors.Is(err, cluegame.ErrAlreadyStarted), errors.Is(err, cluegame.ErrNotPlaying):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, cluegame.ErrSessionInvalidated):
		writeError(w, http.StatusGone, "the slot has changed; start a new game")
	default:
		logger.Error("unhandled game error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
