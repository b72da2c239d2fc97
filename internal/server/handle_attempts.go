package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/playperu/cluegame/internal/cluegame"
	"github.com/playperu/cluegame/internal/store"
)

// RecordResponse is the body of POST /api/attempts.
type RecordResponse struct {
	Recorded bool `json:"recorded"`
}

// AttemptResponse is one row of GET /api/attempts.
type AttemptResponse struct {
	ID         string `json:"id"`
	RecordedAt string `json:"recordedAt"`
	cluegame.AttemptPayload
}

func handleRecordAttempt(ledger *store.Ledger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p cluegame.AttemptPayload
		if msg := readValid(r, &p); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		rec, err := p.Record()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		recorded, err := ledger.Record(r.Context(), rec)
		if err != nil {
			writeGameError(w, logger, err)
			return
		}
		if !recorded {
			logger.Debug("duplicate attempt ignored",
				"participant", rec.Participant,
				"key", rec.Key.String(),
				"attempt", rec.AttemptNumber,
			)
		}
		writeJSON(w, http.StatusOK, RecordResponse{Recorded: recorded})
	}
}

// handleListAttempts returns raw ledger rows, newest first. Without date and
// slot it lists everything.
func handleListAttempts(ledger *store.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var key cluegame.Key
		if r.URL.Query().Has("date") || r.URL.Query().Has("slot") {
			k, err := keyFromQuery(r)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			key = k
		}

		attempts, err := ledger.List(r.Context(), key)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := make([]AttemptResponse, 0, len(attempts))
		for _, a := range attempts {
			resp = append(resp, AttemptResponse{
				ID:             a.ID,
				RecordedAt:     a.RecordedAt.UTC().Format(time.RFC3339),
				AttemptPayload: a.Record.Payload(),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
