package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/cluegame/internal/cluegame"
)

type StartRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

type StartResponse struct {
	Token      string `json:"token"`
	Date       string `json:"date"`
	Slot       string `json:"slot"`
	ClueNumber int    `json:"clueNumber"`
	TotalClues int    `json:"totalClues"`
	Clue       string `json:"clue"`
}

type GuessRequest struct {
	Guess string `json:"guess" validate:"required,max=200"`
}

type GuessResponse struct {
	Correct        bool   `json:"correct"`
	State          string `json:"state"`
	AttemptNumber  int    `json:"attemptNumber"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
	ClueNumber     int    `json:"clueNumber"`
	Clue           string `json:"clue,omitempty"`
	Answer         string `json:"answer,omitempty"`
	Reported       bool   `json:"reported"`
}

// GameStateResponse is a session snapshot plus what the player should see.
type GameStateResponse struct {
	cluegame.Snapshot
	ClueNumber int    `json:"clueNumber"`
	Clue       string `json:"clue,omitempty"`
	Answer     string `json:"answer,omitempty"`
}

func handleGameStart(sessions *Sessions, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartRequest
		if msg := readValid(r, &req); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		token, sess, err := sessions.Start(r.Context(), req.Name)
		if err != nil {
			writeGameError(w, logger, err)
			return
		}

		snap := sess.Snapshot()
		clue, idx, _ := sess.Clue()
		writeJSON(w, http.StatusOK, StartResponse{
			Token:      token,
			Date:       snap.Date.String(),
			Slot:       snap.Slot.String(),
			ClueNumber: idx + 1,
			TotalClues: snap.TotalClues,
			Clue:       clue,
		})
	}
}

func handleGameState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := gameFrom(r).sess

		resp := GameStateResponse{Snapshot: sess.Snapshot()}
		resp.ClueNumber = min(resp.ClueIndex+1, resp.TotalClues)
		if clue, _, ok := sess.Clue(); ok {
			resp.Clue = clue
		}
		if resp.Outcome == cluegame.OutcomeLost {
			resp.Answer, _ = sess.Answer()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleGameGuess(broker *Broker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		game := gameFrom(r)

		var req GuessRequest
		if msg := readValid(r, &req); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		v, err := game.sess.Guess(r.Context(), req.Guess)
		if err != nil {
			writeGameError(w, logger, err)
			return
		}

		resp := GuessResponse{
			Correct:        v.Correct,
			State:          v.State.String(),
			AttemptNumber:  v.Record.AttemptNumber,
			ElapsedSeconds: v.Record.ElapsedSeconds,
			ClueNumber:     v.ClueIndex + 1,
			Clue:           v.Clue,
			Reported:       v.Reported,
		}
		if v.State == cluegame.StateLost {
			resp.Answer, _ = game.sess.Answer()
			resp.ClueNumber = v.ClueIndex
		}

		broker.Publish(game.token, Event{
			Type:           EventAttempt,
			AttemptNumber:  resp.AttemptNumber,
			Correct:        resp.Correct,
			ClueNumber:     resp.ClueNumber,
			Clue:           resp.Clue,
			ElapsedSeconds: resp.ElapsedSeconds,
		})
		switch v.State {
		case cluegame.StateWon:
			broker.Publish(game.token, Event{Type: EventWon, AttemptNumber: resp.AttemptNumber, ElapsedSeconds: resp.ElapsedSeconds})
		case cluegame.StateLost:
			broker.Publish(game.token, Event{Type: EventLost, AttemptNumber: resp.AttemptNumber, Answer: resp.Answer})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func handleGameAbandon(sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions.Remove(gameFrom(r).token)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// handleLastSession returns the most recent saved snapshot for a participant.
func handleLastSession(snapshots cluegame.SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := snapshots.Load(r.Context(), chi.URLParam(r, "name"))
		if errors.Is(err, cluegame.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no saved session")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}
