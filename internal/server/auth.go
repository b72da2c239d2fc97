package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/playperu/cluegame/internal/cluegame"
	"github.com/playperu/cluegame/internal/store"
)

var errNoSession = errors.New("no valid session")

const adminCookieName = "admin_session"

type ctxKey int

const (
	ctxKeyAdmin ctxKey = iota
	ctxKeyGame
)

type gameSession struct {
	token string
	sess  *cluegame.Session
}

func bearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return "", errNoSession
	}
	return token, nil
}

// gameAuthMiddleware resolves the bearer token to a live session. Streaming
// endpoints may pass the token as a query parameter instead.
func gameAuthMiddleware(sessions *Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				writeError(w, http.StatusUnauthorized, "invalid or missing session token")
				return
			}

			sess, ok := sessions.Get(token)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid or missing session token")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyGame, gameSession{token: token, sess: sess})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func adminAuthMiddleware(admins *store.Admins) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := adminFromRequest(r, admins)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyAdmin, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func adminFromRequest(r *http.Request, admins *store.Admins) (store.AdminSession, error) {
	cookie, err := r.Cookie(adminCookieName)
	if err != nil || cookie.Value == "" {
		return store.AdminSession{}, store.ErrNoAdminSession
	}
	return admins.FromSession(r.Context(), cookie.Value)
}

func gameFrom(r *http.Request) gameSession {
	return r.Context().Value(ctxKeyGame).(gameSession)
}
