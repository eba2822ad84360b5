package middleware

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aristay/bookingimport/internal/logging"
)

// ActorHeader names the user on whose behalf an import runs.
const ActorHeader = "X-Acting-User"

// maxActorLen bounds the stored created-by/modified-by value.
const maxActorLen = 200

// ActingUser stores the X-Acting-User header in the request context so
// handlers and log entries can attribute the import.
func ActingUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor := CleanActor(r.Header.Get(ActorHeader)); actor != "" {
			r = r.WithContext(logging.WithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}

// CleanActor trims an actor name and cuts it to a storable length.
func CleanActor(s string) string {
	s = strings.TrimSpace(s)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	if len(s) <= maxActorLen {
		return s
	}
	cut := maxActorLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
