package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"trove.dev/internal/auth"
)

const (
	authHeader   = "Authorization"
	bearerScheme = "Bearer "
)

// requireUser resolves the bearer access token into an identity and stores it
// in the request context. Requests without a valid, active identity never
// reach the wrapped handler.
func (a *API) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		user, err := a.auth.ResolveIdentity(r.Context(), raw)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(r.Context(), user)))
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearerScheme)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearerScheme):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

// mustUser returns the identity placed in the context by requireUser. Routes
// behind the middleware always have one; a miss is a programming error.
func mustUser(r *http.Request) *auth.User {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		panic("httpapi: handler reached without resolved identity")
	}
	return user
}
