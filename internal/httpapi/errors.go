package httpapi

import (
	"errors"
	"net/http"

	"trove.dev/internal/auth"
	"trove.dev/internal/items"
	"trove.dev/internal/obs"
	"trove.dev/internal/policy"
)

// respondDomainError maps domain error kinds onto transport status codes.
// Anything unanticipated becomes a generic 500 so store internals never leak
// to the caller.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, r, http.StatusBadRequest, "a user with this email already exists")
	case errors.Is(err, auth.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, r, http.StatusUnauthorized, "incorrect email or password")
	case errors.Is(err, auth.ErrInvalidToken):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, r, http.StatusUnauthorized, "could not validate credentials")
	case errors.Is(err, auth.ErrInactiveAccount):
		writeError(w, r, http.StatusBadRequest, "inactive user")
	case errors.Is(err, policy.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "not enough permissions")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "user not found")
	case errors.Is(err, items.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "item not found")
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, items.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, "invalid input")
	default:
		obs.LogError("unhandled domain error", err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
