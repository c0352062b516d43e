package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/lang-notes/internal/apperror"
	"github.com/sakif/lang-notes/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "user", u), ANY package that knows the string "user"
// can read or shadow your value. Using a package-private type prevents
// collisions: only THIS package can create a key of type contextKey.
type contextKey string

const userKey contextKey = "user"

// UserResolver is the lookup capability the middleware needs — satisfied by
// repository.UserRepository. Declaring the interface here (at the consumer)
// keeps this package independent of the repository package.
type UserResolver interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// RequireUser is the gate in front of every protected route.
//
// It reads "Authorization: Bearer <token>", verifies the access token, and
// resolves the token's email claim to a live user record — exactly one
// database lookup per request, no caching, every request re-verifies.
//
// FAILURE MODES (each gets a distinct status so clients can react):
//   - 401 Unauthorized: no header, or the header isn't "Bearer <token>"
//   - 403 Forbidden:    signature invalid or token expired → client should refresh
//   - 404 Not Found:    token is fine but the account no longer exists
//
// On success the resolved *model.User is stored in the request context;
// handlers read it back with UserFromContext.
func RequireUser(tokens *TokenService, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				writeAuthError(w, apperror.Unauthorized("Unauthorized - No token provided"))
				return
			}

			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := tokens.ParseAccessToken(tokenStr)
			if err != nil {
				writeAuthError(w, apperror.Forbidden("Forbidden - Invalid token"))
				return
			}

			user, err := users.GetByEmail(r.Context(), claims.Email)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					writeAuthError(w, apperror.NotFoundMessage("User not found"))
					return
				}
				writeAuthError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext retrieves the authenticated user from the request context.
//
// Returns (nil, false) if the request never went through RequireUser.
// On a protected route it always returns (user, true).
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// writeAuthError emits the uniform {"error","message"} body without importing
// the handler package (which imports this one). The sentinel-to-status mapping
// here mirrors the handler's writeError so clients see one error taxonomy
// whether a failure comes from the middleware or a route.
func writeAuthError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	errorType := "internal_error"
	message := "An internal error occurred"

	// Adopt the AppError's message only for the recognised sentinels; anything
	// else stays a generic 500 so internal detail never reaches the client.
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
			message = appErr.Message
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
			message = appErr.Message
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
			message = appErr.Message
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// Every message here is a fixed string from this package — no escaping needed.
	_, _ = w.Write([]byte(`{"error":"` + errorType + `","message":"` + message + `"}`))
}
