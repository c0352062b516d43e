package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/lang-notes/internal/auth"
	"github.com/sakif/lang-notes/internal/service"
)

// AuthHandler exposes the /user routes and the Google OAuth browser flow.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister       → create an account, return first token pair
//   - HandleLoginPassword  → email-or-username + password login
//   - HandleLoginGoogle    → Google-subject-ID login for existing accounts
//   - HandleCheckUser      → existence probe by external ID
//   - HandleRefreshToken   → exchange refresh token for a fresh pair
//   - HandleGoogleLogin / HandleGoogleCallback → the full OAuth dance
type AuthHandler struct {
	auths  *service.AuthService
	google *auth.GoogleProvider // nil when Google OAuth is not configured
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. google may be nil; the OAuth routes
// are only registered when it isn't.
func NewAuthHandler(auths *service.AuthService, google *auth.GoogleProvider, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auths:  auths,
		google: google,
		logger: logger,
	}
}

// HandleRegister creates a new account.
//
// HTTP: POST /user/register
// BODY: {username, email, password?, firstName, lastName, userId?, profilePicture?}
//
// password may be omitted only when userId (a Google subject ID) is present.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username       string `json:"username"`
		Email          string `json:"email"`
		Password       string `json:"password"`
		FirstName      string `json:"firstName"`
		LastName       string `json:"lastName"`
		UserID         string `json:"userId"`
		ProfilePicture string `json:"profilePicture"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid JSON body"})
		return
	}

	result, err := h.auths.Register(r.Context(), service.RegisterInput{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		ExternalID:     req.UserID,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    result.User,
		"tokens":  result.Tokens,
	})
}

// HandleLoginPassword authenticates with email (or username) and password.
//
// HTTP: POST /user/login/username-password
// BODY: {email|username, password}
// RESPONSE: {accessToken, refreshToken}
func (h *AuthHandler) HandleLoginPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid JSON body"})
		return
	}

	tokens, err := h.auths.LoginPassword(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

// HandleLoginGoogle authenticates an already-registered federated user.
//
// HTTP: POST /user/login/google
// BODY: {googleId}
// RESPONSE: {message, token, user} — access token only, no refresh (the
// mobile client's long-standing contract for this endpoint).
func (h *AuthHandler) HandleLoginGoogle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GoogleID string `json:"googleId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid JSON body"})
		return
	}

	result, err := h.auths.LoginGoogle(r.Context(), req.GoogleID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Google login successful",
		"token":   result.Token,
		"user":    result.User,
	})
}

// HandleCheckUser probes whether an external ID maps to an account.
//
// HTTP: POST /user/checkUser
// BODY: {userId}
// RESPONSE: {exists} or {exists, user, tokens}
func (h *AuthHandler) HandleCheckUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid JSON body"})
		return
	}

	result, err := h.auths.CheckUser(r.Context(), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleRefreshToken exchanges a refresh token for a new token pair.
//
// HTTP: POST /user/refresh-token
// BODY: {refreshToken}
// RESPONSE: {accessToken, refreshToken} — both rotate on every refresh.
func (h *AuthHandler) HandleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid JSON body"})
		return
	}

	tokens, err := h.auths.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

// HandleGoogleLogin starts the browser OAuth flow: redirects to Google's
// consent page with a CSRF state value pinned in a short-lived cookie.
//
// HTTP: GET /auth/google/login
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes — long enough to approve, short enough to limit risk
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the OAuth flow.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter against the cookie (CSRF check)
//  2. Exchange the code for a Google profile
//  3. Create the account on first sight, or log the existing one in
//  4. Return {user, tokens} as JSON for the SPA to store
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("google callback: missing state cookie")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid OAuth state"})
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("google callback: state mismatch")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid OAuth state"})
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("google callback: user denied authorization", slog.String("error", errParam))
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authorization denied"})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "missing OAuth code"})
		return
	}

	gu, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("google callback: exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "authentication failed"})
		return
	}

	result, err := h.auths.LoginOrRegisterGoogle(r.Context(), gu)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":   result.User,
		"tokens": result.Tokens,
	})
}
