// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes the document store
//
// Services accept primitives and model types — never *http.Request — and
// return domain errors from the apperror package, never HTTP status codes.
// The handler layer owns the translation in both directions.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/lang-notes/internal/apperror"
	"github.com/sakif/lang-notes/internal/auth"
	"github.com/sakif/lang-notes/internal/model"
	"github.com/sakif/lang-notes/internal/repository"
)

// AuthService handles registration, the three login flows, and token refresh.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users     repository.UserRepository → read/write user records
//   - tokens    *auth.TokenService        → mint/verify JWTs
//   - passwords *auth.PasswordService     → bcrypt hashing
//   - logger    *slog.Logger              → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// TokenPair bundles the two session tokens the way every issuing endpoint
// returns them.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// AuthResult is returned by operations that both resolve a user and issue a
// session.
type AuthResult struct {
	User   *model.User
	Tokens TokenPair
}

// RegisterInput is everything POST /user/register accepts.
//
// Password is optional when ExternalID is provided (a client that already
// completed a Google sign-in registers the account with the Google subject
// ID and no password).
type RegisterInput struct {
	FirstName      string
	LastName       string
	Username       string
	Email          string
	Password       string
	ExternalID     string
	ProfilePicture string
}

// Register creates a new account and issues its first token pair.
//
// Email uniqueness is checked twice: a friendly pre-check here (so the
// common case gets the exact legacy message) and the UNIQUE constraint in
// the store (so a racing duplicate still cannot slip through).
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if in.FirstName == "" || in.LastName == "" || in.Username == "" || in.Email == "" {
		return nil, apperror.ValidationFailed("", "firstName, lastName, Username, email, and password are required.")
	}
	if in.Password == "" && in.ExternalID == "" {
		return nil, apperror.ValidationFailed("password", "firstName, lastName, Username, email, and password are required.")
	}

	// Pre-check for the duplicate-email conflict.
	_, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, apperror.Conflict("User already exists with this email.")
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: checking email %s: %w", in.Email, err)
	}

	user := &model.User{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Username:       in.Username,
		Email:          in.Email,
		ProfilePicture: in.ProfilePicture,
		Languages:      []string{},
	}

	if in.Password != "" {
		hash, err := s.passwords.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("service/auth: hashing password: %w", err)
		}
		user.PasswordHash = hash
	}

	// External ID: the Google subject ID when the client supplies one,
	// otherwise a generated stand-in so the field is always populated.
	user.ExternalID = in.ExternalID
	if user.ExternalID == "" {
		user.ExternalID = "custom-id-" + xid.New().String()
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user (email=%s): %w", in.Email, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	tokens, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Tokens: tokens}, nil
}

// LoginPassword authenticates by email (preferred) or username plus password
// and returns a fresh token pair.
//
// Failure split mirrors the API contract: unknown identity → NotFound (404),
// wrong password → Unauthorized (401).
func (s *AuthService) LoginPassword(ctx context.Context, email, username, password string) (*TokenPair, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)

	if (email == "" && username == "") || password == "" {
		return nil, apperror.ValidationFailed("", "Email and password are required.")
	}

	var (
		user *model.User
		err  error
	)
	if email != "" {
		user, err = s.users.GetByEmail(ctx, email)
	} else {
		user, err = s.users.GetByUsername(ctx, username)
	}
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("User not found.")
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if user.PasswordHash == "" {
		// Federated account with no password set — password login can't work.
		return nil, apperror.Unauthorized("Invalid credentials. Please check your email and password.")
	}

	// The legacy clients send passwords with stray whitespace; trim before
	// comparing, matching what they were hashed against.
	if err := s.passwords.Verify(user.PasswordHash, strings.TrimSpace(password)); err != nil {
		return nil, apperror.Unauthorized("Invalid credentials. Please check your email and password.")
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	tokens, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	return &tokens, nil
}

// GoogleLoginResult is the shape of a Google-ID login: one access token plus
// the user. This entry point deliberately does NOT issue a refresh token —
// that asymmetry is long-standing observed behavior the mobile client
// depends on, so it stays.
type GoogleLoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// LoginGoogle authenticates an already-registered federated user by their
// Google subject ID.
func (s *AuthService) LoginGoogle(ctx context.Context, googleID string) (*GoogleLoginResult, error) {
	if strings.TrimSpace(googleID) == "" {
		return nil, apperror.ValidationFailed("googleId", "Google ID is required.")
	}

	user, err := s.users.GetByExternalID(ctx, googleID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("User not found with this Google ID.")
		}
		return nil, fmt.Errorf("service/auth: looking up google user: %w", err)
	}

	token, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing access token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in via google id", slog.String("userID", user.ID))

	return &GoogleLoginResult{Token: token, User: user}, nil
}

// LoginOrRegisterGoogle handles the OAuth callback: on first sight of a
// Google subject ID it creates the account (federated-login-first-seen), on
// every later sight it just logs the user in. Either way a full token pair
// comes back.
func (s *AuthService) LoginOrRegisterGoogle(ctx context.Context, gu *auth.GoogleUser) (*AuthResult, error) {
	if gu == nil {
		return nil, fmt.Errorf("service/auth: Google user must not be nil")
	}

	user, err := s.users.GetByExternalID(ctx, gu.ID)
	switch {
	case err == nil:
		// Known account — fall through to token issue.
	case errors.Is(err, apperror.ErrNotFound):
		// First seen: register from the Google profile. The username
		// defaults to the email's local part, matching what the SPA
		// pre-fills on manual registration.
		username := gu.Email
		if at := strings.IndexByte(username, '@'); at > 0 {
			username = username[:at]
		}
		user = &model.User{
			FirstName:      gu.GivenName,
			LastName:       gu.FamilyName,
			Username:       username,
			Email:          gu.Email,
			ExternalID:     gu.ID,
			ProfilePicture: gu.Picture,
			Languages:      []string{},
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating federated user (email=%s): %w", gu.Email, err)
		}
		s.logger.Info("user registered via google oauth", slog.String("userID", user.ID))
	default:
		return nil, fmt.Errorf("service/auth: looking up google user: %w", err)
	}

	tokens, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// CheckUserResult reports whether an external ID resolves to an account.
// When it does, the user and a fresh pair ride along so the client can start
// a session from the probe alone.
type CheckUserResult struct {
	Exists bool        `json:"exists"`
	User   *model.User `json:"user,omitempty"`
	Tokens *TokenPair  `json:"tokens,omitempty"`
}

// CheckUser probes for an account by external auth ID.
func (s *AuthService) CheckUser(ctx context.Context, externalID string) (*CheckUserResult, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, apperror.ValidationFailed("userId", "userId is required.")
	}

	user, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return &CheckUserResult{Exists: false}, nil
		}
		return nil, fmt.Errorf("service/auth: checking user %s: %w", externalID, err)
	}

	tokens, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	return &CheckUserResult{Exists: true, User: user, Tokens: &tokens}, nil
}

// Refresh exchanges a valid refresh token for a brand-new token pair.
//
// ROTATION POLICY: both tokens are reissued on every refresh. The refresh
// token the client just used keeps working until its own expiry (there is no
// server-side revocation list), but well-behaved clients replace it.
//
// The user is re-resolved by ID on every refresh, so a deleted account's
// refresh token dead-ends with NotFound instead of minting fresh access.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, apperror.ValidationFailed("refreshToken", "Refresh token is required.")
	}

	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.Unauthorized("Invalid or expired refresh token.")
	}

	user, err := s.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMessage("User not found.")
		}
		return nil, fmt.Errorf("service/auth: resolving refresh subject %s: %w", claims.Subject, err)
	}

	tokens, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("tokens refreshed", slog.String("userID", user.ID))

	return &tokens, nil
}

// issuePair mints a matched access+refresh pair for the user.
func (s *AuthService) issuePair(user *model.User) (TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return TokenPair{}, fmt.Errorf("service/auth: issuing access token for user %s: %w", user.ID, err)
	}
	refresh, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return TokenPair{}, fmt.Errorf("service/auth: issuing refresh token for user %s: %w", user.ID, err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
