package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/sakif/lang-notes/internal/apperror"
	"github.com/sakif/lang-notes/internal/auth"
	"github.com/sakif/lang-notes/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory implementation of repository.UserRepository.
// Using a fake (not a mock framework) keeps tests dependency-free and easy
// to read — you can see exactly what the fake does.
type fakeUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	nextID int
	// set to a non-nil error to simulate a database failure
	createErr error
	lookupErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Email == user.Email || u.ExternalID == user.ExternalID {
			return apperror.Conflict("User already exists with this email.")
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("fake-user-%d", f.nextID)
	user.CreatedAt = time.Now()
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) find(match func(*model.User) bool) (*model.User, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, u := range f.users {
		if match(u) {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFoundMessage("User not found.")
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ID == id })
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Email == email })
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Username == username })
}

func (f *fakeUserRepo) GetByExternalID(_ context.Context, externalID string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ExternalID == externalID })
}

func (f *fakeUserRepo) AppendLanguage(_ context.Context, userID, languageID string) error {
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFoundMessage("User not found.")
	}
	u.Languages = append(u.Languages, languageID)
	return nil
}

func (f *fakeUserRepo) RemoveLanguage(_ context.Context, userID, languageID string) error {
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFoundMessage("User not found.")
	}
	kept := u.Languages[:0]
	for _, id := range u.Languages {
		if id != languageID {
			kept = append(kept, id)
		}
	}
	u.Languages = kept
	return nil
}

// testLogger discards nothing but keeps output quiet unless a test fails.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestAuthService returns an AuthService wired with fake storage and
// fast, test-grade crypto (bcrypt cost 4, fixed JWT secret).
func newTestAuthService(t *testing.T, repo *fakeUserRepo) *AuthService {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(4)
	return NewAuthService(repo, tokens, passwords, testLogger())
}

func registerTestUser(t *testing.T, svc *AuthService, email string) *AuthResult {
	t.Helper()
	result, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Username:  "ada",
		Email:     email,
		Password:  "hunter2-but-longer",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return result
}

// =========================================================================
// REGISTER TESTS
// =========================================================================

func TestRegister_Success(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	result := registerTestUser(t, svc, "ada@example.com")

	if result.User.ID == "" {
		t.Error("Register() did not persist the user")
	}
	if result.User.PasswordHash == "" {
		t.Error("Register() did not hash the password")
	}
	if result.User.PasswordHash == "hunter2-but-longer" {
		t.Error("Register() stored the plaintext password")
	}
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Error("Register() should issue both tokens")
	}
	if result.User.ExternalID == "" {
		t.Error("Register() should always populate the external ID")
	}
}

func TestRegister_MissingFields(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	cases := []struct {
		name string
		in   RegisterInput
	}{
		{"no email", RegisterInput{FirstName: "A", LastName: "B", Username: "ab", Password: "x"}},
		{"no username", RegisterInput{FirstName: "A", LastName: "B", Email: "a@b.c", Password: "x"}},
		{"no names", RegisterInput{Username: "ab", Email: "a@b.c", Password: "x"}},
		{"no password and no external id", RegisterInput{FirstName: "A", LastName: "B", Username: "ab", Email: "a@b.c"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.in)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Register() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRegister_PasswordlessWithExternalID(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	// A client that already signed in with Google registers without a password
	result, err := svc.Register(context.Background(), RegisterInput{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Username:   "ada",
		Email:      "ada@example.com",
		ExternalID: "google-sub-12345",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if result.User.PasswordHash != "" {
		t.Error("passwordless registration should leave the hash empty")
	}
	if result.User.ExternalID != "google-sub-12345" {
		t.Errorf("ExternalID = %q, want the provided Google subject", result.User.ExternalID)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	registerTestUser(t, svc, "dup@example.com")

	_, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Grace",
		LastName:  "Hopper",
		Username:  "grace",
		Email:     "dup@example.com",
		Password:  "another-password",
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Register() error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// PASSWORD LOGIN TESTS
// =========================================================================

func TestLoginPassword_ByEmail(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	registerTestUser(t, svc, "ada@example.com")

	tokens, err := svc.LoginPassword(context.Background(), "ada@example.com", "", "hunter2-but-longer")
	if err != nil {
		t.Fatalf("LoginPassword() error = %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Error("LoginPassword() should issue both tokens")
	}
}

func TestLoginPassword_ByUsername(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	registerTestUser(t, svc, "ada@example.com")

	if _, err := svc.LoginPassword(context.Background(), "", "ada", "hunter2-but-longer"); err != nil {
		t.Fatalf("LoginPassword() by username error = %v", err)
	}
}

func TestLoginPassword_UnknownUser(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	_, err := svc.LoginPassword(context.Background(), "nobody@example.com", "", "whatever")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("LoginPassword() error = %v, want ErrNotFound", err)
	}
}

func TestLoginPassword_WrongPassword(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	registerTestUser(t, svc, "ada@example.com")

	_, err := svc.LoginPassword(context.Background(), "ada@example.com", "", "wrong-password")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("LoginPassword() error = %v, want ErrUnauthorized", err)
	}
}

func TestLoginPassword_TrimsWhitespace(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	registerTestUser(t, svc, "ada@example.com")

	// Legacy mobile clients send the password with stray whitespace
	if _, err := svc.LoginPassword(context.Background(), "ada@example.com", "", "  hunter2-but-longer  "); err != nil {
		t.Errorf("LoginPassword() should trim the password before comparing, got: %v", err)
	}
}

func TestLoginPassword_FederatedAccountHasNoPassword(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	_, err := svc.Register(context.Background(), RegisterInput{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Username:   "ada",
		Email:      "ada@example.com",
		ExternalID: "google-sub-12345",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err = svc.LoginPassword(context.Background(), "ada@example.com", "", "any-password")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("LoginPassword() on a passwordless account error = %v, want ErrUnauthorized", err)
	}
}

// =========================================================================
// GOOGLE ID LOGIN TESTS
// =========================================================================

func TestLoginGoogle_IssuesAccessTokenOnly(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	_, err := svc.Register(context.Background(), RegisterInput{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Username:   "ada",
		Email:      "ada@example.com",
		ExternalID: "google-sub-12345",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := svc.LoginGoogle(context.Background(), "google-sub-12345")
	if err != nil {
		t.Fatalf("LoginGoogle() error = %v", err)
	}
	if result.Token == "" {
		t.Error("LoginGoogle() should issue an access token")
	}
	if result.User == nil || result.User.Email != "ada@example.com" {
		t.Errorf("LoginGoogle() user = %+v", result.User)
	}
}

func TestLoginGoogle_UnknownID(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	_, err := svc.LoginGoogle(context.Background(), "google-sub-unknown")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("LoginGoogle() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// OAUTH CALLBACK (LOGIN OR REGISTER) TESTS
// =========================================================================

func TestLoginOrRegisterGoogle_FirstSeenCreatesAccount(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	gu := &auth.GoogleUser{
		ID:         "google-sub-777",
		Email:      "grace@example.com",
		GivenName:  "Grace",
		FamilyName: "Hopper",
	}

	result, err := svc.LoginOrRegisterGoogle(context.Background(), gu)
	if err != nil {
		t.Fatalf("LoginOrRegisterGoogle() error = %v", err)
	}
	if result.User.ID == "" {
		t.Fatal("first-seen Google user should be persisted")
	}
	// Username defaults to the email's local part
	if result.User.Username != "grace" {
		t.Errorf("Username = %q, want %q", result.User.Username, "grace")
	}
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Error("callback flow should issue both tokens")
	}

	// Second sight of the same subject logs in without creating another row
	again, err := svc.LoginOrRegisterGoogle(context.Background(), gu)
	if err != nil {
		t.Fatalf("second LoginOrRegisterGoogle() error = %v", err)
	}
	if again.User.ID != result.User.ID {
		t.Errorf("second call resolved user %q, want %q", again.User.ID, result.User.ID)
	}
	if len(repo.users) != 1 {
		t.Errorf("store holds %d users, want 1", len(repo.users))
	}
}

// =========================================================================
// CHECK USER TESTS
// =========================================================================

func TestCheckUser(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	_, err := svc.Register(context.Background(), RegisterInput{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Username:   "ada",
		Email:      "ada@example.com",
		ExternalID: "google-sub-12345",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	hit, err := svc.CheckUser(context.Background(), "google-sub-12345")
	if err != nil {
		t.Fatalf("CheckUser() error = %v", err)
	}
	if !hit.Exists || hit.User == nil || hit.Tokens == nil {
		t.Errorf("CheckUser() hit = %+v, want exists with user and tokens", hit)
	}

	miss, err := svc.CheckUser(context.Background(), "google-sub-unknown")
	if err != nil {
		t.Fatalf("CheckUser() miss error = %v", err)
	}
	if miss.Exists || miss.User != nil || miss.Tokens != nil {
		t.Errorf("CheckUser() miss = %+v, want bare exists=false", miss)
	}
}

// =========================================================================
// REFRESH TESTS
// =========================================================================

func TestRefresh_RotatesBothTokens(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	registered := registerTestUser(t, svc, "ada@example.com")

	tokens, err := svc.Refresh(context.Background(), registered.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Error("Refresh() must rotate BOTH tokens")
	}
}

func TestRefresh_MissingToken(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	_, err := svc.Refresh(context.Background(), "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Refresh() error = %v, want ErrValidation", err)
	}
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	registered := registerTestUser(t, svc, "ada@example.com")

	// An access token has a valid signature but the wrong "typ" claim
	_, err := svc.Refresh(context.Background(), registered.Tokens.AccessToken)
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Refresh() with an access token error = %v, want ErrUnauthorized", err)
	}
}

func TestRefresh_DeletedUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)
	registered := registerTestUser(t, svc, "ada@example.com")

	// Delete the account after the token was issued
	delete(repo.users, registered.User.ID)

	_, err := svc.Refresh(context.Background(), registered.Tokens.RefreshToken)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Refresh() for a deleted user error = %v, want ErrNotFound", err)
	}
}
