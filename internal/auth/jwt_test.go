package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/sakif/lang-notes/internal/model"
)

// newTestTokenService creates a TokenService for testing.
// It uses a fixed, known secret so tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", time.Hour, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func testUser() *model.User {
	return &model.User{
		ID:        "user-abc-123",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Username:  "ada",
		Email:     "ada@example.com",
	}
}

// =========================================================================
// TOKEN SERVICE CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short", time.Hour, time.Hour)
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_NonPositiveTTL(t *testing.T) {
	_, err := NewTokenService("this-is-16-chars", 0, time.Hour)
	if err == nil {
		t.Fatal("NewTokenService() should reject a zero access TTL")
	}
	_, err = NewTokenService("this-is-16-chars", time.Hour, -time.Minute)
	if err == nil {
		t.Fatal("NewTokenService() should reject a negative refresh TTL")
	}
}

// =========================================================================
// ISSUE TESTS
// =========================================================================

func TestIssueAccessToken_LooksLikeAJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	if token == "" {
		t.Error("IssueAccessToken() returned empty token")
	}

	// JWT tokens have 3 dot-separated parts: header.payload.signature
	if got := strings.Count(token, "."); got != 2 {
		t.Errorf("token doesn't look like a JWT (expected 2 dots, got %d)", got)
	}
}

func TestIssueAccessToken_DifferentUsersGetDifferentTokens(t *testing.T) {
	ts := newTestTokenService(t)

	a := testUser()
	b := testUser()
	b.ID = "user-def-456"
	b.Email = "grace@example.com"

	token1, _ := ts.IssueAccessToken(a)
	token2, _ := ts.IssueAccessToken(b)

	if token1 == token2 {
		t.Error("IssueAccessToken() returned identical tokens for different users")
	}
}

// =========================================================================
// PARSE TESTS
// =========================================================================

func TestParseAccessToken_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)
	user := testUser()

	token, err := ts.IssueAccessToken(user)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	claims, err := ts.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("ParseAccessToken() error = %v", err)
	}

	if claims.Subject != user.ID {
		t.Errorf("Subject = %q, want %q", claims.Subject, user.ID)
	}
	if claims.Email != user.Email {
		t.Errorf("Email = %q, want %q", claims.Email, user.Email)
	}
	if claims.Username != user.Username {
		t.Errorf("Username = %q, want %q", claims.Username, user.Username)
	}
	if claims.FirstName != user.FirstName || claims.LastName != user.LastName {
		t.Errorf("name claims = %q %q, want %q %q",
			claims.FirstName, claims.LastName, user.FirstName, user.LastName)
	}
}

func TestParseRefreshToken_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)
	user := testUser()

	token, err := ts.IssueRefreshToken(user)
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}

	claims, err := ts.ParseRefreshToken(token)
	if err != nil {
		t.Fatalf("ParseRefreshToken() error = %v", err)
	}
	if claims.Subject != user.ID {
		t.Errorf("Subject = %q, want %q", claims.Subject, user.ID)
	}
	if claims.Email != user.Email {
		t.Errorf("Email = %q, want %q", claims.Email, user.Email)
	}
}

func TestParseAccessToken_Expired(t *testing.T) {
	ts := newTestTokenService(t)

	// Mint a token that expired 1 second ago
	token, err := ts.IssueAccessTokenWithTTL(testUser(), -1*time.Second)
	if err != nil {
		t.Fatalf("IssueAccessTokenWithTTL() error = %v", err)
	}

	_, err = ts.ParseAccessToken(token)
	if err == nil {
		t.Fatal("ParseAccessToken() should return an error for an expired token")
	}
	t.Logf("Expired token error (expected): %v", err)
}

func TestParseAccessToken_Tampered(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.IssueAccessToken(testUser())

	// Flip characters in the signature (last segment after the 2nd dot)
	// to simulate an attacker modifying the payload
	tampered := token[:len(token)-3] + "xxx"

	_, err := ts.ParseAccessToken(tampered)
	if err == nil {
		t.Fatal("ParseAccessToken() should return an error for a tampered token")
	}
	t.Logf("Tampered token error (expected): %v", err)
}

func TestParseAccessToken_WrongSecret(t *testing.T) {
	ts1, _ := NewTokenService("correct-secret-32-chars-long!!!!", time.Hour, time.Hour)
	ts2, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!", time.Hour, time.Hour)

	token, _ := ts1.IssueAccessToken(testUser())

	// Validating with ts2's (different) secret must fail
	_, err := ts2.ParseAccessToken(token)
	if err == nil {
		t.Fatal("ParseAccessToken() should fail when using a different secret")
	}
}

func TestParseAccessToken_EmptyAndGarbage(t *testing.T) {
	ts := newTestTokenService(t)

	if _, err := ts.ParseAccessToken(""); err == nil {
		t.Fatal("ParseAccessToken() should return an error for an empty string")
	}
	if _, err := ts.ParseAccessToken("not.a.jwt.token"); err == nil {
		t.Fatal("ParseAccessToken() should return an error for a garbage string")
	}
}

// =========================================================================
// TOKEN TYPE DISCRIMINATION TESTS
// =========================================================================
//
// A refresh token must never pass as an access token (and vice versa),
// even though both carry valid signatures from the same secret.

func TestParseAccessToken_RejectsRefreshToken(t *testing.T) {
	ts := newTestTokenService(t)

	refresh, err := ts.IssueRefreshToken(testUser())
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}

	_, err = ts.ParseAccessToken(refresh)
	if err == nil {
		t.Fatal("ParseAccessToken() should reject a refresh token")
	}
}

func TestParseRefreshToken_RejectsAccessToken(t *testing.T) {
	ts := newTestTokenService(t)

	access, err := ts.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	_, err = ts.ParseRefreshToken(access)
	if err == nil {
		t.Fatal("ParseRefreshToken() should reject an access token")
	}
}
