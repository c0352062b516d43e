package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/lang-notes/internal/apperror"
	"github.com/sakif/lang-notes/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// Using ":memory:" creates a fresh database that exists only during the test.
// Benefits:
// - Fast: no disk I/O
// - Isolated: each test gets its own database
// - Clean: automatically destroyed when the connection closes
//
// newTestDB is a "test helper" — a function used only in tests to reduce boilerplate.
// The `t.Helper()` call tells Go's test framework to report errors at the CALLER's
// line number, not inside this function. This makes test failure output much clearer.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser inserts a user and fails the test on error.
func createTestUser(t *testing.T, db *DB, email string) *model.User {
	t.Helper()
	user := &model.User{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Username:     "ada",
		Email:        email,
		PasswordHash: "$2b$04$fakehashforrepositorytests",
		ExternalID:   "ext-" + email,
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate_AssignsIDAndDefaults(t *testing.T) {
	db := newTestDB(t)

	user := createTestUser(t, db, "ada@example.com")

	if user.ID == "" {
		t.Error("CreateUser() did not assign an ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreateUser() did not set CreatedAt")
	}
	if user.Languages == nil {
		t.Error("CreateUser() should default Languages to an empty slice")
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)

	createTestUser(t, db, "dup@example.com")

	second := &model.User{
		FirstName:    "Grace",
		LastName:     "Hopper",
		Username:     "grace",
		Email:        "dup@example.com",
		PasswordHash: "hash",
		ExternalID:   "ext-other",
	}
	err := db.CreateUser(context.Background(), second)
	if err == nil {
		t.Fatal("CreateUser() should fail on a duplicate email")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestUserLookups(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "ada@example.com")

	ctx := context.Background()

	byID, err := db.GetUserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if byID.Email != created.Email {
		t.Errorf("GetUserByID() email = %q, want %q", byID.Email, created.Email)
	}

	byEmail, err := db.GetByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if byEmail.ID != created.ID {
		t.Errorf("GetByEmail() ID = %q, want %q", byEmail.ID, created.ID)
	}

	byExt, err := db.GetByExternalID(ctx, created.ExternalID)
	if err != nil {
		t.Fatalf("GetByExternalID() error = %v", err)
	}
	if byExt.ID != created.ID {
		t.Errorf("GetByExternalID() ID = %q, want %q", byExt.ID, created.ID)
	}

	byName, err := db.GetByUsername(ctx, "ada")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if byName.ID != created.ID {
		t.Errorf("GetByUsername() ID = %q, want %q", byName.ID, created.ID)
	}
}

func TestUserLookup_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByEmail(context.Background(), "nobody@example.com")
	if err == nil {
		t.Fatal("GetByEmail() should fail for an unknown email")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// OWNERSHIP LIST TESTS
// =========================================================================

func TestAppendLanguage_PreservesOrder(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "ada@example.com")
	ctx := context.Background()

	for _, id := range []string{"lang-1", "lang-2", "lang-3"} {
		if err := db.AppendLanguage(ctx, user.ID, id); err != nil {
			t.Fatalf("AppendLanguage(%s) error = %v", id, err)
		}
	}

	got, err := db.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	want := []string{"lang-1", "lang-2", "lang-3"}
	if len(got.Languages) != len(want) {
		t.Fatalf("Languages = %v, want %v", got.Languages, want)
	}
	for i := range want {
		if got.Languages[i] != want[i] {
			t.Errorf("Languages[%d] = %q, want %q", i, got.Languages[i], want[i])
		}
	}
}

func TestRemoveLanguage(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "ada@example.com")
	ctx := context.Background()

	for _, id := range []string{"lang-1", "lang-2", "lang-3"} {
		if err := db.AppendLanguage(ctx, user.ID, id); err != nil {
			t.Fatalf("AppendLanguage(%s) error = %v", id, err)
		}
	}

	// Remove the middle entry — order of the rest must survive
	if err := db.RemoveLanguage(ctx, user.ID, "lang-2"); err != nil {
		t.Fatalf("RemoveLanguage() error = %v", err)
	}

	got, _ := db.GetUserByID(ctx, user.ID)
	want := []string{"lang-1", "lang-3"}
	if len(got.Languages) != 2 || got.Languages[0] != want[0] || got.Languages[1] != want[1] {
		t.Errorf("Languages = %v, want %v", got.Languages, want)
	}

	// Removing an ID that isn't in the list is a no-op, not an error
	if err := db.RemoveLanguage(ctx, user.ID, "lang-nope"); err != nil {
		t.Errorf("RemoveLanguage() of absent ID should be a no-op, got: %v", err)
	}
}

func TestAppendLanguage_UnknownUser(t *testing.T) {
	db := newTestDB(t)

	err := db.AppendLanguage(context.Background(), "no-such-user", "lang-1")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("AppendLanguage() error = %v, want ErrNotFound", err)
	}
}
