package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/lang-notes/internal/apperror"
	"github.com/sakif/lang-notes/internal/model"
	"github.com/sakif/lang-notes/internal/repository"
)

// Compile-time check that *DB implements repository.UserRepository.
var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new user.
//
// ID GENERATION WITH xid:
// xid generates 20-char, URL-safe, creation-time-sortable IDs
// (e.g. "cv37rs3pp9olc6atsptg"). All generated IDs in this store use it.
//
// The UNIQUE constraints on email and external_id are the authoritative
// duplicate check — the service pre-checks for a friendly message, but only
// the constraint is race-free, so a constraint violation here is translated
// to the same ErrConflict the pre-check would have produced.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now()
	if user.Languages == nil {
		user.Languages = []string{}
	}

	languagesJSON, err := json.Marshal(user.Languages)
	if err != nil {
		return fmt.Errorf("sqlite: encoding languages list: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, first_name, last_name, username, email,
		                    password_hash, external_id, languages, is_admin,
		                    profile_picture, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.ExternalID,
		string(languagesJSON),
		user.IsAdmin,
		user.ProfilePicture,
		user.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("User already exists with this email.")
		}
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	return nil
}

// GetUserByID retrieves a user by internal ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `id = ?`, id)
}

// GetByEmail retrieves a user by their (unique) email.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `email = ?`, email)
}

// GetByUsername retrieves a user by username.
// Usernames are not constrained unique; if duplicates exist, the earliest
// created row wins — same first-match behavior as a document-store findOne.
func (db *DB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, `username = ? ORDER BY created_at LIMIT 1`, username)
}

// GetByExternalID retrieves a user by their external auth ID (Google subject
// ID or generated custom ID).
func (db *DB) GetByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	return db.getUser(ctx, `external_id = ?`, externalID)
}

// getUser is the shared SELECT for all user lookups. The where fragment is a
// fixed string from this file, never user input.
func (db *DB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var (
		u             model.User
		languagesJSON string
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, username, email, password_hash,
		        external_id, languages, is_admin, profile_picture, created_at
		 FROM users WHERE `+where,
		arg,
	).Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.ExternalID,
		&languagesJSON,
		&u.IsAdmin,
		&u.ProfilePicture,
		&u.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundMessage("User not found.")
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}

	if err := json.Unmarshal([]byte(languagesJSON), &u.Languages); err != nil {
		return nil, fmt.Errorf("sqlite: decoding languages list for user %s: %w", u.ID, err)
	}

	return &u, nil
}

// AppendLanguage adds languageID to the end of the user's ownership list.
//
// Read-modify-write on the embedded list: load the JSON array, append, write
// it back. A concurrent append to the SAME user can be lost (last write
// wins) — accepted at this scale, same as every other document mutation here.
func (db *DB) AppendLanguage(ctx context.Context, userID, languageID string) error {
	user, err := db.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	user.Languages = append(user.Languages, languageID)
	return db.saveLanguagesList(ctx, userID, user.Languages)
}

// RemoveLanguage deletes languageID from the user's ownership list,
// preserving the order of the remaining entries. Removing an ID that is not
// in the list is a no-op, not an error.
func (db *DB) RemoveLanguage(ctx context.Context, userID, languageID string) error {
	user, err := db.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	kept := user.Languages[:0]
	for _, id := range user.Languages {
		if id != languageID {
			kept = append(kept, id)
		}
	}
	return db.saveLanguagesList(ctx, userID, kept)
}

func (db *DB) saveLanguagesList(ctx context.Context, userID string, languages []string) error {
	languagesJSON, err := json.Marshal(languages)
	if err != nil {
		return fmt.Errorf("sqlite: encoding languages list: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`UPDATE users SET languages = ? WHERE id = ?`,
		string(languagesJSON), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating languages list for user %s: %w", userID, err)
	}
	return nil
}
