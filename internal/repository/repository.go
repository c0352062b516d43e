// Package repository declares the storage interfaces the service layer
// programs against. The sqlite subpackage is the only implementation; tests
// substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/lang-notes/internal/model"
)

// UserRepository persists user records.
//
// Email and ExternalID are unique across all users; CreateUser returns
// apperror.ErrConflict when either collides. Lookups return
// apperror.ErrNotFound when nothing matches.
//
// The user-side method names carry the User prefix because the sqlite
// implementation hangs both repositories off one *DB — the language side
// owns the bare Create/GetByID.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.User, error)

	// AppendLanguage / RemoveLanguage maintain the user's ordered list of
	// owned language IDs. Both are read-modify-write on the user row.
	AppendLanguage(ctx context.Context, userID, languageID string) error
	RemoveLanguage(ctx context.Context, userID, languageID string) error
}

// LanguageRepository persists language documents, each embedding its ordered
// notes collection as a single JSON document. The language row is the unit of
// atomicity: SaveNotes rewrites the whole notes array in one statement.
type LanguageRepository interface {
	Create(ctx context.Context, language *model.Language) error
	GetByID(ctx context.Context, id string) (*model.Language, error)

	// GetByName matches the name exactly (case-sensitive) — used by the
	// duplicate check on create. GetByNameFold matches case-insensitively —
	// used by the name-based read endpoints.
	GetByName(ctx context.Context, name string) (*model.Language, error)
	GetByNameFold(ctx context.Context, name string) (*model.Language, error)

	// ListByOwner returns id+name projections of the languages whose
	// CreatedBy equals ownerID (authorization by query, not a post-filter).
	ListByOwner(ctx context.Context, ownerID string) ([]model.LanguageRef, error)

	// SaveNotes persists the language's current Notes slice as the new
	// embedded document, replacing whatever was stored before.
	SaveNotes(ctx context.Context, language *model.Language) error

	Delete(ctx context.Context, id string) error
}
