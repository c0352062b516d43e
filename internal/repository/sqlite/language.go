package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/lang-notes/internal/apperror"
	"github.com/sakif/lang-notes/internal/model"
	"github.com/sakif/lang-notes/internal/repository"
)

// Compile-time check that *DB implements repository.LanguageRepository.
var _ repository.LanguageRepository = (*DB)(nil)

// Create inserts a new language document with an empty notes collection
// (unless the caller seeded Notes). The caller is responsible for the
// duplicate-name policy — names are deliberately NOT constrained unique at
// the schema level, because only the create flow treats them as unique.
func (db *DB) Create(ctx context.Context, language *model.Language) error {
	language.ID = xid.New().String()
	language.CreatedAt = time.Now()
	if language.Notes == nil {
		language.Notes = []model.Note{}
	}

	notesJSON, err := json.Marshal(language.Notes)
	if err != nil {
		return fmt.Errorf("sqlite: encoding notes: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO languages (id, name, logo, created_by, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		language.ID,
		language.Name,
		language.Logo,
		language.CreatedBy,
		string(notesJSON),
		language.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting language %q: %w", language.Name, err)
	}

	return nil
}

// GetByID loads the full language document, embedded notes included.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Language, error) {
	return db.getLanguage(ctx, `id = ?`, id)
}

// GetByName matches the name exactly, case-sensitive. SQLite's = on TEXT is
// case-sensitive by default, which is exactly the create-flow contract.
func (db *DB) GetByName(ctx context.Context, name string) (*model.Language, error) {
	return db.getLanguage(ctx, `name = ?`, name)
}

// GetByNameFold matches the name case-insensitively ("Python" finds
// "python"), for the read endpoints that look languages up by display name.
//
// COLLATE NOCASE only folds ASCII — good enough for programming-language
// names, which is what these documents hold.
func (db *DB) GetByNameFold(ctx context.Context, name string) (*model.Language, error) {
	return db.getLanguage(ctx, `name = ? COLLATE NOCASE`, name)
}

func (db *DB) getLanguage(ctx context.Context, where string, arg any) (*model.Language, error) {
	var (
		l         model.Language
		logo      sql.NullString
		notesJSON string
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, logo, created_by, notes, created_at
		 FROM languages WHERE `+where,
		arg,
	).Scan(&l.ID, &l.Name, &logo, &l.CreatedBy, &notesJSON, &l.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundMessage("Language not found")
		}
		return nil, fmt.Errorf("sqlite: getting language: %w", err)
	}
	l.Logo = logo.String

	if err := json.Unmarshal([]byte(notesJSON), &l.Notes); err != nil {
		return nil, fmt.Errorf("sqlite: decoding notes for language %s: %w", l.ID, err)
	}
	if l.Notes == nil {
		l.Notes = []model.Note{}
	}

	return &l, nil
}

// ListByOwner returns the id+name projection of every language created by
// ownerID, oldest first. Ownership is enforced IN the query — a caller can
// only ever see their own rows, there is no post-filtering step to forget.
func (db *DB) ListByOwner(ctx context.Context, ownerID string) ([]model.LanguageRef, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name FROM languages WHERE created_by = ? ORDER BY created_at`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing languages for user %s: %w", ownerID, err)
	}
	defer rows.Close()

	// Start with an empty (non-nil) slice so an ownerless caller gets JSON []
	// rather than null.
	refs := []model.LanguageRef{}
	for rows.Next() {
		var ref model.LanguageRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning language row: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating language rows: %w", err)
	}

	return refs, nil
}

// SaveNotes rewrites the language's embedded notes document in one UPDATE.
//
// This is the single write every note mutation funnels through: the service
// loads the document with GetByID, edits the Notes slice in memory, and saves
// the whole array back here. One UPDATE = one atomic document write. There is
// no version column: two concurrent editors of the same language overwrite
// each other, last write wins.
func (db *DB) SaveNotes(ctx context.Context, language *model.Language) error {
	notesJSON, err := json.Marshal(language.Notes)
	if err != nil {
		return fmt.Errorf("sqlite: encoding notes: %w", err)
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE languages SET notes = ? WHERE id = ?`,
		string(notesJSON), language.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving notes for language %s: %w", language.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		// Document vanished between the load and the save.
		return apperror.NotFoundMessage("Language not found")
	}

	return nil
}

// Delete removes a language document — and with it, implicitly, every note
// it embeds. Notes have no existence outside their parent row.
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM languages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting language %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFoundMessage("Language not found")
	}

	return nil
}
