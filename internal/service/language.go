package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/lang-notes/internal/apperror"
	"github.com/sakif/lang-notes/internal/model"
	"github.com/sakif/lang-notes/internal/repository"
)

// LanguageService owns the language containers and the note CRUD inside them.
//
// EVERY NOTE MUTATION IS A DOCUMENT ROUND TRIP:
// load the whole language (GetByID), edit the Notes slice in memory, save the
// whole array back (SaveNotes). The parent document is the unit of atomicity;
// individual notes are positions in its ordered collection. Two requests
// mutating the same language concurrently race, and the last save wins —
// the loser's edit is silently overwritten. There is no version token and no
// lock; at this system's scale that is an accepted trade, but it is a real
// anomaly, not an impossibility.
//
// TWO-WRITE OWNERSHIP OPERATIONS:
// CreateLanguage and DeleteLanguage each touch two documents (the language
// row and the owner's id list) with no transaction spanning them. A crash in
// between leaves an orphaned language or a dangling reference. The writes are
// adjacent to keep that window small, and there is deliberately no
// compensation machinery beyond that.
type LanguageService struct {
	languages repository.LanguageRepository
	users     repository.UserRepository
	logger    *slog.Logger
}

// NewLanguageService creates a LanguageService.
func NewLanguageService(
	languages repository.LanguageRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *LanguageService {
	return &LanguageService{
		languages: languages,
		users:     users,
		logger:    logger,
	}
}

// CreateLanguage creates a named container owned by user and appends its ID
// to the user's ownership list.
//
// The duplicate check is a case-sensitive exact match: "Python" and "python"
// can coexist, "python" twice cannot.
func (s *LanguageService) CreateLanguage(ctx context.Context, user *model.User, name, logo string) (*model.Language, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "Course title is required.")
	}

	_, err := s.languages.GetByName(ctx, name)
	switch {
	case err == nil:
		return nil, apperror.Conflict(fmt.Sprintf("Course '%s' already exists.", name))
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/language: checking name %q: %w", name, err)
	}

	language := &model.Language{
		Name:      name,
		Logo:      logo,
		CreatedBy: user.ID,
		Notes:     []model.Note{},
	}

	// Write 1 of 2: the language document.
	if err := s.languages.Create(ctx, language); err != nil {
		return nil, fmt.Errorf("service/language: creating language %q: %w", name, err)
	}

	// Write 2 of 2: the owner's id list. If this fails the language exists
	// but is missing from the list — surfaced as an error, never rolled back.
	if err := s.users.AppendLanguage(ctx, user.ID, language.ID); err != nil {
		s.logger.Error("language created but owner list update failed",
			slog.String("languageID", language.ID),
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/language: updating owner list: %w", err)
	}

	s.logger.Info("language created",
		slog.String("languageID", language.ID),
		slog.String("name", language.Name),
		slog.String("userID", user.ID),
	)

	return language, nil
}

// DeleteLanguage removes the language document — taking all embedded notes
// with it — and then removes its ID from the owner's list.
//
// The list cleanup is best-effort: the deletion is NOT undone if it fails.
// A dangling ID in users.languages points at nothing and is harmless to
// readers, so it is logged and swallowed.
func (s *LanguageService) DeleteLanguage(ctx context.Context, user *model.User, languageID string) error {
	if strings.TrimSpace(languageID) == "" {
		return apperror.ValidationFailed("language_id", "The body needs to contain the language_id")
	}

	if err := s.languages.Delete(ctx, languageID); err != nil {
		return err
	}

	if err := s.users.RemoveLanguage(ctx, user.ID, languageID); err != nil {
		s.logger.Warn("language deleted but owner list cleanup failed",
			slog.String("languageID", languageID),
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("language deleted",
		slog.String("languageID", languageID),
		slog.String("userID", user.ID),
	)

	return nil
}

// ListLanguages returns the id+name of every language the caller owns.
// Ownership is enforced inside the query itself.
func (s *LanguageService) ListLanguages(ctx context.Context, user *model.User) ([]model.LanguageRef, error) {
	refs, err := s.languages.ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/language: listing for user %s: %w", user.ID, err)
	}
	return refs, nil
}

// GetDetails fetches a full language document by ID or, failing that, by
// case-insensitive name. Exactly one of the two must be provided.
func (s *LanguageService) GetDetails(ctx context.Context, languageID, name string) (*model.Language, error) {
	switch {
	case languageID != "":
		return s.languages.GetByID(ctx, languageID)
	case name != "":
		return s.languages.GetByNameFold(ctx, name)
	default:
		return nil, apperror.ValidationFailed("", "Either language_id or name is required.")
	}
}

// GetNotes returns the ordered note collection of one language.
func (s *LanguageService) GetNotes(ctx context.Context, languageID string) ([]model.Note, error) {
	if strings.TrimSpace(languageID) == "" {
		return nil, apperror.ValidationFailed("language_id", "Invalid language_id")
	}

	language, err := s.languages.GetByID(ctx, languageID)
	if err != nil {
		return nil, err
	}
	return language.Notes, nil
}

// GetNote returns one note addressed by (language, note) id pair.
func (s *LanguageService) GetNote(ctx context.Context, languageID, noteID string) (*model.Note, error) {
	if strings.TrimSpace(languageID) == "" || strings.TrimSpace(noteID) == "" {
		return nil, apperror.ValidationFailed("", "language_id and note_id are required.")
	}

	language, err := s.languages.GetByID(ctx, languageID)
	if err != nil {
		return nil, err
	}

	idx := noteIndex(language.Notes, noteID)
	if idx < 0 {
		return nil, apperror.NotFoundMessage(fmt.Sprintf("Note with ID %q not found", noteID))
	}
	return &language.Notes[idx], nil
}

// NoteWithLanguage is a note annotated with its parent's identity, for
// clients that addressed the language by display name and need the ID back.
type NoteWithLanguage struct {
	LanguageID   string `json:"languageId"`
	LanguageName string `json:"languageName"`
	model.Note
}

// GetNoteByLanguageName resolves the language case-insensitively by name and
// returns the addressed note together with the language attribution.
func (s *LanguageService) GetNoteByLanguageName(ctx context.Context, name, noteID string) (*NoteWithLanguage, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(noteID) == "" {
		return nil, apperror.ValidationFailed("", "Language name and note_id are required.")
	}

	language, err := s.languages.GetByNameFold(ctx, name)
	if err != nil {
		return nil, err
	}

	idx := noteIndex(language.Notes, noteID)
	if idx < 0 {
		return nil, apperror.NotFoundMessage("Note not found.")
	}

	return &NoteWithLanguage{
		LanguageID:   language.ID,
		LanguageName: language.Name,
		Note:         language.Notes[idx],
	}, nil
}

// CreateNoteInput is everything POST /languages/notes/newNote accepts.
type CreateNoteInput struct {
	LanguageID  string
	Title       string
	Description string
	Details     []model.NoteDetail
}

// CreateNote appends a note to the language's collection and returns the full
// updated document.
//
// Title uniqueness within the language is a case-sensitive exact match,
// checked only here — renames via UpdateNote do NOT re-check (see there).
// Creator attribution is denormalized at this moment and never refreshed.
func (s *LanguageService) CreateNote(ctx context.Context, user *model.User, in CreateNoteInput) (*model.Language, error) {
	if strings.TrimSpace(in.LanguageID) == "" {
		return nil, apperror.ValidationFailed("language_id", "Invalid language_id")
	}
	if in.Title == "" || in.Description == "" || in.Details == nil {
		return nil, apperror.ValidationFailed("", "Missing or invalid required fields in the body")
	}
	if err := validateDetails(in.Details, false); err != nil {
		return nil, err
	}

	language, err := s.languages.GetByID(ctx, in.LanguageID)
	if err != nil {
		return nil, err
	}

	for _, note := range language.Notes {
		if note.Title == in.Title {
			return nil, apperror.Conflict(fmt.Sprintf("Note with title %q already exists", in.Title))
		}
	}

	note := model.Note{
		ID:          xid.New().String(),
		Title:       in.Title,
		Description: in.Description,
		NoteDetail:  normalizeDetails(in.Details),
		CreatedBy: model.NoteAuthor{
			ID:        user.ID,
			FirstName: user.FirstName,
		},
		LastEdited: time.Now(),
	}

	language.Notes = append(language.Notes, note)

	if err := s.languages.SaveNotes(ctx, language); err != nil {
		return nil, fmt.Errorf("service/language: saving note %q: %w", in.Title, err)
	}

	s.logger.Info("note created",
		slog.String("languageID", language.ID),
		slog.String("noteID", note.ID),
		slog.String("title", note.Title),
	)

	return language, nil
}

// UpdateNote applies a partial update to one note and returns the full
// updated language document.
//
// nil title/description/details means "not provided — leave unchanged";
// a pointer to an empty string (or an empty details slice) means "explicitly
// set empty". LastEdited is always bumped, even for a no-op body.
//
// KNOWN, INTENTIONAL GAP: renaming a note does NOT re-check title uniqueness
// against its siblings, so an update can create the duplicate that CreateNote
// would have rejected. This mirrors long-standing behavior the product has
// not decided to change; the test suite pins it so nobody "fixes" it quietly.
func (s *LanguageService) UpdateNote(ctx context.Context, languageID, noteID string, title, description *string, details []model.NoteDetail) (*model.Language, error) {
	if strings.TrimSpace(languageID) == "" || strings.TrimSpace(noteID) == "" {
		return nil, apperror.ValidationFailed("", "Missing required fields: language_id and note_id are required.")
	}
	if details != nil {
		if err := validateDetails(details, true); err != nil {
			return nil, err
		}
	}

	language, err := s.languages.GetByID(ctx, languageID)
	if err != nil {
		return nil, err
	}

	idx := noteIndex(language.Notes, noteID)
	if idx < 0 {
		return nil, apperror.NotFoundMessage(fmt.Sprintf("Note with ID %q not found", noteID))
	}

	note := &language.Notes[idx]
	if title != nil {
		note.Title = *title
	}
	if description != nil {
		note.Description = *description
	}
	if details != nil {
		note.NoteDetail = normalizeDetails(details)
	}
	note.LastEdited = time.Now()

	if err := s.languages.SaveNotes(ctx, language); err != nil {
		return nil, fmt.Errorf("service/language: saving updated note %s: %w", noteID, err)
	}

	s.logger.Info("note updated",
		slog.String("languageID", language.ID),
		slog.String("noteID", noteID),
	)

	return language, nil
}

// DeleteNote removes one note from the collection, preserving the relative
// order of the remainder, and returns the full updated document.
// Deleting an already-deleted note is NotFound, never a silent success.
func (s *LanguageService) DeleteNote(ctx context.Context, languageID, noteID string) (*model.Language, error) {
	if strings.TrimSpace(languageID) == "" || strings.TrimSpace(noteID) == "" {
		return nil, apperror.ValidationFailed("", "The body needs to contain both language_id and note_id")
	}

	language, err := s.languages.GetByID(ctx, languageID)
	if err != nil {
		return nil, err
	}

	idx := noteIndex(language.Notes, noteID)
	if idx < 0 {
		return nil, apperror.NotFoundMessage("Note not found")
	}

	language.Notes = append(language.Notes[:idx], language.Notes[idx+1:]...)

	if err := s.languages.SaveNotes(ctx, language); err != nil {
		return nil, fmt.Errorf("service/language: saving after note delete %s: %w", noteID, err)
	}

	s.logger.Info("note deleted",
		slog.String("languageID", language.ID),
		slog.String("noteID", noteID),
	)

	return language, nil
}

// noteIndex finds a note by ID within the ordered collection, -1 if absent.
func noteIndex(notes []model.Note, noteID string) int {
	for i := range notes {
		if notes[i].ID == noteID {
			return i
		}
	}
	return -1
}

// validateDetails enforces the tagged-union contract on NoteDetail blocks:
// the type tag must be "text" or "img", content is required, and a text
// block's content must actually be a string. The img payload stays opaque —
// a base64/data-URL string or a structured upload are both fine.
//
// allowEmpty is true for updates, where an explicitly empty slice clears the
// blocks; creates require at least one.
func validateDetails(details []model.NoteDetail, allowEmpty bool) error {
	if len(details) == 0 && !allowEmpty {
		return apperror.ValidationFailed("note_detail", "Missing or invalid required fields in the body")
	}

	for i, d := range details {
		if d.Type != model.DetailTypeText && d.Type != model.DetailTypeImg {
			return apperror.ValidationFailed("note_detail",
				fmt.Sprintf("note_detail[%d].type must be %q or %q", i, model.DetailTypeText, model.DetailTypeImg))
		}
		if len(d.Content) == 0 || string(d.Content) == "null" {
			return apperror.ValidationFailed("note_detail",
				fmt.Sprintf("note_detail[%d].content is required", i))
		}
		if d.Type == model.DetailTypeText {
			if _, ok := d.ContentString(); !ok {
				return apperror.ValidationFailed("note_detail",
					fmt.Sprintf("note_detail[%d].content must be a string for text blocks", i))
			}
		}
	}
	return nil
}

// normalizeDetails copies the incoming blocks keeping only the schema fields,
// the same way the legacy mapper rebuilt each block on write.
func normalizeDetails(details []model.NoteDetail) []model.NoteDetail {
	out := make([]model.NoteDetail, len(details))
	for i, d := range details {
		out[i] = model.NoteDetail{
			Type:     d.Type,
			Language: d.Language,
			Content:  d.Content,
		}
	}
	return out
}
