package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/lang-notes/internal/auth"
	"github.com/sakif/lang-notes/internal/model"
	"github.com/sakif/lang-notes/internal/service"
)

// LanguageHandler exposes the /languages routes: the language containers and
// the notes nested inside them. Every route here sits behind the
// auth.RequireUser middleware, so the resolved user is always in the context.
//
// A QUIRK INHERITED FROM THE CLIENTS: several read routes (getNotes,
// getNote/{id}) take their language_id in a GET request BODY. That is unusual
// HTTP but it is what the deployed clients send, so those routes stay,
// alongside the query-parameter variants (/note, /note/by-name) added later.
type LanguageHandler struct {
	languages *service.LanguageService
	logger    *slog.Logger
}

// NewLanguageHandler creates a LanguageHandler.
func NewLanguageHandler(languages *service.LanguageService, logger *slog.Logger) *LanguageHandler {
	return &LanguageHandler{languages: languages, logger: logger}
}

// requestUser pulls the authenticated user out of the context. The middleware
// guarantees it is there; the nil-check is belt and braces.
func (h *LanguageHandler) requestUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return nil, false
	}
	return user, true
}

// HandleList returns the caller's languages as [{id, name}].
//
// HTTP: GET /languages/
// Only languages whose createdBy matches the caller come back — user B never
// sees user A's list, and a user with none gets [].
func (h *LanguageHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requestUser(w, r)
	if !ok {
		return
	}

	refs, err := h.languages.ListLanguages(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, refs)
}

// HandleDetails returns one full language document by ID or name.
//
// HTTP: GET /languages/details?language_id=…  or  ?name=…
// Name matching is case-insensitive; ID wins when both are given.
func (h *LanguageHandler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	languageID := r.URL.Query().Get("language_id")
	name := r.URL.Query().Get("name")

	language, err := h.languages.GetDetails(r.Context(), languageID, name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, language)
}

// HandleGetNotes returns a language's ordered note collection.
//
// HTTP: GET /languages/getNotes
// BODY: {language_id}
func (h *LanguageHandler) HandleGetNotes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LanguageID string `json:"language_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid JSON body"})
		return
	}

	notes, err := h.languages.GetNotes(r.Context(), req.LanguageID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, notes)
}

// HandleGetNoteByPath returns one note; the note ID rides in the path and the
// language ID in the body.
//
// HTTP: GET /languages/getNote/{note_id}
// BODY: {language_id}
func (h *LanguageHandler) HandleGetNoteByPath(w http.ResponseWriter, r *http.Request) {
	noteID := r.PathValue("note_id")

	var req struct {
		LanguageID string `json:"language_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid JSON body"})
		return
	}

	note, err := h.languages.GetNote(r.Context(), req.LanguageID, noteID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, note)
}

// HandleGetNote returns one note addressed entirely by query parameters.
//
// HTTP: GET /languages/note?language_id=…&note_id=…
func (h *LanguageHandler) HandleGetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.languages.GetNote(r.Context(),
		r.URL.Query().Get("language_id"),
		r.URL.Query().Get("note_id"),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, note)
}

// HandleGetNoteByName resolves the language by display name (case-insensitive)
// and returns the note with the language's identity folded in.
//
// HTTP: GET /languages/note/by-name?name=…&note_id=…
// RESPONSE: {languageId, languageName, …note fields…}
func (h *LanguageHandler) HandleGetNoteByName(w http.ResponseWriter, r *http.Request) {
	result, err := h.languages.GetNoteByLanguageName(r.Context(),
		r.URL.Query().Get("name"),
		r.URL.Query().Get("note_id"),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleCreateLanguage creates a new language container owned by the caller.
//
// HTTP: POST /languages/addNewCourse
// BODY: {name, logo?}
// RESPONSE: 201 with the created Language, 400 if the name is taken.
func (h *LanguageHandler) HandleCreateLanguage(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requestUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
		Logo string `json:"logo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid JSON body"})
		return
	}

	language, err := h.languages.CreateLanguage(r.Context(), user, req.Name, req.Logo)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, language)
}

// HandleCreateNote appends a note to a language.
//
// HTTP: POST /languages/notes/newNote
// BODY: {language_id, title, description, note_detail: [{type, language?, content}]}
// RESPONSE: 201 with the FULL updated Language document.
func (h *LanguageHandler) HandleCreateNote(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requestUser(w, r)
	if !ok {
		return
	}

	var req struct {
		LanguageID  string             `json:"language_id"`
		Title       string             `json:"title"`
		Description string             `json:"description"`
		NoteDetail  []model.NoteDetail `json:"note_detail"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid JSON body"})
		return
	}

	language, err := h.languages.CreateNote(r.Context(), user, service.CreateNoteInput{
		LanguageID:  req.LanguageID,
		Title:       req.Title,
		Description: req.Description,
		Details:     req.NoteDetail,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, language)
}

// HandleUpdateNote applies a partial update to one note.
//
// HTTP: PUT /languages/notes/updateNote
// BODY: {language_id, note_id, title?, description?, note_detail?}
//
// POINTER FIELDS FOR PARTIAL UPDATE:
// *string decodes to nil when a key is absent and to a (possibly empty)
// string when present — that's how "not provided" and "explicitly empty"
// stay distinguishable all the way down to the service.
func (h *LanguageHandler) HandleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LanguageID  string             `json:"language_id"`
		NoteID      string             `json:"note_id"`
		Title       *string            `json:"title"`
		Description *string            `json:"description"`
		NoteDetail  []model.NoteDetail `json:"note_detail"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid JSON body"})
		return
	}

	language, err := h.languages.UpdateNote(r.Context(),
		req.LanguageID, req.NoteID, req.Title, req.Description, req.NoteDetail)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, language)
}

// HandleDeleteLanguage removes a language and everything embedded in it.
//
// HTTP: DELETE /languages/deleteLanguage
// BODY: {language_id}
func (h *LanguageHandler) HandleDeleteLanguage(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requestUser(w, r)
	if !ok {
		return
	}

	var req struct {
		LanguageID string `json:"language_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid JSON body"})
		return
	}

	if err := h.languages.DeleteLanguage(r.Context(), user, req.LanguageID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Successfully deleted language and updated user's languages",
	})
}

// HandleDeleteNote removes one note from a language's collection.
//
// HTTP: DELETE /languages/deleteNote
// BODY: {language_id, note_id}
// RESPONSE: {message, updatedLanguage} — the document after the removal.
func (h *LanguageHandler) HandleDeleteNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LanguageID string `json:"language_id"`
		NoteID     string `json:"note_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "Invalid JSON body"})
		return
	}

	language, err := h.languages.DeleteNote(r.Context(), req.LanguageID, req.NoteID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Note deleted successfully",
		"updatedLanguage": language,
	})
}
