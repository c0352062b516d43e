package model

import (
	"encoding/json"
	"time"
)

// Language is a user-owned named container for notes — a "course" in the
// client's vocabulary (e.g. the topic "python").
//
// Notes live INSIDE the language document, not in their own table. The whole
// notes array is loaded, mutated in memory, and written back as one unit.
// That makes the Language row the unit of atomicity: a note is a position in
// its parent's ordered collection, not an independently addressable record.
//
// CreatedBy may be empty on legacy records — such languages are orphaned and
// simply never show up in any user's list.
type Language struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Logo      string    `json:"logo,omitempty"` // inline SVG or URL, optional
	CreatedBy string    `json:"createdBy"`      // owning user's ID
	Notes     []Note    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}

// LanguageRef is the projection returned by list endpoints: just enough for
// the client to render a menu without shipping every embedded note.
type LanguageRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Note is a titled unit of content embedded in a Language.
//
// CreatedBy is denormalized on purpose: the creator's first name is copied in
// at creation time and never refreshed, so reads don't need a user lookup.
// If the user later renames themselves, old notes keep the old name.
type Note struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	NoteDetail  []NoteDetail `json:"noteDetail"`
	CreatedBy   NoteAuthor   `json:"createdBy"`
	LastEdited  time.Time    `json:"last_edited"`
}

// NoteAuthor is the denormalized creator attribution stored on each note.
type NoteAuthor struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
}

// Detail variant tags. A NoteDetail is a tagged union: the Type discriminator
// decides how Content is interpreted.
const (
	DetailTypeText = "text"
	DetailTypeImg  = "img"
)

// NoteDetail is a single content block within a note.
//
// Content is kept as raw JSON rather than a Go type because the two variants
// carry different payloads: "text" holds a string of (usually code) text,
// "img" holds an image payload — a base64/data-URL string or a structured
// upload object. The service layer validates the payload against the Type tag;
// this struct stores it verbatim so nothing is lost round-tripping.
//
// Language is the syntax-highlight hint for text blocks ("javascript",
// "python", …). It is unrelated to the Language entity above; the name is
// inherited from the client's wire format.
type NoteDetail struct {
	Type     string          `json:"type"`
	Language string          `json:"language,omitempty"`
	Content  json.RawMessage `json:"content"`
}

// ContentString decodes Content as a JSON string. Returns false if the
// payload is not a string (e.g. a structured img upload).
func (d NoteDetail) ContentString() (string, bool) {
	var s string
	if err := json.Unmarshal(d.Content, &s); err != nil {
		return "", false
	}
	return s, true
}
