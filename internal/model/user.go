// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Users arrive through two doors: classic email/password registration, or
// Google federated login. Password-holders have PasswordHash set; federated
// users have it empty and are identified by ExternalID (the Google subject ID,
// or a generated "custom-id-…" value for password accounts so the field is
// always populated and unique).
//
// WHY Languages []string ON THE USER?
// The user document carries an ordered list of the language IDs it owns, in
// addition to each language row carrying CreatedBy. This is denormalized on
// purpose — it is the shape the storage layout specifies (users embed their
// ownership list) and it makes the ownership chain walkable from either end.
// The two sides are kept in sync by the service layer with two writes and no
// transaction between them; see service.LanguageService.
type User struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Username       string    `json:"username"`
	Email          string    `json:"email"` // unique across all users
	PasswordHash   string    `json:"-"`     // bcrypt hash; empty for federated logins; never serialized
	ExternalID     string    `json:"userId"`
	Languages      []string  `json:"languages"` // ordered list of owned Language IDs
	IsAdmin        bool      `json:"isAdmin"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
