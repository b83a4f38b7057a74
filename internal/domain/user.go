package domain

import "time"

// Profile is the identity part of a user, set on first authentication.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// User is owned by one user actor.
type User struct {
	Profile Profile `json:"profile"`

	// BookmarkedIDs holds resource ids, newest first, unique.
	BookmarkedIDs []string `json:"bookmarkedIds"`

	// ViewedIDs holds resource ids, most recently viewed first, unique.
	ViewedIDs []string `json:"viewedIds"`
}
