package models

import "time"

// Identity is the authentication provider's record of a principal.
// DisplayName and PhotoURL are the only fields this system may update.
type Identity struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	PhotoURL    string    `json:"photo_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Profile is the application-level per-user record, keyed by Identity UID.
// PostsCount is a denormalized counter maintained incrementally on every
// post create/delete, never recomputed from the feed.
type Profile struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	PhotoURL    string    `json:"photo_url"`
	CreatedAt   time.Time `json:"created_at"`
	Bio         string    `json:"bio"`
	PostsCount  int64     `json:"posts_count"`
}

// User is the resolved view of a signed-in principal: Identity fields
// merged with Profile fallbacks. Identity values win when non-empty.
type User struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	PhotoURL    string    `json:"photo_url"`
	CreatedAt   time.Time `json:"created_at"`
	Bio         string    `json:"bio"`
	PostsCount  int64     `json:"posts_count"`
}

// Post is a feed entry. Owner display name and photo are captured at
// creation time and not live-updated afterwards.
type Post struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	UserDisplayName string    `json:"user_display_name"`
	UserPhotoURL    string    `json:"user_photo_url"`
	Content         string    `json:"content"`
	ImageURL        string    `json:"image_url"`
	CreatedAt       time.Time `json:"created_at"`
	Likes           int64     `json:"likes"`
	LikedBy         []string  `json:"liked_by"`
}

// Account is the identity provider's stored credential record.
type Account struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	PhotoURL     string    `json:"photo_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// Device is a registered push-notification target for a user.
type Device struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}
