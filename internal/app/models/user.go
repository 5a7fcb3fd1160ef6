package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a player of the campus map. XP, Level and Badges are derived state
// and are only written by the visit flow.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Username  string    `json:"username" db:"username"`
	Avatar    *int      `json:"avatar,omitempty" db:"avatar"`
	XP        int       `json:"xp" db:"xp"`
	Level     int       `json:"level" db:"level"`
	Badges    []string  `json:"badges" db:"badges"`
	Visible   bool      `json:"visible" db:"visible"`
	Online    bool      `json:"online" db:"online"`
	CoordX    float64   `json:"coord_x" db:"coord_x"`
	CoordY    float64   `json:"coord_y" db:"coord_y"`
	IsAdmin   bool      `json:"is_admin" db:"is_admin"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Identity is what the auth layer knows about the caller of a request.
type Identity struct {
	UserID   uuid.UUID
	Email    string
	Username string
	IsAdmin  bool
}

// UpdateProfileParams lists the profile fields a user may change themselves.
// Progression fields are deliberately absent.
type UpdateProfileParams struct {
	Username *string  `json:"username,omitempty"`
	Avatar   *int     `json:"avatar,omitempty"`
	Visible  *bool    `json:"visible,omitempty"`
	Online   *bool    `json:"online,omitempty"`
	CoordX   *float64 `json:"coord_x,omitempty"`
	CoordY   *float64 `json:"coord_y,omitempty"`
}

// Profile is the user view returned by the profile endpoint.
type Profile struct {
	User
	VisitCount      int  `json:"visit_count"`
	NextLevelXP     *int `json:"next_level_xp,omitempty"`
	SavedPlaceCount int  `json:"saved_place_count"`
}
