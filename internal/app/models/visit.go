package models

import (
	"time"

	"github.com/google/uuid"
)

type Visit struct {
	ID        int64     `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	PlaceID   int64     `json:"place_id" db:"place_id"`
	PlaceName string    `json:"place_name" db:"place_name"`
	VisitedAt time.Time `json:"visited_at" db:"visited_at"`
}

type VisitRequest struct {
	PlaceID int64 `json:"place_id" binding:"required,min=1"`
}

// VisitResult has the same shape for first and repeated visits.
type VisitResult struct {
	Place          string   `json:"place"`
	PlaceID        int64    `json:"place_id"`
	XP             int      `json:"xp"`
	Level          int      `json:"level"`
	Visits         int      `json:"visits"`
	Badges         []string `json:"badges"`
	AlreadyVisited bool     `json:"already_visited"`
	LeveledUp      bool     `json:"leveled_up"`
	Message        string   `json:"message"`
}
