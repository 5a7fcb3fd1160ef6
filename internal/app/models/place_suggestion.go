package models

import (
	"time"

	"github.com/google/uuid"
)

// PlaceSuggestionStatus is the moderation state of a user contributed place.
type PlaceSuggestionStatus string

const (
	StatusPending     PlaceSuggestionStatus = "pending"
	StatusApproved    PlaceSuggestionStatus = "approved"
	StatusRejected    PlaceSuggestionStatus = "rejected"
	StatusImplemented PlaceSuggestionStatus = "implemented"
)

// Valid reports whether s is a known status.
func (s PlaceSuggestionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusImplemented:
		return true
	}
	return false
}

// ProcessAction is an admin decision on a place suggestion.
type ProcessAction string

const (
	ProcessApprove   ProcessAction = "approve"
	ProcessReject    ProcessAction = "reject"
	ProcessImplement ProcessAction = "implement"
)

type PlaceSuggestion struct {
	ID             int64                 `json:"id" db:"id"`
	SuggestedBy    uuid.UUID             `json:"suggested_by" db:"suggested_by"`
	Name           string                `json:"name" db:"name"`
	Type           PlaceType             `json:"type" db:"type"`
	Description    string                `json:"description" db:"description"`
	CategoryID     *int64                `json:"category_id,omitempty" db:"category_id"`
	CoordX         float64               `json:"coord_x" db:"coord_x"`
	CoordY         float64               `json:"coord_y" db:"coord_y"`
	Tags           []string              `json:"tags" db:"tags"`
	Status         PlaceSuggestionStatus `json:"status" db:"status"`
	AdminNotes     string                `json:"admin_notes" db:"admin_notes"`
	CreatedPlaceID *int64                `json:"created_place_id,omitempty" db:"created_place_id"`
	CreatedAt      time.Time             `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at" db:"updated_at"`
}

type CreatePlaceSuggestionRequest struct {
	Name        string    `json:"name" binding:"required,max=255"`
	Type        PlaceType `json:"type" binding:"required,oneof=inside outside"`
	Description string    `json:"description"`
	CategoryID  *int64    `json:"category_id"`
	CoordX      float64   `json:"coord_x"`
	CoordY      float64   `json:"coord_y"`
	Tags        []string  `json:"tags"`
}

type UpdatePlaceSuggestionRequest struct {
	Name        *string    `json:"name,omitempty"`
	Type        *PlaceType `json:"type,omitempty"`
	Description *string    `json:"description,omitempty"`
	CategoryID  *int64     `json:"category_id,omitempty"`
	CoordX      *float64   `json:"coord_x,omitempty"`
	CoordY      *float64   `json:"coord_y,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

type ProcessPlaceSuggestionRequest struct {
	Action     ProcessAction `json:"action" binding:"required"`
	AdminNotes string        `json:"admin_notes"`
}

// ProcessResult is the outcome of an admin decision. Place is only set when
// the suggestion was implemented by this call.
type ProcessResult struct {
	PlaceSuggestion PlaceSuggestion `json:"place_suggestion"`
	Place           *Place          `json:"place,omitempty"`
	Changed         bool            `json:"changed"`
	Message         string          `json:"message"`
}

type PlaceSuggestionFilter struct {
	SuggestedBy *uuid.UUID
	Status      PlaceSuggestionStatus
	Limit       int
	Offset      int
}
