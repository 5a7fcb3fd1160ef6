package models

import (
	"time"

	"github.com/google/uuid"
)

// PlaceType tells whether a place is indoors or outdoors.
type PlaceType string

const (
	PlaceTypeInside  PlaceType = "inside"
	PlaceTypeOutside PlaceType = "outside"
)

// Valid reports whether t is one of the known place types.
func (t PlaceType) Valid() bool {
	return t == PlaceTypeInside || t == PlaceTypeOutside
}

// DefaultXPReward is awarded for a first visit when no reward is given.
const DefaultXPReward = 20

type Category struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Icon        string `json:"icon" db:"icon"`
	Description string `json:"description" db:"description"`
	SortOrder   int    `json:"order" db:"sort_order"`
}

type Place struct {
	ID           int64      `json:"id" db:"id"`
	CreatedBy    *uuid.UUID `json:"created_by,omitempty" db:"created_by"`
	Name         string     `json:"name" db:"name"`
	Type         PlaceType  `json:"type" db:"type"`
	Description  string     `json:"description" db:"description"`
	CategoryID   *int64     `json:"category_id,omitempty" db:"category_id"`
	CategoryName string     `json:"category,omitempty" db:"category_name"`
	CoordX       float64    `json:"coord_x" db:"coord_x"`
	CoordY       float64    `json:"coord_y" db:"coord_y"`
	Visits       int        `json:"visits" db:"visits"`
	Level        int        `json:"level" db:"level"`
	XPReward     int        `json:"xp_reward" db:"xp_reward"`
	Approved     bool       `json:"approved" db:"approved"`
	Tags         []string   `json:"tags" db:"tags"`
	Images       []string   `json:"images,omitempty"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// PlaceFilter carries the list filters accepted by the places endpoint.
type PlaceFilter struct {
	Type       PlaceType
	Name       string
	Visits     *int
	VisitsGTE  *int
	VisitsLTE  *int
	CategoryID *int64
	CoordX     *float64
	CoordY     *float64
	// ApprovedOnly hides unapproved places, except those created by VisibleTo.
	ApprovedOnly bool
	VisibleTo    *uuid.UUID
	Limit        int
	Offset       int
}

type CreatePlaceRequest struct {
	Name        string    `json:"name" binding:"required,max=255"`
	Type        PlaceType `json:"type" binding:"required,oneof=inside outside"`
	Description string    `json:"description"`
	CategoryID  *int64    `json:"category_id"`
	CoordX      float64   `json:"coord_x"`
	CoordY      float64   `json:"coord_y"`
	Level       int       `json:"level" binding:"omitempty,min=1"`
	XPReward    int       `json:"xp_reward" binding:"omitempty,min=0"`
	Approved    bool      `json:"approved"`
	Tags        []string  `json:"tags"`
	Images      []string  `json:"images"`
}

type UpdatePlaceRequest struct {
	Name        *string    `json:"name,omitempty"`
	Type        *PlaceType `json:"type,omitempty"`
	Description *string    `json:"description,omitempty"`
	CategoryID  *int64     `json:"category_id,omitempty"`
	CoordX      *float64   `json:"coord_x,omitempty"`
	CoordY      *float64   `json:"coord_y,omitempty"`
	Level       *int       `json:"level,omitempty"`
	XPReward    *int       `json:"xp_reward,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
}

type SavedPlace struct {
	ID      int64     `json:"id" db:"id"`
	UserID  uuid.UUID `json:"user_id" db:"user_id"`
	Place   Place     `json:"place"`
	SavedAt time.Time `json:"saved_at" db:"saved_at"`
}

// SaveResult reports the outcome of bookmarking a place. A repeated save is
// not an error, it just comes back with AlreadySaved set.
type SaveResult struct {
	PlaceID      int64  `json:"place_id"`
	AlreadySaved bool   `json:"already_saved"`
	Message      string `json:"message"`
}
