package models

import (
	"time"

	"github.com/google/uuid"
)

// TriggerType is the condition class that makes a suggestion relevant.
type TriggerType string

const (
	TriggerTimeBased  TriggerType = "time_based"
	TriggerLevelUp    TriggerType = "level_up"
	TriggerNewPlace   TriggerType = "new_place"
	TriggerInactivity TriggerType = "inactivity"
	TriggerCategory   TriggerType = "category"
)

// Valid reports whether t is one of the known trigger types.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerTimeBased, TriggerLevelUp, TriggerNewPlace, TriggerInactivity, TriggerCategory:
		return true
	}
	return false
}

// Names of the seeded suggestion types.
const (
	SuggestionTypeNewPlace    = "New Place"
	SuggestionTypeLevelUp     = "Level Up"
	SuggestionTypeExploration = "Exploration"
	SuggestionTypeCategory    = "Category"
)

type SuggestionType struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

type Suggestion struct {
	ID           int64       `json:"id" db:"id"`
	PlaceID      int64       `json:"place_id" db:"place_id"`
	PlaceName    string      `json:"place_name,omitempty" db:"place_name"`
	TypeID       *int64      `json:"type_id,omitempty" db:"type_id"`
	Message      string      `json:"message" db:"message"`
	TriggerType  TriggerType `json:"trigger_type" db:"trigger_type"`
	MinUserLevel int         `json:"min_user_level" db:"min_user_level"`
	Priority     int         `json:"priority" db:"priority"`
	Active       bool        `json:"active" db:"active"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// UserSuggestion is the per user interaction record for a suggestion.
type UserSuggestion struct {
	ID           int64       `json:"id" db:"id"`
	UserID       uuid.UUID   `json:"user_id" db:"user_id"`
	SuggestionID int64       `json:"suggestion_id" db:"suggestion_id"`
	Shown        bool        `json:"is_shown" db:"is_shown"`
	Dismissed    bool        `json:"is_dismissed" db:"is_dismissed"`
	Followed     bool        `json:"is_followed" db:"is_followed"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	ShownAt      *time.Time  `json:"shown_at,omitempty" db:"shown_at"`
	DismissedAt  *time.Time  `json:"dismissed_at,omitempty" db:"dismissed_at"`
	FollowedAt   *time.Time  `json:"followed_at,omitempty" db:"followed_at"`
	Suggestion   *Suggestion `json:"suggestion,omitempty"`
}

// SuggestionAction is a user response to a shown suggestion.
type SuggestionAction string

const (
	ActionDismiss SuggestionAction = "dismiss"
	ActionFollow  SuggestionAction = "follow"
)

type SuggestionActionRequest struct {
	SuggestionID int64            `json:"suggestion_id" binding:"required,min=1"`
	Action       SuggestionAction `json:"action" binding:"required"`
}

// SuggestionActionResult reports a dismiss or follow. Changed is false when
// the flag was already set.
type SuggestionActionResult struct {
	UserSuggestion UserSuggestion `json:"user_suggestion"`
	Changed        bool           `json:"changed"`
	Message        string         `json:"message"`
}

type TriggerRequest struct {
	Trigger    TriggerType `json:"trigger" binding:"required"`
	CategoryID *int64      `json:"category_id,omitempty"`
}

// TriggerResult is returned by the on-demand trigger endpoint.
type TriggerResult struct {
	Trigger         TriggerType      `json:"trigger"`
	UserSuggestions []UserSuggestion `json:"user_suggestions,omitempty"`
	Places          []Place          `json:"places,omitempty"`
	Message         string           `json:"message,omitempty"`
}

// CategorySuggestions is the answer of the category based mode.
type CategorySuggestions struct {
	Category Category `json:"category"`
	Places   []Place  `json:"places"`
	Message  string   `json:"message,omitempty"`
}

type CreateSuggestionRequest struct {
	PlaceID      int64       `json:"place_id" binding:"required,min=1"`
	TypeID       *int64      `json:"type_id,omitempty"`
	Message      string      `json:"message" binding:"required"`
	TriggerType  TriggerType `json:"trigger_type" binding:"required"`
	MinUserLevel int         `json:"min_user_level" binding:"omitempty,min=1"`
	Priority     int         `json:"priority"`
	Active       *bool       `json:"active,omitempty"`
}

type UpdateSuggestionRequest struct {
	Message      *string `json:"message,omitempty"`
	MinUserLevel *int    `json:"min_user_level,omitempty"`
	Priority     *int    `json:"priority,omitempty"`
	Active       *bool   `json:"active,omitempty"`
}
