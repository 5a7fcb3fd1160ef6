// Package badges derives achievement badges from a user's visit history.
package badges

import (
	"sort"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
	"golang.org/x/text/cases"
)

const (
	Scholar    = "scholar"
	Foodie     = "foodie"
	Socializer = "socializer"
	Athlete    = "athlete"
	Explorer   = "explorer"
)

// Category names the rules look at, compared case-insensitively.
const (
	CategoryFood    = "Food"
	CategoryHangout = "Hangout spots"
	CategorySports  = "Sports"
)

// ExplorerThreshold is the number of distinct places needed for the explorer badge.
const ExplorerThreshold = 10

var (
	academicKeywords = []string{"library", "lecture", "classroom", "laboratory", "lab", "auditorium", "department", "seminar", "academic"}
	socialKeywords   = []string{"hangout", "cafe", "café", "lounge", "common room", "club", "social"}
)

// VisitedPlace is the part of a visited place the rules need. Category is
// empty when the place has none.
type VisitedPlace struct {
	PlaceID     int64
	Description string
	Category    string
}

// Deriver holds the keyword automata. It is safe for concurrent use.
type Deriver struct {
	academic ahocorasick.AhoCorasick
	social   ahocorasick.AhoCorasick
}

func NewDeriver() *Deriver {
	return &Deriver{
		academic: buildMatcher(academicKeywords),
		social:   buildMatcher(socialKeywords),
	}
}

func buildMatcher(keywords []string) ahocorasick.AhoCorasick {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  true,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
		DFA:                  true,
	})
	return builder.Build(keywords)
}

var defaultDeriver = NewDeriver()

// Derive computes badges with the package default Deriver.
func Derive(visited []VisitedPlace) []string {
	return defaultDeriver.Derive(visited)
}

// Derive recomputes the complete badge set for visited. The result is
// sorted and replaces whatever the user held before.
func (d *Deriver) Derive(visited []VisitedPlace) []string {
	fold := cases.Fold()
	foodKey := fold.String(CategoryFood)
	hangoutKey := fold.String(CategoryHangout)
	sportsKey := fold.String(CategorySports)

	earned := make(map[string]struct{})
	categories := make(map[string]struct{})
	distinct := make(map[int64]struct{})
	socialMention := false

	for _, p := range visited {
		distinct[p.PlaceID] = struct{}{}
		desc := fold.String(p.Description)
		category := fold.String(p.Category)
		categories[category] = struct{}{}

		if len(d.academic.FindAll(desc)) > 0 {
			earned[Scholar] = struct{}{}
		}
		if len(d.social.FindAll(desc)) > 0 {
			socialMention = true
		}
		switch category {
		case foodKey:
			earned[Foodie] = struct{}{}
		case sportsKey:
			earned[Athlete] = struct{}{}
		}
	}

	// socializer needs a social mention and nothing but hangout spots visited
	if _, onlyHangout := categories[hangoutKey]; socialMention && onlyHangout && len(categories) == 1 {
		earned[Socializer] = struct{}{}
	}
	if len(distinct) >= ExplorerThreshold {
		earned[Explorer] = struct{}{}
	}

	out := make([]string, 0, len(earned))
	for b := range earned {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}
