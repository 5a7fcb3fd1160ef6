// Package progression maps accumulated XP to levels.
package progression

import (
	"errors"
	"fmt"
	"sort"
)

// Threshold is the minimum XP needed to reach Level.
type Threshold struct {
	Level int
	XP    int
}

// Table is a threshold table sorted by level, starting at level 1 with 0 XP.
type Table []Threshold

// DefaultTable is the campus level curve.
var DefaultTable = Table{
	{Level: 1, XP: 0},
	{Level: 2, XP: 100},
	{Level: 3, XP: 300},
	{Level: 4, XP: 600},
	{Level: 5, XP: 1000},
	{Level: 6, XP: 1500},
	{Level: 7, XP: 2100},
	{Level: 8, XP: 2800},
	{Level: 9, XP: 3600},
	{Level: 10, XP: 4500},
}

var ErrInvalidTable = errors.New("invalid threshold table")

// NewTable builds a Table from a level to XP map. Levels must run 1..n
// without gaps, level 1 must need 0 XP and thresholds must strictly increase.
func NewTable(thresholds map[int]int) (Table, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("%w: no levels", ErrInvalidTable)
	}
	t := make(Table, 0, len(thresholds))
	for level, xp := range thresholds {
		t = append(t, Threshold{Level: level, XP: xp})
	}
	sort.Slice(t, func(i, j int) bool { return t[i].Level < t[j].Level })

	if t[0].Level != 1 || t[0].XP != 0 {
		return nil, fmt.Errorf("%w: level 1 must start at 0 XP", ErrInvalidTable)
	}
	for i := 1; i < len(t); i++ {
		if t[i].Level != t[i-1].Level+1 {
			return nil, fmt.Errorf("%w: level %d is missing", ErrInvalidTable, t[i-1].Level+1)
		}
		if t[i].XP <= t[i-1].XP {
			return nil, fmt.Errorf("%w: level %d threshold %d is not above %d", ErrInvalidTable, t[i].Level, t[i].XP, t[i-1].XP)
		}
	}
	return t, nil
}

// LevelFor returns the highest level whose threshold is at or below xp.
// Negative xp counts as zero and the result never exceeds MaxLevel.
func (t Table) LevelFor(xp int) int {
	if len(t) == 0 {
		return 1
	}
	// first index whose threshold is above xp
	i := sort.Search(len(t), func(i int) bool { return t[i].XP > xp })
	if i == 0 {
		return t[0].Level
	}
	return t[i-1].Level
}

// Advance returns the level for xp without ever going below current.
func (t Table) Advance(current, xp int) (level int, changed bool) {
	level = t.LevelFor(xp)
	if level < current {
		level = current
	}
	return level, level != current
}

func (t Table) MaxLevel() int {
	if len(t) == 0 {
		return 1
	}
	return t[len(t)-1].Level
}

// ThresholdFor returns the XP needed for level.
func (t Table) ThresholdFor(level int) (int, bool) {
	for _, th := range t {
		if th.Level == level {
			return th.XP, true
		}
	}
	return 0, false
}

// NextThreshold returns the XP needed for the level after level, or false at the cap.
func (t Table) NextThreshold(level int) (int, bool) {
	return t.ThresholdFor(level + 1)
}

// LevelsCrossed lists every level above from up to and including to.
func LevelsCrossed(from, to int) []int {
	if to <= from {
		return nil
	}
	out := make([]int, 0, to-from)
	for l := from + 1; l <= to; l++ {
		out = append(out, l)
	}
	return out
}
