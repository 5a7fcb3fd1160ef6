package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_LevelFor(t *testing.T) {
	tests := []struct {
		name string
		xp   int
		want int
	}{
		{"zero", 0, 1},
		{"negative counts as zero", -50, 1},
		{"just below level 2", 99, 1},
		{"exactly level 2", 100, 2},
		{"between 3 and 4", 450, 3},
		{"exactly level 10", 4500, 10},
		{"capped at max level", 1_000_000, 10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DefaultTable.LevelFor(tc.xp))
		})
	}
}

func TestTable_ThresholdsMapToTheirLevel(t *testing.T) {
	for _, th := range DefaultTable {
		assert.Equal(t, th.Level, DefaultTable.LevelFor(th.XP), "level %d", th.Level)
	}
}

func TestTable_LevelForIsMonotonic(t *testing.T) {
	prev := DefaultTable.LevelFor(0)
	for xp := 1; xp <= 5000; xp++ {
		cur := DefaultTable.LevelFor(xp)
		require.GreaterOrEqual(t, cur, prev, "xp %d", xp)
		prev = cur
	}
}

func TestTable_Advance(t *testing.T) {
	small, err := NewTable(map[int]int{1: 0, 2: 100, 3: 300})
	require.NoError(t, err)

	level, changed := small.Advance(1, 100)
	assert.Equal(t, 2, level)
	assert.True(t, changed)

	level, changed = small.Advance(2, 150)
	assert.Equal(t, 2, level)
	assert.False(t, changed)

	// a stored level above the curve is never lowered
	level, changed = small.Advance(3, 10)
	assert.Equal(t, 3, level)
	assert.False(t, changed)

	level, changed = small.Advance(1, 300)
	assert.Equal(t, 3, level)
	assert.True(t, changed)
}

func TestNewTable_Validation(t *testing.T) {
	tests := []struct {
		name   string
		input  map[int]int
		wantOK bool
	}{
		{"valid", map[int]int{1: 0, 2: 10, 3: 20}, true},
		{"empty", map[int]int{}, false},
		{"level one not zero", map[int]int{1: 5, 2: 10}, false},
		{"missing level one", map[int]int{2: 10, 3: 20}, false},
		{"gap", map[int]int{1: 0, 3: 20}, false},
		{"not ascending", map[int]int{1: 0, 2: 50, 3: 50}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tbl, err := NewTable(tc.input)
			if tc.wantOK {
				require.NoError(t, err)
				assert.Len(t, tbl, len(tc.input))
				return
			}
			assert.ErrorIs(t, err, ErrInvalidTable)
		})
	}
}

func TestTable_Thresholds(t *testing.T) {
	xp, ok := DefaultTable.ThresholdFor(4)
	assert.True(t, ok)
	assert.Equal(t, 600, xp)

	next, ok := DefaultTable.NextThreshold(4)
	assert.True(t, ok)
	assert.Equal(t, 1000, next)

	_, ok = DefaultTable.NextThreshold(DefaultTable.MaxLevel())
	assert.False(t, ok)
	assert.Equal(t, 10, DefaultTable.MaxLevel())
}

func TestLevelsCrossed(t *testing.T) {
	assert.Equal(t, []int{2, 3, 4}, LevelsCrossed(1, 4))
	assert.Nil(t, LevelsCrossed(3, 3))
	assert.Nil(t, LevelsCrossed(4, 2))
}
