package recommend

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt_RelevantFirst(t *testing.T) {
	p := BuildPrompt([]Candidate{
		{ID: 1, Name: "Gym", Description: "Weights"},
		{ID: 2, Name: "Canteen", Description: "Dosa", Relevant: true},
		{ID: 3, Name: "Lake", Description: "Quiet"},
	}, 2)

	assert.Equal(t, []int64{2, 1, 3}, p.CandidateIDs)
	assert.Equal(t, "You are a campus guide assistant.", p.System)
	assert.Less(t, strings.Index(p.User, "Canteen"), strings.Index(p.User, "Gym"))
	assert.Contains(t, p.User, "Pick exactly 2 must-visit places")
	assert.Contains(t, p.User, "2 | Canteen | yes | Dosa")
}

func TestBuildPrompt_Bounded(t *testing.T) {
	candidates := make([]Candidate, 0, MaxCandidates+10)
	for i := 0; i < MaxCandidates+10; i++ {
		candidates = append(candidates, Candidate{
			ID:          int64(i + 1),
			Name:        fmt.Sprintf("Place %d", i+1),
			Description: strings.Repeat("é", MaxDescriptionRunes*2),
		})
	}

	p := BuildPrompt(candidates, 3)
	assert.Len(t, p.CandidateIDs, MaxCandidates)
	assert.NotContains(t, p.User, fmt.Sprintf("Place %d |", MaxCandidates+1))
	assert.Contains(t, p.User, strings.Repeat("é", MaxDescriptionRunes)+"...")
	assert.NotContains(t, p.User, strings.Repeat("é", MaxDescriptionRunes+1))
}

func TestBuildPrompt_FlattensNewlines(t *testing.T) {
	p := BuildPrompt([]Candidate{{ID: 9, Name: "Hall\nA", Description: "line one\n\nline two"}}, 1)
	assert.Contains(t, p.User, "9 | Hall A | no | line one line two\n")
}

func TestParseIDs(t *testing.T) {
	tests := []struct {
		reply string
		want  []int64
	}{
		{"3, 7, x, 9", []int64{3, 7, 9}},
		{"12", []int64{12}},
		{"", []int64{}},
		{"none of these", []int64{}},
		{" 4 ,5.,[6]", []int64{4, 5, 6}},
		{"1 2, 3", []int64{3}},
	}
	for _, tc := range tests {
		t.Run(tc.reply, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseIDs(tc.reply))
		})
	}
}

func TestUpstreamError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &UpstreamError{Err: fmt.Errorf("status 502")})
	assert.ErrorIs(t, err, ErrUpstream)

	var ue *UpstreamError
	assert.ErrorAs(t, err, &ue)
	assert.Equal(t, "Error getting recommendations: status 502", ue.PublicMessage())
}
