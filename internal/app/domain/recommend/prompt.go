package recommend

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// MaxCandidates bounds how many places are sent upstream in one prompt.
	MaxCandidates = 40
	// MaxDescriptionRunes truncates each candidate description.
	MaxDescriptionRunes = 240

	systemInstruction = "You are a campus guide assistant."
)

// Candidate is a place the model may recommend.
type Candidate struct {
	ID          int64
	Name        string
	Description string
	Relevant    bool
}

type Prompt struct {
	System string
	User   string
	// CandidateIDs are the ids actually listed in User.
	CandidateIDs []int64
}

// BuildPrompt lists relevant candidates first and asks for exactly count ids.
func BuildPrompt(candidates []Candidate, count int) Prompt {
	ordered := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Relevant {
			ordered = append(ordered, c)
		}
	}
	for _, c := range candidates {
		if !c.Relevant {
			ordered = append(ordered, c)
		}
	}
	if len(ordered) > MaxCandidates {
		ordered = ordered[:MaxCandidates]
	}

	ids := make([]int64, 0, len(ordered))
	var b strings.Builder
	b.WriteString("Campus places (id | name | relevant | description):\n")
	for _, c := range ordered {
		ids = append(ids, c.ID)
		relevant := "no"
		if c.Relevant {
			relevant = "yes"
		}
		fmt.Fprintf(&b, "%s | %s | %s | %s\n",
			strconv.FormatInt(c.ID, 10), oneLine(c.Name), relevant, truncate(oneLine(c.Description), MaxDescriptionRunes))
	}
	fmt.Fprintf(&b, "\nPick exactly %d must-visit places from the list above.\n", count)
	b.WriteString("Prefer places marked relevant. If none are relevant, choose by description and popularity.\n")
	b.WriteString("Reply with the chosen ids only, as a comma-separated list such as 4,9,12. No other text.")

	return Prompt{System: systemInstruction, User: b.String(), CandidateIDs: ids}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
