package recommend

import (
	"strconv"
	"strings"
)

// ParseIDs reads a comma-separated reply, keeping the tokens that are
// integers and silently dropping the rest.
func ParseIDs(reply string) []int64 {
	ids := []int64{}
	for _, tok := range strings.Split(reply, ",") {
		tok = strings.Trim(strings.TrimSpace(tok), "`.[]\"'")
		if tok == "" {
			continue
		}
		id, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
