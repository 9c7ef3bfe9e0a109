package search

import (
	"strconv"
	"strings"
)

const defaultLimit = 10

// Query decouples the raw search input typed in chat from the index engine
// requirements.
type Query struct {
	RawInput string
	Terms    string
	Limit    int
}

// ParseQuery extracts command-line style arguments from a raw string.
// Example: `invoice deadline --limit 5`
func ParseQuery(input string) Query {
	query := Query{RawInput: input, Limit: defaultLimit}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			key := strings.TrimPrefix(part, "--")
			val := parts[i+1]

			if key == "limit" {
				if limit, err := strconv.Atoi(val); err == nil && limit > 0 {
					query.Limit = limit
				}
			}
			i++
			continue
		}

		textTerms = append(textTerms, part)
	}

	query.Terms = strings.Join(textTerms, " ")
	return query
}
