package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		terms    string
		limit    int
	}{
		{"plain terms", "invoice deadline", "invoice deadline", defaultLimit},
		{"limit flag", "invoice --limit 5", "invoice", 5},
		{"flag before terms", "--limit 3 invoice deadline", "invoice deadline", 3},
		{"invalid limit keeps default", "invoice --limit abc", "invoice", defaultLimit},
		{"negative limit keeps default", "invoice --limit -2", "invoice", defaultLimit},
		{"dangling flag treated as term", "invoice --limit", "invoice --limit", defaultLimit},
		{"empty input", "", "", defaultLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := ParseQuery(tt.input)
			require.Equal(t, tt.terms, query.Terms)
			require.Equal(t, tt.limit, query.Limit)
			require.Equal(t, tt.input, query.RawInput)
		})
	}
}
