package listing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCandidate(t *testing.T) {
	tests := map[string]struct {
		raw     string
		want    map[string]any
		wantErr bool
	}{
		"fenced block with surrounding text": {
			raw:  "prefix ```json {\"a\":1} ``` suffix",
			want: map[string]any{"a": float64(1)},
		},
		"fenced block with newlines": {
			raw:  "Here is the listing:\n```json\n{\"title\": \"Camera\"}\n```\nLet me know!",
			want: map[string]any{"title": "Camera"},
		},
		"no fence falls back to whole text": {
			raw:  `{"a":1}`,
			want: map[string]any{"a": float64(1)},
		},
		"no fence and not json": {
			raw:     "sorry, I cannot help with that",
			wantErr: true,
		},
		"fence with invalid interior": {
			raw:     "```json\n{not json}\n```",
			wantErr: true,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ExtractCandidate(tc.raw)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRepairTitle(t *testing.T) {
	t.Run("over-length title is truncated to exactly 80", func(t *testing.T) {
		long := strings.Repeat("ab", 60) // 120 chars
		candidate := map[string]any{"title": long}
		RepairTitle(candidate)
		got := candidate["title"].(string)
		assert.Len(t, []rune(got), TitleMaxLen)
		assert.Equal(t, long[:TitleMaxLen], got)
	})

	t.Run("title at the limit is unchanged", func(t *testing.T) {
		exact := strings.Repeat("x", TitleMaxLen)
		candidate := map[string]any{"title": exact}
		RepairTitle(candidate)
		assert.Equal(t, exact, candidate["title"])
	})

	t.Run("short title is unchanged", func(t *testing.T) {
		candidate := map[string]any{"title": "Nikon D750"}
		RepairTitle(candidate)
		assert.Equal(t, "Nikon D750", candidate["title"])
	})

	t.Run("multibyte titles are truncated on rune boundaries", func(t *testing.T) {
		long := strings.Repeat("ä", 100)
		candidate := map[string]any{"title": long}
		RepairTitle(candidate)
		got := candidate["title"].(string)
		assert.Equal(t, strings.Repeat("ä", TitleMaxLen), got)
	})

	t.Run("non-string title is left alone", func(t *testing.T) {
		candidate := map[string]any{"title": float64(42)}
		RepairTitle(candidate)
		assert.Equal(t, float64(42), candidate["title"])
	})
}

func TestParseReply(t *testing.T) {
	raw := "Some preamble.\n```json\n" + validListingJSON(strings.Repeat("t", 100)) + "\n```"
	got, err := ParseReply(raw)
	require.NoError(t, err)
	// Over-length title is repaired before validation rather than rejected.
	assert.Equal(t, strings.Repeat("t", TitleMaxLen), got.Title)
	assert.Equal(t, ConditionUsed, got.Condition)
}
