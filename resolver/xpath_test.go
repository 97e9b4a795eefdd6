package resolver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXPathLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"войти", "'войти'"},
		{"don't", `"don't"`},
		{`say "hi"`, `'say "hi"'`},
		{`it's "ok"`, `concat('it', "'", 's "ok"')`},
		{`'"`, `concat("'", '"')`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, xpathLiteral(tt.in))
		})
	}
}

func TestXPathQueries(t *testing.T) {
	queries := XPathQueries("ВОЙТИ")
	require.Len(t, queries, 5)

	for _, q := range queries {
		assert.Contains(t, q, "'войти'")
		assert.Contains(t, q, upperAlphabet)
		assert.Contains(t, q, lowerAlphabet)
	}

	assert.True(t, strings.HasPrefix(queries[0], "//button["))
	assert.Contains(t, queries[1], "translate(@value")
	assert.True(t, strings.HasPrefix(queries[2], "//a["))
	assert.Contains(t, queries[3], "@role='button'")
	assert.Contains(t, queries[4], "contains(@class, 'btn')")
}

func TestFoldAlphabets(t *testing.T) {
	assert.Equal(t, len([]rune(upperAlphabet)), len([]rune(lowerAlphabet)))
	assert.Equal(t, strings.ToLower(upperAlphabet), lowerAlphabet)
}
