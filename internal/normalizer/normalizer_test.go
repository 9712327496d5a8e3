package normalizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	t.Parallel()

	n := New(0, nil)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "collapses whitespace", input: "  a \n\n b\t\tc  ", want: "a b c"},
		{name: "strips control characters", input: "a\x00b\x1fc\x7fd", want: "a b c d"},
		{name: "removes boilerplate markers", input: "Intro ADVERTISEMENT body advertisement end", want: "Intro body end"},
		{name: "keeps words containing a marker", input: "advertisements matter", want: "advertisements matter"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Clean(tt.input))
		})
	}
}

func TestNormalizeHashDependsOnCleanTextOnly(t *testing.T) {
	t.Parallel()

	n := New(0, nil)

	a := n.Normalize("Title A", "Same   body\ntext")
	b := n.Normalize("Other title", "Same body text")

	assert.Equal(t, "Same body text", a.CleanText)
	assert.Equal(t, a.CleanText, b.CleanText)
	assert.Equal(t, a.ContentHash, b.ContentHash)
	assert.Len(t, a.ContentHash, 40)

	c := n.Normalize("Title A", "Different body text")
	assert.NotEqual(t, a.ContentHash, c.ContentHash)
}

func TestHashUsesBoundedPrefix(t *testing.T) {
	t.Parallel()

	n := New(10, nil)
	prefix := strings.Repeat("x", 10)

	require.Equal(t, n.Hash(prefix+"tail one"), n.Hash(prefix+"tail two"))
	assert.NotEqual(t, n.Hash("y"+prefix), n.Hash(prefix))
}

func TestHashPrefixCountsCharactersNotBytes(t *testing.T) {
	t.Parallel()

	n := New(3, nil)
	assert.Equal(t, n.Hash("ééé"), n.Hash("éééabc"))
	assert.NotEqual(t, n.Hash("éé"), n.Hash("ééé"))
}

func TestCustomMarkers(t *testing.T) {
	t.Parallel()

	n := New(0, []string{"Sponsored"})
	assert.Equal(t, "a ADVERTISEMENT b", n.Clean("a ADVERTISEMENT sponsored b"))
}
