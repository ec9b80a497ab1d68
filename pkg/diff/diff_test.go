package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeReplacementOrder(t *testing.T) {
	segs := Compute("The cat sat on the mat", "The feline sat on the rug")

	require.Equal(t, []Segment{
		{Kind: Unchanged, Text: "The"},
		{Kind: Removed, Text: "cat"},
		{Kind: Added, Text: "feline"},
		{Kind: Unchanged, Text: "sat on the"},
		{Kind: Removed, Text: "mat"},
		{Kind: Added, Text: "rug"},
	}, segs)
}

func TestComputeIdentity(t *testing.T) {
	segs := Compute("nothing changed here", "nothing changed here")
	require.Len(t, segs, 1)
	assert.Equal(t, Unchanged, segs[0].Kind)
	assert.Equal(t, "nothing changed here", segs[0].Text)
}

func TestComputeEmptySides(t *testing.T) {
	assert.Nil(t, Compute("", ""))

	segs := Compute("", "brand new text")
	require.Len(t, segs, 1)
	assert.Equal(t, Added, segs[0].Kind)
	assert.Equal(t, "brand new text", segs[0].Text)

	segs = Compute("all of it gone", "")
	require.Len(t, segs, 1)
	assert.Equal(t, Removed, segs[0].Kind)
	assert.Equal(t, "all of it gone", segs[0].Text)
}

func TestComputeRoundTrip(t *testing.T) {
	pairs := [][2]string{
		{"The cat sat on the mat", "The feline sat on the rug"},
		{"a b c d e", "a x c y e"},
		{"one two three", "zero one two three four"},
		{"start middle end", "middle"},
		{"the quick brown fox jumps over the lazy dog", "a quick red fox leaps over a sleepy dog"},
	}

	for _, p := range pairs {
		segs := Compute(p[0], p[1])

		var left, right []string
		for _, s := range segs {
			switch s.Kind {
			case Unchanged:
				left = append(left, s.Text)
				right = append(right, s.Text)
			case Removed:
				left = append(left, s.Text)
			case Added:
				right = append(right, s.Text)
			}
		}

		assert.Equal(t, strings.Join(strings.Fields(p[0]), " "), strings.Join(left, " "), "original side for %q -> %q", p[0], p[1])
		assert.Equal(t, strings.Join(strings.Fields(p[1]), " "), strings.Join(right, " "), "enhanced side for %q -> %q", p[0], p[1])
	}
}

func TestComputeDeterministic(t *testing.T) {
	a := "he walked slowly through the dark forest at night"
	b := "she ran quickly through a bright forest at dawn"
	first := Compute(a, b)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Compute(a, b))
	}
}

func TestSimilarityBounds(t *testing.T) {
	cases := [][2]string{
		{"", ""},
		{"abc", ""},
		{"", "abc"},
		{"abc", "abc"},
		{"abcdef", "abcxyz"},
		{"completely different", "nothing alike at all"},
	}
	for _, c := range cases {
		s := Similarity(c[0], c[1])
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 100.0)
	}
}

func TestSimilarityIdentical(t *testing.T) {
	assert.Equal(t, 100.0, Similarity("same text", "same text"))
	assert.Equal(t, 100.0, Similarity("", ""))
}

func TestSimilarityDisjoint(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("aaa", "bbb"))
}

func TestSimilarityHalf(t *testing.T) {
	// LCS "ab" against total length 8: 2*2/8 = 50%.
	assert.Equal(t, 50.0, Similarity("abcd", "abxy"))
}
