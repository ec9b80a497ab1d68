package diff

import "math"

// Similarity scores how alike two strings are, from 0 to 100, rounded to one
// decimal place. It works on raw characters (not words): with M the length
// of the longest common subsequence of runes, the score is
// 2*M/(len(a)+len(b))*100. Two empty strings score 100 by convention.
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 100.0
	}
	ar, br := []rune(a), []rune(b)
	m := lcsLength(ar, br)
	ratio := 200.0 * float64(m) / float64(len(ar)+len(br))
	return math.Round(ratio*10) / 10
}

// lcsLength computes the longest-common-subsequence length with a two-row
// table, keeping memory linear in the shorter input.
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) > len(a) {
		a, b = b, a
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
