package market

import "strings"

// DefaultSimilarity is the match threshold used when none is configured.
const DefaultSimilarity = 0.75

// NormalizeTitle folds a listing title for comparison: lowercase, with runs
// of non-alphanumeric characters collapsed to single spaces.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	space := true
	for _, r := range strings.ToLower(title) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Similarity returns the Ratcliff/Obershelp ratio of two normalized titles:
// twice the total length of matching blocks over the combined length.
// Identical strings score 1, disjoint strings 0.
func Similarity(a, b string) float64 {
	a = NormalizeTitle(a)
	b = NormalizeTitle(b)
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	matched := matchingChars(a, b)
	return 2 * float64(matched) / float64(len(a)+len(b))
}

// matchingChars sums the lengths of the longest common substring and,
// recursively, of the common substrings in the pieces to its left and right.
func matchingChars(a, b string) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingChars(a[:ai], b[:bi])
	total += matchingChars(a[ai+size:], b[bi+size:])
	return total
}

// longestCommonSubstring returns the start offsets and length of the longest
// substring common to a and b, preferring the leftmost in a on ties.
func longestCommonSubstring(a, b string) (ai, bi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	// One row of the classic DP table at a time.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > size {
					size = curr[j]
					ai = i - size
					bi = j - size
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return ai, bi, size
}
