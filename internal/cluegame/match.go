package cluegame

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultThreshold is the minimum similarity a guess needs to count as correct.
const DefaultThreshold = 0.5

// tolerance absorbs float rounding so a similarity that equals the threshold
// on paper is never rejected.
const tolerance = 1e-9

// Matcher decides whether a guess is close enough to the answer.
type Matcher struct {
	Threshold float64
}

func NewMatcher(threshold float64) Matcher {
	return Matcher{Threshold: threshold}
}

// Match reports whether guess and answer are similar enough. Empty input
// (after normalization) only matches empty input.
func (m Matcher) Match(guess, answer string) bool {
	g, a := Normalize(guess), Normalize(answer)
	if g == "" || a == "" {
		return g == a
	}
	return similarity([]rune(g), []rune(a))+tolerance >= m.Threshold
}

// IsMatch is Match with DefaultThreshold.
func IsMatch(guess, answer string) bool {
	return Matcher{Threshold: DefaultThreshold}.Match(guess, answer)
}

// Normalize trims and lower-cases s after NFC composition, so precomposed
// and combining-mark spellings compare equal.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// Similarity is 1 - distance/max(len) over the normalized strings.
func Similarity(a, b string) float64 {
	return similarity([]rune(Normalize(a)), []rune(Normalize(b)))
}

func similarity(a, b []rune) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

// Distance is the Levenshtein edit distance between a and b, counted in runes.
func Distance(a, b string) int {
	return levenshtein([]rune(a), []rune(b))
}

// levenshtein keeps two rows of the (len(a)+1) x (len(b)+1) table, with the
// shorter string along the row.
func levenshtein(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1]
				continue
			}
			curr[j] = 1 + min(prev[j-1], curr[j-1], prev[j])
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
