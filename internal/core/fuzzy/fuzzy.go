// Package fuzzy scores substring-tolerant similarity between short strings
// on a 0-100 scale.
package fuzzy

// Ratio is the normalized Indel similarity of a and b: 200*LCS/(len(a)+len(b)).
func Ratio(a, b string) float64 {
	return ratio([]rune(a), []rune(b))
}

// PartialRatio aligns the shorter string against every window of the longer
// one (including windows hanging off either end) and returns the best Ratio.
// An exact substring scores 100.
func PartialRatio(a, b string) float64 {
	s1, s2 := []rune(a), []rune(b)
	if len(s1) == 0 || len(s2) == 0 {
		return 0
	}
	if len(s1) > len(s2) {
		s1, s2 = s2, s1
	}
	best := partial(s1, s2)
	if best < 100 && len(s1) == len(s2) {
		if alt := partial(s2, s1); alt > best {
			best = alt
		}
	}
	return best
}

// partial requires len(needle) <= len(hay).
func partial(needle, hay []rune) float64 {
	n, h := len(needle), len(hay)
	set := make(map[rune]struct{}, n)
	for _, r := range needle {
		set[r] = struct{}{}
	}
	in := func(r rune) bool {
		_, ok := set[r]
		return ok
	}

	best := 0.0
	try := func(window []rune) bool {
		if s := ratio(needle, window); s > best {
			best = s
		}
		return best == 100
	}

	// prefixes shorter than the needle
	for i := 1; i < n; i++ {
		if in(hay[i-1]) && try(hay[:i]) {
			return best
		}
	}
	// full-length windows
	for i := 0; i < h-n; i++ {
		if in(hay[i+n-1]) && try(hay[i:i+n]) {
			return best
		}
	}
	// suffixes, starting with the last full window
	for i := h - n; i < h; i++ {
		if in(hay[i]) && try(hay[i:]) {
			return best
		}
	}
	return best
}

func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	return 200 * float64(lcs(a, b)) / float64(total)
}

func lcs(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
