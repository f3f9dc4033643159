package ocr

import (
	"regexp"
	"strings"
)

var (
	reNoise      = regexp.MustCompile(`[^\p{L}\p{N}_\s\p{Z}.\-$,/@#&*()]`)
	reWhitespace = regexp.MustCompile(`[\s\p{Z}]+`)
)

// CleanText strips characters outside word, whitespace and .-$,/@#&*()
// then collapses whitespace runs and trims. All-noise input yields "".
// No character substitution (O/0, l/1) is applied so item names survive intact.
func CleanText(s string) string {
	if s == "" {
		return s
	}
	s = reNoise.ReplaceAllString(s, "")
	s = reWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Usable reports whether cleaned text carries enough signal to be a line.
func Usable(cleaned string) bool {
	return len([]rune(cleaned)) > 1
}
