package constants

import "regexp"

// StorePattern identifies a supermarket chain from a header line.
type StorePattern struct {
	Chain   string
	Display string
	Pattern *regexp.Regexp
}

// storePatterns are matched against lower-cased header lines, first match wins.
var storePatterns = []StorePattern{
	{"countdown", "Countdown", regexp.MustCompile(`(?i)countdown|cd\s*$`)},
	{"new_world", "New World", regexp.MustCompile(`(?i)new\s*world|nw\s*$`)},
	{"paknsave", "PAK'nSAVE", regexp.MustCompile(`(?i)pak\s*['n\s]*save|pns\s*$`)},
	{"four_square", "Four Square", regexp.MustCompile(`(?i)four\s*square|4\s*square`)},
	{"fresh_choice", "Fresh Choice", regexp.MustCompile(`(?i)fresh\s*choice`)},
	{"super_value", "SuperValue", regexp.MustCompile(`(?i)super\s*value`)},
}

// StoreKeywords are plain substrings used when no identity pattern matches.
var StoreKeywords = []string{
	"countdown", "new world", "paknsave", "four square", "fresh choice", "super value",
}

// StoreHeaderExclusions disqualify an upper-case line from being read as a store name.
var StoreHeaderExclusions = []string{"receipt", "invoice", "total", "date", "time"}

// StoreHeaderLines is how many leading lines are searched for the store name.
const StoreHeaderLines = 5

func StorePatterns() []StorePattern {
	out := make([]StorePattern, len(storePatterns))
	copy(out, storePatterns)
	return out
}

// KnownStores returns the display names of recognised chains.
func KnownStores() []string {
	out := make([]string, len(storePatterns))
	for i, p := range storePatterns {
		out[i] = p.Display
	}
	return out
}
