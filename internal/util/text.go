package util

import (
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

const (
	DefaultFallback = "None given"
	Ellipsis        = "..."

	unitCodeSalvageLen = 9
)

// A unit code is 1-5 uppercase letters followed directly by 2-6 digits.
var unitCodePattern = regexp.MustCompile(`^[A-Z]{1,5}[0-9]{2,6}`)

// IsMissing reports whether a cell holds no answer: empty, or the literal "nan" in any case.
func IsMissing(cell string) bool {
	return cell == "" || strings.EqualFold(cell, "nan")
}

// Normalize returns fallback for a missing cell and the cell unchanged otherwise.
func Normalize(cell, fallback string) string {
	if IsMissing(cell) {
		return fallback
	}
	return cell
}

// ExtractUnitCode returns the leading unit code of text, or its first nine
// characters when no code is found.
func ExtractUnitCode(text string) string {
	s := strings.TrimSpace(text)
	if m := unitCodePattern.FindString(s); m != "" {
		return m
	}
	return truncateRunes(s, unitCodeSalvageLen)
}

func FirstPresent(values ...string) string {
	for _, v := range values {
		if !IsMissing(v) {
			return v
		}
	}
	return ""
}

// LongestLineWidth is the display width of the widest line in s.
func LongestLineWidth(s string) int {
	widest := 0
	for _, line := range strings.Split(s, "\n") {
		if w := runewidth.StringWidth(strings.TrimRight(line, "\r")); w > widest {
			widest = w
		}
	}
	return widest
}

func DisplayWidth(s string) int {
	return runewidth.StringWidth(s)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
