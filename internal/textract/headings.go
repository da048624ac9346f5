// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package textract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// skipPrefixes mark lines that look like headings but are page furniture.
var skipPrefixes = []string{"Page", "Chapter", "Source:", "Reprint"}

// maxHeadingWords is the longest mixed-case line still treated as a heading.
const maxHeadingWords = 8

// Headings picks likely section headings out of cleaned text: short lines
// that start with an uppercase letter and are either all caps or at most
// eight words. Results are unique and in document order.
func Headings(text string) []string {
	var headings []string
	seen := make(map[string]bool)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !isHeading(line) || seen[line] {
			continue
		}
		seen[line] = true
		headings = append(headings, line)
	}
	return headings
}

func isHeading(line string) bool {
	n := utf8.RuneCountInString(line)
	if n <= 3 || n >= 100 {
		return false
	}
	if isDigits(line) {
		return false
	}
	for _, p := range skipPrefixes {
		if strings.HasPrefix(line, p) {
			return false
		}
	}
	first, _ := utf8.DecodeRuneInString(line)
	if !unicode.IsUpper(first) {
		return false
	}
	return line == strings.ToUpper(line) || len(strings.Fields(line)) <= maxHeadingWords
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
