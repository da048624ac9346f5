// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package textract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Clean normalizes extracted text: whitespace inside each line is collapsed,
// blank-line runs shrink to one, and words whose letters are all doubled
// ("PPeeooppllee") are halved. Line structure is kept for heading detection.
func Clean(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false

	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		for i, f := range fields {
			fields[i] = undouble(f)
		}
		out = append(out, strings.Join(fields, " "))
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

// undouble halves a word in which every letter appears twice in a row.
// Punctuation is allowed in either position of a pair but at least two
// letter pairs must be present, so "aa" or "Mississippi" are left alone.
func undouble(word string) string {
	if utf8.RuneCountInString(word) < 4 {
		return word
	}
	runes := []rune(word)
	if len(runes)%2 != 0 {
		return word
	}

	letters := 0
	half := make([]rune, 0, len(runes)/2)
	for i := 0; i < len(runes); i += 2 {
		if runes[i] != runes[i+1] {
			return word
		}
		if unicode.IsLetter(runes[i]) {
			letters++
		}
		half = append(half, runes[i])
	}
	if letters < 2 {
		return word
	}
	return string(half)
}
