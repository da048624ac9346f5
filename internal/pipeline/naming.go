// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pdiddy/learnsite/pkg/types"
)

// SubjectIcon is shown beside every subject title.
const SubjectIcon = "📖"

const (
	folderSeparator = " - "
	fallbackPage    = "document"
)

// baseName returns the file name without directory or extension.
func baseName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputPath derives the page location for an input file name, relative to
// the output directory and slash-separated. A name of the form
// "Folder - Page.pdf" maps to "Folder/Page.html"; any other name maps to a
// page at the root. Both parts keep only letters (any script, with their
// combining marks), digits, spaces, hyphens and underscores.
func OutputPath(name string) string {
	base := baseName(name)

	if folder, page, ok := strings.Cut(base, folderSeparator); ok {
		folder, page = cleanSegment(folder), cleanSegment(page)
		if page == "" {
			page = fallbackPage
		}
		if folder != "" {
			return path.Join(folder, page+".html")
		}
		return page + ".html"
	}

	page := cleanSegment(base)
	if page == "" {
		page = fallbackPage
	}
	return page + ".html"
}

func cleanSegment(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.In(r, unicode.Letter, unicode.Mark, unicode.Digit) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// assignOutputPaths returns inputs with OutputPath set. When names map to
// the same page, ignoring case, later inputs get a numeric suffix
// ("Cells 2.html") so that every input keeps its own page.
func assignOutputPaths(inputs []types.InputDocument) []types.InputDocument {
	out := make([]types.InputDocument, len(inputs))
	taken := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		rel := in.OutputPath
		if rel == "" {
			rel = OutputPath(in.Name)
		}
		stem := strings.TrimSuffix(rel, ".html")
		for n := 2; taken[strings.ToLower(rel)]; n++ {
			rel = fmt.Sprintf("%s %d.html", stem, n)
		}
		taken[strings.ToLower(rel)] = true
		in.OutputPath = rel
		out[i] = in
	}
	return out
}

// SubjectTitle derives a display title from an input file name: the class
// prefix (e.g. "Class 9") is removed from the front, a separator after it is
// dropped, and the remainder is title-cased.
func SubjectTitle(name, prefix string) string {
	base := strings.TrimSpace(baseName(name))
	title := base

	if prefix != "" && len(title) >= len(prefix) && strings.EqualFold(title[:len(prefix)], prefix) {
		title = strings.TrimLeft(title[len(prefix):], " -")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = base
	}
	return cases.Title(language.English).String(title)
}
