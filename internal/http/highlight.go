package httpserver

import (
	"html"
	"html/template"
	"strings"
	"unicode"
)

// HighlightTitle escapes title and wraps every case-insensitive occurrence of a search word
// in <mark>. Overlapping or adjacent matches are merged into one mark.
func HighlightTitle(title, query string) template.HTML {
	runes := []rune(title)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}

	marked := make([]bool, len(runes))
	for _, word := range strings.Fields(query) {
		needle := []rune(strings.Map(unicode.ToLower, word))
		if len(needle) == 0 || len(needle) > len(lower) {
			continue
		}
		for i := 0; i+len(needle) <= len(lower); i++ {
			if runesEqual(lower[i:i+len(needle)], needle) {
				for j := i; j < i+len(needle); j++ {
					marked[j] = true
				}
			}
		}
	}

	var sb strings.Builder
	open := false
	start := 0
	flush := func(end int) {
		sb.WriteString(html.EscapeString(string(runes[start:end])))
		start = end
	}
	for i := range runes {
		if marked[i] == open {
			continue
		}
		flush(i)
		if marked[i] {
			sb.WriteString("<mark>")
		} else {
			sb.WriteString("</mark>")
		}
		open = marked[i]
	}
	flush(len(runes))
	if open {
		sb.WriteString("</mark>")
	}
	return template.HTML(sb.String())
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
