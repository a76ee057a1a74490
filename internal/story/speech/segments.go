package speech

import "strings"

// Paragraphs splits text on newline boundaries (blank lines included) and
// drops blank paragraphs. Surrounding whitespace, including a trailing
// carriage return, is trimmed from each paragraph.
func Paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
