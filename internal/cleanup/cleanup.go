// Package cleanup normalizes event bodies before they are rendered as
// narrative prose: OOC markers are stripped, punctuation is
// normalized, and every non-empty body is left ending in terminal
// punctuation.
package cleanup

import "strings"

// terminalPunctuation is the set of characters that already end a
// body correctly; anything else gets a '.' appended.
const terminalPunctuation = ".!?\"'"

// Body applies the five ordered transformations from spec.md §4.E to
// a single event body. Returns ("", false) when the result is empty
// after cleanup — the caller should drop such events.
func Body(raw string) (string, bool) {
	s := stripOOC(raw)
	s = normalizeQuotes(s)
	s = normalizeEllipsis(s)
	s = ensureTerminalPunctuation(s)
	s = collapseWhitespace(s)

	if s == "" {
		return "", false
	}
	return s, true
}

// stripOOC removes every span enclosed by "((...))" or "[[...]]",
// innermost matches disappearing first so nested markers are fully
// removed (outermost-first as observed from the outside, achieved
// here by repeatedly collapsing the innermost pair until none
// remain). Unbalanced openers with no matching closer are left
// untouched — cleanup never produces malformed output from malformed
// input.
func stripOOC(s string) string {
	for {
		start, end, ok := findInnermostOOC(s)
		if !ok {
			return s
		}
		s = s[:start] + s[end:]
	}
}

// findInnermostOOC locates the first innermost "((...))" or
// "[[...]]" span: the one whose body contains no nested opener of
// either kind. Removing innermost spans first and repeating is
// equivalent to a greedy outermost-first removal of the final
// (possibly nested) markup, since each pass strips one full layer.
func findInnermostOOC(s string) (start, end int, ok bool) {
	openers := []string{"((", "[["}
	closers := []string{"))", "]]"}

	bestStart := -1
	var bestEnd int
	for i, opener := range openers {
		closer := closers[i]
		searchFrom := 0
		for {
			o := strings.Index(s[searchFrom:], opener)
			if o == -1 {
				break
			}
			o += searchFrom
			bodyStart := o + len(opener)
			c := strings.Index(s[bodyStart:], closer)
			if c == -1 {
				break
			}
			spanEnd := bodyStart + c + len(closer)
			inner := s[bodyStart : bodyStart+c]
			if !strings.Contains(inner, "((") && !strings.Contains(inner, "[[") {
				if bestStart == -1 || o < bestStart {
					bestStart, bestEnd = o, spanEnd
				}
				break
			}
			searchFrom = bodyStart
		}
	}
	if bestStart == -1 {
		return 0, 0, false
	}
	return bestStart, bestEnd, true
}

var quoteReplacer = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", "\"", "”", "\"",
)

func normalizeQuotes(s string) string {
	return quoteReplacer.Replace(s)
}

func normalizeEllipsis(s string) string {
	return strings.ReplaceAll(s, "…", "...")
}

func ensureTerminalPunctuation(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return trimmed
	}
	last := trimmed[len(trimmed)-1:]
	if strings.Contains(terminalPunctuation, last) {
		return trimmed
	}
	return trimmed + "."
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
