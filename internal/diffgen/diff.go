// Package diffgen renders a deterministic unified diff between the
// pre-LLM and post-LLM narrative text, for display in progress events
// and the technical log.
package diffgen

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const contextLines = 3

// Unified returns a unified diff of before vs after with a fixed
// 3-line context width, or the empty string when the two texts are
// byte-identical (nothing to show).
func Unified(before, after, fromLabel, toLabel string) (string, error) {
	if before == after {
		return "", nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  contextLines,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(text, "\n"), nil
}
