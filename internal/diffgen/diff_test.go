package diffgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnifiedReturnsEmptyForIdenticalText(t *testing.T) {
	text := "line one\nline two\n"

	diff, err := Unified(text, text, "before", "after")

	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestUnifiedProducesLineGranularContext(t *testing.T) {
	before := "one\ntwo\nthree\nfour\nfive\n"
	after := "one\ntwo\nTHREE\nfour\nfive\n"

	diff, err := Unified(before, after, "before.txt", "after.txt")

	require.NoError(t, err)
	assert.Contains(t, diff, "--- before.txt")
	assert.Contains(t, diff, "+++ after.txt")
	assert.Contains(t, diff, "-three")
	assert.Contains(t, diff, "+THREE")
}

func TestUnifiedIsDeterministic(t *testing.T) {
	before := "alpha\nbeta\ngamma\n"
	after := "alpha\nBETA\ngamma\n"

	first, err := Unified(before, after, "a", "b")
	require.NoError(t, err)
	second, err := Unified(before, after, "a", "b")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestUnifiedRespectsFixedContextWidth(t *testing.T) {
	lines := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		lines = append(lines, "line")
	}
	before := strings.Join(lines, "\n") + "\n"
	changed := append([]string{}, lines...)
	changed[10] = "CHANGED"
	after := strings.Join(changed, "\n") + "\n"

	diff, err := Unified(before, after, "a", "b")
	require.NoError(t, err)

	hunkLines := strings.Count(diff, "\n") + 1
	assert.Less(t, hunkLines, len(lines))
}
