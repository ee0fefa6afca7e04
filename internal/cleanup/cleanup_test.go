package cleanup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyScenarioFromSpec(t *testing.T) {
	out, ok := Body(`She said, "Go ((I'm afk)) home…"`)

	require.True(t, ok)
	assert.Equal(t, `She said, "Go home..."`, out)
}

func TestBodyStripsNestedOOCMarkers(t *testing.T) {
	out, ok := Body("Watch out (( ooc [[nested]] chatter )) behind you")

	require.True(t, ok)
	assert.Equal(t, "Watch out behind you.", out)
}

func TestBodyStripsBracketMarkers(t *testing.T) {
	out, ok := Body("Careful [[don't tell anyone]] over there")

	require.True(t, ok)
	assert.Equal(t, "Careful over there.", out)
}

func TestBodyLeavesUnbalancedMarkerUntouched(t *testing.T) {
	out, ok := Body("This has ((no closer")

	require.True(t, ok)
	assert.Equal(t, "This has ((no closer.", out)
}

func TestBodyAppendsPeriodWhenMissing(t *testing.T) {
	out, ok := Body("no ending punctuation")

	require.True(t, ok)
	assert.Equal(t, "no ending punctuation.", out)
}

func TestBodyLeavesExistingTerminalPunctuation(t *testing.T) {
	for _, in := range []string{`Yes!`, `Really?`, `"Sure."`, `Fine.`} {
		out, ok := Body(in)
		require.True(t, ok)
		assert.Equal(t, in, out)
	}
}

func TestBodyCollapsesInteriorWhitespace(t *testing.T) {
	out, ok := Body("too    much     space")

	require.True(t, ok)
	assert.Equal(t, "too much space.", out)
}

func TestBodyDropsEmptyAfterCleanup(t *testing.T) {
	_, ok := Body("((entirely ooc))")

	assert.False(t, ok)
}

func TestBodyIsIdempotent(t *testing.T) {
	inputs := []string{
		`She said, "Go ((I'm afk)) home…"`,
		"no ending punctuation",
		`Careful [[secret]] here`,
		"already clean.",
		"",
	}

	for _, in := range inputs {
		once, ok1 := Body(in)
		twice, ok2 := Body(once)
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, once, twice)
	}
}
