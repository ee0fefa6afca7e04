package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitNeverDividesALine(t *testing.T) {
	text := strings.Repeat("a fairly ordinary line of dialogue\n", 400)

	chunks := Split(text, 200)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		for _, line := range strings.Split(c, "\n") {
			assert.LessOrEqual(t, len(line), 200)
		}
	}
}

func TestSplitRejoinsToOriginal(t *testing.T) {
	text := "one\ntwo\nthree\nfour\nfive\n"
	text = strings.TrimSuffix(text, "\n")

	chunks := Split(text, 8)

	assert.Equal(t, text, strings.Join(chunks, "\n"))
}

func TestSplitSingleChunkWhenSmall(t *testing.T) {
	chunks := Split("short text", MaxChunkChars)

	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestSplitEmptyProducesNoChunks(t *testing.T) {
	assert.Empty(t, Split("", MaxChunkChars))
}

func TestSplitKeepsOversizedSingleLineWhole(t *testing.T) {
	longLine := strings.Repeat("x", 500)

	chunks := Split(longLine, 100)

	require.Len(t, chunks, 1)
	assert.Equal(t, longLine, chunks[0])
}
