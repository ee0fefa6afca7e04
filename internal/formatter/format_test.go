package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/convocations/convocations/internal/logline"
)

func TestLineSayIsQuotedAttribution(t *testing.T) {
	out := Line("Kara", logline.ChannelSay, "Hello there.")

	assert.Equal(t, `Kara says, "Hello there."`, out)
}

func TestLineEmoteWithLeadingQuoteFromSpecScenario(t *testing.T) {
	out := Line("Valandil", logline.ChannelEmote, `"The moon is beautiful tonight."`)

	assert.Equal(t, `Valandil "The moon is beautiful tonight."`, out)
}

func TestLineEmotePlainBody(t *testing.T) {
	out := Line("Bram", logline.ChannelEmote, "waves at the crowd.")

	assert.Equal(t, "Bram waves at the crowd.", out)
}

func TestDocumentJoinsWithTrailingNewline(t *testing.T) {
	doc := Document([]string{"one", "two"})

	assert.Equal(t, "one\ntwo\n", doc)
}

func TestDocumentEmptyIsEmptyString(t *testing.T) {
	assert.Equal(t, "", Document(nil))
}

func TestDocumentPreservesSpeakerTokens(t *testing.T) {
	lines := []string{
		Line("Kara", logline.ChannelSay, "Hi."),
		Line("Bram", logline.ChannelEmote, "waves."),
	}
	doc := Document(lines)

	assert.Contains(t, doc, "Kara")
	assert.Contains(t, doc, "Bram")
}
