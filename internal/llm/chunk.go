package llm

import "strings"

// MaxChunkChars bounds how large a single chunk submitted to the
// model may be. Grounded on the source implementation's
// MAX_CHUNK_SIZE constant.
const MaxChunkChars = 4000

// Split breaks text into chunks no larger than maxChars, splitting
// only on line boundaries so no prose line is ever divided across two
// chunks. A single line longer than maxChars is kept whole as its own
// (oversized) chunk rather than being cut mid-line — per spec.md's
// resolved open question, chunking is always line-boundary based,
// never token-based.
func Split(text string, maxChars int) []string {
	if text == "" {
		return nil
	}
	if maxChars <= 0 {
		maxChars = MaxChunkChars
	}

	lines := strings.Split(text, "\n")
	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, line := range lines {
		candidateLen := current.Len() + len(line) + 1
		if current.Len() > 0 && candidateLen > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	flush()

	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}
