// Package chunker splits oversize text into overlapping chunks at sentence
// or line boundaries where possible, for the Pipeline Executor's map phase.
package chunker

import (
	"strings"

	"github.com/kestrel-run/modelmesh/pkg/artifact"
)

// Chunk is one slice of a larger document, with enough positional metadata
// for the Reducer and Pipeline Executor to reassemble or key off it.
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
}

// Split splits text into chunks of at most sizeChars+overlapChars,
// preferring to break at the last sentence or line boundary past the
// midpoint of the target window, falling back to a hard cut otherwise.
func Split(text string, sizeChars, overlapChars int) []Chunk {
	if text == "" {
		return nil
	}
	if sizeChars <= 0 {
		sizeChars = len(text)
	}

	var chunks []Chunk
	start := 0
	length := len(text)

	for start < length {
		targetEnd := start + sizeChars
		if targetEnd > length {
			targetEnd = length
		}

		end := targetEnd
		if targetEnd < length {
			if breakpoint := lastBoundary(text, start, targetEnd); breakpoint > start+sizeChars/2 {
				end = breakpoint + 1
			}
		}

		slice := strings.TrimSpace(text[start:end])
		if slice != "" {
			chunks = append(chunks, Chunk{
				Index: len(chunks),
				Text:  slice,
				Start: start,
				End:   end,
			})
		}

		if end >= length {
			break
		}

		previousStart := start
		start = end - overlapChars
		if start <= previousStart {
			start = end
		}
	}

	return chunks
}

// lastBoundary searches text[start:end] backward for the last '.' or '\n',
// returning its absolute offset, or -1 if none is found.
func lastBoundary(text string, start, end int) int {
	window := text[start:end]
	if idx := strings.LastIndexAny(window, ".\n"); idx >= 0 {
		return start + idx
	}
	return -1
}

// SourceFingerprint returns the content hash used to key checkpoint and
// dedup state to a specific input document, reusing the same SHA-256
// convention as pkg/artifact rather than a second hashing scheme.
func SourceFingerprint(text string) string {
	return artifact.ContentHash([]byte(text))
}
