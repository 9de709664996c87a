package core

import "strings"

const (
	// ChunkSize is the window length, in characters, of one chunk.
	ChunkSize = 900
	// ChunkOverlap is how many trailing characters of a chunk reappear at the
	// start of the next one.
	ChunkOverlap = 100
)

// SplitText slides a fixed window across the text, advancing by
// ChunkSize-ChunkOverlap each step. Windows that are empty or whitespace-only
// after trimming are discarded. The split operates on runes so multi-byte
// characters are never cut in half.
//
// The result is deterministic: the same text always produces the same chunks
// with the same boundaries.
func SplitText(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := ChunkSize - ChunkOverlap
	chunks := make([]string, 0, len(runes)/step+1)

	for start := 0; start < len(runes); start += step {
		end := start + ChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		chunk := string(runes[start:end])
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(runes) {
			break
		}
	}
	return chunks
}
