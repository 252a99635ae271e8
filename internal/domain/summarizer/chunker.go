package summarizer

import "fmt"

// DefaultSeparators prefers paragraph breaks, then line breaks.
func DefaultSeparators() []string {
	return []string{"\n\n", "\n"}
}

// Chunker splits documents into overlapping, bounded spans.
type Chunker struct {
	maxChars   int
	overlap    int
	separators [][]rune
}

// NewChunker validates the chunking parameters. Without separators the defaults apply.
func NewChunker(maxChars, overlap int, separators ...string) (*Chunker, error) {
	if maxChars <= 0 {
		return nil, NewValidationError(fmt.Sprintf("max chunk size must be positive, got %d", maxChars))
	}
	if overlap < 0 || overlap >= maxChars {
		return nil, NewValidationError(fmt.Sprintf("chunk overlap %d must be in [0, %d)", overlap, maxChars))
	}
	if len(separators) == 0 {
		separators = DefaultSeparators()
	}
	seps := make([][]rune, 0, len(separators))
	for _, sep := range separators {
		if sep == "" {
			continue
		}
		seps = append(seps, []rune(sep))
	}
	return &Chunker{maxChars: maxChars, overlap: overlap, separators: seps}, nil
}

// Split is the one-shot form of NewChunker(...).Split with the default separators.
func Split(document string, maxChars, overlap int) ([]Chunk, error) {
	c, err := NewChunker(maxChars, overlap)
	if err != nil {
		return nil, err
	}
	return c.Split(document), nil
}

// Split partitions document. Each chunk after the first starts overlap runes
// before the previous chunk's end, and chunk text is never trimmed.
func (c *Chunker) Split(document string) []Chunk {
	runes := []rune(document)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var out []Chunk
	start := 0
	for {
		limit := start + c.maxChars
		if limit >= n {
			out = append(out, Chunk{Index: len(out), Text: string(runes[start:]), Start: start, End: n})
			return out
		}
		end := c.splitPoint(runes, start, limit)
		out = append(out, Chunk{Index: len(out), Text: string(runes[start:end]), Start: start, End: end})
		start = end - c.overlap
	}
}

// splitPoint picks the chunk end in (start+overlap, limit]. Chunks are kept at
// least half full so a separator right after the overlap cannot produce slivers.
func (c *Chunker) splitPoint(runes []rune, start, limit int) int {
	minEnd := start + c.overlap + 1
	if half := start + c.maxChars/2; half > minEnd {
		minEnd = half
	}
	for _, sep := range c.separators {
		if end := lastSeparatorEnd(runes, sep, minEnd, limit); end > 0 {
			return end
		}
	}
	return limit
}

// lastSeparatorEnd returns the largest e in [minEnd, limit] such that sep ends at e, or -1.
func lastSeparatorEnd(runes, sep []rune, minEnd, limit int) int {
	for end := limit; end >= minEnd; end-- {
		begin := end - len(sep)
		if begin < 0 {
			return -1
		}
		if runesEqual(runes[begin:end], sep) {
			return end
		}
	}
	return -1
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
