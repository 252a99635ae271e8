package summarizer

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/longtext-summarizer/pkg/errors"
)

func TestNewChunkerValidation(t *testing.T) {
	tests := []struct {
		name     string
		maxChars int
		overlap  int
	}{
		{name: "zero size", maxChars: 0, overlap: 0},
		{name: "negative overlap", maxChars: 10, overlap: -1},
		{name: "overlap equals size", maxChars: 10, overlap: 10},
		{name: "overlap above size", maxChars: 10, overlap: 12},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewChunker(tt.maxChars, tt.overlap)
			require.Error(t, err)
			require.True(t, apperrors.IsCode(err, CodeValidation))
		})
	}
}

func TestChunkerSplit(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		maxChars int
		overlap  int
		want     []Chunk
	}{
		{
			name:     "short document is one chunk",
			doc:      "hello world",
			maxChars: 5000,
			overlap:  350,
			want:     []Chunk{{Index: 0, Text: "hello world", Start: 0, End: 11}},
		},
		{
			name:     "empty document has no chunks",
			doc:      "",
			maxChars: 10,
			overlap:  2,
			want:     nil,
		},
		{
			name:     "paragraph breaks preferred",
			doc:      "aaaa\n\nbbbb\n\ncccc",
			maxChars: 10,
			overlap:  2,
			want: []Chunk{
				{Index: 0, Text: "aaaa\n\n", Start: 0, End: 6},
				{Index: 1, Text: "\n\nbbbb\n\n", Start: 4, End: 12},
				{Index: 2, Text: "\n\ncccc", Start: 10, End: 16},
			},
		},
		{
			name:     "raw cut without separators",
			doc:      "abcdefghij",
			maxChars: 4,
			overlap:  1,
			want: []Chunk{
				{Index: 0, Text: "abcd", Start: 0, End: 4},
				{Index: 1, Text: "defg", Start: 3, End: 7},
				{Index: 2, Text: "ghij", Start: 6, End: 10},
			},
		},
		{
			name:     "multibyte runes are never split",
			doc:      "héllo wörld",
			maxChars: 5,
			overlap:  0,
			want: []Chunk{
				{Index: 0, Text: "héllo", Start: 0, End: 5},
				{Index: 1, Text: " wörl", Start: 5, End: 10},
				{Index: 2, Text: "d", Start: 10, End: 11},
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Split(tt.doc, tt.maxChars, tt.overlap)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("chunks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChunkerSplitProperties(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 400; i++ {
		fmt.Fprintf(&b, "Paragraph %d talks about topic %d in some detail.", i, i%7)
		if i%3 == 0 {
			b.WriteString("\nA second line follows here.")
		}
		b.WriteString("\n\n")
	}
	doc := b.String()

	configs := []struct{ maxChars, overlap int }{
		{maxChars: 5000, overlap: 350},
		{maxChars: 300, overlap: 50},
		{maxChars: 64, overlap: 0},
		{maxChars: 40, overlap: 39},
	}
	for _, c := range configs {
		c := c
		t.Run(fmt.Sprintf("max=%d overlap=%d", c.maxChars, c.overlap), func(t *testing.T) {
			t.Parallel()
			chunks, err := Split(doc, c.maxChars, c.overlap)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			runes := []rune(doc)
			var rebuilt strings.Builder
			for i, chunk := range chunks {
				require.Equal(t, i, chunk.Index)
				require.LessOrEqual(t, utf8.RuneCountInString(chunk.Text), c.maxChars)
				require.Equal(t, string(runes[chunk.Start:chunk.End]), chunk.Text)
				if i == 0 {
					require.Zero(t, chunk.Start)
					rebuilt.WriteString(chunk.Text)
					continue
				}
				prev := chunks[i-1]
				require.Equal(t, prev.End-c.overlap, chunk.Start)
				require.Greater(t, chunk.End, prev.End)
				rebuilt.WriteString(string([]rune(chunk.Text)[c.overlap:]))
			}
			require.Equal(t, len(runes), chunks[len(chunks)-1].End)
			require.Equal(t, doc, rebuilt.String())
		})
	}
}

func TestChunkerCustomSeparators(t *testing.T) {
	c, err := NewChunker(12, 0, ". ")
	require.NoError(t, err)

	chunks := c.Split("One two. Three four. Five.")
	require.Equal(t, "One two. ", chunks[0].Text)
	require.Equal(t, "Three four. ", chunks[1].Text)
	require.Equal(t, "Five.", chunks[2].Text)
}
