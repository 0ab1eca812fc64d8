package studymcq

import (
	"strings"

	"github.com/samber/lo"
)

// ChunkText splits content into consecutive chunks of at most size words.
// Whitespace is normalized to single spaces; empty chunks are never returned.
func ChunkText(content string, size int) []string {
	if size <= 0 {
		size = 1
	}
	words := strings.Fields(content)
	return lo.FilterMap(lo.Chunk(words, size), func(chunk []string, _ int) (string, bool) {
		text := strings.Join(chunk, " ")
		return text, text != ""
	})
}
