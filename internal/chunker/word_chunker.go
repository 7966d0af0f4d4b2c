package chunker

import (
	"strings"

	"docquery/internal/domain"
)

// WordChunker splits cleaned text into overlapping word windows. Window size
// and overlap are counted in words; chunks below the minimum character length
// are dropped.
type WordChunker struct {
	chunkWords int
	overlap    int
	minChars   int
}

func NewWordChunker(chunkWords, overlap, minChars int) *WordChunker {
	if chunkWords <= 0 {
		chunkWords = 500
	}
	if overlap < 0 || overlap >= chunkWords {
		overlap = chunkWords / 10
	}
	if minChars < 0 {
		minChars = 50
	}
	return &WordChunker{
		chunkWords: chunkWords,
		overlap:    overlap,
		minChars:   minChars,
	}
}

// Chunk normalizes whitespace and produces ordered, overlapping chunks.
// Text shorter than one window becomes a single chunk.
func (c *WordChunker) Chunk(text string) []domain.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	if len(words) <= c.chunkWords {
		joined := strings.Join(words, " ")
		return []domain.Chunk{{Seq: 0, Text: joined, Chars: len(joined)}}
	}

	var chunks []domain.Chunk
	step := c.chunkWords - c.overlap
	for i := 0; i < len(words); i += step {
		end := i + c.chunkWords
		if end > len(words) {
			end = len(words)
		}
		joined := strings.Join(words[i:end], " ")
		if len(joined) > c.minChars {
			chunks = append(chunks, domain.Chunk{
				Seq:   len(chunks),
				Text:  joined,
				Chars: len(joined),
			})
		}
		if end == len(words) {
			break
		}
	}
	return chunks
}
