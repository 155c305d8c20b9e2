package graph

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/loader"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultChunkSize is the chunk bound in characters used when none is configured.
const DefaultChunkSize = 1000

type processUnit struct {
	id     string
	fileID string
	index  int
	text   string
}

// Chunk splits text into sentence-aligned chunks of at most maxSize
// characters. Sentences end at '.', '!' or '?' followed by whitespace and
// are packed greedily, joined by a single space. A sentence longer than
// maxSize is emitted on its own and never split.
func Chunk(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, sentence := range splitIntoSentences(text) {
		n := utf8.RuneCountInString(sentence)
		if currentLen > 0 && currentLen+1+n > maxSize {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += n
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// splitIntoSentences cuts text after every '.', '!' or '?' that is
// followed by whitespace. The whitespace between sentences is dropped,
// whitespace inside a sentence is kept.
func splitIntoSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	emit := func(end int) {
		s := strings.TrimSpace(string(runes[start:end]))
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				emit(i + 1)
				j := i + 1
				for j < len(runes) && unicode.IsSpace(runes[j]) {
					j++
				}
				start = j
				i = j - 1
			}
		}
	}
	if start < len(runes) {
		emit(len(runes))
	}

	return sentences
}

func getUnitsFromText(
	ctx context.Context,
	file loader.GraphFile,
	maxSize int,
) ([]processUnit, error) {
	textBytes, err := file.GetText(ctx)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(textBytes))
	if text == "" {
		return nil, nil
	}

	chunks := Chunk(text, maxSize)
	units := make([]processUnit, 0, len(chunks))
	for i, chunk := range chunks {
		uID, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		units = append(units, processUnit{
			id:     uID,
			fileID: file.ID,
			index:  i,
			text:   chunk,
		})
	}

	return units, nil
}
