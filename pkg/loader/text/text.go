package text

import (
	"context"
	"unicode/utf8"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/loader"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/logger"

	"golang.org/x/text/encoding/charmap"
)

// TextGraphLoader decodes raw bytes as UTF-8 and falls back to
// ISO-8859-1 when the input is not valid UTF-8.
type TextGraphLoader struct {
	loader loader.GraphFileLoader
}

// NewTextGraphLoader creates a text loader reading raw bytes from source.
func NewTextGraphLoader(source loader.GraphFileLoader) *TextGraphLoader {
	return &TextGraphLoader{loader: source}
}

func (l *TextGraphLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	content, err := l.loader.GetFileText(ctx, file)
	if err != nil {
		return nil, err
	}
	return Decode(content, file.FilePath)
}

// Decode converts content to UTF-8. name is only used for logging.
func Decode(content []byte, name string) ([]byte, error) {
	if utf8.Valid(content) {
		return content, nil
	}

	logger.Debug("[Loader] Input is not UTF-8, decoding as Latin-1", "file", name)
	return charmap.ISO8859_1.NewDecoder().Bytes(content)
}
