package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/loader"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/logger"

	"github.com/ledongthuc/pdf"
)

// PDFGraphLoader extracts the text layer of a PDF page by page.
// A page that cannot be decoded contributes no text; only a document
// that cannot be opened at all is an error.
type PDFGraphLoader struct {
	loader loader.GraphFileLoader
}

// NewPDFGraphLoader creates a PDF loader reading raw bytes from source.
func NewPDFGraphLoader(source loader.GraphFileLoader) *PDFGraphLoader {
	return &PDFGraphLoader{loader: source}
}

// GetFileText returns the concatenated page texts separated by newlines.
func (l *PDFGraphLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	content, err := l.loader.GetFileText(ctx, file)
	if err != nil {
		return nil, err
	}

	pages, err := parsePDF(ctx, content)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: failed to open pdf %s: %w", loader.ErrUnreadableFile, file.FilePath, err)
	}

	return []byte(strings.Join(pages, "\n")), nil
}

func parsePDF(ctx context.Context, content []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	n := reader.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages = append(pages, pageText(reader, i))
	}
	return pages, nil
}

func pageText(reader *pdf.Reader, num int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("[Loader] PDF page panicked, using empty text", "page", num, "err", r)
			text = ""
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		logger.Warn("[Loader] Failed to extract PDF page", "page", num, "err", err)
		return ""
	}
	return text
}
