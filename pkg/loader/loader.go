package loader

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

// ErrUnreadableFile marks content that cannot be turned into text.
var ErrUnreadableFile = errors.New("unreadable file")

type GraphFileType string

const (
	GraphFileTypeDocument GraphFileType = "document"
	GraphFileTypePDF      GraphFileType = "pdf"
)

// GraphFile represents an uploaded document that is turned into text
// before chunking. The content is retrieved via the associated
// GraphFileLoader.
type GraphFile struct {
	ID       string
	FilePath string
	FileType GraphFileType
	Loader   GraphFileLoader
}

// NewGraphFileParams defines the input parameters for creating a new GraphFile.
type NewGraphFileParams struct {
	ID       string
	FilePath string
	Loader   GraphFileLoader
}

// NewGraphDocumentFile creates a GraphFile for plain text content.
func NewGraphDocumentFile(params NewGraphFileParams) GraphFile {
	return GraphFile{
		ID:       params.ID,
		FilePath: params.FilePath,
		FileType: GraphFileTypeDocument,
		Loader:   params.Loader,
	}
}

// NewGraphPDFFile creates a GraphFile whose content is a PDF.
func NewGraphPDFFile(params NewGraphFileParams) GraphFile {
	return GraphFile{
		ID:       params.ID,
		FilePath: params.FilePath,
		FileType: GraphFileTypePDF,
		Loader:   params.Loader,
	}
}

// IsPDF reports whether name carries a .pdf extension.
func IsPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// GetText retrieves the text content of the file using its Loader.
func (f *GraphFile) GetText(ctx context.Context) ([]byte, error) {
	return f.Loader.GetFileText(ctx, *f)
}

// GraphFileLoader defines the interface for loading the contents of a GraphFile.
// Loaders can be stacked: a decoding loader wraps a source loader.
type GraphFileLoader interface {
	GetFileText(ctx context.Context, file GraphFile) ([]byte, error)
}
