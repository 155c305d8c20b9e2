package text

import (
	"context"
	"testing"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/loader"
	loaderio "github.com/OFFIS-RIT/kiwi/graphrag/pkg/loader/io"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"ascii", []byte("plain text"), "plain text"},
		{"utf8", []byte("Café Müller"), "Café Müller"},
		{"latin1", []byte{'C', 'a', 'f', 0xe9}, "Café"},
		{"latin1 upper", []byte{0xc4, 'r', 'g', 'e', 'r'}, "Ärger"},
		{"empty", []byte{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.in, tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestTextGraphLoader(t *testing.T) {
	f := loader.NewGraphDocumentFile(loader.NewGraphFileParams{
		ID:       "doc",
		FilePath: "notes.txt",
		Loader:   NewTextGraphLoader(loaderio.NewBytesGraphFileLoader([]byte{'n', 0xe4, 'h', 'e'})),
	})

	got, err := f.GetText(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "nähe", string(got))
	assert.Equal(t, loader.GraphFileTypeDocument, f.FileType)
}

func TestIsPDF(t *testing.T) {
	assert.True(t, loader.IsPDF("a.pdf"))
	assert.True(t, loader.IsPDF("REPORT.PDF"))
	assert.False(t, loader.IsPDF("a.txt"))
	assert.False(t, loader.IsPDF("pdf"))
}
