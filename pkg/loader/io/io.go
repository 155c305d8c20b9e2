package io

import (
	"context"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/loader"
)

// BytesGraphFileLoader serves content that is already held in memory,
// typically the body of an upload.
type BytesGraphFileLoader struct {
	data []byte
}

// NewBytesGraphFileLoader wraps data. The slice is not copied.
func NewBytesGraphFileLoader(data []byte) *BytesGraphFileLoader {
	return &BytesGraphFileLoader{data: data}
}

func (l *BytesGraphFileLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.data, nil
}
