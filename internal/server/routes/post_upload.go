package routes

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/OFFIS-RIT/kiwi/graphrag/internal/server/middleware"
	"github.com/OFFIS-RIT/kiwi/graphrag/internal/server/util"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/loader"
	loaderio "github.com/OFFIS-RIT/kiwi/graphrag/pkg/loader/io"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/loader/pdf"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/loader/text"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/logger"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type uploadResponse struct {
	Filename             string `json:"filename"`
	Status               string `json:"status"`
	Chunks               int    `json:"chunks"`
	FailedChunks         int    `json:"failed_chunks"`
	Entities             int    `json:"entities"`
	Relationships        int    `json:"relationships"`
	SkippedRelationships int    `json:"skipped_relationships"`
}

func UploadHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	header, err := c.FormFile("file")
	if err != nil {
		return util.ErrorJSON(c, http.StatusBadRequest, errors.New("missing file"))
	}

	src, err := header.Open()
	if err != nil {
		return util.ErrorJSON(c, http.StatusBadRequest, fmt.Errorf("failed to open upload: %w", err))
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return util.ErrorJSON(c, http.StatusBadRequest, fmt.Errorf("failed to read upload: %w", err))
	}

	id, err := gonanoid.New()
	if err != nil {
		return util.ErrorJSON(c, http.StatusInternalServerError, err)
	}

	source := loaderio.NewBytesGraphFileLoader(content)
	params := loader.NewGraphFileParams{ID: id, FilePath: header.Filename}

	var file loader.GraphFile
	if loader.IsPDF(header.Filename) {
		params.Loader = pdf.NewPDFGraphLoader(source)
		file = loader.NewGraphPDFFile(params)
	} else {
		params.Loader = text.NewTextGraphLoader(source)
		file = loader.NewGraphDocumentFile(params)
	}

	logger.Info("[Server] Processing upload", "file", header.Filename, "id", id, "bytes", len(content))

	res, err := app.Session.Ingest(c.Request().Context(), file)
	if err != nil {
		logger.Error("[Server] Upload failed", "file", header.Filename, "err", err)
		return util.ErrorJSON(c, util.StatusFromError(err), err)
	}
	app.Metrics.ObserveIngest(res)

	return c.JSON(http.StatusOK, uploadResponse{
		Filename:             header.Filename,
		Status:               "processed",
		Chunks:               res.Chunks,
		FailedChunks:         res.FailedChunks,
		Entities:             res.Entities,
		Relationships:        res.Relationships,
		SkippedRelationships: res.SkippedRelationships,
	})
}
