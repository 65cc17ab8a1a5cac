package ingest

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"linka/internal/dataprocessing"
)

// SVG metadata columns
const (
	SVGFilename     = "filename"
	SVGFilesize     = "filesize"
	SVGLastModified = "lastModified"
	SVGContent      = "content"
)

// parseSVG stores the drawing as a single metadata row. The markup itself is
// forced categorical so it is never sampled as numbers or dates.
func parseSVG(_ context.Context, src Source) (*dataprocessing.Dataset, error) {
	body, err := io.ReadAll(src.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	content := strings.TrimSpace(string(body))
	if content == "" {
		return nil, ErrEmptyFile
	}
	if !strings.Contains(content, "<svg") {
		return nil, fmt.Errorf("%w: no <svg> element", ErrMalformed)
	}

	name := src.Name
	if name == "" {
		name = "untitled.svg"
	}
	size := src.Size
	if size <= 0 {
		size = int64(len(body))
	}
	modified := src.ModTime
	if modified.IsZero() {
		modified = time.Now()
	}

	row := dataprocessing.Row{
		SVGFilename:     dataprocessing.Text(name),
		SVGFilesize:     dataprocessing.Text(strconv.FormatInt(size, 10)),
		SVGLastModified: dataprocessing.Text(modified.UTC().Format(time.RFC3339)),
		SVGContent:      dataprocessing.Text(content),
	}
	return &dataprocessing.Dataset{
		Columns:          []string{SVGFilename, SVGFilesize, SVGLastModified, SVGContent},
		Rows:             []dataprocessing.Row{row},
		ForceCategorical: []string{SVGContent},
	}, nil
}
