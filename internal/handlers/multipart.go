package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vexport/vexport/internal/assets"
)

// formUploads opens up to max files from a multipart field. The returned
// close func must be called after the uploads have been consumed.
func formUploads(c echo.Context, field string, max int) ([]assets.Upload, func(), error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("no files in field %q", field))
	}
	if len(files) > max {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("at most %d files allowed", max))
	}

	uploads := make([]assets.Upload, 0, len(files))
	opened := make([]multipart.File, 0, len(files))
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("open upload %q: %v", fh.Filename, err))
		}
		opened = append(opened, src)
		uploads = append(uploads, assets.Upload{
			Filename: fh.Filename,
			MIME:     fh.Header.Get("Content-Type"),
			Reader:   src,
		})
	}
	return uploads, closeAll, nil
}

// formUpload opens a single file from a multipart field.
func formUpload(c echo.Context, field string) (assets.Upload, func(), error) {
	uploads, closeAll, err := formUploads(c, field, 1)
	if err != nil {
		return assets.Upload{}, nil, err
	}
	return uploads[0], closeAll, nil
}
