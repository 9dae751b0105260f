package handlers

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartContext(t *testing.T, field string, filenames ...string) echo.Context {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, name := range filenames {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("content of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestFormUploads(t *testing.T) {
	t.Parallel()

	c := multipartContext(t, "images", "a.jpg", "b.jpg")
	uploads, closeAll, err := formUploads(c, "images", 10)
	require.NoError(t, err)
	defer closeAll()

	require.Len(t, uploads, 2)
	assert.Equal(t, "a.jpg", uploads[0].Filename)
	assert.Equal(t, "b.jpg", uploads[1].Filename)

	content, err := io.ReadAll(uploads[0].Reader)
	require.NoError(t, err)
	assert.Equal(t, "content of a.jpg", string(content))
}

func TestFormUploadsLimits(t *testing.T) {
	t.Parallel()

	c := multipartContext(t, "images", "a.jpg", "b.jpg", "c.jpg")
	_, _, err := formUploads(c, "images", 2)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestFormUploadsMissingField(t *testing.T) {
	t.Parallel()

	c := multipartContext(t, "other", "a.jpg")
	_, _, err := formUploads(c, "images", 10)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestFormUpload(t *testing.T) {
	t.Parallel()

	c := multipartContext(t, "video", "promo.mp4")
	up, closeAll, err := formUpload(c, "video")
	require.NoError(t, err)
	defer closeAll()
	assert.Equal(t, "promo.mp4", up.Filename)

	// Two files in a single-file field is an error.
	c = multipartContext(t, "video", "a.mp4", "b.mp4")
	_, _, err = formUpload(c, "video")
	require.Error(t, err)
}
