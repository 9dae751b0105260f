package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vexport/vexport/internal/assets"
	"github.com/vexport/vexport/internal/auth"
	"github.com/vexport/vexport/internal/remotestore"
)

// MediaHandler exposes the shared media library stored in the object store.
type MediaHandler struct {
	reconciler *assets.Reconciler
	remote     remotestore.Store
	logger     *slog.Logger
}

func NewMediaHandler(log *slog.Logger, reconciler *assets.Reconciler, remote remotestore.Store) *MediaHandler {
	if log == nil {
		log = slog.Default()
	}
	return &MediaHandler{
		reconciler: reconciler,
		remote:     remote,
		logger:     log.With(slog.String("handler", "media")),
	}
}

func (h *MediaHandler) Register(e *echo.Echo) {
	g := e.Group("/api/media")
	g.GET("", h.List)
	g.POST("/upload", h.Upload)
	g.DELETE("/:filename", h.Delete)
	g.GET("/test-connection", h.TestConnection)
}

func (h *MediaHandler) List(c echo.Context) error {
	files, err := h.reconciler.ListMedia(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"files": files})
}

func (h *MediaHandler) Upload(c echo.Context) error {
	upload, closeAll, err := formUpload(c, "media")
	if err != nil {
		return err
	}
	defer closeAll()

	file, err := h.reconciler.UploadMedia(c.Request().Context(), upload, auth.UsernameFromContext(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": "media uploaded",
		"file":    file,
	})
}

func (h *MediaHandler) Delete(c echo.Context) error {
	filename := c.Param("filename")
	if err := h.reconciler.DeleteMedia(c.Request().Context(), filename, auth.UsernameFromContext(c)); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "media deleted"})
}

// TestConnection reports whether the object store answers at all, without
// touching any objects.
func (h *MediaHandler) TestConnection(c echo.Context) error {
	if err := h.remote.HealthCheck(c.Request().Context()); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "connected"})
}
