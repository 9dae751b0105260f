package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vexport/vexport/internal/visitors"
)

// VisitorsHandler records page views and serves traffic counters.
type VisitorsHandler struct {
	service *visitors.Service
	logger  *slog.Logger
}

func NewVisitorsHandler(log *slog.Logger, service *visitors.Service) *VisitorsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &VisitorsHandler{
		service: service,
		logger:  log.With(slog.String("handler", "visitors")),
	}
}

func (h *VisitorsHandler) Register(e *echo.Echo) {
	g := e.Group("/api/visitors")
	g.POST("/record", h.Record)
	g.GET("/stats", h.Stats)
}

func (h *VisitorsHandler) Record(c echo.Context) error {
	var visit visitors.Visit
	if err := c.Bind(&visit); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if visit.UserAgent == "" {
		visit.UserAgent = c.Request().UserAgent()
	}
	if err := h.service.Record(c.Request().Context(), visit); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "visit recorded"})
}

func (h *VisitorsHandler) Stats(c echo.Context) error {
	stats, err := h.service.Stats(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}
