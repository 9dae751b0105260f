package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vexport/vexport/internal/activity"
	"github.com/vexport/vexport/internal/auth"
	"github.com/vexport/vexport/internal/contacts"
)

// ContactsHandler takes public enquiries and lets the back office work
// through them.
type ContactsHandler struct {
	service    *contacts.Service
	activities *activity.Service
	logger     *slog.Logger
}

func NewContactsHandler(log *slog.Logger, service *contacts.Service, activities *activity.Service) *ContactsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ContactsHandler{
		service:    service,
		activities: activities,
		logger:     log.With(slog.String("handler", "contacts")),
	}
}

func (h *ContactsHandler) Register(e *echo.Echo) {
	g := e.Group("/api/contact")
	g.POST("", h.Submit)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id/respond", h.MarkResponded)
	g.DELETE("/:id", h.Delete)
}

func (h *ContactsHandler) Submit(c echo.Context) error {
	var input contacts.SubmitInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	contact, err := h.service.Submit(ctx, input)
	if err != nil {
		return httpError(err)
	}
	h.activities.Record(ctx, activity.TypeMessage, "message received",
		fmt.Sprintf("enquiry from %s", contact.Name), contact.Name)
	return c.JSON(http.StatusCreated, map[string]string{"message": "message sent"})
}

func (h *ContactsHandler) List(c echo.Context) error {
	items, err := h.service.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ContactsHandler) Get(c echo.Context) error {
	contact, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, contact)
}

func (h *ContactsHandler) MarkResponded(c echo.Context) error {
	contact, err := h.service.MarkResponded(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, contact)
}

func (h *ContactsHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.service.Delete(ctx, c.Param("id")); err != nil {
		return httpError(err)
	}
	h.activities.Record(ctx, activity.TypeMessage, "message deleted", "enquiry removed", auth.UsernameFromContext(c))
	return c.JSON(http.StatusOK, map[string]string{"message": "contact deleted"})
}
