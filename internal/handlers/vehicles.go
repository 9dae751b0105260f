package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vexport/vexport/internal/activity"
	"github.com/vexport/vexport/internal/assets"
	"github.com/vexport/vexport/internal/auth"
	"github.com/vexport/vexport/internal/vehicles"
)

const maxVehicleImagesPerUpload = 10

// VehiclesHandler manages the vehicle catalog and vehicle image uploads.
type VehiclesHandler struct {
	service    *vehicles.Service
	reconciler *assets.Reconciler
	activities *activity.Service
	logger     *slog.Logger
}

func NewVehiclesHandler(log *slog.Logger, service *vehicles.Service, reconciler *assets.Reconciler, activities *activity.Service) *VehiclesHandler {
	if log == nil {
		log = slog.Default()
	}
	return &VehiclesHandler{
		service:    service,
		reconciler: reconciler,
		activities: activities,
		logger:     log.With(slog.String("handler", "vehicles")),
	}
}

func (h *VehiclesHandler) Register(e *echo.Echo) {
	g := e.Group("/api/vehicles")
	g.GET("", h.List)
	g.GET("/featured", h.ListFeatured)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/upload/:id", h.UploadImages)
}

func (h *VehiclesHandler) List(c echo.Context) error {
	items, err := h.service.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *VehiclesHandler) ListFeatured(c echo.Context) error {
	items, err := h.service.ListFeatured(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *VehiclesHandler) Get(c echo.Context) error {
	v, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *VehiclesHandler) Create(c echo.Context) error {
	var input vehicles.UpsertInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	v, err := h.service.Create(ctx, input)
	if err != nil {
		return httpError(err)
	}
	h.activities.Record(ctx, activity.TypeVehicle, "vehicle added",
		fmt.Sprintf("%s listed", v.Label()), auth.UsernameFromContext(c))
	return c.JSON(http.StatusCreated, v)
}

func (h *VehiclesHandler) Update(c echo.Context) error {
	var input vehicles.UpsertInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	v, err := h.service.Update(ctx, c.Param("id"), input)
	if err != nil {
		return httpError(err)
	}
	h.activities.Record(ctx, activity.TypeVehicle, "vehicle updated",
		fmt.Sprintf("%s updated", v.Label()), auth.UsernameFromContext(c))
	return c.JSON(http.StatusOK, v)
}

// Delete removes the vehicle row first, then cleans up its stored images
// best effort. A vehicle is never left half deleted because of a stuck
// object store.
func (h *VehiclesHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	v, err := h.service.Delete(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	h.reconciler.CleanupVehicleImages(ctx, v)
	h.activities.Record(ctx, activity.TypeVehicle, "vehicle deleted",
		fmt.Sprintf("%s removed", v.Label()), auth.UsernameFromContext(c))
	return c.JSON(http.StatusOK, map[string]string{"message": "vehicle deleted"})
}

func (h *VehiclesHandler) UploadImages(c echo.Context) error {
	uploads, closeAll, err := formUploads(c, "images", maxVehicleImagesPerUpload)
	if err != nil {
		return err
	}
	defer closeAll()

	ctx := c.Request().Context()
	v, err := h.reconciler.UploadVehicleImages(ctx, c.Param("id"), uploads, auth.UsernameFromContext(c))
	if err != nil {
		return httpError(err)
	}
	urls := make([]string, 0, len(uploads))
	if n := len(v.Images); n >= len(uploads) {
		for _, img := range v.Images[n-len(uploads):] {
			urls = append(urls, img.URL)
		}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": fmt.Sprintf("%d images uploaded", len(uploads)),
		"urls":    urls,
		"vehicle": v,
	})
}
