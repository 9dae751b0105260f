package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/vexport/vexport/internal/activity"
	"github.com/vexport/vexport/internal/assets"
	"github.com/vexport/vexport/internal/auth"
	"github.com/vexport/vexport/internal/config"
	"github.com/vexport/vexport/internal/contacts"
	"github.com/vexport/vexport/internal/siteconfig"
	"github.com/vexport/vexport/internal/vehicles"
	"github.com/vexport/vexport/internal/visitors"
)

// AdminHandler covers the authenticated back office: login, site
// configuration, the hero video and the dashboard.
type AdminHandler struct {
	admin      config.AdminConfig
	jwtSecret  string
	jwtExpires time.Duration
	site       *siteconfig.Service
	reconciler *assets.Reconciler
	activities *activity.Service
	vehicles   *vehicles.Service
	contacts   *contacts.Service
	visitors   *visitors.Service
	logger     *slog.Logger
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
}

type dashboardStats struct {
	Vehicles      int64            `json:"vehicles"`
	Messages      int64            `json:"messages"`
	Visitors      visitors.Stats   `json:"visitors"`
	RecentEntries []activity.Entry `json:"recent_activity"`
}

func NewAdminHandler(log *slog.Logger, cfg config.Config, site *siteconfig.Service, reconciler *assets.Reconciler, activities *activity.Service, vehicleSvc *vehicles.Service, contactSvc *contacts.Service, visitorSvc *visitors.Service) (*AdminHandler, error) {
	if log == nil {
		log = slog.Default()
	}
	expires, err := time.ParseDuration(cfg.Auth.JWTExpiresIn)
	if err != nil {
		return nil, err
	}
	return &AdminHandler{
		admin:      cfg.Admin,
		jwtSecret:  cfg.Auth.JWTSecret,
		jwtExpires: expires,
		site:       site,
		reconciler: reconciler,
		activities: activities,
		vehicles:   vehicleSvc,
		contacts:   contactSvc,
		visitors:   visitorSvc,
		logger:     log.With(slog.String("handler", "admin")),
	}, nil
}

func (h *AdminHandler) Register(e *echo.Echo) {
	g := e.Group("/api/admin")
	g.POST("/login", h.Login)
	g.POST("/upload-video", h.UploadVideo)
	g.GET("/site-config", h.GetSiteConfig)
	g.PUT("/site-config", h.UpdateSiteConfig)
	g.PUT("/custom-page/:pageKey", h.UpsertCustomPage)
	g.GET("/dashboard-stats", h.DashboardStats)
	g.GET("/activity", h.Activity)
}

func (h *AdminHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Username != h.admin.Username ||
		bcrypt.CompareHashAndPassword([]byte(h.admin.PasswordHash), []byte(req.Password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	token, expiresAt, err := auth.GenerateToken(req.Username, h.jwtSecret, h.jwtExpires)
	if err != nil {
		return httpError(err)
	}
	h.activities.Record(c.Request().Context(), activity.TypeAdmin, "admin login", "back office sign in", req.Username)
	return c.JSON(http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt, Username: req.Username})
}

func (h *AdminHandler) UploadVideo(c echo.Context) error {
	upload, closeAll, err := formUpload(c, "video")
	if err != nil {
		return err
	}
	defer closeAll()

	url, err := h.reconciler.UploadSiteVideo(c.Request().Context(), upload, auth.UsernameFromContext(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message":  "video uploaded",
		"videoUrl": url,
	})
}

func (h *AdminHandler) GetSiteConfig(c echo.Context) error {
	cfg, err := h.site.GetOrCreate(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *AdminHandler) UpdateSiteConfig(c echo.Context) error {
	var input siteconfig.UpdateInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	cfg, err := h.site.Update(ctx, input)
	if err != nil {
		return httpError(err)
	}
	h.activities.Record(ctx, activity.TypeAdmin, "site config updated", "site configuration saved", auth.UsernameFromContext(c))
	return c.JSON(http.StatusOK, cfg)
}

func (h *AdminHandler) UpsertCustomPage(c echo.Context) error {
	key := c.Param("pageKey")
	var page siteconfig.CustomPage
	if err := c.Bind(&page); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	cfg, err := h.site.UpsertCustomPage(ctx, key, page)
	if err != nil {
		return httpError(err)
	}
	h.activities.Record(ctx, activity.TypeAdmin, "page updated", "custom page "+key+" saved", auth.UsernameFromContext(c))
	return c.JSON(http.StatusOK, cfg)
}

func (h *AdminHandler) DashboardStats(c echo.Context) error {
	ctx := c.Request().Context()
	vehicleCount, err := h.vehicles.Count(ctx)
	if err != nil {
		return httpError(err)
	}
	messageCount, err := h.contacts.Count(ctx)
	if err != nil {
		return httpError(err)
	}
	visitorStats, err := h.visitors.Stats(ctx)
	if err != nil {
		return httpError(err)
	}
	recent, err := h.activities.List(ctx, 10)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, dashboardStats{
		Vehicles:      vehicleCount,
		Messages:      messageCount,
		Visitors:      visitorStats,
		RecentEntries: recent,
	})
}

func (h *AdminHandler) Activity(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		limit = n
	}
	entries, err := h.activities.List(c.Request().Context(), limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": entries})
}
