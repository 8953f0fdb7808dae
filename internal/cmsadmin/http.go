// Пакет cmsadmin - сервер административной панели djofo.
//
// Основные возможности:
//   - Сессии редактора контента на стороне сервера.
//   - Проксирование публикаций, подкастов, медиа, формаций и курсов в API djofo.
//   - Черновики неотправленных форм для повторной отправки.
//   - Всплывающие уведомления через вебсокет.
package cmsadmin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/djofo/cmsadmin/internal/cmsadmin/apiclient"
	"github.com/djofo/cmsadmin/internal/cmsadmin/config"
	"github.com/djofo/cmsadmin/internal/cmsadmin/cronmanager"
	"github.com/djofo/cmsadmin/internal/cmsadmin/dao"
	sessions "github.com/djofo/cmsadmin/internal/cmsadmin/editor-sessions"
	"github.com/djofo/cmsadmin/internal/cmsadmin/export"
	"github.com/djofo/cmsadmin/internal/cmsadmin/notifications"
	"github.com/djofo/cmsadmin/internal/cmsadmin/tokenstore"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type Services struct {
	db       *gorm.DB
	api      *apiclient.Client
	tokens   *tokenstore.Store
	editors  *sessions.Manager
	hub      *notifications.Hub
	notify   notifications.Sink
	markdown *export.MarkdownExporter

	// registry для коллекторов и middleware, в тестах свой на каждый сервис
	registry prometheus.Registerer
}

var cfg *config.Config
var appVersion string

// NewServices собирает сервисы панели. Коллекторы prometheus не регистрируются, это делает Server.
func NewServices(db *gorm.DB, c *config.Config, version string) (*Services, error) {
	cfg = c
	appVersion = version

	if err := dao.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	tokens, err := tokenstore.New(db, cfg.APIToken)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}

	hub := notifications.NewHub()
	return &Services{
		db:     db,
		tokens: tokens,
		api: apiclient.New(cfg.APIURL, tokens, apiclient.Options{
			RetryMax:     cfg.APIRetryMax,
			RetryWaitMin: time.Second,
			RetryWaitMax: time.Second * 10,
			Logger:       slog.Default(),
		}),
		editors:  sessions.NewManager(cfg.EditorSessionTTL()),
		hub:      hub,
		notify:   notifications.Multi(notifications.LogSink{}, hub),
		markdown: export.NewMarkdownExporter(),
		registry: prometheus.DefaultRegisterer,
	}, nil
}

func (s *Services) collectors() []prometheus.Collector {
	res := []prometheus.Collector{s.api.Collector(), s.hub.Collector()}
	return append(res, s.editors.Collectors()...)
}

// Echo - http сервер со всеми маршрутами
func (s *Services) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		// Ignore 404
		if code == http.StatusNotFound {
			c.NoContent(http.StatusNotFound)
			return
		}
		slog.Error("Unhandled error in endpoint", "url", c.Request().URL, "err", err)
		EErrorMsgStatus(c, nil, code)
	}

	// Global middlewares
	e.Use(ServerHeader)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit: "5M",
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/api/upload/"
		},
	}))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level:     9,
		MinLength: 2048,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/api/ws/notifications/"
		},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "cmsadmin",
		Registerer: s.registry,
	}))
	e.Pre(middleware.AddTrailingSlash())

	e.Validator = NewRequestValidator()

	apiGroup := e.Group("/api/")
	authGroup := apiGroup.Group("", s.AuthMiddleware)

	s.AddAuthenticationServices(apiGroup, authGroup)
	s.AddEditorServices(authGroup)
	s.AddContentServices(authGroup)
	s.AddDraftServices(authGroup)

	apiGroup.GET("version/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"version": appVersion,
			"api_url": cfg.APIURL.String(),
		})
	})

	// Health endpoint
	apiGroup.GET("_health/", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	authGroup.GET("ws/notifications/", func(c echo.Context) error {
		s.hub.Handle(c.Response(), c.Request())
		return nil
	})

	// Front handler
	if cfg.FrontFilesPath != "" {
		slog.Info("Start front routing")
		e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
			Root:  cfg.FrontFilesPath,
			HTML5: true,
			Skipper: func(c echo.Context) bool {
				return strings.HasPrefix(c.Request().URL.Path, "/api/")
			},
		}))
	}

	return e
}

func (s *Services) jobs() cronmanager.JobRegistry {
	return cronmanager.JobRegistry{
		"editor_sessions_expire": cronmanager.Job{
			Func:     func() { s.editors.ExpireIdle() },
			Schedule: "* * * * *", // every minute
		},
		"drafts_clean": cronmanager.Job{
			Func:     s.cleanDrafts,
			Schedule: "0 2 * * *", // daily at 02:00
		},
	}
}

func (s *Services) cleanDrafts() {
	n, err := dao.DeleteDraftsOlderThan(s.db, time.Now().Add(-cfg.DraftsRetention()))
	if err != nil {
		slog.Error("Clean old drafts", "err", err)
		return
	}
	if n > 0 {
		slog.Info("Old drafts removed", "count", n)
	}
}

func Server(db *gorm.DB, c *config.Config, version string) {
	s, err := NewServices(db, c, version)
	if err != nil {
		slog.Error("Init services", "err", err)
		os.Exit(1)
	}

	for _, col := range s.collectors() {
		if err := s.registry.Register(col); err != nil {
			slog.Error("Register metrics collector", "err", err)
			os.Exit(1)
		}
	}

	cronManager := cronmanager.NewCronManager(s.jobs())
	if err := cronManager.LoadJobs(); err != nil {
		slog.Error("Failed to load cron jobs", "err", err)
		os.Exit(1)
	}
	cronManager.Start()

	e := s.Echo()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down gracefully, press Ctrl+C again to force")
		cronManager.Stop()
		s.hub.CloseAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown", "err", err)
		}
	}()

	// Prometheus metrics
	go func() {
		bootTimeGauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cmsadmin",
			Name:      "boot_time",
			Help:      "Server startup time",
		})
		bootTimeGauge.Set(float64(time.Now().UnixMilli()))

		if err := prometheus.Register(bootTimeGauge); err != nil {
			slog.Error("Register boot time gauge", "err", err)
			os.Exit(1)
		}

		metrics := echo.New()
		metrics.HideBanner = true
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(cfg.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server fail", "err", err)
		}
	}()

	if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server fail", "err", err)
	}
}
