package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/classtrack/classtrack-api/api/swagger"
	"github.com/classtrack/classtrack-api/internal/handler"
	"github.com/classtrack/classtrack-api/internal/middleware"
	"github.com/classtrack/classtrack-api/internal/models"
	"github.com/classtrack/classtrack-api/internal/service"
	"github.com/classtrack/classtrack-api/pkg/config"
	"github.com/classtrack/classtrack-api/pkg/logger"
	corsmiddleware "github.com/classtrack/classtrack-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classtrack/classtrack-api/pkg/middleware/requestid"
)

type routes struct {
	metrics *service.MetricsService
	tokens  middleware.TokenValidator
	audit   middleware.AuditStore

	auth      *handler.AuthHandler
	rooms     *handler.RoomHandler
	timetable *handler.TimetableHandler
	chat      *handler.ChatHandler
	events    *handler.EventsHandler
	probes    *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, h routes) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics", cfg.APIPrefix+"/events"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(h.metrics))

	r.GET("/health", h.probes.Health)
	r.GET("/ready", h.probes.Ready)
	r.GET("/metrics", h.probes.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", h.auth.SignUp)
	authGroup.POST("/signin", h.auth.SignIn)
	authGroup.POST("/refresh", h.auth.Refresh)
	authGroup.POST("/signout", middleware.JWT(h.tokens), h.auth.SignOut)
	authGroup.GET("/me", middleware.JWT(h.tokens), h.auth.Me)

	api.GET("/events", middleware.JWTWithQueryToken(h.tokens), h.events.Stream)

	secured := api.Group("")
	secured.Use(middleware.JWT(h.tokens))

	secured.GET("/rooms", h.rooms.List)
	secured.GET("/rooms/grid", h.rooms.Grid)
	secured.PUT("/rooms/:id/status",
		middleware.RequireManager(),
		middleware.Audit(h.audit, logr, models.AuditActionStatusChange, "classroom", "id"),
		h.rooms.SetStatus,
	)

	timetable := secured.Group("/timetable")
	timetable.Use(middleware.RequireManager())
	timetable.GET("", h.timetable.List)
	timetable.POST("", middleware.Audit(h.audit, logr, models.AuditActionTimetableEdit, "timetable"), h.timetable.Create)
	timetable.DELETE("/:id", middleware.Audit(h.audit, logr, models.AuditActionTimetableEdit, "timetable", "id"), h.timetable.Delete)
	timetable.POST("/sync", middleware.Audit(h.audit, logr, models.AuditActionTimetableSync, "timetable"), h.timetable.Sync)
	timetable.POST("/import/preview", h.timetable.PreviewImport)
	timetable.POST("/import/:importId/commit",
		middleware.Audit(h.audit, logr, models.AuditActionImport, "timetable_import", "importId"),
		h.timetable.CommitImport,
	)
	timetable.GET("/export", h.timetable.Export)

	chat := secured.Group("/chat")
	chat.Use(middleware.RequireManager())
	chat.GET("/messages", h.chat.List)
	chat.POST("/messages", h.chat.Post)

	return r
}
