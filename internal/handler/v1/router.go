package v1

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/config"
	"github.com/dmehra2102/prod-golang-projects/oncoscan/pkg/metrics"
)

type Handlers struct {
	Session  *SessionHandler
	Scans    *ScanHandler
	History  *HistoryHandler
	Notes    *NotesHandler
	Activity *ActivityHandler
}

func NewRouter(cfg *config.Config, h Handlers, m *metrics.Collector, log *zap.Logger) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		RequestID(),
		Logger(log),
		Metrics(m),
		Recovery(log),
		cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     cfg.CORS.AllowedMethods,
			AllowHeaders:     cfg.CORS.AllowedHeaders,
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           cfg.CORS.MaxAge,
		}),
	)
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": cfg.App.Version})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	api := router.Group("/api/v1")
	{
		session := api.Group("/session")
		{
			session.POST("", h.Session.Login)
			session.GET("", h.Session.Status)
			session.DELETE("", h.Session.Logout)
			session.POST("/refresh", h.Session.Refresh)
		}
		api.POST("/signup", h.Session.Signup)

		api.POST("/scans", h.Scans.Submit)

		history := api.Group("/history")
		{
			history.GET("", h.History.Get)
			history.POST("/reload", h.History.Reload)
			history.GET("/deletion", h.History.DeletionStatus)
			history.POST("/deletion", h.History.RequestDelete)
			history.POST("/deletion/confirm", h.History.ConfirmDelete)
			history.DELETE("/deletion", h.History.CancelDelete)
		}

		notes := api.Group("/notes")
		{
			notes.GET("", h.Notes.Get)
			notes.PUT("", h.Notes.Save)
			notes.DELETE("", h.Notes.Clear)
		}

		api.GET("/activity", h.Activity.List)
	}

	return router
}
