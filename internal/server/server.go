// Package server wires the group lifecycle engine to its HTTP surface.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/savingsapp/groupservice/internal/config"
	groupdomain "github.com/savingsapp/groupservice/internal/group/domain"
	"github.com/savingsapp/groupservice/internal/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	log      *zap.Logger
	groupSvc groupdomain.Service
}

type Params struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	Log      *zap.Logger
	GroupSvc groupdomain.Service
}

// NewEngine builds the gin engine with the shared middleware chain.
func NewEngine(cfg config.Config, log *zap.Logger, httpMetrics *metrics.HTTPMetrics) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogging(log))
	r.Use(metrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func NewServer(p Params) *Server {
	s := &Server{
		engine:   p.Gin,
		cfg:      p.Cfg,
		log:      p.Log.Named("http.server"),
		groupSvc: p.GroupSvc,
	}

	s.registerGroupRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerGroupRoutes() {
	groups := s.engine.Group("/api/groups")

	groups.GET("", s.ListGroups)
	groups.GET("/:groupId", s.GetGroupByID)
	groups.GET("/organizer/:organizerId", s.ListOrganizerGroups)

	groups.POST("", s.AuthRequired(), s.CreateGroup)
	groups.PUT("/:groupId", s.AuthRequired(), s.UpdateGroup)
	groups.DELETE("/:groupId", s.AuthRequired(), s.DeleteGroup)
	groups.POST("/:groupId/join", s.AuthRequired(), s.RequestJoin)
	groups.POST("/:groupId/users/:userId/respond", s.AuthRequired(), s.RespondToJoin)
	groups.POST("/:groupId/assign-next", s.AuthRequired(), s.AssignNextRecipient)
	groups.POST("/:groupId/close", s.AuthRequired(), s.CloseGroup)
}

// RunHTTP starts the HTTP server through the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
