package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chart-race/internal/api/handlers"
	"chart-race/internal/api/middleware"
	"chart-race/internal/config"
	"chart-race/internal/series"
)

const RoleOperator = "operator"

// Feed is the websocket side of the render hub.
type Feed interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
	ServeViewer(w http.ResponseWriter, r *http.Request)
}

// Deps are the running pieces the API exposes.
type Deps struct {
	DB     *gorm.DB
	Race   handlers.RaceController
	Feed   Feed
	Series series.Series
}

type Server struct {
	cfg    *config.Config
	deps   Deps
	router *gin.Engine
}

func New(cfg *config.Config, deps Deps) *Server {
	if cfg.Server.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		router: gin.New(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery(), middleware.SilentLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	// "Authorization" must be allowed so the frontend can send the JWT
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}

	s.router.Use(cors.New(corsConfig))
}

func (s *Server) setupRoutes() {
	raceHandler := handlers.NewRaceHandler(s.deps.Race)
	seriesHandler := handlers.NewSeriesHandler(s.deps.Series)

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "chart-race"})
	})

	// With a secret configured, control is limited to operators; everyone
	// else can still watch.
	var guard []gin.HandlerFunc
	if s.cfg.Server.JWTSecret != "" {
		guard = []gin.HandlerFunc{
			middleware.RequireAuth([]byte(s.cfg.Server.JWTSecret)),
			middleware.RequireRole(RoleOperator),
		}
	}

	if s.deps.Feed != nil {
		if guard == nil {
			s.router.GET("/ws", gin.WrapF(s.deps.Feed.ServeHTTP))
		} else {
			s.router.GET("/ws", gin.WrapF(s.deps.Feed.ServeViewer))
			s.router.GET("/ws/control", append(guard, gin.WrapF(s.deps.Feed.ServeHTTP))...)
		}
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/state", raceHandler.GetState)
		v1.GET("/years", raceHandler.GetYears)
		v1.GET("/frames/:index", raceHandler.GetFrame)
		v1.GET("/series", seriesHandler.GetSeries)
		v1.GET("/schema/message", handlers.GetMessageSchema)
		v1.GET("/schema/command", handlers.GetCommandSchema)

		v1.POST("/control/:command", append(guard, raceHandler.Control)...)

		if s.deps.DB != nil {
			trackHandler := handlers.NewTrackHandler(s.deps.DB)
			statsHandler := handlers.NewStatsHandler(s.deps.DB)

			v1.GET("/tracks", trackHandler.GetTracks)
			v1.GET("/sources", trackHandler.GetSources)
			v1.GET("/stats", statsHandler.GetStats)
			v1.GET("/history", statsHandler.GetHistory)
		}
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🌐 API listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
