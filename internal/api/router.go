package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shapedtime/animeschedule/internal/agent"
	"github.com/shapedtime/animeschedule/internal/seasonsync"
	"github.com/shapedtime/animeschedule/internal/service"
)

const defaultBingeWindowDays = 30

// Service is the schedule service as seen by the API: the agent tool
// operations plus the shared clock and the per-day schedule.
type Service interface {
	agent.Service
	Today() time.Time
	EpisodesOn(ctx context.Context, date time.Time) ([]service.ScheduleSlot, error)
}

// SeasonSyncer is the season sync service as seen by the API.
type SeasonSyncer interface {
	TriggerSyncAsync() error
	GetStatus() seasonsync.Status
}

// StatusCounter reports stored anime counts.
type StatusCounter interface {
	CountByStatus() (map[string]int, error)
}

// Server represents the REST API server
type Server struct {
	router          *gin.Engine
	svc             Service
	tools           *agent.Toolbox
	bingeWindowDays int
	seasonSync      SeasonSyncer  // Optional: nil when sync is disabled
	counter         StatusCounter // Optional: nil without a store
}

// NewServer creates a new API server
func NewServer(svc Service, bingeWindowDays int) *Server {
	gin.SetMode(gin.ReleaseMode)

	if bingeWindowDays <= 0 {
		bingeWindowDays = defaultBingeWindowDays
	}

	s := &Server{
		router:          gin.New(),
		svc:             svc,
		tools:           agent.NewToolbox(svc),
		bingeWindowDays: bingeWindowDays,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// SetSeasonSync configures sync triggering and status
func (s *Server) SetSeasonSync(sync SeasonSyncer) {
	s.seasonSync = sync
	slog.Info("Season sync configured for API")
}

// SetStatusCounter configures store statistics on /api/status
func (s *Server) SetStatusCounter(counter StatusCounter) {
	s.counter = counter
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.router.Use(gin.Recovery())

	// Logging middleware
	s.router.Use(func(c *gin.Context) {
		c.Next()
		slog.Info("API request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	})

	// CORS for the web frontend
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)

	api := s.router.Group("/api")

	// Anime
	api.GET("/anime/bingeable", s.getBingeable)
	api.GET("/anime/seasonal", s.getSeasonal)
	api.GET("/anime/search/:query", s.searchAnime)
	api.GET("/anime/:id", s.getAnime)
	api.POST("/predict", s.predict)

	// Schedule
	api.GET("/schedule/weekly", s.getWeeklySchedule)
	api.GET("/schedule/date/:date", s.getEpisodesOn)

	// Agent tools
	api.GET("/tools", s.listTools)
	api.POST("/tools/:name", s.executeTool)

	// Sync and status
	api.POST("/sync", s.triggerSync)
	api.GET("/status", s.getStatus)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Error response helper
func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
