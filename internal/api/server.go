// Package api implements the optional read-only HTTP status endpoint:
// lifecycle state, occupancy, process stats, and the session journal.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mcnap-project/mcnap/internal/db"
	intnet "github.com/mcnap-project/mcnap/internal/network"
	"github.com/mcnap-project/mcnap/internal/server"
)

const sessionsLimit = 50

// Server is the HTTP status server. All endpoints are read-only; the
// only way to start the game server remains a login on the game port.
type Server struct {
	controller *server.Controller
	journal    *db.Database

	httpServer *http.Server
	router     *gin.Engine
}

// NewServer creates a status server. journal may be nil when the
// session journal is disabled.
func NewServer(controller *server.Controller, journal *db.Database, debug bool) *Server {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Server{
		controller: controller,
		journal:    journal,
	}
}

// Start serves the status API until the context is cancelled.
func (s *Server) Start(ctx context.Context, port int) error {
	s.router = s.buildRouter()

	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// SO_REUSEADDR for immediate rebinding after restart
	lc := intnet.ReuseAddrListenConfig()
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("status API: %w", err)
	}

	log.Info().Str("addr", addr).Msg("status API starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status API: %w", err)
	}
	return nil
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(requestLogger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/healthz", s.handleHealthz)

	api := router.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.GET("/sessions", s.handleSessions)
	}

	return router
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	st := s.controller.Status()

	resp := gin.H{
		"state":        st.State,
		"player_count": st.PlayerCount,
		"peak_players": st.PeakPlayers,
		"idle_for_sec": int(st.IdleFor.Seconds()),
	}
	if st.PlayerName != "" {
		resp["activated_by"] = st.PlayerName
	}
	if st.PID != 0 {
		resp["pid"] = st.PID
		resp["uptime_sec"] = int(st.Uptime.Seconds())
		if cpu, memMB, err := s.controller.Supervisor().Stats(); err == nil {
			resp["cpu_percent"] = cpu
			resp["memory_mb"] = memMB
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSessions(c *gin.Context) {
	if s.journal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session journal disabled"})
		return
	}

	sessions, err := s.journal.RecentSessions(sessionsLimit)
	if err != nil {
		log.Error().Err(err).Msg("failed to query sessions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query sessions"})
		return
	}
	if sessions == nil {
		sessions = []db.Session{}
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// requestLogger logs incoming HTTP requests.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("api request")
	}
}

// Stop gracefully stops the status server.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
