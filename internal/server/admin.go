package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/market-data/internal/scheduler"
)

// health pings the broker and, when configured, the database.
func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.PingTimeout)
	defer cancel()

	if err := s.deps.Broker.Ping(ctx); err != nil {
		s.unhealthy(c, fmt.Errorf("broker: %w", err))
		return
	}
	if s.deps.Database != nil {
		if err := s.deps.Database.Ping(ctx); err != nil {
			s.unhealthy(c, fmt.Errorf("database: %w", err))
			return
		}
	}

	c.JSON(http.StatusOK, messageResponse{Message: "The service is healthy"})
}

func (s *Server) unhealthy(c *gin.Context, err error) {
	s.logger.Warn("health check failed", "err", err)
	c.JSON(http.StatusServiceUnavailable, messageResponse{
		Message: "The service is unhealthy",
		Error:   err.Error(),
	})
}

type schedulerStatus struct {
	Paused bool                   `json:"paused"`
	Tasks  []scheduler.TaskStatus `json:"tasks"`
}

func (s *Server) schedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, schedulerStatus{
		Paused: s.deps.Scheduler.Paused(),
		Tasks:  s.deps.Scheduler.Status(),
	})
}

func (s *Server) pauseScheduler(c *gin.Context) {
	s.deps.Scheduler.Pause()
	s.logger.Info("scheduler paused")
	c.JSON(http.StatusOK, messageResponse{Message: "Scheduler paused"})
}

func (s *Server) resumeScheduler(c *gin.Context) {
	s.deps.Scheduler.Resume()
	s.logger.Info("scheduler resumed")
	c.JSON(http.StatusOK, messageResponse{Message: "Scheduler resumed"})
}
