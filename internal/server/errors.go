package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/market-data/internal/api"
	"github.com/rickgao/market-data/internal/broker"
	"github.com/rickgao/market-data/internal/cache"
)

type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, api.ErrUnavailable), errors.Is(err, broker.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err onto a status code and a {"message"} body.
func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "err", err)
	}
	c.JSON(status, messageResponse{Message: err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, messageResponse{Message: msg})
}
