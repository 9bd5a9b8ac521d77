package server

import (
	"net/http"
	"runtime"
	"time"

	apierrors "github.com/anujgarg/coinmarket-api/common/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Version is the application version reported by / and /version.
const Version = "1.0.0"

const serviceName = "coinmarket-api"

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// handleLogin exchanges credentials for a JWT access token.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.HandleError(c, apierrors.Validation("username and password are required"))
		return
	}

	token, err := s.authSvc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		apierrors.HandleError(c, apierrors.Unauthorized("incorrect username or password"))
		return
	}

	c.JSON(http.StatusOK, token)
}

// handleRoot serves the service banner.
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Cryptocurrency Market Updates API",
		"version": Version,
		"health":  "/health",
		"metrics": "/metrics",
	})
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   serviceName,
	})
}

// handleHealthDetailed reports liveness plus upstream connectivity. A
// failing upstream probe degrades the status but never the response code.
func (s *Server) handleHealthDetailed(c *gin.Context) {
	status := "healthy"

	upstream := gin.H{
		"status":  "healthy",
		"message": "CoinGecko API is accessible",
	}

	start := time.Now()
	if err := s.marketSvc.Ping(c.Request.Context()); err != nil {
		s.logger.Warn("upstream health probe failed", zap.Error(err))
		upstream = gin.H{
			"status":  "unhealthy",
			"message": "error connecting to CoinGecko API: " + err.Error(),
		}
		status = "degraded"
	} else {
		upstream["response_time_ms"] = time.Since(start).Milliseconds()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   serviceName,
		"version":   Version,
		"checks": gin.H{
			"application": gin.H{
				"status":  "healthy",
				"message": "application is running",
			},
			"coingecko_api": upstream,
		},
	})
}

// handleVersion reports application, runtime and upstream information.
func (s *Server) handleVersion(c *gin.Context) {
	upstreamStatus := "available"
	if err := s.marketSvc.Ping(c.Request.Context()); err != nil {
		upstreamStatus = "unavailable"
	}

	c.JSON(http.StatusOK, gin.H{
		"application": gin.H{
			"name":       "Cryptocurrency Market Updates API",
			"version":    Version,
			"go_version": runtime.Version(),
		},
		"external_services": gin.H{
			"coingecko": gin.H{
				"api_url": s.cfg.CoinGecko.BaseURL,
				"status":  upstreamStatus,
			},
		},
		"configuration": gin.H{
			"default_per_page":  s.cfg.API.DefaultPerPage,
			"coingecko_api_url": s.cfg.CoinGecko.BaseURL,
		},
	})
}
