// Package server wires the HTTP surface: routing, authentication
// middleware and the translation of upstream failures into API errors.
package server

import (
	"errors"
	"net/http"

	"github.com/anujgarg/coinmarket-api/common/apiutil"
	apierrors "github.com/anujgarg/coinmarket-api/common/errors"
	"github.com/anujgarg/coinmarket-api/internal/auth"
	"github.com/anujgarg/coinmarket-api/internal/coingecko"
	"github.com/anujgarg/coinmarket-api/internal/config"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server
type Server struct {
	logger    *zap.Logger
	cfg       *config.Config
	authSvc   auth.AuthService
	marketSvc coingecko.MarketDataService
}

// NewServer creates a new HTTP server
func NewServer(logger *zap.Logger, cfg *config.Config, authSvc auth.AuthService, marketSvc coingecko.MarketDataService) *Server {
	return &Server{
		logger:    logger,
		cfg:       cfg,
		authSvc:   authSvc,
		marketSvc: marketSvc,
	}
}

// Router creates a new HTTP router
func (s *Server) Router() *gin.Engine {
	router := gin.New()

	router.Use(ginzap.Ginzap(s.logger, "2006-01-02T15:04:05Z07:00", true))
	router.Use(ginzap.RecoveryWithZap(s.logger, true))
	router.Use(cors.Default())
	router.Use(apiutil.MetricsMiddleware())

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)
	router.GET("/health/detailed", s.handleHealthDetailed)
	router.GET("/version", s.handleVersion)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/login", s.handleLogin)
	}

	coins := router.Group("/coins", s.authMiddleware())
	{
		coins.GET("", s.handleListCoins)
		coins.GET("/market-data", s.handleMarketData)
		coins.GET("/:coin_id", s.handleCoinByID)
	}

	categories := router.Group("/categories", s.authMiddleware())
	{
		categories.GET("", s.handleListCategories)
		categories.GET("/:category_id/coins", s.handleCategoryCoins)
	}

	return router
}

// authMiddleware creates a middleware for authentication
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			apierrors.HandleError(c, apierrors.Unauthorized("missing authorization header"))
			c.Abort()
			return
		}

		claims, err := s.authSvc.ValidateToken(c.Request.Context(), token)
		if err != nil {
			apierrors.HandleError(c, apierrors.Unauthorized("invalid or expired token"))
			c.Abort()
			return
		}

		c.Set("userID", claims.UserID.String())
		c.Set("username", claims.Username)
		c.Next()
	}
}

// pageQuery carries the shared pagination parameters. Values outside the
// documented bounds are a request-validation failure (422), not a domain
// error.
type pageQuery struct {
	PageNum int  `form:"page_num,default=1" binding:"gte=1"`
	PerPage *int `form:"per_page" binding:"omitempty,gte=1,lte=250"`
}

func (s *Server) perPageOrDefault(perPage *int) int {
	if perPage == nil {
		return s.cfg.API.DefaultPerPage
	}
	return *perPage
}

func (s *Server) bindQueryError(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid query parameters: " + err.Error()})
}

// mapUpstreamError translates an aggregation-client failure into the API
// error taxonomy. An upstream 404 means the requested coin or category
// does not exist; everything else (other statuses, timeouts, transport
// and decode failures) is an upstream failure. Never partial, never
// retried.
func mapUpstreamError(err error, detail string) *apierrors.APIError {
	var statusErr *coingecko.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusNotFound {
			return apierrors.NotFound("coin or category not found")
		}
		return apierrors.Upstream(detail, statusErr.StatusCode, err)
	}
	return apierrors.Upstream(detail, 0, err)
}
