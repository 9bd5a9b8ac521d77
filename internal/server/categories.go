package server

import (
	"net/http"

	apierrors "github.com/anujgarg/coinmarket-api/common/errors"
	"github.com/anujgarg/coinmarket-api/internal/coingecko"
	"github.com/anujgarg/coinmarket-api/pkg/paginate"
	"github.com/gin-gonic/gin"
)

// handleListCategories returns the paginated category listing.
func (s *Server) handleListCategories(c *gin.Context) {
	var query pageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		s.bindQueryError(c, err)
		return
	}
	perPage := s.perPageOrDefault(query.PerPage)

	categories, err := s.marketSvc.ListCategories(c.Request.Context())
	if err != nil {
		apierrors.HandleError(c, mapUpstreamError(err, "error fetching categories"))
		return
	}

	c.JSON(http.StatusOK, paginate.Paginate(categories, query.PageNum, perPage))
}

// handleCategoryCoins serves market data for every coin in a category.
func (s *Server) handleCategoryCoins(c *gin.Context) {
	var query pageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		s.bindQueryError(c, err)
		return
	}
	perPage := s.perPageOrDefault(query.PerPage)

	s.serveMarketData(c, coingecko.MarketQuery{
		Category:   c.Param("category_id"),
		Currencies: s.cfg.CoinGecko.Currencies,
	}, query.PageNum, perPage)
}
