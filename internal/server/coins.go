package server

import (
	"net/http"
	"strings"

	apierrors "github.com/anujgarg/coinmarket-api/common/errors"
	"github.com/anujgarg/coinmarket-api/internal/coingecko"
	"github.com/anujgarg/coinmarket-api/pkg/models"
	"github.com/anujgarg/coinmarket-api/pkg/paginate"
	"github.com/gin-gonic/gin"
)

// marketDataQuery carries the filters of the combined market-data
// endpoint on top of the shared pagination parameters.
type marketDataQuery struct {
	pageQuery
	CoinID   string `form:"coin_id"`
	Category string `form:"category"`
}

// handleListCoins returns the paginated upstream coin listing verbatim.
func (s *Server) handleListCoins(c *gin.Context) {
	var query pageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		s.bindQueryError(c, err)
		return
	}
	perPage := s.perPageOrDefault(query.PerPage)

	coins, err := s.marketSvc.ListCoins(c.Request.Context())
	if err != nil {
		apierrors.HandleError(c, mapUpstreamError(err, "error fetching coins"))
		return
	}

	c.JSON(http.StatusOK, paginate.Paginate(coins, query.PageNum, perPage))
}

// handleMarketData serves market data filtered by coin ids and/or
// category. At least one filter is required to keep the result set
// bounded; that policy lives here, not in the aggregation client.
func (s *Server) handleMarketData(c *gin.Context) {
	var query marketDataQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		s.bindQueryError(c, err)
		return
	}
	perPage := s.perPageOrDefault(query.PerPage)

	if query.CoinID == "" && query.Category == "" {
		apierrors.HandleError(c, apierrors.Validation("at least one of 'coin_id' or 'category' must be provided"))
		return
	}

	var coinIDs []string
	if query.CoinID != "" {
		coinIDs = splitCoinIDs(query.CoinID)
		if len(coinIDs) == 0 {
			apierrors.HandleError(c, apierrors.Validation("invalid coin_id format"))
			return
		}
	}

	s.serveMarketData(c, coingecko.MarketQuery{
		CoinIDs:    coinIDs,
		Category:   query.Category,
		Currencies: s.cfg.CoinGecko.Currencies,
	}, query.PageNum, perPage)
}

// handleCoinByID serves market data for one or more comma-separated coin
// ids given as a path parameter, optionally narrowed by category.
func (s *Server) handleCoinByID(c *gin.Context) {
	var query marketDataQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		s.bindQueryError(c, err)
		return
	}
	perPage := s.perPageOrDefault(query.PerPage)

	coinIDs := splitCoinIDs(c.Param("coin_id"))

	s.serveMarketData(c, coingecko.MarketQuery{
		CoinIDs:    coinIDs,
		Category:   query.Category,
		Currencies: s.cfg.CoinGecko.Currencies,
	}, query.PageNum, perPage)
}

// serveMarketData runs the fetch-merge-format-paginate pipeline shared by
// the market-data endpoints.
func (s *Server) serveMarketData(c *gin.Context, query coingecko.MarketQuery, pageNum, perPage int) {
	records, err := s.marketSvc.GetMarketData(c.Request.Context(), query)
	if err != nil {
		apierrors.HandleError(c, mapUpstreamError(err, "error fetching coin data"))
		return
	}

	formatted := make([]models.FormattedCoin, 0, len(records))
	for _, record := range records {
		formatted = append(formatted, models.FormatMarketRecord(record))
	}

	c.JSON(http.StatusOK, paginate.Paginate(formatted, pageNum, perPage))
}

// splitCoinIDs parses a comma-separated id list, dropping empty entries.
func splitCoinIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
