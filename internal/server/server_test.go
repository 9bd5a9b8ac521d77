package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anujgarg/coinmarket-api/internal/auth"
	"github.com/anujgarg/coinmarket-api/internal/coingecko"
	"github.com/anujgarg/coinmarket-api/internal/config"
	"github.com/anujgarg/coinmarket-api/internal/server"
	"github.com/anujgarg/coinmarket-api/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func f(v float64) *float64 { return &v }

// stubAuth accepts the literal token "valid-token" and rejects anything else.
type stubAuth struct{}

func (s *stubAuth) Authenticate(ctx context.Context, username, password string) (*auth.Token, error) {
	if username == "testuser" && password == "testpass" {
		return &auth.Token{AccessToken: "valid-token", TokenType: "bearer", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}
	return nil, assert.AnError
}

func (s *stubAuth) ValidateToken(ctx context.Context, tokenString string) (*auth.TokenClaims, error) {
	if strings.TrimPrefix(tokenString, "Bearer ") == "valid-token" {
		return &auth.TokenClaims{UserID: uuid.New(), Username: "testuser"}, nil
	}
	return nil, assert.AnError
}

// stubMarket returns canned data and records the last market query.
type stubMarket struct {
	coins      []models.Coin
	categories []models.Category
	records    []models.MarketRecord
	err        error
	pingErr    error
	lastQuery  *coingecko.MarketQuery
}

func (s *stubMarket) ListCoins(ctx context.Context) ([]models.Coin, error) {
	return s.coins, s.err
}

func (s *stubMarket) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories, s.err
}

func (s *stubMarket) GetMarketData(ctx context.Context, query coingecko.MarketQuery) ([]models.MarketRecord, error) {
	s.lastQuery = &query
	return s.records, s.err
}

func (s *stubMarket) Ping(ctx context.Context) error { return s.pingErr }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.API.DefaultPerPage = 10
	cfg.API.MaxPerPage = 250
	cfg.CoinGecko.BaseURL = "https://api.coingecko.com/api/v3"
	cfg.CoinGecko.Currencies = []string{"inr", "cad"}
	return cfg
}

func setupRouter(market *stubMarket) *gin.Engine {
	gin.SetMode(gin.TestMode)
	srv := server.NewServer(zap.NewNop(), testConfig(), &stubAuth{}, market)
	return srv.Router()
}

func doRequest(router *gin.Engine, method, target string, authorized bool) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, target, nil)
	if authorized {
		req.Header.Set("Authorization", "Bearer valid-token")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type pageEnvelope struct {
	Page       int               `json:"page"`
	PerPage    int               `json:"per_page"`
	Total      int               `json:"total"`
	TotalPages int               `json:"total_pages"`
	Data       []json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) pageEnvelope {
	t.Helper()
	var env pageEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestDataRoutesRequireAuth(t *testing.T) {
	router := setupRouter(&stubMarket{})

	for _, target := range []string{
		"/coins",
		"/coins/market-data?coin_id=bitcoin",
		"/coins/bitcoin",
		"/categories",
		"/categories/defi/coins",
	} {
		w := doRequest(router, http.MethodGet, target, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code, target)
	}
}

func TestListCoinsEnvelope(t *testing.T) {
	market := &stubMarket{coins: []models.Coin{
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin"},
		{ID: "ethereum", Symbol: "eth", Name: "Ethereum"},
	}}
	router := setupRouter(market)

	w := doRequest(router, http.MethodGet, "/coins?page_num=1&per_page=10", true)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	assert.Equal(t, 1, env.Page)
	assert.Equal(t, 10, env.PerPage)
	assert.Equal(t, 2, env.Total)
	assert.Equal(t, 1, env.TotalPages)
	assert.Len(t, env.Data, 2)
}

func TestListCoinsAppliesDefaultPerPage(t *testing.T) {
	coins := make([]models.Coin, 25)
	for i := range coins {
		coins[i] = models.Coin{ID: "coin", Symbol: "c", Name: "Coin"}
	}
	router := setupRouter(&stubMarket{coins: coins})

	w := doRequest(router, http.MethodGet, "/coins", true)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	assert.Equal(t, 10, env.PerPage)
	assert.Len(t, env.Data, 10)
	assert.Equal(t, 3, env.TotalPages)
}

func TestListCoinsRejectsOutOfBoundsParams(t *testing.T) {
	router := setupRouter(&stubMarket{})

	for _, target := range []string{
		"/coins?page_num=0",
		"/coins?per_page=0",
		"/coins?per_page=251",
	} {
		w := doRequest(router, http.MethodGet, target, true)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, target)
	}
}

func TestMarketDataRequiresFilter(t *testing.T) {
	router := setupRouter(&stubMarket{})

	w := doRequest(router, http.MethodGet, "/coins/market-data", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "coin_id")
}

func TestMarketDataRejectsBlankCoinIDList(t *testing.T) {
	router := setupRouter(&stubMarket{})

	w := doRequest(router, http.MethodGet, "/coins/market-data?coin_id=,%20,", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarketDataFormatsDualCurrency(t *testing.T) {
	market := &stubMarket{records: []models.MarketRecord{{
		ID:           "bitcoin",
		Symbol:       "btc",
		Name:         "Bitcoin",
		CurrentPrice: f(5000000),
		MarketCap:    f(1e12),
		Quotes: map[string]models.CurrencyQuote{
			"cad": {CurrentPrice: f(85000), MarketCap: f(1.7e12)},
		},
	}}}
	router := setupRouter(market)

	w := doRequest(router, http.MethodGet, "/coins/market-data?coin_id=bitcoin", true)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	require.Len(t, env.Data, 1)

	var coin map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data[0], &coin))
	assert.Equal(t, "bitcoin", coin["id"])
	assert.Equal(t, 5000000.0, coin["current_price_inr"])
	assert.Equal(t, 85000.0, coin["current_price_cad"])
	assert.Equal(t, 1e12, coin["market_cap_inr"])
	assert.Equal(t, 1.7e12, coin["market_cap_cad"])

	// The handler passes the configured currency list through.
	require.NotNil(t, market.lastQuery)
	assert.Equal(t, []string{"inr", "cad"}, market.lastQuery.Currencies)
	assert.Equal(t, []string{"bitcoin"}, market.lastQuery.CoinIDs)
}

func TestMarketDataUpstreamNotFound(t *testing.T) {
	market := &stubMarket{err: &coingecko.StatusError{StatusCode: http.StatusNotFound, URL: "https://upstream/coins/markets"}}
	router := setupRouter(market)

	w := doRequest(router, http.MethodGet, "/coins/market-data?category=no-such-category", true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "coin or category not found", resp["error"])
}

func TestMarketDataUpstreamFailure(t *testing.T) {
	market := &stubMarket{err: &coingecko.StatusError{StatusCode: http.StatusBadGateway, URL: "https://upstream/coins/markets"}}
	router := setupRouter(market)

	w := doRequest(router, http.MethodGet, "/coins/market-data?coin_id=bitcoin", true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCoinByIDSplitsPathIDs(t *testing.T) {
	market := &stubMarket{}
	router := setupRouter(market)

	w := doRequest(router, http.MethodGet, "/coins/bitcoin,ethereum?category=defi", true)
	require.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, market.lastQuery)
	assert.Equal(t, []string{"bitcoin", "ethereum"}, market.lastQuery.CoinIDs)
	assert.Equal(t, "defi", market.lastQuery.Category)
}

func TestListCategoriesEnvelope(t *testing.T) {
	market := &stubMarket{categories: []models.Category{
		{CategoryID: "defi", Name: "DeFi"},
	}}
	router := setupRouter(market)

	w := doRequest(router, http.MethodGet, "/categories", true)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	assert.Equal(t, 1, env.Total)

	var category map[string]string
	require.NoError(t, json.Unmarshal(env.Data[0], &category))
	assert.Equal(t, "defi", category["category_id"])
	assert.Equal(t, "DeFi", category["name"])
}

func TestCategoryCoinsPassesCategory(t *testing.T) {
	market := &stubMarket{}
	router := setupRouter(market)

	w := doRequest(router, http.MethodGet, "/categories/defi/coins", true)
	require.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, market.lastQuery)
	assert.Equal(t, "defi", market.lastQuery.Category)
	assert.Empty(t, market.lastQuery.CoinIDs)
}

func TestLogin(t *testing.T) {
	router := setupRouter(&stubMarket{})

	body := strings.NewReader(`{"username":"testuser","password":"testpass"}`)
	req, _ := http.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "valid-token", resp["access_token"])
	assert.Equal(t, "bearer", resp["token_type"])
}

func TestLoginBadCredentials(t *testing.T) {
	router := setupRouter(&stubMarket{})

	body := strings.NewReader(`{"username":"testuser","password":"wrong"}`)
	req, _ := http.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginMissingFields(t *testing.T) {
	router := setupRouter(&stubMarket{})

	req, _ := http.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"testuser"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	router := setupRouter(&stubMarket{})

	w := doRequest(router, http.MethodGet, "/health", false)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHealthDetailedDegradesOnUpstreamFailure(t *testing.T) {
	router := setupRouter(&stubMarket{pingErr: assert.AnError})

	w := doRequest(router, http.MethodGet, "/health/detailed", false)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
}

func TestVersion(t *testing.T) {
	router := setupRouter(&stubMarket{})

	w := doRequest(router, http.MethodGet, "/version", false)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "application")
	assert.Contains(t, resp, "configuration")
}
