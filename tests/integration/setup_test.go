package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tradefolio/internal/handlers"
	"tradefolio/internal/logger"
	"tradefolio/internal/middleware"
	"tradefolio/internal/models"
	"tradefolio/internal/services"
	"tradefolio/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:integrationdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	allModels := []interface{}{
		&models.User{},
		&models.Currency{},
		&models.StockExchange{},
		&models.Commodity{},
		&models.Stock{},
		&models.Account{},
		&models.Holding{},
		&models.Trade{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	// Services
	userService := services.NewUserService(db)
	accountService := services.NewAccountService(db)
	referenceService := services.NewReferenceService(db)
	ledgerService := services.NewLedgerService(db, accountService)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	accountHandler := handlers.NewAccountHandler(accountService)
	referenceHandler := handlers.NewReferenceHandler(referenceService)
	holdingHandler := handlers.NewHoldingHandler(ledgerService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	currencies := protected.Group("/currencies")
	currencies.POST("", referenceHandler.CreateCurrency)
	currencies.GET("", referenceHandler.ListCurrencies)
	currencies.DELETE("/:id", referenceHandler.DeleteCurrency)

	exchanges := protected.Group("/exchanges")
	exchanges.POST("", referenceHandler.CreateExchange)
	exchanges.GET("", referenceHandler.ListExchanges)

	stocks := protected.Group("/stocks")
	stocks.POST("", referenceHandler.CreateStock)
	stocks.GET("", referenceHandler.ListStocks)
	stocks.GET("/:id", referenceHandler.GetStockByID)

	commodities := protected.Group("/commodities")
	commodities.POST("", referenceHandler.CreateCommodity)
	commodities.GET("", referenceHandler.ListCommodities)

	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetUserAccounts)
	accounts.GET("/:id", accountHandler.GetAccountByID)
	accounts.PUT("/:id", accountHandler.UpdateAccount)
	accounts.POST("/:id/holdings", holdingHandler.OpenHolding)
	accounts.GET("/:id/holdings", holdingHandler.GetAccountHoldings)

	holdings := protected.Group("/holdings")
	holdings.GET("/:id", holdingHandler.GetHoldingByID)
	holdings.POST("/:id/buy", holdingHandler.Buy)
	holdings.POST("/:id/sell", holdingHandler.Sell)
	holdings.GET("/:id/trades", holdingHandler.GetHoldingTrades)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerAndLogin registers a new user, logs in, and returns the access token.
func (app *testApp) registerAndLogin(t *testing.T, email, password string) string {
	t.Helper()

	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}

	body = fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec = app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["token"].(string)
}

// createCurrency creates a currency and returns its ID.
func (app *testApp) createCurrency(t *testing.T, token, code string) string {
	t.Helper()
	body := fmt.Sprintf(`{"code":%q,"name":"Test Currency","symbol":"$"}`, code)
	rec := app.request("POST", "/api/v1/currencies", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create currency failed: %d %s", rec.Code, rec.Body.String())
	}
	currency := parseJSON(t, rec)["currency"].(map[string]interface{})
	return currency["id"].(string)
}

// createStock creates an exchange and a stock, returning the stock's ID.
func (app *testApp) createStock(t *testing.T, token, symbol, currencyID string) string {
	t.Helper()

	body := fmt.Sprintf(`{"name":"Test Exchange","code":"X%s","country":"US","timezone":"America/New_York"}`, symbol[:2])
	rec := app.request("POST", "/api/v1/exchanges", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create exchange failed: %d %s", rec.Code, rec.Body.String())
	}
	exchange := parseJSON(t, rec)["exchange"].(map[string]interface{})

	body = fmt.Sprintf(`{"symbol":%q,"name":"Test Stock","exchange_id":%q,"currency_id":%q,"unit_price":"100"}`,
		symbol, exchange["id"].(string), currencyID)
	rec = app.request("POST", "/api/v1/stocks", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create stock failed: %d %s", rec.Code, rec.Body.String())
	}
	stock := parseJSON(t, rec)["stock"].(map[string]interface{})
	return stock["id"].(string)
}

// createBrokerageAccount creates a brokerage account with the given starting
// cash balance and returns its ID.
func (app *testApp) createBrokerageAccount(t *testing.T, token, currencyID, balance string) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":"Trading Account","type":"brokerage","currency_id":%q,"initial_balance":%q}`,
		currencyID, balance)
	rec := app.request("POST", "/api/v1/accounts", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account failed: %d %s", rec.Code, rec.Body.String())
	}
	account := parseJSON(t, rec)["account"].(map[string]interface{})
	return account["id"].(string)
}

// openHolding opens a holding for a stock in an account and returns its ID.
func (app *testApp) openHolding(t *testing.T, token, accountID, stockID string) string {
	t.Helper()
	body := fmt.Sprintf(`{"stock_id":%q}`, stockID)
	rec := app.request("POST", "/api/v1/accounts/"+accountID+"/holdings", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("open holding failed: %d %s", rec.Code, rec.Body.String())
	}
	holding := parseJSON(t, rec)["holding"].(map[string]interface{})
	return holding["id"].(string)
}
