package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	apperrors "tradefolio/internal/errors"
	"tradefolio/internal/models"
	"tradefolio/internal/pagination"
	"tradefolio/internal/testutil"
)

func setupLedger(t *testing.T) (LedgerServicer, *testutil.TradingFixture, func()) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	fixture := testutil.CreateTradingFixture(t, db, decimal.NewFromInt(10000))
	svc := NewLedgerService(db, NewAccountService(db))
	return svc, fixture, func() { testutil.TeardownTestDB(t, db) }
}

func TestBuy(t *testing.T) {
	t.Run("debits_balance_and_updates_holding", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		fixture := testutil.CreateTradingFixture(t, db, decimal.NewFromInt(10000))
		svc := NewLedgerService(db, NewAccountService(db))

		trade, err := svc.Buy(fixture.User.ID, fixture.Holding.ID,
			decimal.NewFromInt(10), decimal.NewFromInt(100))
		testutil.AssertNoError(t, err)

		if trade.Side != models.TradeSideBuy {
			t.Errorf("expected BUY trade, got %s", trade.Side)
		}
		testutil.AssertDecimalEqual(t, "10", trade.Quantity, "trade quantity")
		testutil.AssertDecimalEqual(t, "100", trade.Price, "trade price")

		var holding models.Holding
		db.First(&holding, "id = ?", fixture.Holding.ID)
		testutil.AssertDecimalEqual(t, "10", holding.Quantity, "quantity")
		testutil.AssertDecimalEqual(t, "100", holding.AveragePrice, "average price")

		var account models.Account
		db.First(&account, "id = ?", fixture.Account.ID)
		testutil.AssertDecimalEqual(t, "9000", account.Balance, "balance")

		var tradeCount int64
		db.Model(&models.Trade{}).Where("holding_id = ?", fixture.Holding.ID).Count(&tradeCount)
		if tradeCount != 1 {
			t.Errorf("expected exactly 1 trade, got %d", tradeCount)
		}
	})

	t.Run("fractional_shares", func(t *testing.T) {
		svc, fixture, teardown := setupLedger(t)
		defer teardown()

		q, _ := decimal.NewFromString("0.5")
		p, _ := decimal.NewFromString("199.99")
		_, err := svc.Buy(fixture.User.ID, fixture.Holding.ID, q, p)
		testutil.AssertNoError(t, err)

		holding, err := svc.GetHoldingByID(fixture.User.ID, fixture.Holding.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, "0.5", holding.Quantity, "quantity")
		testutil.AssertDecimalEqual(t, "199.99", holding.AveragePrice, "average price")
	})

	t.Run("zero_price_grant", func(t *testing.T) {
		svc, fixture, teardown := setupLedger(t)
		defer teardown()

		_, err := svc.Buy(fixture.User.ID, fixture.Holding.ID,
			decimal.NewFromInt(5), decimal.Zero)
		testutil.AssertNoError(t, err)

		holding, err := svc.GetHoldingByID(fixture.User.ID, fixture.Holding.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, "5", holding.Quantity, "quantity")
		testutil.AssertDecimalEqual(t, "0", holding.AveragePrice, "average price")
		testutil.AssertDecimalEqual(t, "10000", holding.Account.Balance, "balance")
	})

	t.Run("insufficient_funds_leaves_state_unchanged", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		// balance=100, buy 10 @ 20 -> total 200 > 100
		fixture := testutil.CreateTradingFixture(t, db, decimal.NewFromInt(100))
		svc := NewLedgerService(db, NewAccountService(db))

		_, err := svc.Buy(fixture.User.ID, fixture.Holding.ID,
			decimal.NewFromInt(10), decimal.NewFromInt(20))
		testutil.AssertAppError(t, err, "INSUFFICIENT_FUNDS")

		var account models.Account
		db.First(&account, "id = ?", fixture.Account.ID)
		testutil.AssertDecimalEqual(t, "100", account.Balance, "balance")

		var holding models.Holding
		db.First(&holding, "id = ?", fixture.Holding.ID)
		testutil.AssertDecimalEqual(t, "0", holding.Quantity, "quantity")

		var tradeCount int64
		db.Model(&models.Trade{}).Where("holding_id = ?", fixture.Holding.ID).Count(&tradeCount)
		if tradeCount != 0 {
			t.Errorf("expected no trades after rejected buy, got %d", tradeCount)
		}
	})

	t.Run("exact_balance_spends_to_zero", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		fixture := testutil.CreateTradingFixture(t, db, decimal.NewFromInt(200))
		svc := NewLedgerService(db, NewAccountService(db))

		_, err := svc.Buy(fixture.User.ID, fixture.Holding.ID,
			decimal.NewFromInt(10), decimal.NewFromInt(20))
		testutil.AssertNoError(t, err)

		var account models.Account
		db.First(&account, "id = ?", fixture.Account.ID)
		testutil.AssertDecimalEqual(t, "0", account.Balance, "balance")
	})

	t.Run("invalid_quantity", func(t *testing.T) {
		svc, fixture, teardown := setupLedger(t)
		defer teardown()

		_, err := svc.Buy(fixture.User.ID, fixture.Holding.ID, decimal.Zero, decimal.NewFromInt(10))
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = svc.Buy(fixture.User.ID, fixture.Holding.ID, decimal.NewFromInt(-1), decimal.NewFromInt(10))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("negative_price", func(t *testing.T) {
		svc, fixture, teardown := setupLedger(t)
		defer teardown()

		_, err := svc.Buy(fixture.User.ID, fixture.Holding.ID, decimal.NewFromInt(1), decimal.NewFromInt(-5))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("wrong_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		fixture := testutil.CreateTradingFixture(t, db, decimal.NewFromInt(10000))
		other := testutil.CreateTestUser(t, db)
		svc := NewLedgerService(db, NewAccountService(db))

		_, err := svc.Buy(other.ID, fixture.Holding.ID, decimal.NewFromInt(1), decimal.NewFromInt(1))
		testutil.AssertAppError(t, err, "HOLDING_NOT_FOUND")
	})
}

func TestWeightedAveragePrice(t *testing.T) {
	svc, fixture, teardown := setupLedger(t)
	defer teardown()

	// buy(10, 100) -> quantity=10, average=100
	_, err := svc.Buy(fixture.User.ID, fixture.Holding.ID,
		decimal.NewFromInt(10), decimal.NewFromInt(100))
	testutil.AssertNoError(t, err)

	holding, err := svc.GetHoldingByID(fixture.User.ID, fixture.Holding.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertDecimalEqual(t, "10", holding.Quantity, "quantity")
	testutil.AssertDecimalEqual(t, "100", holding.AveragePrice, "average price")

	// buy(10, 200) -> quantity=20, average=(1000+2000)/20=150
	_, err = svc.Buy(fixture.User.ID, fixture.Holding.ID,
		decimal.NewFromInt(10), decimal.NewFromInt(200))
	testutil.AssertNoError(t, err)

	holding, err = svc.GetHoldingByID(fixture.User.ID, fixture.Holding.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertDecimalEqual(t, "20", holding.Quantity, "quantity")
	testutil.AssertDecimalEqual(t, "150", holding.AveragePrice, "average price")

	// sell(5, 300) -> quantity=15, average still 150, balance +1500
	balanceBefore := mustAccountBalance(t, svc, fixture)
	_, err = svc.Sell(fixture.User.ID, fixture.Holding.ID,
		decimal.NewFromInt(5), decimal.NewFromInt(300))
	testutil.AssertNoError(t, err)

	holding, err = svc.GetHoldingByID(fixture.User.ID, fixture.Holding.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertDecimalEqual(t, "15", holding.Quantity, "quantity")
	testutil.AssertDecimalEqual(t, "150", holding.AveragePrice, "average price")
	testutil.AssertDecimalEqual(t, balanceBefore.Add(decimal.NewFromInt(1500)).String(),
		holding.Account.Balance, "balance")
}

func mustAccountBalance(t *testing.T, svc LedgerServicer, fixture *testutil.TradingFixture) decimal.Decimal {
	t.Helper()
	holding, err := svc.GetHoldingByID(fixture.User.ID, fixture.Holding.ID)
	testutil.AssertNoError(t, err)
	return holding.Account.Balance
}

func TestSell(t *testing.T) {
	t.Run("credits_proceeds_and_reduces_quantity", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		fixture := testutil.CreateTradingFixture(t, db, decimal.NewFromInt(10000))
		svc := NewLedgerService(db, NewAccountService(db))

		_, err := svc.Buy(fixture.User.ID, fixture.Holding.ID,
			decimal.NewFromInt(10), decimal.NewFromInt(100))
		testutil.AssertNoError(t, err)

		trade, err := svc.Sell(fixture.User.ID, fixture.Holding.ID,
			decimal.NewFromInt(4), decimal.NewFromInt(150))
		testutil.AssertNoError(t, err)

		if trade.Side != models.TradeSideSell {
			t.Errorf("expected SELL trade, got %s", trade.Side)
		}

		var holding models.Holding
		db.First(&holding, "id = ?", fixture.Holding.ID)
		testutil.AssertDecimalEqual(t, "6", holding.Quantity, "quantity")
		testutil.AssertDecimalEqual(t, "100", holding.AveragePrice, "average price")

		// 10000 - 1000 + 600
		var account models.Account
		db.First(&account, "id = ?", fixture.Account.ID)
		testutil.AssertDecimalEqual(t, "9600", account.Balance, "balance")
	})

	t.Run("insufficient_shares_leaves_state_unchanged", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		fixture := testutil.CreateTradingFixture(t, db, decimal.NewFromInt(10000))
		svc := NewLedgerService(db, NewAccountService(db))

		// holding quantity=5, sell 10 -> rejected
		_, err := svc.Buy(fixture.User.ID, fixture.Holding.ID,
			decimal.NewFromInt(5), decimal.NewFromInt(100))
		testutil.AssertNoError(t, err)

		_, err = svc.Sell(fixture.User.ID, fixture.Holding.ID,
			decimal.NewFromInt(10), decimal.NewFromInt(100))
		testutil.AssertAppError(t, err, "INSUFFICIENT_SHARES")

		var holding models.Holding
		db.First(&holding, "id = ?", fixture.Holding.ID)
		testutil.AssertDecimalEqual(t, "5", holding.Quantity, "quantity")

		var account models.Account
		db.First(&account, "id = ?", fixture.Account.ID)
		testutil.AssertDecimalEqual(t, "9500", account.Balance, "balance")

		var tradeCount int64
		db.Model(&models.Trade{}).Where("holding_id = ?", fixture.Holding.ID).Count(&tradeCount)
		if tradeCount != 1 {
			t.Errorf("expected only the buy trade, got %d trades", tradeCount)
		}
	})

	t.Run("sell_to_zero_preserves_average_price", func(t *testing.T) {
		svc, fixture, teardown := setupLedger(t)
		defer teardown()

		_, err := svc.Buy(fixture.User.ID, fixture.Holding.ID,
			decimal.NewFromInt(10), decimal.NewFromInt(100))
		testutil.AssertNoError(t, err)

		_, err = svc.Sell(fixture.User.ID, fixture.Holding.ID,
			decimal.NewFromInt(10), decimal.NewFromInt(120))
		testutil.AssertNoError(t, err)

		// The average price keeps its last value at quantity zero; it is
		// not reset. A later buy recomputes it from scratch.
		holding, err := svc.GetHoldingByID(fixture.User.ID, fixture.Holding.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, "0", holding.Quantity, "quantity")
		testutil.AssertDecimalEqual(t, "100", holding.AveragePrice, "average price")

		// Buying again at a new price restarts the weighted mean.
		_, err = svc.Buy(fixture.User.ID, fixture.Holding.ID,
			decimal.NewFromInt(2), decimal.NewFromInt(50))
		testutil.AssertNoError(t, err)

		holding, err = svc.GetHoldingByID(fixture.User.ID, fixture.Holding.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, "50", holding.AveragePrice, "average price")
	})

	t.Run("invalid_quantity", func(t *testing.T) {
		svc, fixture, teardown := setupLedger(t)
		defer teardown()

		_, err := svc.Sell(fixture.User.ID, fixture.Holding.ID, decimal.Zero, decimal.NewFromInt(10))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestTradeLog(t *testing.T) {
	t.Run("sequence_is_monotonic", func(t *testing.T) {
		svc, fixture, teardown := setupLedger(t)
		defer teardown()

		_, err := svc.Buy(fixture.User.ID, fixture.Holding.ID, decimal.NewFromInt(10), decimal.NewFromInt(10))
		testutil.AssertNoError(t, err)
		_, err = svc.Sell(fixture.User.ID, fixture.Holding.ID, decimal.NewFromInt(3), decimal.NewFromInt(12))
		testutil.AssertNoError(t, err)
		_, err = svc.Buy(fixture.User.ID, fixture.Holding.ID, decimal.NewFromInt(1), decimal.NewFromInt(15))
		testutil.AssertNoError(t, err)

		page := pagination.PageRequest{Page: 1, PageSize: 20}
		trades, err := svc.GetHoldingTrades(fixture.User.ID, fixture.Holding.ID, page)
		testutil.AssertNoError(t, err)

		if trades.TotalItems != 3 {
			t.Fatalf("expected 3 trades, got %d", trades.TotalItems)
		}
		for i, trade := range trades.Data {
			if trade.Sequence != int64(i+1) {
				t.Errorf("expected sequence %d at position %d, got %d", i+1, i, trade.Sequence)
			}
		}
	})

	t.Run("replay_reproduces_quantity", func(t *testing.T) {
		svc, fixture, teardown := setupLedger(t)
		defer teardown()

		buys := [][2]int64{{10, 100}, {5, 200}, {3, 50}}
		for _, b := range buys {
			_, err := svc.Buy(fixture.User.ID, fixture.Holding.ID,
				decimal.NewFromInt(b[0]), decimal.NewFromInt(b[1]))
			testutil.AssertNoError(t, err)
		}
		_, err := svc.Sell(fixture.User.ID, fixture.Holding.ID,
			decimal.NewFromInt(7), decimal.NewFromInt(300))
		testutil.AssertNoError(t, err)

		page := pagination.PageRequest{Page: 1, PageSize: 100}
		trades, err := svc.GetHoldingTrades(fixture.User.ID, fixture.Holding.ID, page)
		testutil.AssertNoError(t, err)

		replayed := decimal.Zero
		for _, trade := range trades.Data {
			switch trade.Side {
			case models.TradeSideBuy:
				replayed = replayed.Add(trade.Quantity)
			case models.TradeSideSell:
				replayed = replayed.Sub(trade.Quantity)
			}
		}

		holding, err := svc.GetHoldingByID(fixture.User.ID, fixture.Holding.ID)
		testutil.AssertNoError(t, err)
		if !replayed.Equal(holding.Quantity) {
			t.Errorf("replayed quantity %s does not match holding quantity %s",
				replayed.String(), holding.Quantity.String())
		}
	})
}

func TestConcurrentBuys(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	fixture := testutil.CreateTradingFixture(t, db, decimal.NewFromInt(300))
	svc := NewLedgerService(db, NewAccountService(db))

	// 5 concurrent buys of 1 @ 100 against a balance of 300: at most 3 can
	// succeed. Whatever the interleaving, no update may be lost — the final
	// balance, quantity, and trade count must agree with the success count.
	const workers = 5
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Buy(fixture.User.ID, fixture.Holding.ID,
				decimal.NewFromInt(1), decimal.NewFromInt(100))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes int64
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			t.Fatalf("unexpected error type: %v", err)
		}
		if appErr.Code != "INSUFFICIENT_FUNDS" && appErr.Code != "CONCURRENCY_CONFLICT" {
			t.Fatalf("unexpected error code %s", appErr.Code)
		}
	}
	if successes == 0 {
		t.Fatal("expected at least one buy to succeed")
	}
	if successes > 3 {
		t.Fatalf("expected at most 3 affordable buys, got %d", successes)
	}

	var account models.Account
	db.First(&account, "id = ?", fixture.Account.ID)
	expectedBalance := decimal.NewFromInt(300).Sub(decimal.NewFromInt(100 * successes))
	testutil.AssertDecimalEqual(t, expectedBalance.String(), account.Balance, "balance")

	var holding models.Holding
	db.First(&holding, "id = ?", fixture.Holding.ID)
	testutil.AssertDecimalEqual(t, decimal.NewFromInt(successes).String(), holding.Quantity, "quantity")

	var tradeCount int64
	db.Model(&models.Trade{}).Where("holding_id = ?", fixture.Holding.ID).Count(&tradeCount)
	if tradeCount != successes {
		t.Errorf("expected %d trades, got %d", successes, tradeCount)
	}
}

func TestOpenHolding(t *testing.T) {
	t.Run("creates_zero_quantity_holding", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		currency := testutil.CreateTestCurrency(t, db)
		exchange := testutil.CreateTestExchange(t, db)
		stock := testutil.CreateTestStock(t, db, exchange.ID, currency.ID)
		account := testutil.CreateTestBrokerageAccount(t, db, user.ID, currency.ID, decimal.Zero)
		svc := NewLedgerService(db, NewAccountService(db))

		holding, err := svc.OpenHolding(user.ID, account.ID, stock.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, "0", holding.Quantity, "quantity")
		if holding.Stock.Symbol != stock.Symbol {
			t.Errorf("expected stock %s, got %s", stock.Symbol, holding.Stock.Symbol)
		}
	})

	t.Run("rejects_duplicate_pair", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		fixture := testutil.CreateTradingFixture(t, db, decimal.Zero)
		svc := NewLedgerService(db, NewAccountService(db))

		_, err := svc.OpenHolding(fixture.User.ID, fixture.Account.ID, fixture.Stock.ID)
		testutil.AssertAppError(t, err, "DUPLICATE_HOLDING")
	})

	t.Run("rejects_non_brokerage_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		currency := testutil.CreateTestCurrency(t, db)
		exchange := testutil.CreateTestExchange(t, db)
		stock := testutil.CreateTestStock(t, db, exchange.ID, currency.ID)
		credit := testutil.CreateTestCreditAccount(t, db, user.ID, currency.ID,
			decimal.Zero, decimal.NewFromInt(5000))
		svc := NewLedgerService(db, NewAccountService(db))

		_, err := svc.OpenHolding(user.ID, credit.ID, stock.ID)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}
