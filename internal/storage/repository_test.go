package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wishtrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "wishtrack.db"))
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedItem(t *testing.T, repo *SQLiteRepository, price string) core.Item {
	t.Helper()
	ctx := context.Background()

	wl, err := repo.CreateWishlist(ctx, 1, "birthday")
	if err != nil {
		t.Fatalf("create wishlist: %v", err)
	}

	item := core.Item{
		WishlistID:     wl.ID,
		Name:           "mechanical keyboard",
		Link:           "https://example.com/kb",
		SourcePlatform: core.Amazon,
		Price:          decimal.RequireFromString(price),
	}
	core.InitializeHistory(&item, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	if err := repo.SaveNewItem(ctx, &item); err != nil {
		t.Fatalf("save new item: %v", err)
	}
	return item
}

func TestSaveNewItemSeedsHistory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	item := seedItem(t, repo, "199.90")

	loaded, err := repo.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if loaded.History == nil || len(loaded.History.Observations) != 1 {
		t.Fatalf("expected exactly one seeded observation, got %+v", loaded.History)
	}
	if !loaded.History.Observations[0].Price.Equal(item.Price) {
		t.Fatalf("seeded price = %s, want %s", loaded.History.Observations[0].Price, item.Price)
	}
	if loaded.History.Fluctuation != 0 {
		t.Fatalf("fresh fluctuation = %v, want 0", loaded.History.Fluctuation)
	}
}

func TestSaveItemUpdatePersistsObservationAndFluctuation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	item := seedItem(t, repo, "100")

	obs := core.PriceObservation{
		Date:  time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Price: decimal.RequireFromString("120"),
	}
	if err := item.History.Append(obs); err != nil {
		t.Fatalf("append: %v", err)
	}
	item.Price = obs.Price

	appended := &item.History.Observations[len(item.History.Observations)-1]
	if err := repo.SaveItemUpdate(ctx, &item, appended); err != nil {
		t.Fatalf("save update: %v", err)
	}

	loaded, err := repo.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if len(loaded.History.Observations) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(loaded.History.Observations))
	}
	if loaded.History.Fluctuation != 0.20 {
		t.Fatalf("persisted fluctuation = %v, want 0.20", loaded.History.Fluctuation)
	}
	if !loaded.Price.Equal(decimal.RequireFromString("120")) {
		t.Fatalf("persisted price = %s, want 120", loaded.Price)
	}
}

func TestDeleteItemCascadesObservations(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	item := seedItem(t, repo, "50")

	if err := repo.DeleteItem(ctx, item.ID); err != nil {
		t.Fatalf("delete item: %v", err)
	}

	if _, err := repo.GetItem(ctx, item.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	n, err := repo.CountObservations(ctx, item.ID)
	if err != nil {
		t.Fatalf("count observations: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected cascade to remove observations, %d left", n)
	}
}

func TestDeleteItemNotFound(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.DeleteItem(context.Background(), 9999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMonthlyExpenseUniqueIndexBackstop(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	track, err := repo.CreateExpenseTrack(ctx, 7)
	if err != nil {
		t.Fatalf("create track: %v", err)
	}

	march := core.NewMonthlyExpense(track, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if _, err := repo.SaveMonthlyExpense(ctx, march); err != nil {
		t.Fatalf("first save: %v", err)
	}

	// Same user, same calendar month, different day: the index rejects it.
	duplicate := core.NewMonthlyExpense(track, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	if _, err := repo.SaveMonthlyExpense(ctx, duplicate); !errors.Is(err, core.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// Same month of a different year is a different record.
	nextYear := core.NewMonthlyExpense(track, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	if _, err := repo.SaveMonthlyExpense(ctx, nextYear); err != nil {
		t.Fatalf("save next-year record: %v", err)
	}
}

func TestExistsMonthlyExpenseScoping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	track, err := repo.CreateExpenseTrack(ctx, 3)
	if err != nil {
		t.Fatalf("create track: %v", err)
	}
	if _, err := repo.SaveMonthlyExpense(ctx,
		core.NewMonthlyExpense(track, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("save: %v", err)
	}

	march, err := repo.ExistsMonthlyExpense(ctx, 3, 3)
	if err != nil || !march {
		t.Fatalf("march should exist (err=%v)", err)
	}
	april, err := repo.ExistsMonthlyExpense(ctx, 3, 4)
	if err != nil || april {
		t.Fatalf("april should not exist (err=%v)", err)
	}
	wrongYear, err := repo.ExistsMonthlyExpenseInYear(ctx, 3, 3, 2023)
	if err != nil || wrongYear {
		t.Fatalf("march 2023 should not exist (err=%v)", err)
	}
	otherUser, err := repo.ExistsMonthlyExpense(ctx, 4, 3)
	if err != nil || otherUser {
		t.Fatalf("other user's march should not exist (err=%v)", err)
	}
}

func TestAddFixedExpensesDeduplicatesByTitle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	track, err := repo.CreateExpenseTrack(ctx, 5)
	if err != nil {
		t.Fatalf("create track: %v", err)
	}
	month, err := repo.SaveMonthlyExpense(ctx,
		core.NewMonthlyExpense(track, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("save month: %v", err)
	}

	rent := core.FixedExpense{Title: "Rent", Price: decimal.RequireFromString("1200"), DayOfCharge: 5}
	if _, err := repo.AddFixedExpenses(ctx, month.ID, []core.FixedExpense{rent, rent}); err != nil {
		t.Fatalf("add fixed expenses: %v", err)
	}

	loaded, err := repo.GetMonthlyExpense(ctx, month.ID)
	if err != nil {
		t.Fatalf("get month: %v", err)
	}
	if len(loaded.FixedExpenses) != 1 {
		t.Fatalf("expected exactly one attachment, got %d", len(loaded.FixedExpenses))
	}

	// Attaching the same title to a second month reuses the global expense.
	other, err := repo.SaveMonthlyExpense(ctx,
		core.NewMonthlyExpense(track, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("save second month: %v", err)
	}
	attached, err := repo.AddFixedExpenses(ctx, other.ID, []core.FixedExpense{rent})
	if err != nil {
		t.Fatalf("attach to second month: %v", err)
	}
	if attached[0].ID != loaded.FixedExpenses[0].ID {
		t.Fatalf("expected shared fixed expense id %d, got %d",
			loaded.FixedExpenses[0].ID, attached[0].ID)
	}
}

func TestAddVariableExpenseOwnedByMonth(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	track, err := repo.CreateExpenseTrack(ctx, 9)
	if err != nil {
		t.Fatalf("create track: %v", err)
	}
	month, err := repo.SaveMonthlyExpense(ctx,
		core.NewMonthlyExpense(track, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("save month: %v", err)
	}

	ve := core.VariableExpense{
		Title:        "Cinema",
		Price:        decimal.RequireFromString("15.50"),
		DateOfCharge: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
	}
	saved, err := repo.AddVariableExpense(ctx, month.ID, ve)
	if err != nil {
		t.Fatalf("add variable expense: %v", err)
	}
	if saved.MonthlyExpenseID != month.ID {
		t.Fatalf("ownership wrong: %+v", saved)
	}

	loaded, err := repo.GetMonthlyExpense(ctx, month.ID)
	if err != nil {
		t.Fatalf("get month: %v", err)
	}
	if len(loaded.VariableExpenses) != 1 || loaded.VariableExpenses[0].Title != "Cinema" {
		t.Fatalf("expected one variable line item, got %+v", loaded.VariableExpenses)
	}
	// Totals are untouched by insertion.
	if !loaded.TotalExpended.IsZero() {
		t.Fatalf("totals must not change on insertion, got %s", loaded.TotalExpended)
	}
}

func TestListMonthlyExpensesByUserPaged(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	track, err := repo.CreateExpenseTrack(ctx, 12)
	if err != nil {
		t.Fatalf("create track: %v", err)
	}
	for m := 1; m <= 4; m++ {
		if _, err := repo.SaveMonthlyExpense(ctx,
			core.NewMonthlyExpense(track, time.Date(2024, time.Month(m), 1, 0, 0, 0, 0, time.UTC))); err != nil {
			t.Fatalf("save month %d: %v", m, err)
		}
	}

	page, err := repo.ListMonthlyExpensesByUser(ctx, 12, 2, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
	// Ordered by date descending: page offset 1 starts at March.
	if page[0].Date.Month() != time.March {
		t.Fatalf("expected March first on page, got %s", page[0].Date.Month())
	}
}
