package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"wishtrack/internal/core"

	_ "modernc.org/sqlite"
)

// dateLayout is how all calendar dates are stored. Plain ISO dates keep
// strftime-based month scoping working in SQLite.
const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Foreign keys drive the item -> history -> observation cascade.
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse stored price %q: %w", s, err)
	}
	return d, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored date %q: %w", s, err)
	}
	return t, nil
}

// --- wishlists ---

func (r *SQLiteRepository) CreateWishlist(ctx context.Context, userID int64, title string) (core.Wishlist, error) {
	row, err := r.queries.CreateWishlist(ctx, userID, title)
	if err != nil {
		return core.Wishlist{}, fmt.Errorf("create wishlist: %w", err)
	}
	return core.Wishlist{ID: row.ID, UserID: row.UserID, Title: row.Title}, nil
}

func (r *SQLiteRepository) GetWishlist(ctx context.Context, id int64) (core.Wishlist, error) {
	row, err := r.queries.GetWishlist(ctx, id)
	if err != nil {
		return core.Wishlist{}, mapNotFound(err)
	}
	return core.Wishlist{ID: row.ID, UserID: row.UserID, Title: row.Title}, nil
}

// --- items ---

// SaveNewItem persists an item together with its seeded history in one
// transaction: either the full item with its first observation lands, or
// nothing does.
func (r *SQLiteRepository) SaveNewItem(ctx context.Context, item *core.Item) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)

	itemRow, err := q.CreateItem(ctx, ItemRow{
		WishlistID:     item.WishlistID,
		Name:           item.Name,
		Image:          item.Image,
		Link:           item.Link,
		SourcePlatform: string(item.SourcePlatform),
		Price:          item.Price.String(),
	})
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	item.ID = itemRow.ID

	histRow, err := q.CreateItemHistory(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("create item history: %w", err)
	}
	item.History.ID = histRow.ID
	item.History.ItemID = item.ID

	for i := range item.History.Observations {
		obs := &item.History.Observations[i]
		priceRow, err := q.CreateItemPrice(ctx, histRow.ID,
			obs.Date.Format(dateLayout), obs.Price.String())
		if err != nil {
			return fmt.Errorf("seed item price: %w", err)
		}
		obs.ID = priceRow.ID
		obs.HistoryID = histRow.ID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Item saved",
		"item_id", item.ID,
		"wishlist_id", item.WishlistID,
		"price", item.Price.String())
	return nil
}

// GetItem loads an item together with its ordered price history.
func (r *SQLiteRepository) GetItem(ctx context.Context, id int64) (core.Item, error) {
	row, err := r.queries.GetItem(ctx, id)
	if err != nil {
		return core.Item{}, mapNotFound(err)
	}
	return r.hydrateItem(ctx, row)
}

func (r *SQLiteRepository) ListItems(ctx context.Context, limit, offset int64) ([]core.Item, error) {
	rows, err := r.queries.ListItems(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items := make([]core.Item, 0, len(rows))
	for _, row := range rows {
		item, err := r.hydrateItem(ctx, row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *SQLiteRepository) hydrateItem(ctx context.Context, row ItemRow) (core.Item, error) {
	price, err := parsePrice(row.Price)
	if err != nil {
		return core.Item{}, err
	}

	item := core.Item{
		ID:             row.ID,
		WishlistID:     row.WishlistID,
		Name:           row.Name,
		Image:          row.Image,
		Link:           row.Link,
		SourcePlatform: core.SourcePlatform(row.SourcePlatform),
		Price:          price,
	}

	histRow, err := r.queries.GetItemHistoryByItem(ctx, row.ID)
	if err != nil {
		return core.Item{}, fmt.Errorf("load history for item %d: %w", row.ID, mapNotFound(err))
	}

	history := &core.PriceHistory{
		ID:          histRow.ID,
		ItemID:      histRow.ItemID,
		Fluctuation: histRow.Fluctuation,
	}

	priceRows, err := r.queries.ListItemPrices(ctx, histRow.ID)
	if err != nil {
		return core.Item{}, fmt.Errorf("load observations for item %d: %w", row.ID, err)
	}
	for _, pr := range priceRows {
		obsPrice, err := parsePrice(pr.Price)
		if err != nil {
			return core.Item{}, err
		}
		obsDate, err := parseDate(pr.ObservedOn)
		if err != nil {
			return core.Item{}, err
		}
		history.Observations = append(history.Observations, core.PriceObservation{
			ID:        pr.ID,
			HistoryID: pr.HistoryID,
			Date:      obsDate,
			Price:     obsPrice,
		})
	}

	item.History = history
	return item, nil
}

// SaveItemUpdate writes back an updated item. When appended is non-nil the
// new observation is recorded in the same transaction; the history
// fluctuation is always written.
func (r *SQLiteRepository) SaveItemUpdate(ctx context.Context, item *core.Item, appended *core.PriceObservation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)

	if err := q.UpdateItem(ctx, ItemRow{
		ID:             item.ID,
		Name:           item.Name,
		Image:          item.Image,
		Link:           item.Link,
		SourcePlatform: string(item.SourcePlatform),
		Price:          item.Price.String(),
	}); err != nil {
		return fmt.Errorf("update item: %w", err)
	}

	if appended != nil {
		priceRow, err := q.CreateItemPrice(ctx, item.History.ID,
			appended.Date.Format(dateLayout), appended.Price.String())
		if err != nil {
			return fmt.Errorf("record observation: %w", err)
		}
		appended.ID = priceRow.ID
		appended.HistoryID = item.History.ID
	}

	if err := q.UpdateHistoryFluctuation(ctx, item.History.ID, item.History.Fluctuation); err != nil {
		return fmt.Errorf("update fluctuation: %w", err)
	}

	return tx.Commit()
}

func (r *SQLiteRepository) UpdateItemWishlist(ctx context.Context, itemID, wishlistID int64) error {
	return r.queries.UpdateItemWishlist(ctx, itemID, wishlistID)
}

func (r *SQLiteRepository) DeleteItem(ctx context.Context, id int64) error {
	affected, err := r.queries.DeleteItem(ctx, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteItems(ctx context.Context, ids []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	for _, id := range ids {
		if _, err := q.DeleteItem(ctx, id); err != nil {
			return fmt.Errorf("delete item %d: %w", id, err)
		}
	}
	return tx.Commit()
}

// CountObservations reports how many observations exist for an item,
// regardless of the in-memory view. Used by cascade checks.
func (r *SQLiteRepository) CountObservations(ctx context.Context, itemID int64) (int64, error) {
	return r.queries.CountItemPrices(ctx, itemID)
}

// --- expense tracks and monthly records ---

func (r *SQLiteRepository) CreateExpenseTrack(ctx context.Context, userID int64) (core.ExpenseTrack, error) {
	row, err := r.queries.CreateExpenseTrack(ctx, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ExpenseTrack{}, core.ErrAlreadyExists
		}
		return core.ExpenseTrack{}, fmt.Errorf("create expense track: %w", err)
	}
	return core.ExpenseTrack{ID: row.ID, UserID: row.UserID}, nil
}

func (r *SQLiteRepository) GetExpenseTrackByUser(ctx context.Context, userID int64) (core.ExpenseTrack, error) {
	row, err := r.queries.GetExpenseTrackByUser(ctx, userID)
	if err != nil {
		return core.ExpenseTrack{}, mapNotFound(err)
	}
	return core.ExpenseTrack{ID: row.ID, UserID: row.UserID}, nil
}

// SaveMonthlyExpense inserts a fresh monthly record. The unique month index
// turns a lost check-then-insert race into ErrAlreadyExists instead of a
// second record.
func (r *SQLiteRepository) SaveMonthlyExpense(ctx context.Context, m core.MonthlyExpense) (core.MonthlyExpense, error) {
	row, err := r.queries.CreateMonthlyExpense(ctx, MonthlyExpenseRow{
		ExpenseTrackID:  m.ExpenseTrackID,
		Date:            m.Date.Format(dateLayout),
		TotalExpended:   m.TotalExpended.String(),
		RemainingAmount: m.RemainingAmount.String(),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return core.MonthlyExpense{}, core.ErrAlreadyExists
		}
		return core.MonthlyExpense{}, fmt.Errorf("create monthly expense: %w", err)
	}

	m.ID = row.ID
	slog.InfoContext(ctx, "Monthly expense record created",
		"monthly_expense_id", m.ID,
		"expense_track_id", m.ExpenseTrackID,
		"date", row.Date)
	return m, nil
}

func (r *SQLiteRepository) GetMonthlyExpense(ctx context.Context, id int64) (core.MonthlyExpense, error) {
	row, err := r.queries.GetMonthlyExpense(ctx, id)
	if err != nil {
		return core.MonthlyExpense{}, mapNotFound(err)
	}
	return r.hydrateMonth(ctx, row)
}

func (r *SQLiteRepository) GetMonthlyExpenseByMonth(ctx context.Context, userID int64, month, year int) (core.MonthlyExpense, error) {
	row, err := r.queries.GetMonthlyExpenseByMonth(ctx, userID, month, year)
	if err != nil {
		return core.MonthlyExpense{}, mapNotFound(err)
	}
	return r.hydrateMonth(ctx, row)
}

func (r *SQLiteRepository) ListMonthlyExpensesByUser(ctx context.Context, userID, limit, offset int64) ([]core.MonthlyExpense, error) {
	rows, err := r.queries.ListMonthlyExpensesByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list monthly expenses: %w", err)
	}

	months := make([]core.MonthlyExpense, 0, len(rows))
	for _, row := range rows {
		m, err := r.hydrateMonth(ctx, row)
		if err != nil {
			return nil, err
		}
		months = append(months, m)
	}
	return months, nil
}

func (r *SQLiteRepository) hydrateMonth(ctx context.Context, row MonthlyExpenseRow) (core.MonthlyExpense, error) {
	date, err := parseDate(row.Date)
	if err != nil {
		return core.MonthlyExpense{}, err
	}
	total, err := parsePrice(row.TotalExpended)
	if err != nil {
		return core.MonthlyExpense{}, err
	}
	remaining, err := parsePrice(row.RemainingAmount)
	if err != nil {
		return core.MonthlyExpense{}, err
	}

	m := core.MonthlyExpense{
		ID:              row.ID,
		ExpenseTrackID:  row.ExpenseTrackID,
		UserID:          row.UserID,
		Date:            date,
		TotalExpended:   total,
		RemainingAmount: remaining,
	}

	fixedRows, err := r.queries.ListFixedExpensesByMonth(ctx, row.ID)
	if err != nil {
		return core.MonthlyExpense{}, fmt.Errorf("load fixed expenses: %w", err)
	}
	for _, fr := range fixedRows {
		fe, err := fixedFromRow(fr)
		if err != nil {
			return core.MonthlyExpense{}, err
		}
		m.FixedExpenses = append(m.FixedExpenses, fe)
	}

	varRows, err := r.queries.ListVariableExpensesByMonth(ctx, row.ID)
	if err != nil {
		return core.MonthlyExpense{}, fmt.Errorf("load variable expenses: %w", err)
	}
	for _, vr := range varRows {
		price, err := parsePrice(vr.Price)
		if err != nil {
			return core.MonthlyExpense{}, err
		}
		charge, err := parseDate(vr.DateOfCharge)
		if err != nil {
			return core.MonthlyExpense{}, err
		}
		m.VariableExpenses = append(m.VariableExpenses, core.VariableExpense{
			ID:               vr.ID,
			MonthlyExpenseID: vr.MonthlyExpenseID,
			Title:            vr.Title,
			Price:            price,
			DateOfCharge:     charge,
		})
	}

	return m, nil
}

func fixedFromRow(row FixedExpenseRow) (core.FixedExpense, error) {
	price, err := parsePrice(row.Price)
	if err != nil {
		return core.FixedExpense{}, err
	}
	return core.FixedExpense{
		ID:          row.ID,
		Title:       row.Title,
		Price:       price,
		DayOfCharge: int(row.DayOfCharge),
	}, nil
}

func (r *SQLiteRepository) ExistsMonthlyExpense(ctx context.Context, userID int64, month int) (bool, error) {
	n, err := r.queries.CountMonthlyExpensesByMonth(ctx, userID, month)
	if err != nil {
		return false, fmt.Errorf("count monthly expenses: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ExistsMonthlyExpenseInYear(ctx context.Context, userID int64, month, year int) (bool, error) {
	n, err := r.queries.CountMonthlyExpensesByMonthYear(ctx, userID, month, year)
	if err != nil {
		return false, fmt.Errorf("count monthly expenses: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) UpdateMonthlyTotals(ctx context.Context, id int64, totalExpended, remainingAmount decimal.Decimal) error {
	return r.queries.UpdateMonthlyTotals(ctx, id, totalExpended.String(), remainingAmount.String())
}

// --- expense line items ---

func (r *SQLiteRepository) AddVariableExpense(ctx context.Context, monthlyExpenseID int64, ve core.VariableExpense) (core.VariableExpense, error) {
	row, err := r.queries.CreateVariableExpense(ctx, VariableExpenseRow{
		MonthlyExpenseID: monthlyExpenseID,
		Title:            ve.Title,
		Price:            ve.Price.String(),
		DateOfCharge:     ve.DateOfCharge.Format(dateLayout),
	})
	if err != nil {
		return core.VariableExpense{}, fmt.Errorf("create variable expense: %w", err)
	}

	ve.ID = row.ID
	ve.MonthlyExpenseID = monthlyExpenseID
	return ve, nil
}

// AddFixedExpenses attaches the given fixed expenses to a month in a single
// transaction. An expense whose title already exists globally is reused;
// attachment has set semantics.
func (r *SQLiteRepository) AddFixedExpenses(ctx context.Context, monthlyExpenseID int64, expenses []core.FixedExpense) ([]core.FixedExpense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	attached := make([]core.FixedExpense, 0, len(expenses))

	for _, fe := range expenses {
		row, err := q.GetFixedExpenseByTitle(ctx, fe.Title)
		if errors.Is(err, sql.ErrNoRows) {
			row, err = q.CreateFixedExpense(ctx, fe.Title, fe.Price.String(), int64(fe.DayOfCharge))
		}
		if err != nil {
			return nil, fmt.Errorf("resolve fixed expense %q: %w", fe.Title, err)
		}

		if err := q.AttachFixedExpense(ctx, monthlyExpenseID, row.ID); err != nil {
			return nil, fmt.Errorf("attach fixed expense %q: %w", fe.Title, err)
		}

		resolved, err := fixedFromRow(row)
		if err != nil {
			return nil, err
		}
		attached = append(attached, resolved)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return attached, nil
}

func (r *SQLiteRepository) ListFixedExpenses(ctx context.Context, limit, offset int64) ([]core.FixedExpense, error) {
	rows, err := r.queries.ListFixedExpenses(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list fixed expenses: %w", err)
	}

	fixed := make([]core.FixedExpense, 0, len(rows))
	for _, row := range rows {
		fe, err := fixedFromRow(row)
		if err != nil {
			return nil, err
		}
		fixed = append(fixed, fe)
	}
	return fixed, nil
}
