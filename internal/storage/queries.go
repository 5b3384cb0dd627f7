package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so queries can run inside or
// outside a transaction.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns queries bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Raw row types mirror the SQLite schema. Prices travel as TEXT and dates as
// dateLayout strings; the repository maps them to core types.
type (
	WishlistRow struct {
		ID     int64
		UserID int64
		Title  string
	}

	ItemRow struct {
		ID             int64
		WishlistID     int64
		Name           string
		Image          string
		Link           string
		SourcePlatform string
		Price          string
	}

	ItemHistoryRow struct {
		ID          int64
		ItemID      int64
		Fluctuation float64
	}

	ItemPriceRow struct {
		ID         int64
		HistoryID  int64
		ObservedOn string
		Price      string
	}

	ExpenseTrackRow struct {
		ID     int64
		UserID int64
	}

	MonthlyExpenseRow struct {
		ID              int64
		ExpenseTrackID  int64
		UserID          int64
		Date            string
		TotalExpended   string
		RemainingAmount string
	}

	FixedExpenseRow struct {
		ID          int64
		Title       string
		Price       string
		DayOfCharge int64
	}

	VariableExpenseRow struct {
		ID               int64
		MonthlyExpenseID int64
		Title            string
		Price            string
		DateOfCharge     string
	}
)

const createWishlist = `
INSERT INTO wishlists (user_id, title) VALUES (?, ?)
RETURNING id, user_id, title
`

func (q *Queries) CreateWishlist(ctx context.Context, userID int64, title string) (WishlistRow, error) {
	var row WishlistRow
	err := q.db.QueryRowContext(ctx, createWishlist, userID, title).
		Scan(&row.ID, &row.UserID, &row.Title)
	return row, err
}

const getWishlist = `
SELECT id, user_id, title FROM wishlists WHERE id = ?
`

func (q *Queries) GetWishlist(ctx context.Context, id int64) (WishlistRow, error) {
	var row WishlistRow
	err := q.db.QueryRowContext(ctx, getWishlist, id).
		Scan(&row.ID, &row.UserID, &row.Title)
	return row, err
}

const createItem = `
INSERT INTO items (wishlist_id, name, image, link, source_platform, price)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, wishlist_id, name, image, link, source_platform, price
`

func (q *Queries) CreateItem(ctx context.Context, p ItemRow) (ItemRow, error) {
	var row ItemRow
	err := q.db.QueryRowContext(ctx, createItem,
		p.WishlistID, p.Name, p.Image, p.Link, p.SourcePlatform, p.Price).
		Scan(&row.ID, &row.WishlistID, &row.Name, &row.Image, &row.Link, &row.SourcePlatform, &row.Price)
	return row, err
}

const getItem = `
SELECT id, wishlist_id, name, image, link, source_platform, price
FROM items WHERE id = ?
`

func (q *Queries) GetItem(ctx context.Context, id int64) (ItemRow, error) {
	var row ItemRow
	err := q.db.QueryRowContext(ctx, getItem, id).
		Scan(&row.ID, &row.WishlistID, &row.Name, &row.Image, &row.Link, &row.SourcePlatform, &row.Price)
	return row, err
}

const listItems = `
SELECT id, wishlist_id, name, image, link, source_platform, price
FROM items ORDER BY id LIMIT ? OFFSET ?
`

func (q *Queries) ListItems(ctx context.Context, limit, offset int64) ([]ItemRow, error) {
	rows, err := q.db.QueryContext(ctx, listItems, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ItemRow
	for rows.Next() {
		var row ItemRow
		if err := rows.Scan(&row.ID, &row.WishlistID, &row.Name, &row.Image, &row.Link,
			&row.SourcePlatform, &row.Price); err != nil {
			return nil, err
		}
		items = append(items, row)
	}
	return items, rows.Err()
}

const updateItem = `
UPDATE items SET name = ?, image = ?, link = ?, source_platform = ?, price = ?
WHERE id = ?
`

func (q *Queries) UpdateItem(ctx context.Context, p ItemRow) error {
	_, err := q.db.ExecContext(ctx, updateItem,
		p.Name, p.Image, p.Link, p.SourcePlatform, p.Price, p.ID)
	return err
}

const updateItemWishlist = `
UPDATE items SET wishlist_id = ? WHERE id = ?
`

func (q *Queries) UpdateItemWishlist(ctx context.Context, itemID, wishlistID int64) error {
	_, err := q.db.ExecContext(ctx, updateItemWishlist, wishlistID, itemID)
	return err
}

const deleteItem = `
DELETE FROM items WHERE id = ?
`

func (q *Queries) DeleteItem(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteItem, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createItemHistory = `
INSERT INTO item_histories (item_id, fluctuation) VALUES (?, 0)
RETURNING id, item_id, fluctuation
`

func (q *Queries) CreateItemHistory(ctx context.Context, itemID int64) (ItemHistoryRow, error) {
	var row ItemHistoryRow
	err := q.db.QueryRowContext(ctx, createItemHistory, itemID).
		Scan(&row.ID, &row.ItemID, &row.Fluctuation)
	return row, err
}

const getItemHistoryByItem = `
SELECT id, item_id, fluctuation FROM item_histories WHERE item_id = ?
`

func (q *Queries) GetItemHistoryByItem(ctx context.Context, itemID int64) (ItemHistoryRow, error) {
	var row ItemHistoryRow
	err := q.db.QueryRowContext(ctx, getItemHistoryByItem, itemID).
		Scan(&row.ID, &row.ItemID, &row.Fluctuation)
	return row, err
}

const updateHistoryFluctuation = `
UPDATE item_histories SET fluctuation = ? WHERE id = ?
`

func (q *Queries) UpdateHistoryFluctuation(ctx context.Context, historyID int64, fluctuation float64) error {
	_, err := q.db.ExecContext(ctx, updateHistoryFluctuation, fluctuation, historyID)
	return err
}

const createItemPrice = `
INSERT INTO item_prices (history_id, observed_on, price) VALUES (?, ?, ?)
RETURNING id, history_id, observed_on, price
`

func (q *Queries) CreateItemPrice(ctx context.Context, historyID int64, observedOn, price string) (ItemPriceRow, error) {
	var row ItemPriceRow
	err := q.db.QueryRowContext(ctx, createItemPrice, historyID, observedOn, price).
		Scan(&row.ID, &row.HistoryID, &row.ObservedOn, &row.Price)
	return row, err
}

const listItemPrices = `
SELECT id, history_id, observed_on, price
FROM item_prices WHERE history_id = ? ORDER BY id
`

func (q *Queries) ListItemPrices(ctx context.Context, historyID int64) ([]ItemPriceRow, error) {
	rows, err := q.db.QueryContext(ctx, listItemPrices, historyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []ItemPriceRow
	for rows.Next() {
		var row ItemPriceRow
		if err := rows.Scan(&row.ID, &row.HistoryID, &row.ObservedOn, &row.Price); err != nil {
			return nil, err
		}
		prices = append(prices, row)
	}
	return prices, rows.Err()
}

const countItemPrices = `
SELECT COUNT(*) FROM item_prices
WHERE history_id IN (SELECT id FROM item_histories WHERE item_id = ?)
`

func (q *Queries) CountItemPrices(ctx context.Context, itemID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countItemPrices, itemID).Scan(&n)
	return n, err
}

const createExpenseTrack = `
INSERT INTO expense_tracks (user_id) VALUES (?)
RETURNING id, user_id
`

func (q *Queries) CreateExpenseTrack(ctx context.Context, userID int64) (ExpenseTrackRow, error) {
	var row ExpenseTrackRow
	err := q.db.QueryRowContext(ctx, createExpenseTrack, userID).
		Scan(&row.ID, &row.UserID)
	return row, err
}

const getExpenseTrackByUser = `
SELECT id, user_id FROM expense_tracks WHERE user_id = ?
`

func (q *Queries) GetExpenseTrackByUser(ctx context.Context, userID int64) (ExpenseTrackRow, error) {
	var row ExpenseTrackRow
	err := q.db.QueryRowContext(ctx, getExpenseTrackByUser, userID).
		Scan(&row.ID, &row.UserID)
	return row, err
}

const createMonthlyExpense = `
INSERT INTO monthly_expenses (expense_track_id, date, total_expended, remaining_amount)
VALUES (?, ?, ?, ?)
RETURNING id, expense_track_id, date, total_expended, remaining_amount
`

func (q *Queries) CreateMonthlyExpense(ctx context.Context, p MonthlyExpenseRow) (MonthlyExpenseRow, error) {
	var row MonthlyExpenseRow
	err := q.db.QueryRowContext(ctx, createMonthlyExpense,
		p.ExpenseTrackID, p.Date, p.TotalExpended, p.RemainingAmount).
		Scan(&row.ID, &row.ExpenseTrackID, &row.Date, &row.TotalExpended, &row.RemainingAmount)
	return row, err
}

const getMonthlyExpense = `
SELECT me.id, me.expense_track_id, et.user_id, me.date, me.total_expended, me.remaining_amount
FROM monthly_expenses me
JOIN expense_tracks et ON et.id = me.expense_track_id
WHERE me.id = ?
`

func (q *Queries) GetMonthlyExpense(ctx context.Context, id int64) (MonthlyExpenseRow, error) {
	var row MonthlyExpenseRow
	err := q.db.QueryRowContext(ctx, getMonthlyExpense, id).
		Scan(&row.ID, &row.ExpenseTrackID, &row.UserID, &row.Date, &row.TotalExpended, &row.RemainingAmount)
	return row, err
}

const getMonthlyExpenseByMonth = `
SELECT me.id, me.expense_track_id, et.user_id, me.date, me.total_expended, me.remaining_amount
FROM monthly_expenses me
JOIN expense_tracks et ON et.id = me.expense_track_id
WHERE et.user_id = ?
  AND CAST(strftime('%m', me.date) AS INTEGER) = ?
  AND CAST(strftime('%Y', me.date) AS INTEGER) = ?
`

func (q *Queries) GetMonthlyExpenseByMonth(ctx context.Context, userID int64, month, year int) (MonthlyExpenseRow, error) {
	var row MonthlyExpenseRow
	err := q.db.QueryRowContext(ctx, getMonthlyExpenseByMonth, userID, month, year).
		Scan(&row.ID, &row.ExpenseTrackID, &row.UserID, &row.Date, &row.TotalExpended, &row.RemainingAmount)
	return row, err
}

const countMonthlyExpensesByMonth = `
SELECT COUNT(*)
FROM monthly_expenses me
JOIN expense_tracks et ON et.id = me.expense_track_id
WHERE et.user_id = ? AND CAST(strftime('%m', me.date) AS INTEGER) = ?
`

func (q *Queries) CountMonthlyExpensesByMonth(ctx context.Context, userID int64, month int) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countMonthlyExpensesByMonth, userID, month).Scan(&n)
	return n, err
}

const countMonthlyExpensesByMonthYear = `
SELECT COUNT(*)
FROM monthly_expenses me
JOIN expense_tracks et ON et.id = me.expense_track_id
WHERE et.user_id = ?
  AND CAST(strftime('%m', me.date) AS INTEGER) = ?
  AND CAST(strftime('%Y', me.date) AS INTEGER) = ?
`

func (q *Queries) CountMonthlyExpensesByMonthYear(ctx context.Context, userID int64, month, year int) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countMonthlyExpensesByMonthYear, userID, month, year).Scan(&n)
	return n, err
}

const listMonthlyExpensesByUser = `
SELECT me.id, me.expense_track_id, et.user_id, me.date, me.total_expended, me.remaining_amount
FROM monthly_expenses me
JOIN expense_tracks et ON et.id = me.expense_track_id
WHERE et.user_id = ?
ORDER BY me.date DESC
LIMIT ? OFFSET ?
`

func (q *Queries) ListMonthlyExpensesByUser(ctx context.Context, userID, limit, offset int64) ([]MonthlyExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listMonthlyExpensesByUser, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var months []MonthlyExpenseRow
	for rows.Next() {
		var row MonthlyExpenseRow
		if err := rows.Scan(&row.ID, &row.ExpenseTrackID, &row.UserID, &row.Date,
			&row.TotalExpended, &row.RemainingAmount); err != nil {
			return nil, err
		}
		months = append(months, row)
	}
	return months, rows.Err()
}

const updateMonthlyTotals = `
UPDATE monthly_expenses SET total_expended = ?, remaining_amount = ? WHERE id = ?
`

func (q *Queries) UpdateMonthlyTotals(ctx context.Context, id int64, totalExpended, remainingAmount string) error {
	_, err := q.db.ExecContext(ctx, updateMonthlyTotals, totalExpended, remainingAmount, id)
	return err
}

const getFixedExpenseByTitle = `
SELECT id, title, price, day_of_charge FROM fixed_expenses WHERE title = ?
`

func (q *Queries) GetFixedExpenseByTitle(ctx context.Context, title string) (FixedExpenseRow, error) {
	var row FixedExpenseRow
	err := q.db.QueryRowContext(ctx, getFixedExpenseByTitle, title).
		Scan(&row.ID, &row.Title, &row.Price, &row.DayOfCharge)
	return row, err
}

const createFixedExpense = `
INSERT INTO fixed_expenses (title, price, day_of_charge) VALUES (?, ?, ?)
RETURNING id, title, price, day_of_charge
`

func (q *Queries) CreateFixedExpense(ctx context.Context, title, price string, dayOfCharge int64) (FixedExpenseRow, error) {
	var row FixedExpenseRow
	err := q.db.QueryRowContext(ctx, createFixedExpense, title, price, dayOfCharge).
		Scan(&row.ID, &row.Title, &row.Price, &row.DayOfCharge)
	return row, err
}

const listFixedExpenses = `
SELECT id, title, price, day_of_charge FROM fixed_expenses ORDER BY id LIMIT ? OFFSET ?
`

func (q *Queries) ListFixedExpenses(ctx context.Context, limit, offset int64) ([]FixedExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listFixedExpenses, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fixed []FixedExpenseRow
	for rows.Next() {
		var row FixedExpenseRow
		if err := rows.Scan(&row.ID, &row.Title, &row.Price, &row.DayOfCharge); err != nil {
			return nil, err
		}
		fixed = append(fixed, row)
	}
	return fixed, rows.Err()
}

// AttachFixedExpense links a fixed expense to a month. INSERT OR IGNORE keeps
// the attachment a set even if two callers race past the contains check.
const attachFixedExpense = `
INSERT OR IGNORE INTO monthly_fixed_expenses (monthly_expense_id, fixed_expense_id)
VALUES (?, ?)
`

func (q *Queries) AttachFixedExpense(ctx context.Context, monthlyExpenseID, fixedExpenseID int64) error {
	_, err := q.db.ExecContext(ctx, attachFixedExpense, monthlyExpenseID, fixedExpenseID)
	return err
}

const listFixedExpensesByMonth = `
SELECT fe.id, fe.title, fe.price, fe.day_of_charge
FROM fixed_expenses fe
JOIN monthly_fixed_expenses mfe ON mfe.fixed_expense_id = fe.id
WHERE mfe.monthly_expense_id = ?
ORDER BY fe.id
`

func (q *Queries) ListFixedExpensesByMonth(ctx context.Context, monthlyExpenseID int64) ([]FixedExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listFixedExpensesByMonth, monthlyExpenseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fixed []FixedExpenseRow
	for rows.Next() {
		var row FixedExpenseRow
		if err := rows.Scan(&row.ID, &row.Title, &row.Price, &row.DayOfCharge); err != nil {
			return nil, err
		}
		fixed = append(fixed, row)
	}
	return fixed, rows.Err()
}

const createVariableExpense = `
INSERT INTO variable_expenses (monthly_expense_id, title, price, date_of_charge)
VALUES (?, ?, ?, ?)
RETURNING id, monthly_expense_id, title, price, date_of_charge
`

func (q *Queries) CreateVariableExpense(ctx context.Context, p VariableExpenseRow) (VariableExpenseRow, error) {
	var row VariableExpenseRow
	err := q.db.QueryRowContext(ctx, createVariableExpense,
		p.MonthlyExpenseID, p.Title, p.Price, p.DateOfCharge).
		Scan(&row.ID, &row.MonthlyExpenseID, &row.Title, &row.Price, &row.DateOfCharge)
	return row, err
}

const listVariableExpensesByMonth = `
SELECT id, monthly_expense_id, title, price, date_of_charge
FROM variable_expenses WHERE monthly_expense_id = ? ORDER BY id
`

func (q *Queries) ListVariableExpensesByMonth(ctx context.Context, monthlyExpenseID int64) ([]VariableExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listVariableExpensesByMonth, monthlyExpenseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variable []VariableExpenseRow
	for rows.Next() {
		var row VariableExpenseRow
		if err := rows.Scan(&row.ID, &row.MonthlyExpenseID, &row.Title, &row.Price,
			&row.DateOfCharge); err != nil {
			return nil, err
		}
		variable = append(variable, row)
	}
	return variable, rows.Err()
}
