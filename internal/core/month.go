package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// ExpenseTrack is a user's expense tracking context. Monthly records hang
	// off it, one per calendar month.
	ExpenseTrack struct {
		ID     int64
		UserID int64
	}

	// MonthlyExpense is the aggregate expense record for one user and one
	// calendar month.
	MonthlyExpense struct {
		ID               int64
		ExpenseTrackID   int64
		UserID           int64
		Date             time.Time
		TotalExpended    decimal.Decimal
		RemainingAmount  decimal.Decimal
		FixedExpenses    []FixedExpense
		VariableExpenses []VariableExpense
	}

	// FixedExpense is a recurring line item shared across months by reference
	// and deduplicated globally by title.
	FixedExpense struct {
		ID          int64
		Title       string
		Price       decimal.Decimal
		DayOfCharge int
	}

	// VariableExpense is a one-off line item owned exclusively by the monthly
	// record it targets.
	VariableExpense struct {
		ID               int64
		MonthlyExpenseID int64
		Title            string
		Price            decimal.Decimal
		DateOfCharge     time.Time
	}
)

var (
	ErrEmptyTitle         = errors.New("empty expense title")
	ErrInvalidDayOfCharge = errors.New("day of charge out of range")
)

// NewMonthlyExpense returns a fresh zeroed record anchored at the given date.
func NewMonthlyExpense(track ExpenseTrack, date time.Time) MonthlyExpense {
	return MonthlyExpense{
		ExpenseTrackID:  track.ID,
		UserID:          track.UserID,
		Date:            date,
		TotalExpended:   decimal.Zero,
		RemainingAmount: decimal.Zero,
	}
}

// HasFixedExpense reports whether a fixed expense with the given title is
// already attached to this month. Attachment has set semantics.
func (m *MonthlyExpense) HasFixedExpense(title string) bool {
	for _, fe := range m.FixedExpenses {
		if fe.Title == title {
			return true
		}
	}
	return false
}

// SumExpenses adds up all attached fixed and variable line items. Used by the
// explicit totals recompute pass; insertion itself never touches the totals.
func (m *MonthlyExpense) SumExpenses() decimal.Decimal {
	sum := decimal.Zero
	for _, fe := range m.FixedExpenses {
		sum = sum.Add(fe.Price)
	}
	for _, ve := range m.VariableExpenses {
		sum = sum.Add(ve.Price)
	}
	return sum
}

func (fe FixedExpense) Validate() error {
	if len(strings.TrimSpace(fe.Title)) == 0 {
		return ErrEmptyTitle
	}
	if fe.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if fe.DayOfCharge < 1 || fe.DayOfCharge > 31 {
		return ErrInvalidDayOfCharge
	}
	return nil
}

func (ve VariableExpense) Validate() error {
	if len(strings.TrimSpace(ve.Title)) == 0 {
		return ErrEmptyTitle
	}
	if ve.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if ve.DateOfCharge.IsZero() {
		return errors.New("date of charge cannot be zero")
	}
	return nil
}

// MonthStart normalizes a date to the first day of its calendar month.
func MonthStart(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
}
