package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"wishtrack/internal/core"
)

// MonthStore is the persistence port the monthly ledger drives.
type MonthStore interface {
	CreateExpenseTrack(ctx context.Context, userID int64) (core.ExpenseTrack, error)
	GetExpenseTrackByUser(ctx context.Context, userID int64) (core.ExpenseTrack, error)
	SaveMonthlyExpense(ctx context.Context, m core.MonthlyExpense) (core.MonthlyExpense, error)
	GetMonthlyExpense(ctx context.Context, id int64) (core.MonthlyExpense, error)
	GetMonthlyExpenseByMonth(ctx context.Context, userID int64, month, year int) (core.MonthlyExpense, error)
	ListMonthlyExpensesByUser(ctx context.Context, userID, limit, offset int64) ([]core.MonthlyExpense, error)
	ExistsMonthlyExpense(ctx context.Context, userID int64, month int) (bool, error)
	ExistsMonthlyExpenseInYear(ctx context.Context, userID int64, month, year int) (bool, error)
	AddVariableExpense(ctx context.Context, monthlyExpenseID int64, ve core.VariableExpense) (core.VariableExpense, error)
	AddFixedExpenses(ctx context.Context, monthlyExpenseID int64, expenses []core.FixedExpense) ([]core.FixedExpense, error)
	UpdateMonthlyTotals(ctx context.Context, id int64, totalExpended, remainingAmount decimal.Decimal) error
	ListFixedExpenses(ctx context.Context, limit, offset int64) ([]core.FixedExpense, error)
}

// MonthService manages the per-user monthly expense records and their fixed
// and variable line items.
type MonthService struct {
	store MonthStore
}

func NewMonthService(store MonthStore) *MonthService {
	return &MonthService{store: store}
}

// CreateTrack opens a tracking context for a user and seeds it with the
// current month's record. A brand-new track has no prior months, so the seed
// needs no existence check.
func (s *MonthService) CreateTrack(ctx context.Context, userID int64) (core.ExpenseTrack, core.MonthlyExpense, error) {
	track, err := s.store.CreateExpenseTrack(ctx, userID)
	if err != nil {
		return core.ExpenseTrack{}, core.MonthlyExpense{}, fmt.Errorf("create track for user %d: %w", userID, err)
	}

	month, err := s.CreateForCurrentMonth(ctx, track)
	if err != nil {
		return core.ExpenseTrack{}, core.MonthlyExpense{}, err
	}
	return track, month, nil
}

func (s *MonthService) GetTrack(ctx context.Context, userID int64) (core.ExpenseTrack, error) {
	return s.store.GetExpenseTrackByUser(ctx, userID)
}

func (s *MonthService) Get(ctx context.Context, id int64) (core.MonthlyExpense, error) {
	return s.store.GetMonthlyExpense(ctx, id)
}

func (s *MonthService) ListByUser(ctx context.Context, userID, limit, offset int64) ([]core.MonthlyExpense, error) {
	return s.store.ListMonthlyExpensesByUser(ctx, userID, limit, offset)
}

func (s *MonthService) ListFixedExpenses(ctx context.Context, limit, offset int64) ([]core.FixedExpense, error) {
	return s.store.ListFixedExpenses(ctx, limit, offset)
}

// ExistsThisMonth reports whether the user already has a record for the
// current calendar month.
func (s *MonthService) ExistsThisMonth(ctx context.Context, userID int64) (bool, error) {
	now := time.Now()
	return s.store.ExistsMonthlyExpenseInYear(ctx, userID, int(now.Month()), now.Year())
}

// ExistsForMonth reports whether the user has a record for the given month in
// any year.
func (s *MonthService) ExistsForMonth(ctx context.Context, userID int64, month int) (bool, error) {
	return s.store.ExistsMonthlyExpense(ctx, userID, month)
}

// ExistsForMonthInYear is the year-qualified existence check.
func (s *MonthService) ExistsForMonthInYear(ctx context.Context, userID int64, month, year int) (bool, error) {
	return s.store.ExistsMonthlyExpenseInYear(ctx, userID, month, year)
}

// CreateForCurrentMonth creates a fresh zeroed record dated today. Callers
// are responsible for the uniqueness context; the storage index still
// backstops a duplicate month.
func (s *MonthService) CreateForCurrentMonth(ctx context.Context, track core.ExpenseTrack) (core.MonthlyExpense, error) {
	month, err := s.store.SaveMonthlyExpense(ctx, core.NewMonthlyExpense(track, time.Now()))
	if err != nil {
		return core.MonthlyExpense{}, fmt.Errorf("create current month for track %d: %w", track.ID, err)
	}
	return month, nil
}

// CreateForSpecificMonth creates a fresh zeroed record at the given date,
// failing with ErrAlreadyExists when the user already has one for that
// calendar month.
func (s *MonthService) CreateForSpecificMonth(ctx context.Context, track core.ExpenseTrack, date time.Time) (core.MonthlyExpense, error) {
	exists, err := s.store.ExistsMonthlyExpenseInYear(ctx, track.UserID, int(date.Month()), date.Year())
	if err != nil {
		return core.MonthlyExpense{}, fmt.Errorf("check month existence: %w", err)
	}
	if exists {
		return core.MonthlyExpense{}, fmt.Errorf("monthly record for %s %d: %w",
			date.Month(), date.Year(), core.ErrAlreadyExists)
	}

	month, err := s.store.SaveMonthlyExpense(ctx, core.NewMonthlyExpense(track, date))
	if err != nil {
		return core.MonthlyExpense{}, fmt.Errorf("create month for track %d: %w", track.ID, err)
	}

	slog.InfoContext(ctx, "Monthly record created",
		"user_id", track.UserID,
		"month", int(date.Month()),
		"year", date.Year())
	return month, nil
}

// AddVariableExpense attaches a one-off line item to the user's record for
// the given month of the current year. The month must already exist. Totals
// are not touched; RecomputeTotals is the explicit aggregation pass.
func (s *MonthService) AddVariableExpense(ctx context.Context, userID int64, month int, ve core.VariableExpense) (core.VariableExpense, error) {
	if err := ve.Validate(); err != nil {
		return core.VariableExpense{}, err
	}

	record, err := s.store.GetMonthlyExpenseByMonth(ctx, userID, month, time.Now().Year())
	if err != nil {
		return core.VariableExpense{}, fmt.Errorf("monthly record for user %d month %d: %w", userID, month, err)
	}

	saved, err := s.store.AddVariableExpense(ctx, record.ID, ve)
	if err != nil {
		return core.VariableExpense{}, fmt.Errorf("add variable expense: %w", err)
	}

	slog.InfoContext(ctx, "Variable expense added",
		"user_id", userID,
		"monthly_expense_id", record.ID,
		"title", saved.Title,
		"price", saved.Price.String())
	return saved, nil
}

// AddFixedExpenses attaches recurring line items to the user's current month.
// An expense whose title already exists globally is reused and attached at
// most once; the storage layer runs the whole batch in one transaction.
func (s *MonthService) AddFixedExpenses(ctx context.Context, userID int64, expenses ...core.FixedExpense) ([]core.FixedExpense, error) {
	if len(expenses) == 0 {
		return nil, core.ErrMissingInput
	}
	for _, fe := range expenses {
		if err := fe.Validate(); err != nil {
			return nil, fmt.Errorf("fixed expense %q: %w", fe.Title, err)
		}
	}

	now := time.Now()
	record, err := s.store.GetMonthlyExpenseByMonth(ctx, userID, int(now.Month()), now.Year())
	if err != nil {
		return nil, fmt.Errorf("monthly record for user %d: %w", userID, err)
	}

	attached, err := s.store.AddFixedExpenses(ctx, record.ID, expenses)
	if err != nil {
		return nil, fmt.Errorf("add fixed expenses: %w", err)
	}

	slog.InfoContext(ctx, "Fixed expenses attached",
		"user_id", userID,
		"monthly_expense_id", record.ID,
		"count", len(attached))
	return attached, nil
}

// RecomputeTotals recalculates totalExpended from the attached line items and
// derives remainingAmount from the caller-declared available amount. This is
// the explicit aggregation pass; expense insertion never updates totals as a
// side effect.
func (s *MonthService) RecomputeTotals(ctx context.Context, monthlyExpenseID int64, available decimal.Decimal) (core.MonthlyExpense, error) {
	record, err := s.store.GetMonthlyExpense(ctx, monthlyExpenseID)
	if err != nil {
		return core.MonthlyExpense{}, fmt.Errorf("monthly record %d: %w", monthlyExpenseID, err)
	}

	record.TotalExpended = record.SumExpenses()
	record.RemainingAmount = available.Sub(record.TotalExpended)

	if err := s.store.UpdateMonthlyTotals(ctx, record.ID, record.TotalExpended, record.RemainingAmount); err != nil {
		return core.MonthlyExpense{}, fmt.Errorf("update totals: %w", err)
	}

	slog.InfoContext(ctx, "Monthly totals recomputed",
		"monthly_expense_id", record.ID,
		"total_expended", record.TotalExpended.String(),
		"remaining_amount", record.RemainingAmount.String())
	return record, nil
}
