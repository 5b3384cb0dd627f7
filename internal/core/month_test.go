package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewMonthlyExpense(t *testing.T) {
	track := ExpenseTrack{ID: 4, UserID: 11}
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	m := NewMonthlyExpense(track, date)
	if m.ExpenseTrackID != 4 || m.UserID != 11 {
		t.Fatalf("track linkage wrong: %+v", m)
	}
	if !m.TotalExpended.IsZero() || !m.RemainingAmount.IsZero() {
		t.Fatal("fresh monthly record must start zeroed")
	}
	if !m.Date.Equal(date) {
		t.Fatalf("anchor date = %s, want %s", m.Date, date)
	}
}

func TestHasFixedExpense(t *testing.T) {
	m := MonthlyExpense{FixedExpenses: []FixedExpense{{Title: "Rent"}}}
	if !m.HasFixedExpense("Rent") {
		t.Fatal("expected Rent to be attached")
	}
	if m.HasFixedExpense("Internet") {
		t.Fatal("Internet should not be attached")
	}
}

func TestSumExpenses(t *testing.T) {
	m := MonthlyExpense{
		FixedExpenses: []FixedExpense{
			{Title: "Rent", Price: decimal.RequireFromString("1200.50")},
			{Title: "Internet", Price: decimal.RequireFromString("49.90")},
		},
		VariableExpenses: []VariableExpense{
			{Title: "Groceries", Price: decimal.RequireFromString("310.10")},
		},
	}
	want := decimal.RequireFromString("1560.50")
	if got := m.SumExpenses(); !got.Equal(want) {
		t.Fatalf("sum = %s, want %s", got, want)
	}
}

func TestFixedExpenseValidate(t *testing.T) {
	cases := []struct {
		name string
		fe   FixedExpense
		ok   bool
	}{
		{"valid", FixedExpense{Title: "Rent", Price: decimal.NewFromInt(1200), DayOfCharge: 5}, true},
		{"empty title", FixedExpense{Title: " ", Price: decimal.NewFromInt(1), DayOfCharge: 5}, false},
		{"negative price", FixedExpense{Title: "Rent", Price: decimal.NewFromInt(-1), DayOfCharge: 5}, false},
		{"day too low", FixedExpense{Title: "Rent", Price: decimal.NewFromInt(1), DayOfCharge: 0}, false},
		{"day too high", FixedExpense{Title: "Rent", Price: decimal.NewFromInt(1), DayOfCharge: 32}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.fe.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestVariableExpenseValidate(t *testing.T) {
	good := VariableExpense{Title: "Cinema", Price: decimal.NewFromInt(15), DateOfCharge: time.Now()}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []VariableExpense{
		{Title: "", Price: decimal.NewFromInt(1), DateOfCharge: time.Now()},
		{Title: "x", Price: decimal.NewFromInt(-1), DateOfCharge: time.Now()},
		{Title: "x", Price: decimal.NewFromInt(1)},
	}
	for i, ve := range bads {
		if err := ve.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMonthStart(t *testing.T) {
	d := time.Date(2024, 3, 17, 13, 22, 5, 0, time.UTC)
	got := MonthStart(d)
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("MonthStart = %s, want %s", got, want)
	}
}
