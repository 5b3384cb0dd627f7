package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"wishtrack/internal/core"
)

type fixedExpensePayload struct {
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	DayOfCharge int             `json:"day_of_charge"`
}

type variableExpensePayload struct {
	Month        int             `json:"month"`
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	DateOfCharge string          `json:"date_of_charge"`
}

type fixedExpenseResponse struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	DayOfCharge int             `json:"day_of_charge"`
}

type variableExpenseResponse struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	DateOfCharge string          `json:"date_of_charge"`
}

type monthResponse struct {
	ID               int64                     `json:"id"`
	UserID           int64                     `json:"user_id"`
	Date             string                    `json:"date"`
	TotalExpended    decimal.Decimal           `json:"total_expended"`
	RemainingAmount  decimal.Decimal           `json:"remaining_amount"`
	FixedExpenses    []fixedExpenseResponse    `json:"fixed_expenses"`
	VariableExpenses []variableExpenseResponse `json:"variable_expenses"`
}

func toMonthResponse(m core.MonthlyExpense) monthResponse {
	resp := monthResponse{
		ID:               m.ID,
		UserID:           m.UserID,
		Date:             m.Date.Format("2006-01-02"),
		TotalExpended:    m.TotalExpended,
		RemainingAmount:  m.RemainingAmount,
		FixedExpenses:    []fixedExpenseResponse{},
		VariableExpenses: []variableExpenseResponse{},
	}
	for _, fe := range m.FixedExpenses {
		resp.FixedExpenses = append(resp.FixedExpenses, toFixedExpenseResponse(fe))
	}
	for _, ve := range m.VariableExpenses {
		resp.VariableExpenses = append(resp.VariableExpenses, variableExpenseResponse{
			ID:           ve.ID,
			Title:        ve.Title,
			Price:        ve.Price,
			DateOfCharge: ve.DateOfCharge.Format("2006-01-02"),
		})
	}
	return resp
}

func toFixedExpenseResponse(fe core.FixedExpense) fixedExpenseResponse {
	return fixedExpenseResponse{
		ID:          fe.ID,
		Title:       fe.Title,
		Price:       fe.Price,
		DayOfCharge: fe.DayOfCharge,
	}
}

func (s *Server) handleCreateTrack(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	track, month, err := s.months.CreateTrack(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"track_id":      track.ID,
		"user_id":       track.UserID,
		"current_month": toMonthResponse(month),
	})
}

func (s *Server) handleGetMonth(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	month, err := s.months.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthResponse(month))
}

func (s *Server) handleListMonths(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}
	limit, offset := pageParams(r)

	months, err := s.months.ListByUser(r.Context(), uid, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]monthResponse, 0, len(months))
	for _, m := range months {
		out = append(out, toMonthResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleMonthExists answers three queries: no parameters checks the current
// month, month alone checks across years, month plus year pins one record.
func (s *Server) handleMonthExists(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	q := r.URL.Query()
	var exists bool
	switch {
	case q.Get("month") == "":
		exists, err = s.months.ExistsThisMonth(r.Context(), uid)
	case q.Get("year") == "":
		var month int
		if month, err = parseMonth(q.Get("month")); err == nil {
			exists, err = s.months.ExistsForMonth(r.Context(), uid, month)
		}
	default:
		var month, year int
		if month, err = parseMonth(q.Get("month")); err == nil {
			if year, err = strconv.Atoi(q.Get("year")); err == nil {
				exists, err = s.months.ExistsForMonthInYear(r.Context(), uid, month, year)
			}
		}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

// handleCreateMonth opens a month record on the caller's track. With a date
// in the body the month is created at that date and duplicates are rejected;
// without one the record lands on today.
func (s *Server) handleCreateMonth(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	// An empty body means "the current month".
	var body struct {
		Date string `json:"date"`
	}
	if err := decodeBody(r, &body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	track, err := s.months.GetTrack(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var month core.MonthlyExpense
	if body.Date == "" {
		month, err = s.months.CreateForCurrentMonth(r.Context(), track)
	} else {
		var date time.Time
		date, err = time.Parse("2006-01-02", body.Date)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
			return
		}
		month, err = s.months.CreateForSpecificMonth(r.Context(), track, date)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMonthResponse(month))
}

func (s *Server) handleAddVariableExpense(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	var body variableExpensePayload
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	charge, err := time.Parse("2006-01-02", body.DateOfCharge)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date_of_charge must be YYYY-MM-DD"})
		return
	}
	month := body.Month
	if month == 0 {
		month = int(charge.Month())
	}

	saved, err := s.months.AddVariableExpense(r.Context(), uid, month, core.VariableExpense{
		Title:        body.Title,
		Price:        body.Price,
		DateOfCharge: charge,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, variableExpenseResponse{
		ID:           saved.ID,
		Title:        saved.Title,
		Price:        saved.Price,
		DateOfCharge: saved.DateOfCharge.Format("2006-01-02"),
	})
}

func (s *Server) handleAddFixedExpenses(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	var body []fixedExpensePayload
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	expenses := make([]core.FixedExpense, 0, len(body))
	for _, fe := range body {
		expenses = append(expenses, core.FixedExpense{
			Title:       fe.Title,
			Price:       fe.Price,
			DayOfCharge: fe.DayOfCharge,
		})
	}

	attached, err := s.months.AddFixedExpenses(r.Context(), uid, expenses...)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]fixedExpenseResponse, 0, len(attached))
	for _, fe := range attached {
		out = append(out, toFixedExpenseResponse(fe))
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleListFixedExpenses(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	expenses, err := s.months.ListFixedExpenses(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]fixedExpenseResponse, 0, len(expenses))
	for _, fe := range expenses {
		out = append(out, toFixedExpenseResponse(fe))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRecomputeTotals(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var body struct {
		Available decimal.Decimal `json:"available"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	month, err := s.months.RecomputeTotals(r.Context(), id, body.Available)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthResponse(month))
}

func (s *Server) handleExportMonth(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no ledger export configured"})
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	month, err := s.months.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ref, err := s.exporter.AppendMonth(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ref": ref})
}

func parseMonth(raw string) (int, error) {
	month, err := strconv.Atoi(raw)
	if err != nil || month < 1 || month > 12 {
		return 0, fmt.Errorf("%w: month must be between 1 and 12", core.ErrMissingInput)
	}
	return month, nil
}
