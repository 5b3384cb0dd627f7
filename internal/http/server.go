package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"wishtrack/internal/core"
	"wishtrack/internal/export"
	"wishtrack/internal/middleware/trace"
	"wishtrack/internal/services"
)

// ItemAPI is the slice of the item service the handlers call.
type ItemAPI interface {
	Create(ctx context.Context, wishlistID int64, in *services.ItemInput) (core.Item, error)
	Get(ctx context.Context, id int64) (core.Item, error)
	List(ctx context.Context, limit, offset int64) ([]core.Item, error)
	Update(ctx context.Context, itemID int64, in *services.ItemInput) (core.Item, error)
	ReassignWishlist(ctx context.Context, itemID, wishlistID int64) error
	RefreshFromSource(ctx context.Context, itemID int64) (core.Item, error)
	EnqueueRefresh(ctx context.Context, itemID int64) error
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) error
}

// MonthAPI is the slice of the month service the handlers call.
type MonthAPI interface {
	CreateTrack(ctx context.Context, userID int64) (core.ExpenseTrack, core.MonthlyExpense, error)
	GetTrack(ctx context.Context, userID int64) (core.ExpenseTrack, error)
	Get(ctx context.Context, id int64) (core.MonthlyExpense, error)
	ListByUser(ctx context.Context, userID, limit, offset int64) ([]core.MonthlyExpense, error)
	ListFixedExpenses(ctx context.Context, limit, offset int64) ([]core.FixedExpense, error)
	ExistsThisMonth(ctx context.Context, userID int64) (bool, error)
	ExistsForMonth(ctx context.Context, userID int64, month int) (bool, error)
	ExistsForMonthInYear(ctx context.Context, userID int64, month, year int) (bool, error)
	CreateForCurrentMonth(ctx context.Context, track core.ExpenseTrack) (core.MonthlyExpense, error)
	CreateForSpecificMonth(ctx context.Context, track core.ExpenseTrack, date time.Time) (core.MonthlyExpense, error)
	AddVariableExpense(ctx context.Context, userID int64, month int, ve core.VariableExpense) (core.VariableExpense, error)
	AddFixedExpenses(ctx context.Context, userID int64, expenses ...core.FixedExpense) ([]core.FixedExpense, error)
	RecomputeTotals(ctx context.Context, monthlyExpenseID int64, available decimal.Decimal) (core.MonthlyExpense, error)
}

// WishlistStore covers the wishlist operations the handlers need directly.
type WishlistStore interface {
	CreateWishlist(ctx context.Context, userID int64, title string) (core.Wishlist, error)
	GetWishlist(ctx context.Context, id int64) (core.Wishlist, error)
}

// Server is the JSON API surface.
type Server struct {
	http.Server

	items     ItemAPI
	months    MonthAPI
	wishlists WishlistStore
	exporter  export.LedgerWriter
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. exporter may be nil; the export endpoint then reports 503.
func NewServer(addr string, items ItemAPI, months MonthAPI, wishlists WishlistStore, exporter export.LedgerWriter) *Server {
	mux := http.NewServeMux()

	s := &Server{
		items:     items,
		months:    months,
		wishlists: wishlists,
		exporter:  exporter,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /wishlists", s.handleCreateWishlist)
	mux.HandleFunc("POST /wishlists/{id}/items", s.handleCreateItem)

	mux.HandleFunc("GET /items", s.handleListItems)
	mux.HandleFunc("DELETE /items", s.handleDeleteItems)
	mux.HandleFunc("GET /items/{id}", s.handleGetItem)
	mux.HandleFunc("PUT /items/{id}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /items/{id}", s.handleDeleteItem)
	mux.HandleFunc("PUT /items/{id}/wishlist", s.handleReassignItem)
	mux.HandleFunc("POST /items/{id}/refresh", s.handleRefreshItem)
	mux.HandleFunc("POST /items/{id}/refresh-jobs", s.handleEnqueueRefresh)

	mux.HandleFunc("POST /expense-tracks", s.handleCreateTrack)
	mux.HandleFunc("GET /months", s.handleListMonths)
	mux.HandleFunc("POST /months", s.handleCreateMonth)
	mux.HandleFunc("GET /months/exists", s.handleMonthExists)
	mux.HandleFunc("GET /months/{id}", s.handleGetMonth)
	mux.HandleFunc("POST /months/{id}/totals", s.handleRecomputeTotals)
	mux.HandleFunc("POST /months/{id}/export", s.handleExportMonth)
	mux.HandleFunc("POST /months/variable-expenses", s.handleAddVariableExpense)
	mux.HandleFunc("POST /months/fixed-expenses", s.handleAddFixedExpenses)
	mux.HandleFunc("GET /fixed-expenses", s.handleListFixedExpenses)

	tracer := trace.NewMiddleware(clientIP)
	s.Server = http.Server{
		Addr:              addr,
		Handler:           tracer.Handler(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.InfoContext(ctx, "HTTP server shutting down")
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
