package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Amazon       SourcePlatform = "AMAZON"
	AliExpress   SourcePlatform = "ALI_EXPRESS"
	MercadoLivre SourcePlatform = "MERCADO_LIVRE"
	Shein        SourcePlatform = "SHEIN"
)

type (
	// SourcePlatform tags the shop an item was registered from.
	SourcePlatform string

	Wishlist struct {
		ID     int64
		UserID int64
		Title  string
	}

	Item struct {
		ID             int64
		WishlistID     int64
		Name           string
		Image          string
		Link           string
		SourcePlatform SourcePlatform
		Price          decimal.Decimal
		History        *PriceHistory
	}

	// PriceObservation is one immutable (date, price) pair in an item's history.
	PriceObservation struct {
		ID        int64
		HistoryID int64
		Date      time.Time
		Price     decimal.Decimal
	}

	// PriceHistory is the append-only record of price observations for one item.
	// Insertion order is chronological order.
	PriceHistory struct {
		ID           int64
		ItemID       int64
		Fluctuation  float64
		Observations []PriceObservation
	}
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrMissingInput  = errors.New("missing required input")
	ErrInvalidPrice  = errors.New("price cannot be negative")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrRefreshFailed = errors.New("source refresh failed")
)

// IsValid returns true if the platform tag is one of the known shops.
func (sp SourcePlatform) IsValid() bool {
	switch sp {
	case Amazon, AliExpress, MercadoLivre, Shein:
		return true
	default:
		return false
	}
}

func (sp SourcePlatform) String() string {
	return string(sp)
}

func (i Item) Validate() error {
	if len(strings.TrimSpace(i.Name)) == 0 {
		return errors.New("empty item name")
	}
	if i.Price.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}

// Append adds an observation to the end of the history and recomputes the
// fluctuation. Observations with a negative price are rejected.
func (h *PriceHistory) Append(obs PriceObservation) error {
	if obs.Price.IsNegative() {
		return ErrInvalidPrice
	}
	h.Observations = append(h.Observations, obs)
	h.RecomputeFluctuation()
	return nil
}

// RecomputeFluctuation updates the fluctuation from the earliest and latest
// observations: (latest - earliest) / earliest. It is safe to call at any
// time; a missing or zero-priced earliest observation yields 0.
func (h *PriceHistory) RecomputeFluctuation() {
	if len(h.Observations) == 0 {
		h.Fluctuation = 0
		return
	}
	earliest := h.Observations[0].Price
	latest := h.Observations[len(h.Observations)-1].Price
	if !earliest.IsPositive() {
		h.Fluctuation = 0
		return
	}
	h.Fluctuation, _ = latest.Sub(earliest).Div(earliest).Float64()
}

// Earliest returns the first recorded observation, or false if the history is
// empty. A history seeded through InitializeHistory is never empty.
func (h *PriceHistory) Earliest() (PriceObservation, bool) {
	if len(h.Observations) == 0 {
		return PriceObservation{}, false
	}
	return h.Observations[0], true
}

// Latest returns the most recent observation, or false if the history is empty.
func (h *PriceHistory) Latest() (PriceObservation, bool) {
	if len(h.Observations) == 0 {
		return PriceObservation{}, false
	}
	return h.Observations[len(h.Observations)-1], true
}

// InitializeHistory seeds a fresh history for an item with exactly one
// observation at the item's current price. Fluctuation starts at 0.
func InitializeHistory(item *Item, at time.Time) *PriceHistory {
	h := &PriceHistory{
		ItemID: item.ID,
		Observations: []PriceObservation{
			{Date: at, Price: item.Price},
		},
	}
	item.History = h
	return h
}
