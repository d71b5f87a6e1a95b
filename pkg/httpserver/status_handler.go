package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/crossarb/crossarb/internal/coordinator"
	"github.com/crossarb/crossarb/pkg/types"
	"go.uber.org/zap"
)

// StatusHandler serves the operator's view of venue and book state.
type StatusHandler struct {
	coord  *coordinator.Coordinator
	pairs  []types.Pair
	logger *zap.Logger
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(coord *coordinator.Coordinator, pairs []types.Pair, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		coord:  coord,
		pairs:  pairs,
		logger: logger,
	}
}

// VenueStatus describes one venue's health and holdings.
type VenueStatus struct {
	Name        string            `json:"name"`
	Tripped     bool              `json:"tripped"`
	LastRefresh time.Time         `json:"last_refresh"`
	Balances    map[string]string `json:"balances"`
}

// VenuesResponse is the /api/venues payload.
type VenuesResponse struct {
	Venues []VenueStatus     `json:"venues"`
	Totals map[string]string `json:"totals"`
}

// BookEntry is one venue's top of book for a pair.
type BookEntry struct {
	Venue   string `json:"venue"`
	BestBid string `json:"best_bid,omitempty"`
	BestAsk string `json:"best_ask,omitempty"`
}

// BookResponse is the /api/book payload.
type BookResponse struct {
	Pair  string      `json:"pair"`
	Books []BookEntry `json:"books"`
}

// TableEntry is one (buy venue, sell venue) route's gross margin.
type TableEntry struct {
	BuyVenue       string `json:"buy_venue"`
	SellVenue      string `json:"sell_venue"`
	GrossMarginPct string `json:"gross_margin_pct"`
}

// TableResponse is the /api/table payload.
type TableResponse struct {
	Pair   string       `json:"pair"`
	Routes []TableEntry `json:"routes"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleVenues handles GET /api/venues requests.
func (h *StatusHandler) HandleVenues(w http.ResponseWriter, r *http.Request) {
	venues := make([]VenueStatus, 0)
	for _, v := range h.coord.Venues() {
		balances := make(map[string]string)
		for currency, amount := range v.Balances() {
			balances[currency] = amount.String()
		}
		venues = append(venues, VenueStatus{
			Name:        v.Name(),
			Tripped:     v.Breaker().Tripped(),
			LastRefresh: v.LastRefresh(),
			Balances:    balances,
		})
	}

	totals := make(map[string]string)
	for currency, amount := range h.coord.Totals() {
		totals[currency] = amount.String()
	}

	h.writeJSON(w, VenuesResponse{Venues: venues, Totals: totals})
}

// HandleBook handles GET /api/book?pair=BASE/QUOTE requests.
func (h *StatusHandler) HandleBook(w http.ResponseWriter, r *http.Request) {
	pair, ok := h.queryPair(w, r)
	if !ok {
		return
	}

	books := make([]BookEntry, 0)
	for _, v := range h.coord.Venues() {
		if !v.Books().Initialized(pair) {
			continue
		}

		entry := BookEntry{Venue: v.Name()}
		if bid, err := v.Books().BestBid(pair); err == nil {
			entry.BestBid = bid.String()
		}
		if ask, err := v.Books().BestAsk(pair); err == nil {
			entry.BestAsk = ask.String()
		}
		books = append(books, entry)
	}

	h.writeJSON(w, BookResponse{Pair: pair.String(), Books: books})
}

// HandleTable handles GET /api/table?pair=BASE/QUOTE requests: the
// gross margin of every cross-venue route, crossed or not.
func (h *StatusHandler) HandleTable(w http.ResponseWriter, r *http.Request) {
	pair, ok := h.queryPair(w, r)
	if !ok {
		return
	}

	routes := make([]TableEntry, 0)
	venues := h.coord.Venues()
	for _, buy := range venues {
		ask, err := buy.Books().BestAsk(pair)
		if err != nil {
			continue
		}
		for _, sell := range venues {
			if sell.Name() == buy.Name() {
				continue
			}
			bid, err := sell.Books().BestBid(pair)
			if err != nil {
				continue
			}

			margin := bid.Sub(ask).Div(ask)
			routes = append(routes, TableEntry{
				BuyVenue:       buy.Name(),
				SellVenue:      sell.Name(),
				GrossMarginPct: margin.String(),
			})
		}
	}

	h.writeJSON(w, TableResponse{Pair: pair.String(), Routes: routes})
}

// queryPair parses the pair query parameter against the traded universe.
func (h *StatusHandler) queryPair(w http.ResponseWriter, r *http.Request) (types.Pair, bool) {
	raw := r.URL.Query().Get("pair")
	if raw == "" {
		h.writeError(w, "missing required query parameter: pair", http.StatusBadRequest)
		return types.Pair{}, false
	}

	for _, pair := range h.pairs {
		if strings.EqualFold(raw, pair.String()) {
			return pair, true
		}
	}

	h.writeError(w, "pair not traded: "+raw, http.StatusNotFound)
	return types.Pair{}, false
}

func (h *StatusHandler) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *StatusHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	err := json.NewEncoder(w).Encode(ErrorResponse{Error: message})
	if err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
