package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/bookscope/internal/domain"
)

// BookService defines what the book handler needs from the service layer. It
// is declared locally so the handler package does not depend on the concrete
// service implementation.
type BookService interface {
	Snapshot(v domain.Venue, symbol string) (domain.BookSnapshot, error)
	Feeds() []domain.FeedStatus
	Reconnect(v domain.Venue, symbol string) error
}

// BookHandler serves book snapshot and feed lifecycle endpoints.
type BookHandler struct {
	books  BookService
	logger *slog.Logger
}

// NewBookHandler creates a BookHandler with the given service and logger.
func NewBookHandler(books BookService, logger *slog.Logger) *BookHandler {
	return &BookHandler{
		books:  books,
		logger: logger,
	}
}

// GetSnapshot returns the latest normalized book for one pair.
// GET /api/book/{venue}/{symbol}
func (h *BookHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	v := domain.Venue(pathParam(r, "venue"))
	symbol := pathParam(r, "symbol")

	snap, err := h.books.Snapshot(v, symbol)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "no such feed")
		case errors.Is(err, domain.ErrNoSnapshot):
			writeError(w, http.StatusNotFound, "no snapshot received yet")
		default:
			h.logger.ErrorContext(r.Context(), "handler: get snapshot failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to load snapshot")
		}
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// listFeedsResponse wraps the feed list endpoint output.
type listFeedsResponse struct {
	Feeds []domain.FeedStatus `json:"feeds"`
}

// ListFeeds returns every registered feed with its connection state.
// GET /api/feeds
func (h *BookHandler) ListFeeds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listFeedsResponse{Feeds: h.books.Feeds()})
}

// Reconnect forces a manual reconnect for one feed.
// POST /api/feeds/{venue}/{symbol}/reconnect
func (h *BookHandler) Reconnect(w http.ResponseWriter, r *http.Request) {
	v := domain.Venue(pathParam(r, "venue"))
	symbol := pathParam(r, "symbol")

	if err := h.books.Reconnect(v, symbol); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no such feed")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: reconnect failed",
			slog.String("venue", string(v)),
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to reconnect feed")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reconnecting"})
}
