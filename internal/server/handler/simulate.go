package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/bookscope/internal/domain"
	"github.com/alanyoungcy/bookscope/internal/service"
)

// SimulateService defines what the simulate handler needs from the service
// layer.
type SimulateService interface {
	Simulate(req domain.OrderRequest) (service.SimulationResult, error)
}

// SimulateHandler serves the execution-simulation endpoint.
type SimulateHandler struct {
	sims   SimulateService
	logger *slog.Logger
}

// NewSimulateHandler creates a SimulateHandler with the given service and logger.
func NewSimulateHandler(sims SimulateService, logger *slog.Logger) *SimulateHandler {
	return &SimulateHandler{
		sims:   sims,
		logger: logger,
	}
}

// Simulate prices a hypothetical order against the latest snapshot for its
// pair. Invalid requests are rejected here, before the simulator runs.
// POST /api/simulate
func (h *SimulateHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req domain.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.sims.Simulate(req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidOrder):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "no such feed")
		case errors.Is(err, domain.ErrNoSnapshot):
			writeError(w, http.StatusConflict, "no snapshot to simulate against yet")
		default:
			h.logger.ErrorContext(r.Context(), "handler: simulate failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "simulation failed")
		}
		return
	}

	h.logger.InfoContext(r.Context(), "simulation served",
		slog.String("request_id", result.RequestID),
		slog.String("venue", string(req.Venue)),
		slog.String("symbol", req.Symbol),
		slog.String("side", string(req.Side)),
		slog.Float64("quantity", req.Quantity),
	)

	writeJSON(w, http.StatusOK, result)
}
