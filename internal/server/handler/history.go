package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/signalvault/vaultagent/internal/domain"
)

// HistoryHandler serves the persisted settlement journal and liquidation
// audit trail. Only registered when Postgres is configured.
type HistoryHandler struct {
	settlements  domain.SettlementStore
	liquidations domain.LiquidationStore
	logger       *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(settlements domain.SettlementStore, liquidations domain.LiquidationStore, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		settlements:  settlements,
		liquidations: liquidations,
		logger:       logger.With(slog.String("handler", "history")),
	}
}

// ListSettlements returns recent settlement journal rows, newest first.
// GET /api/settlements
func (h *HistoryHandler) ListSettlements(w http.ResponseWriter, r *http.Request) {
	records, err := h.settlements.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list settlements failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list settlements")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":       len(records),
		"settlements": records,
	})
}

// ListLiquidations returns recent liquidation events, newest first.
// GET /api/liquidations
func (h *HistoryHandler) ListLiquidations(w http.ResponseWriter, r *http.Request) {
	events, err := h.liquidations.ListRecent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list liquidations failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list liquidations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":        len(events),
		"liquidations": events,
	})
}

// parseLimit extracts the limit query parameter. Defaults to 50, capped at
// 500.
func parseLimit(r *http.Request) int {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}
	return limit
}
