package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/signalvault/vaultagent/internal/domain"
	"github.com/signalvault/vaultagent/internal/platform/polymarket"
	"github.com/signalvault/vaultagent/internal/registry"
	"github.com/signalvault/vaultagent/internal/service"
)

// StatsHandler aggregates runtime counters from across the agent.
type StatsHandler struct {
	registry *registry.Registry
	router   *service.TradeRouter
	hedger   *service.HedgeService
	liq      *service.LiquidationService
	oracle   *polymarket.Client
	recorder domain.BridgeTxRecorder
	logger   *slog.Logger
}

// NewStatsHandler creates a StatsHandler. hedger, liq, oracle, and recorder
// may be nil depending on the run mode; their sections are omitted.
func NewStatsHandler(
	reg *registry.Registry,
	router *service.TradeRouter,
	hedger *service.HedgeService,
	liq *service.LiquidationService,
	oracle *polymarket.Client,
	recorder domain.BridgeTxRecorder,
	logger *slog.Logger,
) *StatsHandler {
	return &StatsHandler{
		registry: reg,
		router:   router,
		hedger:   hedger,
		liq:      liq,
		oracle:   oracle,
		recorder: recorder,
		logger:   logger.With(slog.String("handler", "stats")),
	}
}

// Stats reports routing counters, oracle fee accounting, hedge totals, and
// the latest bridge transaction.
// GET /api/stats
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"tracked_positions": h.registry.Size(),
	}

	if h.router != nil {
		resp["routing"] = h.router.Stats()
	}
	if h.oracle != nil {
		fees := h.oracle.Stats()
		resp["oracle"] = map[string]any{
			"requests_served": fees.RequestsServed,
			"total_fees":      fees.TotalFees,
		}
	}
	if h.hedger != nil {
		totalHedged, bridgeTxs := h.hedger.Stats()
		resp["hedging"] = map[string]any{
			"total_hedged":    totalHedged,
			"bridge_tx_count": bridgeTxs,
		}
	}
	if h.liq != nil {
		sweeps, liquidated := h.liq.Stats()
		resp["liquidation"] = map[string]any{
			"sweeps":     sweeps,
			"liquidated": liquidated,
		}
	}
	if h.recorder != nil {
		receipt, err := h.recorder.Latest(r.Context())
		switch {
		case err == nil:
			resp["latest_bridge_tx"] = receipt
		case errors.Is(err, domain.ErrNotFound):
			// No bridge has run yet.
		default:
			h.logger.WarnContext(r.Context(), "latest bridge tx lookup failed",
				slog.String("error", err.Error()),
			)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
