package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/signalvault/vaultagent/internal/domain"
	"github.com/signalvault/vaultagent/internal/registry"
)

// Router consumes a normalized notification and performs exactly one routing
// side effect. Implemented by the trade router.
type Router interface {
	Route(ctx context.Context, n domain.Notification) (domain.RouteResult, error)
}

// PositionHandler serves the webhook ingest endpoints and position listing.
type PositionHandler struct {
	router   Router
	registry *registry.Registry
	logger   *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(router Router, reg *registry.Registry, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		router:   router,
		registry: reg,
		logger:   logger.With(slog.String("handler", "position")),
	}
}

// PositionOpened ingests a trade-opened notification pushed by the vault
// backend and routes it.
// POST /api/position/opened
func (h *PositionHandler) PositionOpened(w http.ResponseWriter, r *http.Request) {
	var n domain.Notification
	if err := decodeJSON(r, &n); err != nil {
		writeError(w, http.StatusBadRequest, "malformed notification: "+err.Error())
		return
	}

	res, err := h.router.Route(r.Context(), n)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidNotification):
			writeError(w, http.StatusBadRequest, res.Reason)
		case errors.Is(err, domain.ErrDuplicateID):
			writeError(w, http.StatusConflict, res.Reason)
		default:
			writeJSON(w, http.StatusBadGateway, res)
		}
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// closeRequest is the body accepted by PositionClosed.
type closeRequest struct {
	PositionID string `json:"position_id"`
}

// PositionClosed removes a position from tracking. Closing an unknown
// position is not an error; the response reports whether anything was
// removed.
// POST /api/position/closed
func (h *PositionHandler) PositionClosed(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}
	if strings.TrimSpace(req.PositionID) == "" {
		writeError(w, http.StatusBadRequest, "position_id is required")
		return
	}

	pos, removed := h.registry.Remove(req.PositionID)
	if removed {
		h.logger.InfoContext(r.Context(), "position closed",
			slog.String("position_id", req.PositionID),
		)
	}

	resp := map[string]any{
		"position_id": req.PositionID,
		"removed":     removed,
	}
	if removed {
		resp["position"] = pos
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListPositions returns a snapshot of every tracked position.
// GET /api/positions
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions := h.registry.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(positions),
		"positions": positions,
	})
}
