package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalvault/vaultagent/internal/platform/circle"
	"github.com/signalvault/vaultagent/internal/registry"
	"github.com/signalvault/vaultagent/internal/server/handler"
	"github.com/signalvault/vaultagent/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHandlers(t *testing.T) Handlers {
	t.Helper()
	logger := testLogger()
	reg := registry.New()
	bridge := circle.NewSimulatedBridge(logger)
	routerCfg := service.RouterConfig{DestinationDomain: 7, Recipient: "0xrecipient", Asset: "USDC"}
	router := service.NewTradeRouter(reg, bridge, nil, nil, nil, routerCfg, logger)

	return Handlers{
		Health:    handler.NewHealthHandler("listener", time.Now().UTC(), logger),
		Positions: handler.NewPositionHandler(router, reg, logger),
		Stats:     handler.NewStatsHandler(reg, router, nil, nil, nil, nil, logger),
	}
}

func serve(t *testing.T, srv *Server, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rr, req)
	return rr
}

const openedBody = `{
	"positionId": "7",
	"trader": "0xabc",
	"marketId": "bitcoin-150k",
	"isLongYes": true,
	"entryPrice": 65,
	"collateral": 250000000,
	"collateralDecimals": 6,
	"leverage": 3
}`

func TestReadOnlyServerDropsIngestRoutes(t *testing.T) {
	srv := NewServer(Config{Port: 5001, ReadOnly: true}, testHandlers(t), nil, nil, testLogger())

	rr := serve(t, srv, http.MethodPost, "/api/position/opened", openedBody)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(t, srv, http.MethodPost, "/api/position/closed", `{"positionId":"7"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// Read endpoints stay reachable.
	rr = serve(t, srv, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(t, srv, http.MethodGet, "/api/positions", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(t, srv, http.MethodGet, "/api/stats", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReadWriteServerAcceptsIngest(t *testing.T) {
	srv := NewServer(Config{Port: 5001}, testHandlers(t), nil, nil, testLogger())

	rr := serve(t, srv, http.MethodPost, "/api/position/opened", openedBody)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(t, srv, http.MethodGet, "/api/positions", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"7"`)
}
