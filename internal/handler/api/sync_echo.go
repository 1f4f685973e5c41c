package api

import (
	"net/http"

	"SigmaSync/internal/domain/models"
	xhttp "SigmaSync/pkg/http"
	xlogger "SigmaSync/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SyncReader is the read side of the synchronization core.
type SyncReader interface {
	Latest() models.Optional[models.Snapshot]
	Window(k int) []models.Snapshot
	Capacity() int
	Classification() models.MarketView
	LeaderboardWith(top, window int) models.Leaderboard
	ChannelState() models.ChannelHealth
	Ready() bool
}

// SyncEchoHandler exposes the synchronized state over HTTP.
type SyncEchoHandler struct {
	logger *xlogger.Logger
	core   SyncReader
	guard  []echo.MiddlewareFunc
}

func NewSyncEchoHandler(logger *xlogger.Logger, core SyncReader, guard ...echo.MiddlewareFunc) *SyncEchoHandler {
	return &SyncEchoHandler{logger: logger, core: core, guard: guard}
}

func (h *SyncEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/sync", h.guard...)
	g.Use(noStore)
	g.GET("/latest", h.Latest)
	g.GET("/window", h.Window)
	g.GET("/classification", h.Classification)
	g.GET("/leaderboard", h.Leaderboard)
	g.GET("/channel", h.Channel)

	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
}

func noStore(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
		return next(c)
	}
}

func (h *SyncEchoHandler) Latest(c echo.Context) error {
	res := models.LatestResponse{}
	if s, ok := h.core.Latest().Get(); ok {
		res.Available = true
		res.Snapshot = &s
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SyncEchoHandler) Window(c echo.Context) error {
	req := &models.WindowRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	snaps := h.core.Window(req.K)
	return xhttp.SuccessResponse(c, models.WindowResponse{
		K:         req.K,
		Count:     len(snaps),
		Capacity:  h.core.Capacity(),
		Snapshots: snaps,
	})
}

func (h *SyncEchoHandler) Classification(c echo.Context) error {
	v := h.core.Classification()
	if err := v.Err(); err != nil {
		h.logger.Debug("classification degraded", xlogger.Error(err))
	}
	return xhttp.SuccessResponse(c, v)
}

func (h *SyncEchoHandler) Leaderboard(c echo.Context) error {
	req := &models.LeaderboardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.core.LeaderboardWith(req.Top, req.Window))
}

func (h *SyncEchoHandler) Channel(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.core.ChannelState())
}

func (h *SyncEchoHandler) Healthz(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Readyz answers 503 until the first snapshot has been accepted.
func (h *SyncEchoHandler) Readyz(c echo.Context) error {
	if !h.core.Ready() {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("no snapshot received yet").
			WithParam("channel", string(h.core.ChannelState().Active)))
	}
	return xhttp.DataResponse(c, http.StatusOK, map[string]interface{}{
		"status":  "ready",
		"channel": h.core.ChannelState(),
	})
}
