package api

import (
	"net/http"
	"time"

	"PillarCast/internal/domain/models"
	"PillarCast/internal/service/broadcast"
	"PillarCast/internal/service/metrics"
	"PillarCast/internal/usecase"
	xhttp "PillarCast/pkg/http"
	xlogger "PillarCast/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	defaultHistoryWindow = 24 * time.Hour
	streamWriteWait      = 10 * time.Second
	streamPongWait       = 60 * time.Second
	streamPingInterval   = (streamPongWait * 9) / 10
)

// PredictionsHandler serves the read side of the prediction log.
type PredictionsHandler struct {
	logger   *xlogger.Logger
	query    *usecase.PredictionsQuery
	hub      *broadcast.Hub
	upgrader websocket.Upgrader
	now      func() time.Time
}

func NewPredictionsHandler(logger *xlogger.Logger, query *usecase.PredictionsQuery, hub *broadcast.Hub) *PredictionsHandler {
	metrics.Register()
	return &PredictionsHandler{
		logger: logger,
		query:  query,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		now: time.Now,
	}
}

func (h *PredictionsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/predictions", h.History)
	g.GET("/predictions/latest", h.Latest)
	g.GET("/predictions/stream", h.Stream)
	g.GET("/bounds", h.Bounds)
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (h *PredictionsHandler) Latest(c echo.Context) error {
	defer observe("latest", time.Now())

	rec, err := h.query.Latest(c.Request().Context())
	if err != nil {
		metrics.APIErrors.WithLabelValues("latest").Inc()
		h.logger.Error("latest prediction error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if rec == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no prediction yet"))
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *PredictionsHandler) History(c echo.Context) error {
	defer observe("history", time.Now())

	req := &models.PredictionHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	to := h.now().UTC()
	if req.To != "" {
		t, ok := xhttp.ParseTime(req.To)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid to %q", req.To))
		}
		to = t
	}
	from := to.Add(-defaultHistoryWindow)
	if req.From != "" {
		t, ok := xhttp.ParseTime(req.From)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid from %q", req.From))
		}
		from = t
	}
	if from.After(to) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("from must not be after to"))
	}

	res, err := h.query.History(c.Request().Context(), usecase.GetPredictionsParams{From: from, To: to, Limit: req.Limit})
	if err != nil {
		metrics.APIErrors.WithLabelValues("history").Inc()
		h.logger.Error("prediction history error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionsHandler) Bounds(c echo.Context) error {
	defer observe("bounds", time.Now())
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, h.query.Bounds())
}

// Stream pushes every new record to a websocket client until either side hangs up.
func (h *PredictionsHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		metrics.APIErrors.WithLabelValues("stream").Inc()
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	records, cancel := h.hub.Subscribe()
	defer cancel()
	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	// Reader: only pongs and close frames are expected from the client.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return nil
		case <-c.Request().Context().Done():
			return nil
		case rec, ok := <-records:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				h.logger.Debug("stream subscription closed")
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscription closed"))
				return nil
			}
			if err := conn.WriteJSON(rec); err != nil {
				h.logger.Debug("stream write failed", xlogger.Error(err))
				return nil
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}
