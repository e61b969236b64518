package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
	e.GET("/missing", func(c echo.Context) error { return AppErrorResponse(c, NotFoundError("nothing here")) })
	e.GET("/broken", func(c echo.Context) error { return AppErrorResponse(c, errors.New("db exploded")) })
}

func TestServer_StartServeStop(t *testing.T) {
	s := NewServer(pingHandler{}, WithHost("127.0.0.1"), WithPort(0))
	require.NoError(t, s.Start())
	base := "http://" + s.Addr()

	res, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(base + "/ping")
	require.NoError(t, err)
	var body APIResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	res.Body.Close()
	assert.Equal(t, http.StatusOK, body.Status)
	assert.Equal(t, "pong", body.Data)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestServer_StartFailsOnTakenPort(t *testing.T) {
	first := NewServer(nil, WithHost("127.0.0.1"), WithPort(0))
	require.NoError(t, first.Start())
	defer first.Stop(context.Background())

	_, port, err := splitPort(first.Addr())
	require.NoError(t, err)
	second := NewServer(nil, WithHost("127.0.0.1"), WithPort(port))
	assert.Error(t, second.Start())
}

func TestServer_ErrorEnvelope(t *testing.T) {
	s := NewServer(pingHandler{}, WithCORS(false))

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")

	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/broken", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db exploded")
}

func TestServer_CORSPreflight(t *testing.T) {
	s := NewServer(pingHandler{})
	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set(echo.HeaderOrigin, "https://dash.example")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodGet)
}

type listQuery struct {
	Limit int    `query:"limit" default:"50" validate:"gte=1,lte=500"`
	Order string `query:"order" default:"desc" validate:"oneof=asc desc"`
}

func bindQuery(t *testing.T, target string) (*listQuery, []ValidationError) {
	t.Helper()
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	q := &listQuery{}
	return q, ReadAndValidateRequest(c, q)
}

func TestReadAndValidateRequest(t *testing.T) {
	q, verrs := bindQuery(t, "/items")
	require.Nil(t, verrs)
	assert.Equal(t, 50, q.Limit)
	assert.Equal(t, "desc", q.Order)

	q, verrs = bindQuery(t, "/items?limit=20&order=asc")
	require.Nil(t, verrs)
	assert.Equal(t, 20, q.Limit)
	assert.Equal(t, "asc", q.Order)

	_, verrs = bindQuery(t, "/items?limit=900&order=sideways")
	require.Len(t, verrs, 2)
	assert.Equal(t, "limit", verrs[0].Field)
	assert.Equal(t, "ERR_LTE", verrs[0].Code)
	assert.Equal(t, "limit must be at most 500", verrs[0].Message)
	assert.Equal(t, "order", verrs[1].Field)
	assert.Equal(t, []string{"asc", "desc"}, verrs[1].Params["options"])

	_, verrs = bindQuery(t, "/items?limit=abc")
	require.Len(t, verrs, 1)
	assert.Equal(t, "ERR_BIND", verrs[0].Code)
}

func splitPort(addr string) (string, int, error) {
	host, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(p)
	return host, port, err
}
