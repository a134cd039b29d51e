package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Apikey k", r.Header.Get("Authorization"))
		assert.Equal(t, "BTC", r.URL.Query().Get("asset"))
		_, _ = w.Write([]byte(`{"current_price": 100.5}`))
	}))
	defer srv.Close()

	var out struct {
		CurrentPrice float64 `json:"current_price"`
	}
	err := NewClient().SendAndParse(context.Background(), &RequestOptions{
		Method:      MethodGet,
		URL:         srv.URL,
		Headers:     map[string]string{"Authorization": "Apikey k"},
		QueryParams: map[string][]string{"asset": {"BTC"}},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, 100.5, out.CurrentPrice)
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	err := NewClient().SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Contains(t, se.Body, "upstream down")
}

func TestClientPostsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]float64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]float64{"double": in["x"] * 2})
	}))
	defer srv.Close()

	var out map[string]float64
	err := NewClient().SendAndParse(context.Background(), &RequestOptions{
		Method: MethodPost, URL: srv.URL, Body: map[string]float64{"x": 2},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, 4.0, out["double"])
}

type sampleRequest struct {
	Asset   string `param:"asset" validate:"required"`
	Horizon string `query:"horizon" default:"24h" validate:"oneof=1h 24h"`
}

func TestReadAndValidateRequest(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/cone/BTC", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("asset")
	c.SetParamValues("BTC")

	var in sampleRequest
	require.Nil(t, ReadAndValidateRequest(c, &in))
	assert.Equal(t, "BTC", in.Asset)
	assert.Equal(t, "24h", in.Horizon)

	req = httptest.NewRequest(http.MethodGet, "/api/cone/BTC?horizon=7d", nil)
	c = e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("asset")
	c.SetParamValues("BTC")
	var bad sampleRequest
	errs := ReadAndValidateRequest(c, &bad)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_ONEOF", errs[0].Code)
	assert.Equal(t, "Horizon", errs[0].Field)
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	err := ServiceUnavailableError("cannot retrieve forecast").WithError(errors.New("timeout"))
	require.NoError(t, AppErrorResponse(c, err))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ERR_UPSTREAM"))
	assert.False(t, strings.Contains(rec.Body.String(), "timeout"))

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, AppErrorResponse(c, errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
