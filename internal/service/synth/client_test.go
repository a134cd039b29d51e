package synth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Prism/internal/domain/models"
	"Prism/internal/service/cache"
	applogger "Prism/pkg/logger"
)

func percentileBody(current float64, n int) string {
	rows := make([]string, 0, n)
	for i := 0; i < n; i++ {
		w := float64(i + 1)
		rows = append(rows, fmt.Sprintf(
			`{"0.005":%g,"0.05":%g,"0.2":%g,"0.35":%g,"0.5":%g,"0.65":%g,"0.8":%g,"0.95":%g,"0.995":%g}`,
			current-5*w, current-4*w, current-2*w, current-w, current, current+w, current+2*w, current+4*w, current+5*w,
		))
	}
	return fmt.Sprintf(`{"current_price":%g,"forecast_future":{"percentiles":[%s]}}`, current, strings.Join(rows, ","))
}

func newTestClient(url string, c cache.BytesCache) *Client {
	return NewClient(Config{
		BaseURL:  url + "/",
		APIKey:   "secret",
		Assets:   []string{"BTC", "SPY"},
		Horizons: map[string][]string{"BTC": {"1h", "24h"}},
	}, c, applogger.Nop())
}

func TestFetchCone(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, percentilesPath, r.URL.Path)
		assert.Equal(t, "Apikey secret", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "BTC", q.Get("asset"))
		assert.Equal(t, "24h", q.Get("horizon"))
		assert.Equal(t, "14", q.Get("days"))
		assert.Equal(t, "10", q.Get("limit"))
		_, _ = w.Write([]byte(percentileBody(100, 289)))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, cache.NewTTLCache())
	cone, err := c.FetchCone(context.Background(), "BTC", models.Horizon24h)
	require.NoError(t, err)

	assert.Equal(t, 100.0, cone.CurrentPrice)
	require.Len(t, cone.Points, 289)
	assert.Equal(t, int64(0), cone.Points[0].SecondsAhead)
	assert.Equal(t, int64(300), cone.Points[1].SecondsAhead)
	assert.Equal(t, int64(86400), cone.Points[288].SecondsAhead)
	assert.Equal(t, 95.0, cone.Points[0].Prices.P005())
	assert.NoError(t, cone.Validate())
	assert.False(t, cone.FetchedAt.IsZero())

	_, err = c.FetchCone(context.Background(), "BTC", models.Horizon24h)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second call served from cache")
}

func TestFetchConeRejectsUnsupported(t *testing.T) {
	c := newTestClient("http://127.0.0.1:0", nil)

	_, err := c.FetchCone(context.Background(), "SPY", models.Horizon1h)
	assert.True(t, errors.Is(err, ErrUnsupportedHorizon))

	_, err = c.FetchCone(context.Background(), "DOGE", models.Horizon24h)
	assert.True(t, errors.Is(err, ErrUnknownAsset))
}

func TestFetchConeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, nil).FetchCone(context.Background(), "SPY", models.Horizon24h)
	assert.True(t, errors.Is(err, ErrUpstream))
}

func TestDecodeMissingLevel(t *testing.T) {
	_, err := Decode([]byte(`{"current_price":1,"forecast_future":{"percentiles":[{"0.5":1}]}}`), "BTC", models.Horizon1h)
	assert.True(t, errors.Is(err, ErrUpstream))

	_, err = Decode([]byte(`not json`), "BTC", models.Horizon1h)
	assert.True(t, errors.Is(err, ErrUpstream))
}

func TestSampleCone(t *testing.T) {
	cone, err := Decode([]byte(percentileBody(50, 289)), "BTC", models.Horizon24h)
	require.NoError(t, err)

	s := SampleCone(cone, 50)
	require.Len(t, s.Points, 50)
	assert.Equal(t, cone.Points[0], s.Points[0])
	assert.Equal(t, cone.Points[288], s.Points[49])
	assert.NoError(t, s.Validate())

	short := SampleCone(cone, 500)
	assert.Len(t, short.Points, 289)
}
