package synth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"Prism/internal/domain/models"
	"Prism/internal/domain/repository"
	"Prism/internal/service/cache"
	apphttp "Prism/pkg/http"
	applogger "Prism/pkg/logger"
)

const percentilesPath = "/insights/prediction-percentiles"

var (
	// ErrUpstream covers transport failures, non-2xx answers and malformed
	// bodies from the forecast provider.
	ErrUpstream           = errors.New("forecast provider unavailable")
	ErrUnknownAsset       = errors.New("unknown asset")
	ErrUnsupportedHorizon = errors.New("horizon not supported for asset")
)

type Config struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
	Days     int
	Limit    int
	Assets   []string
	// Horizons lists supported tags per asset; missing assets get 24h only.
	Horizons map[string][]string
}

// Client fetches percentile cones and caches the raw provider response.
type Client struct {
	cfg   Config
	http  *apphttp.Client
	cache cache.BytesCache
	l     *applogger.Logger
	now   func() time.Time
}

var _ repository.ConeSource = (*Client)(nil)

func NewClient(cfg Config, c cache.BytesCache, l *applogger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Days <= 0 {
		cfg.Days = 14
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:   cfg,
		http:  apphttp.NewClient(apphttp.WithTimeout(cfg.Timeout)),
		cache: c,
		l:     l,
		now:   time.Now,
	}
}

// Supports reports whether the asset is configured for the horizon.
func (c *Client) Supports(asset string, h models.Horizon) error {
	known := false
	for _, a := range c.cfg.Assets {
		if a == asset {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}
	for _, tag := range c.HorizonsFor(asset) {
		if models.Horizon(tag) == h {
			return nil
		}
	}
	return fmt.Errorf("%w: %s %s", ErrUnsupportedHorizon, asset, h)
}

func (c *Client) HorizonsFor(asset string) []string {
	if hs, ok := c.cfg.Horizons[asset]; ok && len(hs) > 0 {
		return hs
	}
	return []string{string(models.Horizon24h)}
}

func (c *Client) Assets() []string { return c.cfg.Assets }

// FetchCone returns the full percentile cone for asset and horizon.
func (c *Client) FetchCone(ctx context.Context, asset string, h models.Horizon) (models.PercentileCone, error) {
	if err := c.Supports(asset, h); err != nil {
		return models.PercentileCone{}, err
	}

	key := fmt.Sprintf("pct:%s:%s", asset, h)
	raw, ok := c.cached(ctx, key)
	if !ok {
		var err error
		raw, err = c.fetch(ctx, asset, h)
		if err != nil {
			return models.PercentileCone{}, err
		}
		if c.cache != nil {
			if err := c.cache.SetBytes(ctx, key, raw, c.cfg.CacheTTL); err != nil {
				c.l.Warn("synth cache set failed", applogger.String("key", key), applogger.Error(err))
			}
		}
	}

	cone, err := Decode(raw, asset, h)
	if err != nil {
		return models.PercentileCone{}, err
	}
	cone.FetchedAt = c.now()
	return cone, nil
}

func (c *Client) cached(ctx context.Context, key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	b, ok, err := c.cache.GetBytes(ctx, key)
	if err != nil {
		c.l.Warn("synth cache get failed", applogger.String("key", key), applogger.Error(err))
		return nil, false
	}
	return b, ok
}

func (c *Client) fetch(ctx context.Context, asset string, h models.Horizon) ([]byte, error) {
	start := time.Now()
	var raw []byte
	err := c.http.SendAndParse(ctx, &apphttp.RequestOptions{
		Method:  apphttp.MethodGet,
		URL:     c.cfg.BaseURL + percentilesPath,
		Headers: map[string]string{"Authorization": "Apikey " + c.cfg.APIKey},
		QueryParams: map[string][]string{
			"asset":   {asset},
			"horizon": {string(h)},
			"days":    {fmt.Sprint(c.cfg.Days)},
			"limit":   {fmt.Sprint(c.cfg.Limit)},
		},
	}, &raw)
	if err != nil {
		c.l.Error("synth request failed",
			applogger.String("asset", asset),
			applogger.String("horizon", string(h)),
			applogger.Duration("duration_ms", time.Since(start)),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	c.l.Debug("synth request",
		applogger.String("asset", asset),
		applogger.String("horizon", string(h)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return raw, nil
}

type percentileResponse struct {
	CurrentPrice   float64 `json:"current_price"`
	ForecastFuture struct {
		Percentiles []map[string]float64 `json:"percentiles"`
	} `json:"forecast_future"`
}

// Decode turns a provider response into a cone. Offsets are spread evenly
// over the horizon: point i of n sits at round(i*horizon/(n-1)) seconds.
func Decode(raw []byte, asset string, h models.Horizon) (models.PercentileCone, error) {
	var resp percentileResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return models.PercentileCone{}, fmt.Errorf("%w: decode percentiles: %v", ErrUpstream, err)
	}

	n := len(resp.ForecastFuture.Percentiles)
	step := float64(h.Seconds()) / math.Max(float64(n-1), 1)

	cone := models.PercentileCone{
		Asset:        asset,
		Horizon:      h,
		CurrentPrice: resp.CurrentPrice,
		Points:       make([]models.ConePoint, 0, n),
	}
	for i, row := range resp.ForecastFuture.Percentiles {
		var p models.Percentiles
		for k, key := range models.PercentileKeys {
			v, ok := row[key]
			if !ok {
				return models.PercentileCone{}, fmt.Errorf("%w: point %d missing level %s", ErrUpstream, i, key)
			}
			p[k] = v
		}
		cone.Points = append(cone.Points, models.ConePoint{
			SecondsAhead: int64(math.Round(step * float64(i))),
			Prices:       p,
		})
	}
	return cone, nil
}

// SampleCone keeps n evenly spaced points, always including the first and
// the last. Cones with at most n points are returned unchanged.
func SampleCone(cone models.PercentileCone, n int) models.PercentileCone {
	total := len(cone.Points)
	if n < 2 || total <= n {
		return cone
	}
	out := cone
	out.Points = make([]models.ConePoint, 0, n)
	for i := 0; i < n; i++ {
		idx := int(math.Round(float64(i) * float64(total-1) / float64(n-1)))
		out.Points = append(out.Points, cone.Points[idx])
	}
	return out
}
