package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Prism/internal/domain/models"
)

var zScores = [9]float64{-2.576, -1.645, -0.8416, -0.3853, 0, 0.3853, 0.8416, 1.645, 2.576}

func writeCone(t *testing.T, dir, name string, spot, vol float64) string {
	t.Helper()
	c := models.PercentileCone{Asset: "ETH", Horizon: models.Horizon24h, CurrentPrice: spot}
	for i := 0; i < 50; i++ {
		sec := int64(math.Round(float64(i) * 86400 / 49))
		tt := float64(sec) / (365.25 * 86400)
		var p models.Percentiles
		for k, z := range zScores {
			p[k] = spot * math.Exp(z*vol*math.Sqrt(tt))
		}
		c.Points = append(c.Points, models.ConePoint{SecondsAhead: sec, Prices: p})
	}
	b, err := json.Marshal(c)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestRenderCommand(t *testing.T) {
	path := writeCone(t, t.TempDir(), "eth.json", 3000, 0.7)

	var res renderOutput
	require.NoError(t, json.Unmarshal([]byte(run(t, "render", path)), &res))
	assert.Equal(t, "ETH", res.Asset)
	assert.Equal(t, 50, res.Points)
	assert.Equal(t, 3000.0, res.Render.CurrentPrice)
	assert.False(t, res.Grid.Empty)
	assert.Equal(t, models.GridStepsX, res.Grid.StepsX)
	assert.LessOrEqual(t, res.Grid.MaxElevation, 3*math.Pow(2.5, 0.7)+1e-9)
	assert.GreaterOrEqual(t, res.Grid.MinElevation, 0.0)
}

func TestRenderProviderFormat(t *testing.T) {
	dir := t.TempDir()
	rows := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		w := float64(i + 1)
		rows = append(rows, fmt.Sprintf(
			`{"0.005":%g,"0.05":%g,"0.2":%g,"0.35":%g,"0.5":100,"0.65":%g,"0.8":%g,"0.95":%g,"0.995":%g}`,
			100-5*w, 100-4*w, 100-2*w, 100-w, 100+w, 100+2*w, 100+4*w, 100+5*w))
	}
	body := fmt.Sprintf(`{"current_price":100,"forecast_future":{"percentiles":[%s]}}`, strings.Join(rows, ","))
	path := filepath.Join(dir, "raw.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	var res renderOutput
	require.NoError(t, json.Unmarshal([]byte(run(t, "--asset", "sol", "--horizon", "1h", "render", path)), &res))
	assert.Equal(t, "SOL", res.Asset)
	assert.Equal(t, models.Horizon1h, res.Horizon)
	assert.Equal(t, 3, res.Points)
}

func TestOverlayCommand(t *testing.T) {
	path := writeCone(t, t.TempDir(), "eth.json", 3000, 0.7)

	var res models.OverlayResult
	require.NoError(t, json.Unmarshal([]byte(run(t, "overlay", path, "--target", "3000")), &res))
	assert.Greater(t, res.Coordinates.TargetLine, 0.0)
	assert.Less(t, res.Coordinates.TargetLine, 1.0)
	assert.Equal(t, models.OverlayAbsent, res.Coordinates.LiquidationLine)
	require.Len(t, res.Layers, 1)
}

func TestMorphCommand(t *testing.T) {
	dir := t.TempDir()
	from := writeCone(t, dir, "a.json", 3000, 0.7)
	to := writeCone(t, dir, "b.json", 3100, 0.9)

	out := run(t, "morph", from, to, "--fps", "60")
	assert.Contains(t, out, "hard_install=false")
	assert.Contains(t, out, "settled=true")
	assert.Contains(t, out, "frame=1 ")
}
