package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/lamim/corrispettivi-report/internal/numfmt"
)

// Preview size in pixels.
const (
	PreviewWidth  = 1024
	PreviewHeight = 450
)

// ErrEmptyChart is returned by PNG when there is nothing to plot.
var ErrEmptyChart = errors.New("no data to plot")

// PNG renders a static preview of cfg. Energy uses the left axis and every
// amount series the right one; columns are drawn as lines.
func PNG(cfg Config) ([]byte, error) {
	if cfg.Empty() {
		return nil, ErrEmptyChart
	}
	categories := cfg.Categories()

	ticks := xTicks(categories)

	var series []gochart.Series
	var primaryMin, primaryMax, secondaryMin, secondaryMax float64
	for _, s := range cfg.Series {
		if len(s.Data) == 0 {
			continue
		}
		xs, ys := points(s.Data)
		lo, hi := bounds(ys)
		style := gochart.Style{
			StrokeColor: color(s.Color),
			StrokeWidth: 3,
			DotColor:    color(s.Color),
			DotWidth:    3,
		}
		cs := gochart.ContinuousSeries{Name: s.Name, XValues: xs, YValues: ys, Style: style}
		if s.YAxis == 1 {
			cs.YAxis = gochart.YAxisSecondary
			secondaryMin, secondaryMax = math.Min(secondaryMin, lo), math.Max(secondaryMax, hi)
		} else {
			primaryMin, primaryMax = math.Min(primaryMin, lo), math.Max(primaryMax, hi)
		}
		series = append(series, cs)
	}

	graph := gochart.Chart{
		Title:      cfg.Title.Text,
		Width:      PreviewWidth,
		Height:     PreviewHeight,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: gochart.XAxis{
			Ticks: ticks,
		},
		YAxis: gochart.YAxis{
			Name:           axisName(cfg, 0),
			Range:          axisRange(primaryMin, primaryMax),
			ValueFormatter: integerFormatter,
		},
		YAxisSecondary: gochart.YAxis{
			Name:           axisName(cfg, 1),
			Range:          axisRange(secondaryMin, secondaryMax),
			ValueFormatter: integerFormatter,
		},
		Series: series,
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart preview: %w", err)
	}
	return buf.Bytes(), nil
}

// xTicks labels one tick per category. The x range follows the ticks, so
// the unlabeled edge ticks keep half a category of padding on both sides.
func xTicks(categories []string) []gochart.Tick {
	n := len(categories)
	ticks := make([]gochart.Tick, 0, n+2)
	ticks = append(ticks, gochart.Tick{Value: -0.5})
	for i, label := range categories {
		ticks = append(ticks, gochart.Tick{Value: float64(i), Label: label})
	}
	return append(ticks, gochart.Tick{Value: float64(n) - 0.5})
}

// points spreads a single value over a short segment so that it can be
// drawn as a line.
func points(data []float64) ([]float64, []float64) {
	if len(data) == 1 {
		return []float64{-0.25, 0.25}, []float64{data[0], data[0]}
	}
	xs := make([]float64, len(data))
	ys := make([]float64, len(data))
	for i, v := range data {
		xs[i] = float64(i)
		ys[i] = v
	}
	return xs, ys
}

func bounds(values []float64) (lo, hi float64) {
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func axisRange(lo, hi float64) *gochart.ContinuousRange {
	if hi <= lo {
		hi = lo + 1
	}
	return &gochart.ContinuousRange{Min: lo, Max: hi * 1.1}
}

func axisName(cfg Config, i int) string {
	if i < len(cfg.YAxis) {
		return cfg.YAxis[i].Title.Text
	}
	return ""
}

func integerFormatter(v interface{}) string {
	f, ok := v.(float64)
	if !ok {
		return ""
	}
	return numfmt.Integer(f)
}

// color parses "#rrggbb" and "rgb(r, g, b)".
func color(value string) drawing.Color {
	v := strings.TrimSpace(value)
	if strings.HasPrefix(v, "#") {
		return drawing.ColorFromHex(strings.TrimPrefix(v, "#"))
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(strings.ReplaceAll(v, " ", ""), "rgb(%d,%d,%d)", &r, &g, &b); err == nil {
		return drawing.Color{R: r, G: g, B: b, A: 255}
	}
	return gochart.ColorBlue
}
