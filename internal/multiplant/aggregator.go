package multiplant

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lamim/corrispettivi-report/internal/fetchcache"
	"github.com/lamim/corrispettivi-report/internal/portal"
	"github.com/lamim/corrispettivi-report/internal/progress"
)

// Defaults of Aggregator.
const (
	DefaultChunkSize = 3
	DefaultPause     = 100 * time.Millisecond
)

// Series summed over the plant set.
var Series = []portal.Series{
	portal.SeriesEnergy,
	portal.SeriesTFO,
	portal.SeriesInvoicedTFO,
	portal.SeriesPayments,
}

// MonthlySum is one month of the values summed over a set of plants.
type MonthlySum struct {
	Month     int     `json:"mese"`
	Energy    float64 `json:"energia_kwh"`
	TFO       float64 `json:"corrispettivi_tfo"`
	Invoiced  float64 `json:"fatturazione_tfo"`
	Collected float64 `json:"incassi"`
}

// PlantData holds the per-month values of one plant. Unsuccessful reads are
// empty.
type PlantData struct {
	Nickname  string
	Energy    portal.MonthValues
	TFO       portal.MonthValues
	Invoiced  portal.MonthValues
	Collected portal.MonthValues
}

// Result is the outcome of Load.
type Result struct {
	Year    int
	Plants  []PlantData
	Months  [12]MonthlySum
	Batches int
}

// Aggregator loads a plant set in chunks.
type Aggregator struct {
	Fetcher   fetchcache.Fetcher
	ChunkSize int
	Pause     time.Duration
	Logger    *zap.Logger
	Progress  *progress.Manager
}

func (a *Aggregator) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

// Load fetches the four series of every plant for year, ChunkSize plants at
// a time with a pause between chunks, and sums them. It fails only when ctx
// ends.
func (a *Aggregator) Load(ctx context.Context, plants []string, year int) (*Result, error) {
	chunkSize := a.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	pause := a.Pause
	if pause < 0 {
		pause = 0
	}

	result := &Result{Year: year, Plants: make([]PlantData, len(plants))}
	for start := 0; start < len(plants); start += chunkSize {
		if start > 0 && pause > 0 {
			if err := portal.SleepWithContext(ctx, pause); err != nil {
				return nil, fmt.Errorf("plant loading interrupted: %w", err)
			}
		}
		end := min(start+chunkSize, len(plants))

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				data, err := a.loadPlant(gctx, plants[i], year)
				if err != nil {
					return err
				}
				result.Plants[i] = data
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		result.Batches++
		a.logger().Debug("plant batch loaded",
			zap.Int("batch", result.Batches),
			zap.Strings("plants", plants[start:end]))
	}

	result.Months = Sum(result.Plants)
	return result, nil
}

func (a *Aggregator) loadPlant(ctx context.Context, nickname string, year int) (PlantData, error) {
	a.Progress.Start(nickname)

	values := make([]portal.MonthValues, len(Series))
	loaded := make([]bool, len(Series))
	var g errgroup.Group
	for i, s := range Series {
		g.Go(func() error {
			path := portal.AnnualPath(s, nickname, year)
			p, err := a.Fetcher.Fetch(ctx, path)
			switch {
			case err != nil:
				a.logger().Warn("fetch failed", zap.String("url", path), zap.Error(err))
			case p == nil:
				a.logger().Warn("empty response", zap.String("url", path))
			case !p.OK():
				a.logger().Warn("unsuccessful response", zap.String("url", path), zap.Int("status", p.Status))
			default:
				values[i] = p.PerMonth
				loaded[i] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	success := true
	for _, ok := range loaded {
		success = success && ok
	}
	a.Progress.Complete(nickname, success)

	if err := ctx.Err(); err != nil {
		return PlantData{}, fmt.Errorf("loading %s: %w", nickname, err)
	}
	return PlantData{
		Nickname:  nickname,
		Energy:    values[0],
		TFO:       values[1],
		Invoiced:  values[2],
		Collected: values[3],
	}, nil
}

// Sum adds the plants month by month.
func Sum(plants []PlantData) [12]MonthlySum {
	var sums [12]MonthlySum
	for i := range sums {
		sums[i].Month = i + 1
	}
	for _, p := range plants {
		for i := range sums {
			month := i + 1
			sums[i].Energy += p.Energy.Value(month)
			sums[i].TFO += p.TFO.Value(month)
			sums[i].Invoiced += p.Invoiced.Value(month)
			sums[i].Collected += p.Collected.Value(month)
		}
	}
	return sums
}
