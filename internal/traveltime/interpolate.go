package traveltime

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/i474232898/travel-time-contours/internal/geo"
	"github.com/i474232898/travel-time-contours/internal/grid"
)

// Interpolator estimates a travel time for every grid cell from the nearest
// stations with a known travel time.
type Interpolator struct {
	cfg InterpolationConfig
	lon grid.Axis
	lat grid.Axis

	// beforeChunk runs at the start of each worker; tests use it to inject failures.
	beforeChunk func(Chunk)
}

// NewInterpolator validates cfg and returns an Interpolator.
func NewInterpolator(cfg InterpolationConfig) (*Interpolator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lon, lat, err := cfg.Axes()
	if err != nil {
		return nil, err
	}
	return &Interpolator{cfg: cfg, lon: lon, lat: lat}, nil
}

// Config returns the configuration the interpolator was built with.
func (ip *Interpolator) Config() InterpolationConfig {
	return ip.cfg
}

// workerTask is the read-only snapshot handed to one worker.
type workerTask struct {
	chunk       Chunk
	index       *geo.Index
	times       []float64 // per station; grid.Unknown when not measured
	k           int
	lon         grid.Axis
	lat         grid.Axis
	minPerMeter float64
	logProgress bool
}

type chunkResult struct {
	chunk  int
	values []float64
}

// Interpolate builds the travel-time grid for stations. The run fails as a
// whole if any chunk is missing.
func (ip *Interpolator) Interpolate(stations *StationSet) (*grid.Grid, error) {
	start := time.Now()

	index, err := geo.NewIndex(stations.Positions())
	if err != nil {
		return nil, fmt.Errorf("building station index: %w", err)
	}

	known := stations.KnownCount()
	if known == 0 {
		return nil, fmt.Errorf("%w: no station has a known travel time", grid.ErrEmptyInput)
	}
	k := ip.cfg.Nearest
	if k > known {
		k = known
	}

	times := make([]float64, stations.Len())
	for i := range times {
		times[i] = grid.Unknown
		if tt, ok := stations.At(i).TravelTime(); ok {
			times[i] = tt
		}
	}

	chunks := Partition(ip.lat.Count, ip.cfg.Workers)
	log.Printf("INFO: starting spatial interpolation: %dx%d cells, %d stations (%d known), k=%d, %d chunks",
		ip.lon.Count, ip.lat.Count, stations.Len(), known, k, len(chunks))

	results := make(chan chunkResult, len(chunks))
	var wg sync.WaitGroup

	for _, ch := range chunks {
		task := workerTask{
			chunk:       ch,
			index:       index,
			times:       times,
			k:           k,
			lon:         ip.lon,
			lat:         ip.lat,
			minPerMeter: ip.cfg.MinutesPerMeter(),
			logProgress: ip.cfg.Progress,
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("ERROR: interpolation worker %d crashed: %v", task.chunk.Index, r)
				}
			}()

			if ip.beforeChunk != nil {
				ip.beforeChunk(task.chunk)
			}
			values, err := task.run()
			if err != nil {
				log.Printf("ERROR: interpolation worker %d failed: %v", task.chunk.Index, err)
				return
			}
			results <- chunkResult{chunk: task.chunk.Index, values: values}
		}()
	}

	wg.Wait()
	close(results)

	out := grid.New(ip.lon, ip.lat)
	received := make([]bool, len(chunks))
	for r := range results {
		ch := chunks[r.chunk]
		copy(out.Rows(ch.Begin, ch.End), r.values)
		received[r.chunk] = true
	}

	var missing []int
	for i, ok := range received {
		if !ok {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %d of %d chunks missing %v",
			ErrInterpolationIncomplete, len(missing), len(chunks), missing)
	}

	log.Printf("INFO: finished spatial interpolation in %s", time.Since(start))
	return out, nil
}

// run computes the chunk's rows in grid order.
func (t workerTask) run() ([]float64, error) {
	rows := t.chunk.Len()
	values := make([]float64, rows*t.lon.Count)

	step := rows / 10
	if step == 0 {
		step = 1
	}

	for r := 0; r < rows; r++ {
		if t.logProgress && r%step == 0 {
			log.Printf("DEBUG: worker %d: %d%%", t.chunk.Index, r*100/rows)
		}

		lat := t.lat.Value(t.chunk.Begin + r)
		for c := 0; c < t.lon.Count; c++ {
			p := geo.ToECEF(lat, t.lon.Value(c), 0)
			neighbors, err := t.index.Query(p, t.k)
			if err != nil {
				return nil, err
			}
			values[r*t.lon.Count+c] = estimate(neighbors, t.times, t.minPerMeter)
		}
	}
	return values, nil
}

// estimate returns the fastest arrival over the candidates: each known
// station's travel time plus the straight-line last mile.
func estimate(neighbors []geo.Neighbor, times []float64, minPerMeter float64) float64 {
	best := grid.Unknown
	for _, n := range neighbors {
		tt := times[n.Index]
		if grid.IsUnknown(tt) {
			continue
		}
		if v := tt + n.Distance*minPerMeter; v < best {
			best = v
		}
	}
	return best
}
