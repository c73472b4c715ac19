package traveltime

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/i474232898/travel-time-contours/internal/geo"
)

// Station is one physical stop with an optional measured travel time from
// the departure station.
type Station struct {
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`

	// TravelTimeMin is nil when no travel time is known.
	TravelTimeMin *float64 `json:"travelTimeMin,omitempty"`
}

// TravelTime returns the known travel time in minutes.
func (s Station) TravelTime() (float64, bool) {
	if s.TravelTimeMin == nil {
		return 0, false
	}
	return *s.TravelTimeMin, true
}

// Key returns a canonical key for matching table entries to stations.
func Key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// StationSet is an ordered, immutable collection of stations. Positions are
// stable for the lifetime of the set.
type StationSet struct {
	stations []Station
}

// NewStationSet validates and copies stations.
func NewStationSet(stations []Station) (*StationSet, error) {
	out := make([]Station, len(stations))
	for i, s := range stations {
		if math.IsNaN(s.Lat) || math.IsInf(s.Lat, 0) || math.IsNaN(s.Lon) || math.IsInf(s.Lon, 0) {
			return nil, fmt.Errorf("station %q has non-finite position (%v, %v)", s.Code, s.Lat, s.Lon)
		}
		if tt, ok := s.TravelTime(); ok {
			if tt < 0 || math.IsNaN(tt) || math.IsInf(tt, 0) {
				return nil, fmt.Errorf("station %q has invalid travel time %v", s.Code, tt)
			}
			v := tt
			s.TravelTimeMin = &v
		}
		out[i] = s
	}
	return &StationSet{stations: out}, nil
}

// Len returns the number of stations.
func (s *StationSet) Len() int {
	return len(s.stations)
}

// At returns the station at position i.
func (s *StationSet) At(i int) Station {
	return s.stations[i]
}

// Stations returns a copy of all stations.
func (s *StationSet) Stations() []Station {
	out := make([]Station, len(s.stations))
	copy(out, s.stations)
	return out
}

// KnownCount returns how many stations carry a travel time.
func (s *StationSet) KnownCount() int {
	n := 0
	for _, st := range s.stations {
		if st.TravelTimeMin != nil {
			n++
		}
	}
	return n
}

// Positions returns the ECEF position of every station at altitude 0.
func (s *StationSet) Positions() []geo.Vec3 {
	out := make([]geo.Vec3, len(s.stations))
	for i, st := range s.stations {
		out[i] = geo.ToECEF(st.Lat, st.Lon, 0)
	}
	return out
}

// Find returns the station whose code or name matches ref.
func (s *StationSet) Find(ref string) (Station, bool) {
	k := Key(ref)
	for _, st := range s.stations {
		if Key(st.Code) == k || Key(st.Name) == k {
			return st, true
		}
	}
	return Station{}, false
}

// Nearest returns the station closest to (lat, lon) along the great circle
// and its distance in metres.
func (s *StationSet) Nearest(lat, lon float64) (Station, float64, bool) {
	best, bestDist := -1, math.Inf(1)
	for i, st := range s.stations {
		if d := geo.Haversine(lat, lon, st.Lat, st.Lon); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Station{}, 0, false
	}
	return s.stations[best], bestDist, true
}

// WithTravelTimes returns a new set where every station takes its travel
// time from table. Stations missing from the table are unknown. The
// departure station itself is reachable in zero minutes.
func (s *StationSet) WithTravelTimes(table Table) *StationSet {
	times := table.lookup()
	dep := Key(table.Departure)

	out := make([]Station, len(s.stations))
	for i, st := range s.stations {
		st.TravelTimeMin = nil
		if v, ok := times[Key(st.Code)]; ok {
			st.TravelTimeMin = &v
		} else if v, ok := times[Key(st.Name)]; ok {
			st.TravelTimeMin = &v
		}
		if dep != "" && (Key(st.Code) == dep || Key(st.Name) == dep) {
			zero := 0.0
			st.TravelTimeMin = &zero
		}
		out[i] = st
	}
	return &StationSet{stations: out}
}

// TableEntry is the shortest measured trip to one destination.
type TableEntry struct {
	Name string `json:"name"`
	Code string `json:"code,omitempty"`

	// TravelTimeMin is nil when the planner recorded no minute count.
	TravelTimeMin     *float64 `json:"travel_time_min,omitempty"`
	TravelTimePlanned string   `json:"travel_time_planned,omitempty"`
}

// Minutes returns the travel time, falling back to the planned "H:MM"
// duration when no minute count was recorded. An entry with neither is
// unknown.
func (e TableEntry) Minutes() (float64, bool) {
	if e.TravelTimeMin != nil {
		v := *e.TravelTimeMin
		return v, v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
	}
	if e.TravelTimePlanned == "" {
		return 0, false
	}
	h, m, ok := strings.Cut(strings.TrimSpace(e.TravelTimePlanned), ":")
	if !ok {
		return 0, false
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 {
		return 0, false
	}
	mins, err := strconv.Atoi(m)
	if err != nil || mins < 0 || mins >= 60 {
		return 0, false
	}
	return float64(hours*60 + mins), true
}

// Table is the travel-time table measured from one departure station.
type Table struct {
	Departure string       `json:"departure,omitempty"`
	Stations  []TableEntry `json:"stations"`
}

// lookup indexes entries by code and name; the shortest time wins on duplicates.
func (t Table) lookup() map[string]float64 {
	m := make(map[string]float64, 2*len(t.Stations))
	put := func(k string, v float64) {
		if k == "" {
			return
		}
		if cur, ok := m[k]; !ok || v < cur {
			m[k] = v
		}
	}
	for _, e := range t.Stations {
		v, ok := e.Minutes()
		if !ok {
			continue
		}
		put(Key(e.Code), v)
		put(Key(e.Name), v)
	}
	return m
}
