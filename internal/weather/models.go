package weather

import (
	"fmt"
	"strings"
	"time"
)

// Units is the measurement convention a model was fetched in.
type Units string

const (
	Metric   Units = "metric"
	Imperial Units = "imperial"
)

// AllUnits lists the unit systems fetched for every query.
var AllUnits = []Units{Metric, Imperial}

// ParseUnits maps a query value to Units. An empty value means metric.
func ParseUnits(s string) (Units, error) {
	switch Units(strings.ToLower(strings.TrimSpace(s))) {
	case "", Metric:
		return Metric, nil
	case Imperial:
		return Imperial, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidUnits, s)
	}
}

// TempSymbol returns the temperature suffix used in text output.
func (u Units) TempSymbol() string {
	if u == Imperial {
		return "°F"
	}
	return "°C"
}

// SpeedSymbol returns the wind speed suffix used in text output.
func (u Units) SpeedSymbol() string {
	if u == Imperial {
		return "mph"
	}
	return "m/s"
}

// SpeedWords is the spoken form of SpeedSymbol.
func (u Units) SpeedWords() string {
	if u == Imperial {
		return "miles per hour"
	}
	return "meters per second"
}

// Location represents a resolved place. Name is the display name shown to users.
type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Key returns a canonical string key for logging this location.
func (l Location) Key() string {
	return fmt.Sprintf("%s@%.4f,%.4f", l.Name, l.Lat, l.Lon)
}

// Current is the observation at request time.
type Current struct {
	Timestamp   time.Time `json:"timestamp"`
	Temp        float64   `json:"temp"`
	FeelsLike   float64   `json:"feels_like"`
	Humidity    float64   `json:"humidity"`
	UVI         float64   `json:"uvi"`
	WindSpeed   float64   `json:"wind_speed"`
	Sunrise     time.Time `json:"sunrise"`
	Sunset      time.Time `json:"sunset"`
	Condition   string    `json:"condition"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
}

// Hour is one entry of the hourly forecast.
type Hour struct {
	Timestamp time.Time `json:"timestamp"`
	Temp      float64   `json:"temp"`
	Condition string    `json:"condition"`
	Icon      string    `json:"icon"`
	// Pop is the precipitation probability in [0,1]; nil when the provider omitted it.
	Pop *float64 `json:"pop,omitempty"`
}

// DayTemp holds the daily temperature envelope.
type DayTemp struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Day   float64 `json:"day"`
	Night float64 `json:"night"`
}

// Day is one entry of the daily forecast.
type Day struct {
	Timestamp   time.Time `json:"timestamp"`
	Sunrise     time.Time `json:"sunrise"`
	Sunset      time.Time `json:"sunset"`
	Summary     string    `json:"summary"`
	Temp        DayTemp   `json:"temp"`
	Humidity    float64   `json:"humidity"`
	WindSpeed   float64   `json:"wind_speed"`
	Condition   string    `json:"condition"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Pop         *float64  `json:"pop,omitempty"`
}

// Alert is an active government weather alert.
type Alert struct {
	Event       string     `json:"event"`
	Description string     `json:"description"`
	Sender      string     `json:"sender_name,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
}

// Model is the normalized weather for one location under one unit system.
// A Model is never mutated after Normalize returns it.
type Model struct {
	Location       Location `json:"location"`
	Units          Units    `json:"units"`
	TimezoneOffset int      `json:"timezone_offset"`
	Current        Current  `json:"current"`
	Hourly         []Hour   `json:"hourly"`
	Daily          []Day    `json:"daily"`
	Alerts         []Alert  `json:"alerts"`
}

// Zone returns the fixed zone of the location as reported by the provider.
func (m Model) Zone() *time.Location {
	return time.FixedZone("", m.TimezoneOffset)
}

// Today returns the first daily entry.
func (m Model) Today() (Day, bool) {
	if len(m.Daily) == 0 {
		return Day{}, false
	}
	return m.Daily[0], true
}

// Dual is the metric/imperial pair fetched together for one query.
type Dual struct {
	RunID    string `json:"run_id"`
	Metric   Model  `json:"metric"`
	Imperial Model  `json:"imperial"`
}

// Get selects the model for the given unit system.
func (d Dual) Get(u Units) Model {
	if u == Imperial {
		return d.Imperial
	}
	return d.Metric
}

// Query identifies what the caller asked for: either a city or coordinates.
type Query struct {
	City string
	Lat  *float64
	Lon  *float64
}

// HasCoordinates reports whether both coordinates are present.
func (q Query) HasCoordinates() bool {
	return q.Lat != nil && q.Lon != nil
}

// CoordinatesQuery builds a Query from a latitude/longitude pair.
func CoordinatesQuery(lat, lon float64) Query {
	return Query{Lat: &lat, Lon: &lon}
}
