package providers

import (
	"time"

	"github.com/i474232898/weather-voice/internal/weather"
)

// OneCallPayload is the subset of the OpenWeather One Call 3.0 response the
// service reads. Provider shape knowledge stays in this file.
type OneCallPayload struct {
	Lat            float64        `json:"lat"`
	Lon            float64        `json:"lon"`
	Timezone       string         `json:"timezone"`
	TimezoneOffset int            `json:"timezone_offset"`
	Current        oneCallCurrent `json:"current"`
	Hourly         []oneCallHour  `json:"hourly"`
	Daily          []oneCallDay   `json:"daily"`
	Alerts         []oneCallAlert `json:"alerts"`
}

type oneCallCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type oneCallCurrent struct {
	Dt        int64              `json:"dt"`
	Sunrise   int64              `json:"sunrise"`
	Sunset    int64              `json:"sunset"`
	Temp      float64            `json:"temp"`
	FeelsLike float64            `json:"feels_like"`
	Humidity  float64            `json:"humidity"`
	Uvi       float64            `json:"uvi"`
	WindSpeed float64            `json:"wind_speed"`
	Weather   []oneCallCondition `json:"weather"`
}

type oneCallHour struct {
	Dt      int64              `json:"dt"`
	Temp    float64            `json:"temp"`
	Pop     *float64           `json:"pop"`
	Weather []oneCallCondition `json:"weather"`
}

type oneCallDay struct {
	Dt      int64  `json:"dt"`
	Sunrise int64  `json:"sunrise"`
	Sunset  int64  `json:"sunset"`
	Summary string `json:"summary"`
	Temp    struct {
		Min   float64 `json:"min"`
		Max   float64 `json:"max"`
		Day   float64 `json:"day"`
		Night float64 `json:"night"`
	} `json:"temp"`
	Humidity  float64            `json:"humidity"`
	WindSpeed float64            `json:"wind_speed"`
	Pop       *float64           `json:"pop"`
	Weather   []oneCallCondition `json:"weather"`
}

type oneCallAlert struct {
	SenderName  string `json:"sender_name"`
	Event       string `json:"event"`
	Start       int64  `json:"start"`
	End         int64  `json:"end"`
	Description string `json:"description"`
}

const maxHourly = 24

// Normalize converts a One Call payload into a weather.Model for loc.
// It never fails: missing arrays become empty slices and missing epochs
// become zero times.
func Normalize(p OneCallPayload, loc weather.Location, units weather.Units) weather.Model {
	if loc.Name == "" {
		loc.Name = weather.CurrentLocationName
	}

	cur := firstCondition(p.Current.Weather)
	m := weather.Model{
		Location:       loc,
		Units:          units,
		TimezoneOffset: p.TimezoneOffset,
		Current: weather.Current{
			Timestamp:   epoch(p.Current.Dt),
			Temp:        p.Current.Temp,
			FeelsLike:   p.Current.FeelsLike,
			Humidity:    p.Current.Humidity,
			UVI:         p.Current.Uvi,
			WindSpeed:   p.Current.WindSpeed,
			Sunrise:     epoch(p.Current.Sunrise),
			Sunset:      epoch(p.Current.Sunset),
			Condition:   cur.Main,
			Description: cur.Description,
			Icon:        cur.Icon,
		},
	}

	hourly := p.Hourly
	if len(hourly) > maxHourly {
		hourly = hourly[:maxHourly]
	}
	m.Hourly = make([]weather.Hour, 0, len(hourly))
	for _, h := range hourly {
		c := firstCondition(h.Weather)
		m.Hourly = append(m.Hourly, weather.Hour{
			Timestamp: epoch(h.Dt),
			Temp:      h.Temp,
			Condition: c.Main,
			Icon:      c.Icon,
			Pop:       copyFloat(h.Pop),
		})
	}

	m.Daily = make([]weather.Day, 0, len(p.Daily))
	for _, d := range p.Daily {
		c := firstCondition(d.Weather)
		m.Daily = append(m.Daily, weather.Day{
			Timestamp: epoch(d.Dt),
			Sunrise:   epoch(d.Sunrise),
			Sunset:    epoch(d.Sunset),
			Summary:   d.Summary,
			Temp: weather.DayTemp{
				Min:   d.Temp.Min,
				Max:   d.Temp.Max,
				Day:   d.Temp.Day,
				Night: d.Temp.Night,
			},
			Humidity:    d.Humidity,
			WindSpeed:   d.WindSpeed,
			Condition:   c.Main,
			Description: c.Description,
			Icon:        c.Icon,
			Pop:         copyFloat(d.Pop),
		})
	}

	m.Alerts = make([]weather.Alert, 0, len(p.Alerts))
	for _, a := range p.Alerts {
		m.Alerts = append(m.Alerts, weather.Alert{
			Event:       a.Event,
			Description: a.Description,
			Sender:      a.SenderName,
			Start:       optionalEpoch(a.Start),
			End:         optionalEpoch(a.End),
		})
	}

	return m
}

func firstCondition(items []oneCallCondition) oneCallCondition {
	if len(items) == 0 {
		return oneCallCondition{}
	}
	return items[0]
}

func epoch(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func optionalEpoch(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := epoch(sec)
	return &t
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
