package summary

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-voice/internal/common"
	"github.com/i474232898/weather-voice/internal/weather"
)

// MaxWords is the length the generator is asked to stay under.
const MaxWords = 75

// ErrIncompleteModel is returned for a model without current or daily data.
var ErrIncompleteModel = errors.New("invalid or missing weather data provided")

// AlertsHeader introduces the alert block of the context.
const AlertsHeader = "!!! ACTIVE WEATHER ALERTS:"

const promptTemplate = `Your audience is listening to a voice report, so be natural and easy to understand.

Based on the following data, provide a weather summary in a single, continuous paragraph.
- Open with good morning, good afternoon, or good evening to match the local time.
- Start with the current conditions in %s.
- Mention the day's expected high and low.
- Highlight the single most important forecast event (like rain, snow, strong winds, or clear skies).
- If there are any weather alerts, state them clearly and urgently at the end of the summary.
- Keep the entire summary under %d words.

Weather Data:
%s`

// Compose builds the generator prompt for m as of now.
func Compose(m weather.Model, now time.Time) (string, error) {
	ctx, err := Context(m, now)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(promptTemplate, m.Location.Name, MaxWords, ctx), nil
}

// Context renders the data block of the prompt: one line per fact, then the
// alert block when the model carries alerts.
func Context(m weather.Model, now time.Time) (string, error) {
	today, ok := m.Today()
	if !ok || (m.Current.Timestamp.IsZero() && m.Current.Description == "") {
		return "", ErrIncompleteModel
	}

	zone := m.Zone()
	local := now.In(zone)
	temp := m.Units.TempSymbol()

	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, "- "+format+"\n", args...)
	}

	line("Location: %s", m.Location.Name)
	line("Local Time: %s (%s)", local.Format("15:04"), PartOfDay(local))
	line("Current Temperature: %s%s.", number(m.Current.Temp), temp)
	line("Feels Like: %s%s.", number(m.Current.FeelsLike), temp)
	line("Current Conditions: %s.", m.Current.Description)
	line("Today's High: %s%s.", number(today.Temp.Max), temp)
	line("Today's Low: %s%s.", number(today.Temp.Min), temp)
	line("Today's Forecast: %s.", today.Summary)
	line("Chance of Precipitation: %s.", percent(today.Pop))
	line("Wind Speed: %s %s.", number(m.Current.WindSpeed), m.Units.SpeedWords())
	line("Sunrise: %s.", clock(m.Current.Sunrise, zone))
	line("Sunset: %s.", clock(m.Current.Sunset, zone))

	if len(m.Alerts) > 0 {
		line(AlertsHeader)
		for _, a := range m.Alerts {
			fmt.Fprintf(&b, "  - [%s: %s]\n", a.Event, strings.TrimSpace(common.CollapseLines(a.Description)))
		}
	}

	return strings.TrimSpace(b.String()), nil
}

// PartOfDay names the greeting period for t.
func PartOfDay(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return "morning"
	case h >= 12 && h < 17:
		return "afternoon"
	default:
		return "evening"
	}
}

// number prints v exactly as received, without trailing zeros.
func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func percent(pop *float64) string {
	if pop == nil {
		return "unknown"
	}
	return fmt.Sprintf("%d%%", int(math.Round(*pop*100)))
}

func clock(t time.Time, zone *time.Location) string {
	if t.IsZero() {
		return "none today"
	}
	return t.In(zone).Format("15:04")
}
