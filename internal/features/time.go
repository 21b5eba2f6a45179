package features

import (
	"math"
	"time"
)

// HourUTC truncates t to the top of its hour in UTC.
func HourUTC(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// TimeFeatures encodes ts as cyclic hour/month phases plus a weekend flag.
func TimeFeatures(ts time.Time) Row {
	ts = ts.UTC()
	hour := float64(ts.Hour())
	month := float64(ts.Month())

	weekend := 0.0
	if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
		weekend = 1
	}

	return Row{
		ColHourSin:  math.Sin(2 * math.Pi * hour / 24),
		ColHourCos:  math.Cos(2 * math.Pi * hour / 24),
		ColMonthSin: math.Sin(2 * math.Pi * month / 12),
		ColMonthCos: math.Cos(2 * math.Pi * month / 12),
		ColWeekend:  weekend,
	}
}

// BuildRow combines the time encoding of ts with normalized meteorological features.
func BuildRow(ts time.Time, met Row) Row {
	return Merge(met, TimeFeatures(ts))
}
