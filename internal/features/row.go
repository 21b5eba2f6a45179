package features

// Lookback is the number of hourly steps the sequence model consumes.
const Lookback = 48

// Column names as declared by the trained model artifacts. The model was fitted on the
// Agrabad monitoring station, so every station-bound column carries that suffix.
const (
	ColRain        = "Rain_AGRABAD"
	ColTemperature = "Temp_AGRABAD"
	ColHumidity    = "RH_AGRABAD"
	ColWindSpeed   = "WS_AGRABAD"

	ColHourSin  = "hour_sin"
	ColHourCos  = "hour_cos"
	ColMonthSin = "month_sin"
	ColMonthCos = "month_cos"
	ColWeekend  = "is_weekend"

	ColPM10 = "PM10_AGRABAD"
	ColPM25 = "PM2.5_AGRABAD"
	ColNOx  = "NOX_AGRABAD"
)

// Targets are the pollutant columns predicted by the model, in output order.
var Targets = []string{ColPM10, ColPM25, ColNOx}

// Row is one time step of features keyed by column name.
type Row map[string]float64

// Clone returns an independent copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge combines rows into a new row; later rows win on duplicate keys.
func Merge(rows ...Row) Row {
	out := make(Row)
	for _, r := range rows {
		for k, v := range r {
			out[k] = v
		}
	}
	return out
}

// ZeroPollutants returns a pollutant map with every target set to 0.
func ZeroPollutants() map[string]float64 {
	out := make(map[string]float64, len(Targets))
	for _, t := range Targets {
		out[t] = 0
	}
	return out
}
