package features

import (
	"fmt"
	"strings"
)

// Observation is a raw current-conditions reading. Nil means the provider omitted the field.
type Observation struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	WindSpeed   *float64 `json:"wind_speed"`
	Rain        *float64 `json:"rain"`
}

// MissingObservationError is returned when a required meteorological field is absent.
type MissingObservationError struct {
	Fields []string
}

func (e *MissingObservationError) Error() string {
	return fmt.Sprintf("missing required observation fields: %s", strings.Join(e.Fields, ", "))
}

// NormalizeMet maps an observation into the meteorological feature columns.
// Rain is reduced to a presence flag and treated as 0 when absent.
func NormalizeMet(obs Observation) (Row, error) {
	var missing []string
	if obs.Temperature == nil {
		missing = append(missing, "temperature")
	}
	if obs.Humidity == nil {
		missing = append(missing, "humidity")
	}
	if obs.WindSpeed == nil {
		missing = append(missing, "wind_speed")
	}
	if len(missing) > 0 {
		return nil, &MissingObservationError{Fields: missing}
	}

	rain := 0.0
	if obs.Rain != nil && *obs.Rain > 0 {
		rain = 1
	}

	return Row{
		ColRain:        rain,
		ColTemperature: *obs.Temperature,
		ColHumidity:    *obs.Humidity,
		ColWindSpeed:   *obs.WindSpeed,
	}, nil
}
