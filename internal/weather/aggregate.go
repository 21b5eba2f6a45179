package weather

import "time"

// AggregateReadings combines provider readings into one Conditions value.
// Each numeric field is averaged over the providers that reported it and stays nil when
// none did. The timestamp is the newest reading's.
func AggregateReadings(readings []Reading) Conditions {
	if len(readings) == 0 {
		return Conditions{Reading: Reading{Timestamp: time.Now().UTC()}}
	}

	var temp, humidity, wind, rain mean
	providers := make([]ProviderContribution, 0, len(readings))
	var newestTS time.Time

	for _, r := range readings {
		temp.add(r.TemperatureC)
		humidity.add(r.HumidityPct)
		wind.add(r.WindSpeedKmh)
		rain.add(r.RainMm)

		if r.Timestamp.After(newestTS) {
			newestTS = r.Timestamp
		}

		providers = append(providers, ProviderContribution{
			ProviderName: r.ProviderName,
			Timestamp:    r.Timestamp,
		})
	}

	if newestTS.IsZero() {
		newestTS = time.Now().UTC()
	}

	name := readings[0].ProviderName
	if len(readings) > 1 {
		name = "aggregate"
	}

	return Conditions{
		Reading: Reading{
			ProviderName: name,
			Timestamp:    newestTS,
			TemperatureC: temp.value(),
			HumidityPct:  humidity.value(),
			WindSpeedKmh: wind.value(),
			RainMm:       rain.value(),
		},
		Providers: providers,
	}
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m *mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	return ptr(m.sum / float64(m.n))
}
