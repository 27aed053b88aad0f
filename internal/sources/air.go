package sources

import (
	"context"
	"errors"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/airquality"
	"github.com/ternarybob/todayvn/internal/common"
)

// Unknown marks a metric the source did not report
const Unknown = "N/A"

// AirQualityReading is the current air quality. AQI and PM values are bare numbers
// or Unknown; Status is the English AQI band. Provider names where the AQI came from.
type AirQualityReading struct {
	AQI      string
	Status   string
	PM25     string
	PM10     string
	Provider string
}

// AirQualityFetcher prefers IQAir for AQI when a key is configured and takes particulates
// and the fallback AQI from Open-Meteo
type AirQualityFetcher struct {
	config common.AirQualityConfig
	iqair  *airquality.IQAirClient
	meteo  *airquality.OpenMeteoClient
	logger arbor.ILogger
}

// NewAirQualityFetcher creates the air quality fetcher. iqair may be nil.
func NewAirQualityFetcher(config common.AirQualityConfig, iqair *airquality.IQAirClient, meteo *airquality.OpenMeteoClient, logger arbor.ILogger) *AirQualityFetcher {
	return &AirQualityFetcher{
		config: config,
		iqair:  iqair,
		meteo:  meteo,
		logger: logger,
	}
}

// FetchAirQuality fails only when every configured provider returned an error. A provider
// that answered without numbers leaves those fields Unknown.
func (f *AirQualityFetcher) FetchAirQuality(ctx context.Context) (AirQualityReading, error) {
	reading := AirQualityReading{AQI: Unknown, Status: Unknown, PM25: Unknown, PM10: Unknown}
	var errs []error
	answered := 0

	if f.iqair != nil {
		m, err := f.iqair.NearestCity(ctx, f.config.Latitude, f.config.Longitude)
		if err != nil {
			errs = append(errs, err)
			f.logger.Warn().Err(err).Msg("IQAir request failed, falling back to Open-Meteo AQI")
		} else {
			answered++
			if m.AQI != nil {
				reading.AQI = strconv.Itoa(*m.AQI)
				reading.Status = airquality.StatusForAQI(*m.AQI)
				reading.Provider = "IQAir"
			}
		}
	}

	if f.meteo != nil {
		m, err := f.meteo.Current(ctx, f.config.Latitude, f.config.Longitude)
		if err != nil {
			errs = append(errs, err)
			f.logger.Warn().Err(err).Msg("Open-Meteo request failed")
		} else {
			answered++
			if reading.AQI == Unknown && m.AQI != nil {
				reading.AQI = strconv.Itoa(*m.AQI)
				reading.Status = airquality.StatusForAQI(*m.AQI)
				reading.Provider = "Open-Meteo"
			}
			reading.PM25 = formatMetric(m.PM25)
			reading.PM10 = formatMetric(m.PM10)
		}
	}

	if answered == 0 {
		if len(errs) == 0 {
			errs = append(errs, errors.New("no air quality provider configured"))
		}
		return reading, fetchFailure("air quality", errors.Join(errs...))
	}

	if reading.AQI == Unknown && reading.PM25 == Unknown && reading.PM10 == Unknown {
		f.logger.Info().Int("providers", answered).Msg("Air quality providers reported no values")
	}

	return reading, nil
}

func formatMetric(value *float64) string {
	if value == nil {
		return Unknown
	}
	return strconv.FormatFloat(*value, 'f', 1, 64)
}
