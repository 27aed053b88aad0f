// Package airquality provides clients for the IQAir (AirVisual) and Open-Meteo air quality APIs.
package airquality

import (
	"fmt"
	"time"
)

// Measurement is one air quality observation. Nil fields were not reported.
type Measurement struct {
	AQI           *int
	PM25          *float64
	PM10          *float64
	MainPollutant string
	ObservedAt    time.Time
}

// US EPA AQI band labels
const (
	StatusGood          = "Good"
	StatusModerate      = "Moderate"
	StatusSensitive     = "Unhealthy for Sensitive Groups"
	StatusUnhealthy     = "Unhealthy"
	StatusVeryUnhealthy = "Very Unhealthy"
	StatusHazardous     = "Hazardous"
)

// StatusForAQI maps a US AQI value to its band label
func StatusForAQI(aqi int) string {
	switch {
	case aqi <= 50:
		return StatusGood
	case aqi <= 100:
		return StatusModerate
	case aqi <= 150:
		return StatusSensitive
	case aqi <= 200:
		return StatusUnhealthy
	case aqi <= 300:
		return StatusVeryUnhealthy
	default:
		return StatusHazardous
	}
}

// APIError represents an error from an air quality API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("air quality API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// HTTPStatus lets retry policies classify the error
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// iqairResponse is the nearest_city payload
type iqairResponse struct {
	Status string `json:"status"`
	Data   struct {
		City    string `json:"city"`
		Current struct {
			Pollution struct {
				Timestamp string `json:"ts"`
				AQIUS     int    `json:"aqius"`
				MainUS    string `json:"mainus"`
			} `json:"pollution"`
		} `json:"current"`
	} `json:"data"`
}

// openMeteoResponse is the /air-quality payload with current values
type openMeteoResponse struct {
	Current struct {
		Time  string   `json:"time"`
		PM25  *float64 `json:"pm2_5"`
		PM10  *float64 `json:"pm10"`
		USAQI *float64 `json:"us_aqi"`
	} `json:"current"`
}
