package aggregator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/common"
	"github.com/ternarybob/todayvn/internal/models"
	"github.com/ternarybob/todayvn/internal/services/script"
	"github.com/ternarybob/todayvn/internal/services/translator"
	"github.com/ternarybob/todayvn/internal/sources"
)

func TestCollect_WeatherNarration(t *testing.T) {
	registry := &sources.Registry{
		News: []sources.Fetcher{
			&fakeFetcher{name: "VnExpress", priority: models.PriorityP2, items: []models.Item{news("v")}},
		},
		Weather: fakeWeather{reading: sources.WeatherReading{Temp: "29", Humidity: "68", Condition: "Nhiều mây, không mưa"}},
	}
	svc, _ := newTestService(t, registry, translator.NewWeatherTranslator(nil, arbor.NewLogger()))

	doc := svc.Collect(context.Background(), target)
	narration, err := script.Render(doc)

	require.NoError(t, err)
	assert.Contains(t, narration, "흐림")
	assert.Contains(t, narration, "29")
	assert.Contains(t, narration, "68")
	assert.NotContains(t, narration, "Nhiều mây")
	assert.NotContains(t, narration, "%")
	assert.NotContains(t, narration, "°")
}

func TestCollect_AirItemWithUnknownValues(t *testing.T) {
	registry := &sources.Registry{
		AirQuality: fakeAir{reading: sources.AirQualityReading{
			AQI: sources.Unknown, Status: sources.Unknown, PM25: sources.Unknown, PM10: sources.Unknown,
		}},
	}
	svc, _ := newTestService(t, registry, nil)

	doc := svc.Collect(context.Background(), target)
	safety := doc.Section(common.SectionSafety)
	require.NotNil(t, safety)
	require.Len(t, safety.Items, 1)

	air, ok := safety.Items[0].(models.AirQualityItem)
	require.True(t, ok)
	assert.Equal(t, "공기질", air.Title)
	assert.Empty(t, air.Content)
	assert.Equal(t, sources.Unknown, air.AQI)

	narration, err := script.Render(doc)
	require.NoError(t, err)
	assert.Contains(t, narration, "공기질")
	assert.NotContains(t, narration, "N/A")
	assert.NotContains(t, narration, "대기질 지수")
}
