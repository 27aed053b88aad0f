package models

// ItemKind discriminates the Item union
type ItemKind string

const (
	ItemKindNews        ItemKind = "news"
	ItemKindWeather     ItemKind = "weather"
	ItemKindAirQuality  ItemKind = "air_quality"
	ItemKindEarthquake  ItemKind = "earthquake"
	ItemKindPlaceholder ItemKind = "placeholder"
)

// Item is one unit of content within a section. The concrete types below are the
// only implementations; consumers switch on the concrete type or on Kind().
type Item interface {
	Kind() ItemKind
	Base() ItemBase
}

// ItemBase holds the fields every item may carry
type ItemBase struct {
	Title   string `yaml:"title,omitempty"`
	Content string `yaml:"content,omitempty"`
	URL     string `yaml:"url,omitempty"`
	Note    string `yaml:"note,omitempty"`
}

// Speakable reports whether the item has a title or content
func (b ItemBase) Speakable() bool {
	return b.Title != "" || b.Content != ""
}

// NewsItem is a single article; Content is pre-truncated at ingestion
type NewsItem struct {
	ItemBase `yaml:",inline"`
	Date     string `yaml:"date,omitempty"` // source-native date text
}

func (NewsItem) Kind() ItemKind { return ItemKindNews }
func (i NewsItem) Base() ItemBase { return i.ItemBase }

// WeatherItem is a weather reading. Numeric fields hold bare numbers ("29", "68");
// empty or "N/A" means unknown.
type WeatherItem struct {
	ItemBase   `yaml:",inline"`
	Temp       string `yaml:"temp,omitempty"`
	Humidity   string `yaml:"humidity,omitempty"`
	RainChance string `yaml:"rain_chance,omitempty"`
	Condition  string `yaml:"condition,omitempty"` // raw source condition
}

func (WeatherItem) Kind() ItemKind { return ItemKindWeather }
func (i WeatherItem) Base() ItemBase { return i.ItemBase }

// AirQualityItem is an air quality reading
type AirQualityItem struct {
	ItemBase `yaml:",inline"`
	AQI      string `yaml:"aqi,omitempty"`
	Status   string `yaml:"status,omitempty"`
	PM25     string `yaml:"pm25,omitempty"`
	PM10     string `yaml:"pm10,omitempty"`
}

func (AirQualityItem) Kind() ItemKind { return ItemKindAirQuality }
func (i AirQualityItem) Base() ItemBase { return i.ItemBase }

// EarthquakeItem is one seismic bulletin
type EarthquakeItem struct {
	ItemBase `yaml:",inline"`
	Date     string `yaml:"date,omitempty"`
}

func (EarthquakeItem) Kind() ItemKind { return ItemKindEarthquake }
func (i EarthquakeItem) Base() ItemBase { return i.ItemBase }

// PlaceholderItem stands in for a P0 section that produced nothing
type PlaceholderItem struct {
	ItemBase `yaml:",inline"`
}

func (PlaceholderItem) Kind() ItemKind { return ItemKindPlaceholder }
func (i PlaceholderItem) Base() ItemBase { return i.ItemBase }
