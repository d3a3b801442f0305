package models

// WeatherCategory is the food-relevant bucket a city's raw weather maps to.
type WeatherCategory string

const (
	WeatherHot      WeatherCategory = "hot"
	WeatherCold     WeatherCategory = "cold"
	WeatherRainy    WeatherCategory = "rainy"
	WeatherCloudy   WeatherCategory = "cloudy"
	WeatherPleasant WeatherCategory = "pleasant"
	WeatherUnknown  WeatherCategory = "unknown"
)

// WeatherInfo is the weather context attached to a recommendation. TempC is
// nil when the upstream lookup failed or no API key is configured.
type WeatherInfo struct {
	City      string          `json:"city"`
	TempC     *float64        `json:"temp_c"`
	Condition string          `json:"condition"`
	Category  WeatherCategory `json:"category"`
}
