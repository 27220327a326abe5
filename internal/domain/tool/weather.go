package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// WeatherReading is one observation returned by a weather collaborator.
type WeatherReading struct {
	TempC     int
	TempF     int
	Condition string
	Humidity  int
}

// WeatherService is the collaborator boundary for weather lookups, kept as
// an interface so dispatcher tests can inject deterministic fakes without
// touching retry or timeout logic.
type WeatherService interface {
	Fetch(ctx context.Context, location string) (WeatherReading, error)
}

// StaticWeather serves a fixed table of readings, with a bland default for
// unknown locations. Stands in for a real weather API.
type StaticWeather struct {
	table map[string]WeatherReading
}

// NewStaticWeather returns the built-in observation table.
func NewStaticWeather() *StaticWeather {
	return &StaticWeather{table: map[string]WeatherReading{
		"New York, NY":      {TempC: 22, TempF: 72, Condition: "Partly cloudy", Humidity: 65},
		"San Francisco, CA": {TempC: 18, TempF: 64, Condition: "Foggy", Humidity: 80},
		"London, UK":        {TempC: 15, TempF: 59, Condition: "Rainy", Humidity: 85},
		"Tokyo, Japan":      {TempC: 25, TempF: 77, Condition: "Clear", Humidity: 60},
	}}
}

func (s *StaticWeather) Fetch(_ context.Context, location string) (WeatherReading, error) {
	if r, ok := s.table[location]; ok {
		return r, nil
	}
	return WeatherReading{TempC: 20, TempF: 68, Condition: "Unknown", Humidity: 50}, nil
}

// WeatherHandler formats a reading from the collaborator into the tool payload.
type WeatherHandler struct {
	svc WeatherService
}

// NewWeatherHandler wraps svc as the get_weather handler.
func NewWeatherHandler(svc WeatherService) *WeatherHandler {
	return &WeatherHandler{svc: svc}
}

func (h *WeatherHandler) Execute(ctx context.Context, args map[string]any) (json.RawMessage, error) {
	location, _ := args["location"].(string)
	unit, _ := args["unit"].(string)
	if unit == "" {
		unit = "celsius"
	}

	reading, err := h.svc.Fetch(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("%w: weather lookup: %v", ErrExecution, err)
	}

	temp := reading.TempC
	symbol := "°C"
	if unit == "fahrenheit" {
		temp = reading.TempF
		symbol = "°F"
	}

	return json.Marshal(map[string]any{
		"location":    location,
		"temperature": fmt.Sprintf("%d%s", temp, symbol),
		"condition":   reading.Condition,
		"humidity":    fmt.Sprintf("%d%%", reading.Humidity),
	})
}
