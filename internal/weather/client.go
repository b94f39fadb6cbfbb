// Package weather fetches current conditions from OpenWeather and turns
// them into a flood risk score.
package weather

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mr1hm/go-flood-alerts/internal/config"
)

type currentResponse struct {
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Dt int64 `json:"dt"` // unix seconds
}

type errorResponse struct {
	Message string `json:"message"`
}

// Observation is a single reading in metric units.
type Observation struct {
	TempC       float64
	Humidity    float64 // percent
	WindSpeed   float64 // m/s
	Description string
	ObservedAt  time.Time
}

type Client struct {
	http   *resty.Client
	apiKey string
}

func NewClient(cfg config.WeatherConfig) *Client {
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		SetHeader("Accept", "application/json")

	return &Client{http: rc, apiKey: cfg.APIKey}
}

func (c *Client) Current(ctx context.Context, lat, lon float64) (*Observation, error) {
	var (
		data    currentResponse
		errBody errorResponse
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":   strconv.FormatFloat(lat, 'f', -1, 64),
			"lon":   strconv.FormatFloat(lon, 'f', -1, 64),
			"appid": c.apiKey,
			"units": "metric",
		}).
		SetResult(&data).
		SetError(&errBody).
		Get("/data/2.5/weather")
	if err != nil {
		return nil, fmt.Errorf("error fetching weather: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status code: %d - message: %s", resp.StatusCode(), errBody.Message)
	}

	obs := &Observation{
		TempC:      data.Main.Temp,
		Humidity:   data.Main.Humidity,
		WindSpeed:  data.Wind.Speed,
		ObservedAt: time.Unix(data.Dt, 0).UTC(),
	}
	if len(data.Weather) > 0 {
		obs.Description = data.Weather[0].Description
	}
	if data.Dt == 0 {
		obs.ObservedAt = time.Now().UTC()
	}
	return obs, nil
}
