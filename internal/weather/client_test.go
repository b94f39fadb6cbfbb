package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-flood-alerts/internal/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(config.WeatherConfig{BaseURL: srv.URL, APIKey: "test-key", Timeout: 2 * time.Second})
	c.http.SetRetryCount(0)
	return c
}

func TestClient_Current(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "10.1076", q.Get("lat"))
		assert.Equal(t, "76.3516", q.Get("lon"))
		assert.Equal(t, "test-key", q.Get("appid"))
		assert.Equal(t, "metric", q.Get("units"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"weather": [{"description": "heavy intensity rain"}],
			"main": {"temp": 24.2, "humidity": 94},
			"wind": {"speed": 7.5},
			"dt": 1717228800
		}`))
	})

	obs, err := c.Current(context.Background(), 10.1076, 76.3516)
	require.NoError(t, err)
	assert.Equal(t, 24.2, obs.TempC)
	assert.Equal(t, 94.0, obs.Humidity)
	assert.Equal(t, 7.5, obs.WindSpeed)
	assert.Equal(t, "heavy intensity rain", obs.Description)
	assert.Equal(t, time.Unix(1717228800, 0).UTC(), obs.ObservedAt)
}

func TestClient_Current_ErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"cod": 401, "message": "Invalid API key"}`))
	})

	_, err := c.Current(context.Background(), 1, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestClient_Current_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Current(ctx, 1, 2)
	assert.Error(t, err)
}
