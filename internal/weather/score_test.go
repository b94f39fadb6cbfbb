package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mr1hm/go-flood-alerts/internal/models"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		obs       Observation
		wantScore float64
		wantLevel models.RiskLevel
	}{
		{"dry and calm", Observation{TempC: 32, Humidity: 50, WindSpeed: 2}, 30, models.RiskLow},
		{"cool air bonus", Observation{TempC: 20, Humidity: 50, WindSpeed: 2}, 40, models.RiskMedium},
		{"humid monsoon", Observation{TempC: 27, Humidity: 90, WindSpeed: 6}, 66, models.RiskMedium},
		{"storm", Observation{TempC: 23, Humidity: 95, WindSpeed: 8}, 88, models.RiskHigh},
		{"high boundary", Observation{TempC: 30, Humidity: 100, WindSpeed: 6}, 70, models.RiskHigh},
		{"rounds up to 25", Observation{TempC: 24.6, Humidity: 50, WindSpeed: 0}, 20, models.RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, level := Score(tt.obs)
			assert.InDelta(t, tt.wantScore, score, 1e-9)
			assert.Equal(t, tt.wantLevel, level)
		})
	}
}
