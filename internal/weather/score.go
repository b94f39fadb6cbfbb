package weather

import (
	"math"

	"github.com/mr1hm/go-flood-alerts/internal/models"
)

const (
	mediumThreshold = 40
	highThreshold   = 70
)

// Score rates flood risk from humidity, wind and temperature. Temperature is
// rounded to whole degrees before the cool-air check.
func Score(obs Observation) (float64, models.RiskLevel) {
	score := obs.Humidity*0.4 + obs.WindSpeed*5
	if math.Round(obs.TempC) < 25 {
		score += 10
	}

	switch {
	case score < mediumThreshold:
		return score, models.RiskLow
	case score < highThreshold:
		return score, models.RiskMedium
	default:
		return score, models.RiskHigh
	}
}
