package models

import "time"

type District struct {
	ID        int64
	Name      string
	Latitude  float64
	Longitude float64
}

// RiskAssessment is append-only; the newest AssessedAt per district is
// the current one.
type RiskAssessment struct {
	ID         int64
	DistrictID int64
	Level      RiskLevel
	Score      float64
	AssessedAt time.Time
}

type DistrictRisk struct {
	District District
	Latest   *RiskAssessment
}

type WeatherReading struct {
	ID          int64
	DistrictID  int64
	TempC       float64
	Humidity    float64
	WindSpeed   float64 // m/s
	Description string
	ObservedAt  time.Time
}
