package api

import (
	"time"

	"github.com/mr1hm/go-flood-alerts/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// toGeoJSON renders districts as points. Districts never assessed carry a
// null level.
func toGeoJSON(risks []models.DistrictRisk) FeatureCollection {
	features := make([]Feature, 0, len(risks))

	for _, r := range risks {
		props := map[string]any{
			"id":          r.District.ID,
			"name":        r.District.Name,
			"level":       nil,
			"score":       nil,
			"assessed_at": nil,
		}
		if r.Latest != nil {
			props["level"] = r.Latest.Level
			props["score"] = r.Latest.Score
			props["assessed_at"] = r.Latest.AssessedAt
		}

		features = append(features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{r.District.Longitude, r.District.Latitude},
			},
			Properties: props,
		})
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

type userResponse struct {
	ID              int64             `json:"id"`
	Name            string            `json:"name"`
	Email           string            `json:"email"`
	DistrictID      *int64            `json:"district_id"`
	LastRiskLevel   *models.RiskLevel `json:"last_risk_level"`
	LastAlertSentAt *time.Time        `json:"last_alert_sent_at"`
	CreatedAt       time.Time         `json:"created_at"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		DistrictID:      u.TrackedDistrictID,
		LastRiskLevel:   u.LastRiskLevel,
		LastAlertSentAt: u.LastAlertSentAt,
		CreatedAt:       u.CreatedAt,
	}
}

type assessmentResponse struct {
	ID         int64            `json:"id"`
	DistrictID int64            `json:"district_id"`
	Level      models.RiskLevel `json:"level"`
	Score      float64          `json:"score"`
	AssessedAt time.Time        `json:"assessed_at"`
}

func toAssessmentResponse(a *models.RiskAssessment) assessmentResponse {
	return assessmentResponse{
		ID:         a.ID,
		DistrictID: a.DistrictID,
		Level:      a.Level,
		Score:      a.Score,
		AssessedAt: a.AssessedAt,
	}
}
