package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/go-flood-alerts/internal/alert"
	"github.com/mr1hm/go-flood-alerts/internal/events"
	"github.com/mr1hm/go-flood-alerts/internal/geo"
	"github.com/mr1hm/go-flood-alerts/internal/models"
	"github.com/mr1hm/go-flood-alerts/internal/repository"
)

const (
	defaultAlertLimit = 5
	maxAlertLimit     = 100
)

type Store interface {
	repository.UserRepository
	repository.DistrictRepository
	repository.AlertRepository
	Ping(ctx context.Context) error
	AddAssessment(ctx context.Context, a *models.RiskAssessment) error
}

type Handler struct {
	store       Store
	runner      alert.Runner
	broadcaster *events.Broadcaster
}

func NewHandler(store Store, runner alert.Runner, broadcaster *events.Broadcaster) *Handler {
	return &Handler{
		store:       store,
		runner:      runner,
		broadcaster: broadcaster,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/districts", h.getDistricts)
	api.POST("/districts/:id/assessments", h.createAssessment)
	api.POST("/users", h.createUser)
	api.POST("/users/:id/location", h.updateLocation)
	api.GET("/alerts", h.getAlerts)
	api.GET("/alerts/stream", h.streamAlerts)
	api.POST("/alerts/run", h.runAlerts)
}

func (h *Handler) health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) getDistricts(c *gin.Context) {
	risks, err := h.store.ListDistrictRisks(c.Request.Context())
	if err != nil {
		slog.Error("error listing districts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to fetch districts",
		})
		return
	}

	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, toGeoJSON(risks))
}

type assessmentRequest struct {
	Level string  `json:"level" binding:"required"`
	Score float64 `json:"score"`
}

func (h *Handler) createAssessment(c *gin.Context) {
	districtID, ok := pathID(c)
	if !ok {
		return
	}

	var req assessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "level is required"})
		return
	}
	level, err := models.ParseRiskLevel(req.Level)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	district, err := h.store.GetDistrict(ctx, districtID)
	if err != nil {
		slog.Error("error loading district", "district_id", districtID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load district"})
		return
	}
	if district == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "district not found"})
		return
	}

	a := &models.RiskAssessment{
		DistrictID: districtID,
		Level:      level,
		Score:      req.Score,
		AssessedAt: time.Now().UTC(),
	}
	if err := h.store.AddAssessment(ctx, a); err != nil {
		slog.Error("error adding assessment", "district_id", districtID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record assessment"})
		return
	}

	c.JSON(http.StatusCreated, toAssessmentResponse(a))
}

type createUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and a valid email are required"})
		return
	}

	u := &models.User{Name: req.Name, Email: req.Email}
	if err := h.store.CreateUser(c.Request.Context(), u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		slog.Error("error creating user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(u))
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

func (h *Handler) updateLocation(c *gin.Context) {
	userID, ok := pathID(c)
	if !ok {
		return
	}

	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil || !geo.ValidCoordinate(*req.Latitude, *req.Longitude) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude required"})
		return
	}
	lat, lon := *req.Latitude, *req.Longitude

	ctx := c.Request.Context()
	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		slog.Error("error loading user", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	districts, err := h.store.ListDistricts(ctx)
	if err != nil {
		slog.Error("error listing districts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	nearest, km, found := geo.Nearest(lat, lon, districts)
	if !found {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no districts configured"})
		return
	}

	if err := h.store.UpdateUserLocation(ctx, userID, lat, lon, nearest.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		slog.Error("error updating location", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"district":   nearest.Name,
		"districtId": nearest.ID,
		"distanceKm": math.Round(km*100) / 100,
	})
}

func (h *Handler) getAlerts(c *gin.Context) {
	limit := defaultAlertLimit
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 {
			limit = min(lim, maxAlertLimit)
		}
	}

	alerts, err := h.store.ListAlerts(c.Request.Context(), limit)
	if err != nil {
		slog.Error("error listing alerts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to fetch alerts"})
		return
	}
	if alerts == nil {
		alerts = []models.AlertLogEntry{}
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// streamAlerts sends each recorded alert as a server-sent "alert" event until
// the client disconnects or the broadcaster closes.
func (h *Handler) streamAlerts(c *gin.Context) {
	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case entry, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("alert", entry)
			return true
		}
	})
}

func (h *Handler) runAlerts(c *gin.Context) {
	summary, err := h.runner.Run(c.Request.Context())
	if errors.Is(err, alert.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": "alert engine run already in progress"})
		return
	}
	if err != nil {
		slog.Error("alert engine run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to run alert engine"})
		return
	}

	// per-user failures still answer 200; success is false when any occurred
	c.JSON(http.StatusOK, gin.H{"success": summary.Failed == 0, "summary": summary})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
