// Package alert decides when a user should be told about flood risk in their
// district and carries those decisions out.
package alert

import (
	"fmt"
	"time"

	"github.com/mr1hm/go-flood-alerts/internal/models"
)

// DefaultCooldown is the minimum gap between two alerts to the same user.
const DefaultCooldown = 6 * time.Hour

type Policy struct {
	Cooldown time.Duration
}

var DefaultPolicy = Policy{Cooldown: DefaultCooldown}

// ShouldSend applies three gates in order:
//
//  1. cooldown: an alert sent less than Cooldown before now blocks, even on escalation
//  2. first contact: a user with no recorded level is always alerted
//  3. escalation: otherwise alert only when current is strictly more severe than last
//
// An unrecognized current level never alerts.
func (p Policy) ShouldSend(current models.RiskLevel, last *models.RiskLevel, lastAlertSentAt *time.Time, now time.Time) bool {
	if !current.Valid() {
		return false
	}

	if lastAlertSentAt != nil && now.Sub(*lastAlertSentAt) < p.Cooldown {
		return false
	}

	// NOTE: fires at LOW too; every user hears once as soon as any level is known.
	if last == nil {
		return true
	}

	return current.Higher(*last)
}

// ShouldSendAlert is ShouldSend under the default six hour cooldown.
func ShouldSendAlert(current models.RiskLevel, last *models.RiskLevel, lastAlertSentAt *time.Time, now time.Time) bool {
	return DefaultPolicy.ShouldSend(current, last, lastAlertSentAt, now)
}

func Subject(level models.RiskLevel) string {
	return fmt.Sprintf("Flood Risk %s", level)
}

func Body(district string, level models.RiskLevel) string {
	return fmt.Sprintf("Flood risk in %s is now %s. Please take precautions.", district, level)
}

// LogMessage is the text stored in the alert log.
func LogMessage(level models.RiskLevel) string {
	return fmt.Sprintf("Flood risk escalated to %s", level)
}
