package models

import (
	"fmt"
	"strings"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Ordinal maps a level onto its severity rank. Unknown levels rank -1,
// below LOW.
func (r RiskLevel) Ordinal() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	default:
		return -1
	}
}

func (r RiskLevel) Valid() bool {
	return r.Ordinal() >= 0
}

// Higher reports whether r is strictly more severe than other.
func (r RiskLevel) Higher(other RiskLevel) bool {
	return r.Ordinal() > other.Ordinal()
}

func (r RiskLevel) String() string {
	return string(r)
}

func ParseRiskLevel(s string) (RiskLevel, error) {
	level := RiskLevel(strings.ToUpper(strings.TrimSpace(s)))
	if !level.Valid() {
		return "", fmt.Errorf("invalid risk level: %q", s)
	}
	return level, nil
}
