package domain

import "time"

// Attention thresholds for the usage service.
const (
	TrialAttentionWindow = 3 * 24 * time.Hour
	UsageWarningRatio    = 0.9
)

// IssueSeverity orders issues for display.
type IssueSeverity string

const (
	SeverityWarning  IssueSeverity = "warning"
	SeverityCritical IssueSeverity = "critical"
)

// Issue is one advisory finding from the usage service. It never blocks
// an operation; enforcement is a separate concern.
type Issue struct {
	Kind     string        `json:"kind"`
	Severity IssueSeverity `json:"severity"`
	Message  string        `json:"message"`
	Action   string        `json:"action"`
}
