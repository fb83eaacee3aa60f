package alert

import (
	"time"

	"github.com/google/uuid"
)

// Severity ranks how urgently an alert should be acted on. It is
// carried on the webhook payload, not interpreted by the worker.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is a rule over verification outcome metrics. When its
// conditions hold over the window, subscribed webhooks are notified.
type Alert struct {
	ID              uuid.UUID   `json:"id"`
	Name            string      `json:"name"`
	Conditions      []Condition `json:"conditions"`
	ConditionLogic  string      `json:"condition_logic"`
	WindowSeconds   int         `json:"window_seconds"`
	CooldownSeconds int         `json:"cooldown_seconds"`
	Severity        Severity    `json:"severity"`
	Enabled         bool        `json:"enabled"`
	LastTriggeredAt *time.Time  `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Condition compares one metric aggregation against a threshold.
// Operators: gt, gte, lt, lte, eq, ne.
type Condition struct {
	MetricName  string  `json:"metric_name"`
	Aggregation string  `json:"aggregation"`
	Operator    string  `json:"operator"`
	Threshold   float64 `json:"threshold"`
}

// AlertHistory records one firing of an alert, with the metric values
// that tripped it in Metadata.
type AlertHistory struct {
	ID          uuid.UUID              `json:"id"`
	AlertID     uuid.UUID              `json:"alert_id"`
	TriggeredAt time.Time              `json:"triggered_at"`
	ResolvedAt  *time.Time             `json:"resolved_at,omitempty"`
	Status      string                 `json:"status"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}
