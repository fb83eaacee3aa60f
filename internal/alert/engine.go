package alert

import (
	"context"
	"fmt"
	"time"
)

// MetricsGetter reads an aggregated metric value over a time window.
// Satisfied by metrics.Repository.
type MetricsGetter interface {
	GetMetricValue(ctx context.Context, metricName, aggregation string, windowStart, windowEnd time.Time) (float64, error)
}

// Engine evaluates alert conditions against live metric values.
type Engine struct {
	metrics MetricsGetter
}

func NewEngine(metrics MetricsGetter) *Engine {
	return &Engine{metrics: metrics}
}

// Evaluate checks every condition over the alert's window and combines
// them per the alert's logic (AND unless set to OR). The returned
// metadata carries per-condition values for the alert history record.
func (e *Engine) Evaluate(ctx context.Context, alert *Alert) (bool, map[string]interface{}, error) {
	windowEnd := time.Now()
	windowStart := windowEnd.Add(-time.Duration(alert.WindowSeconds) * time.Second)

	metadata := make(map[string]interface{}, len(alert.Conditions)+3)
	metCount := 0

	for _, cond := range alert.Conditions {
		value, err := e.metrics.GetMetricValue(ctx, cond.MetricName, cond.Aggregation, windowStart, windowEnd)
		if err != nil {
			return false, nil, fmt.Errorf("get metric %s: %w", cond.MetricName, err)
		}

		met := compare(cond.Operator, value, cond.Threshold)
		if met {
			metCount++
		}

		metadata[cond.MetricName] = map[string]interface{}{
			"value":       value,
			"threshold":   cond.Threshold,
			"operator":    cond.Operator,
			"aggregation": cond.Aggregation,
			"met":         met,
		}
	}

	var triggered bool
	if alert.ConditionLogic == "OR" {
		triggered = metCount > 0
	} else {
		triggered = metCount == len(alert.Conditions)
	}

	metadata["triggered"] = triggered
	metadata["window_start"] = windowStart
	metadata["window_end"] = windowEnd

	return triggered, metadata, nil
}

// ShouldTrigger reports whether the alert is out of its cooldown.
func (e *Engine) ShouldTrigger(alert *Alert, now time.Time) bool {
	if alert.LastTriggeredAt == nil {
		return true
	}

	cooldown := time.Duration(alert.CooldownSeconds) * time.Second
	return now.After(alert.LastTriggeredAt.Add(cooldown))
}

// compare applies a threshold operator. Unknown operators never match.
func compare(operator string, value, threshold float64) bool {
	switch operator {
	case "gt":
		return value > threshold
	case "gte":
		return value >= threshold
	case "lt":
		return value < threshold
	case "lte":
		return value <= threshold
	case "eq":
		return value == threshold
	case "ne":
		return value != threshold
	default:
		return false
	}
}
