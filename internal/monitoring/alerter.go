package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/heatsafenet/hubsite/internal/config"
	"github.com/heatsafenet/hubsite/internal/model"
)

// defaultMinRuns is the sample size below which rate alerts stay quiet.
const defaultMinRuns = 5

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertSolveFailureRate  AlertType = "solve_failure_rate"
	AlertHeuristicRate     AlertType = "heuristic_rate"
	AlertDataInconsistency AlertType = "data_inconsistency"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *Alerter) minRuns() int {
	if a.cfg.MinRuns > 0 {
		return a.cfg.MinRuns
	}
	return defaultMinRuns
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	finished := snap.Succeeded + snap.Failed
	if finished >= a.minRuns() && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertSolveFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Solve failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.Failed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.Failed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	// Heuristic share is measured against successful solves only.
	if a.cfg.HeuristicRateThreshold > 0 && snap.Succeeded >= a.minRuns() && snap.HeuristicRate > a.cfg.HeuristicRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertHeuristicRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%.1f%% of solves in last %dh were not proven optimal (threshold %.1f%%)",
				snap.HeuristicRate*100, snap.LookbackHours, a.cfg.HeuristicRateThreshold*100,
			),
			Details: map[string]any{
				"heuristic_rate": snap.HeuristicRate,
				"threshold":      a.cfg.HeuristicRateThreshold,
				"heuristic":      snap.Heuristic,
				"succeeded":      snap.Succeeded,
			},
			Timestamp: now,
		})
	}

	if n := snap.ByCode[model.CodeDataInconsistency]; n > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertDataInconsistency,
			Severity: "high",
			Message:  fmt.Sprintf("%d solve(s) failed on inconsistent instance data in last %dh", n, snap.LookbackHours),
			Details: map[string]any{
				"failed_count": n,
				"total_runs":   snap.Total,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
