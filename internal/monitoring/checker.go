package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/heatsafenet/hubsite/internal/config"
)

const defaultCheckInterval = 5 * time.Minute

// Checker evaluates run health on a fixed interval.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	lookback  int
	interval  time.Duration
	log       *zap.Logger
}

func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	interval := time.Duration(cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	return &Checker{
		collector: collector,
		alerter:   alerter,
		lookback:  cfg.LookbackWindowHours,
		interval:  interval,
		log:       zap.L().With(zap.String("component", "monitoring.checker")),
	}
}

// Interval is the effective time between checks.
func (c *Checker) Interval() time.Duration { return c.interval }

// Run calls Check every Interval until ctx ends.
func (c *Checker) Run(ctx context.Context) {
	c.log.Info("monitoring: watching solve runs",
		zap.Duration("interval", c.interval),
		zap.Int("lookback_hours", c.lookback),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("monitoring: run watch stopped")
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check evaluates one snapshot of the lookback window and delivers any
// alerts it raises. A collection failure is logged and yields no alerts.
func (c *Checker) Check(ctx context.Context) []Alert {
	snap, err := c.collector.Collect(ctx, c.lookback)
	if err != nil {
		c.log.Error("monitoring: collect run snapshot", zap.Error(err))
		return nil
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		c.log.Debug("monitoring: runs healthy",
			zap.Int("runs", snap.Total),
			zap.Float64("fail_rate", snap.FailRate),
		)
		return nil
	}

	for _, a := range alerts {
		c.log.Warn("monitoring: run health alert",
			zap.String("type", string(a.Type)),
			zap.String("severity", a.Severity),
			zap.String("message", a.Message),
		)
	}
	delivered := c.alerter.SendAlerts(ctx, alerts)
	c.log.Info("monitoring: run health check done",
		zap.Int("runs", snap.Total),
		zap.Int("alerts", len(alerts)),
		zap.Int("delivered", delivered),
	)
	return alerts
}
