// Package alerting pushes extraction failures to operator channels: a
// configurable webhook (Slack, Discord or a generic JSON endpoint) and,
// when enabled, Sentry. Structural failures (credentials, layout drift)
// always alert; run summaries alert once the failure count crosses the
// configured threshold.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/enerluz/portalex/internal/tariff"
	"github.com/enerluz/portalex/pkg/portals"
)

// Config holds alerting configuration.
type Config struct {
	// WebhookURL is a generic webhook endpoint (Slack, Discord, or custom).
	WebhookURL string
	// WebhookType determines the payload format: "slack", "discord", or "generic".
	WebhookType string
	// Enabled controls whether alerts are sent.
	Enabled bool
	// MinFailuresBeforeAlert is the threshold before sending run alerts.
	MinFailuresBeforeAlert int
	// Timeout for HTTP requests.
	Timeout time.Duration
}

// ConfigFromEnv reads alerting configuration from PORTALEX_ALERT_* variables.
func ConfigFromEnv() Config {
	cfg := Config{
		WebhookURL:             os.Getenv("PORTALEX_ALERT_WEBHOOK_URL"),
		WebhookType:            os.Getenv("PORTALEX_ALERT_WEBHOOK_TYPE"),
		MinFailuresBeforeAlert: 1,
		Timeout:                10 * time.Second,
	}

	cfg.Enabled = cfg.WebhookURL != ""

	if cfg.WebhookType == "" {
		// Auto-detect from URL
		if strings.Contains(cfg.WebhookURL, "slack.com") {
			cfg.WebhookType = "slack"
		} else if strings.Contains(cfg.WebhookURL, "discord.com") {
			cfg.WebhookType = "discord"
		} else {
			cfg.WebhookType = "generic"
		}
	}

	if v := os.Getenv("PORTALEX_ALERT_MIN_FAILURES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MinFailuresBeforeAlert = n
		}
	}

	return cfg
}

// Alerter sends alerts to the configured webhook.
type Alerter struct {
	cfg    Config
	client *http.Client
	logger zerolog.Logger
}

// New creates a new alerter instance.
func New(cfg Config, logger zerolog.Logger) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "alerting").Logger(),
	}
}

// DistributorFailure contains details about one failed extraction job.
type DistributorFailure struct {
	Distributor string `json:"distributor"`
	Reason      string `json:"reason"`
	Error       string `json:"error"`
	Attempts    int    `json:"attempts"`
}

// RunAlert summarizes a finished extraction run for operators.
type RunAlert struct {
	RunID         string
	TotalCount    int
	SuccessCount  int
	FailedCount   int
	Duration      time.Duration
	FailedDetails []DistributorFailure
	Timestamp     time.Time
}

// RunAlertFrom builds a RunAlert from an extraction run, with failures
// listed in code order.
func RunAlertFrom(run *tariff.Run) RunAlert {
	alert := RunAlert{
		RunID:      run.ID,
		TotalCount: len(run.Requested),
		Duration:   run.CompletedAt.Sub(run.StartedAt),
		Timestamp:  run.CompletedAt,
	}
	for code, res := range run.Results {
		if res.OK() {
			alert.SuccessCount++
			continue
		}
		alert.FailedCount++
		alert.FailedDetails = append(alert.FailedDetails, DistributorFailure{
			Distributor: code,
			Reason:      string(res.Failure.Reason),
			Error:       res.Failure.Message,
			Attempts:    res.Attempts,
		})
	}
	sort.Slice(alert.FailedDetails, func(i, j int) bool {
		return alert.FailedDetails[i].Distributor < alert.FailedDetails[j].Distributor
	})
	return alert
}

// StructuralFailure reports a failure that retries cannot fix, such as
// rejected credentials or a portal layout change. These bypass the run
// threshold because they stay broken until an operator intervenes.
func (a *Alerter) StructuralFailure(ctx context.Context, code string, reason portals.FailureReason, message string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("distributor", code)
		scope.SetTag("reason", string(reason))
		sentry.CaptureMessage(fmt.Sprintf("portal %s: %s: %s", code, reason, message))
	})

	if !a.cfg.Enabled {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"alert_type":  "structural_failure",
		"distributor": code,
		"reason":      string(reason),
		"error":       message,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if a.cfg.WebhookType == "slack" {
		payload, _ = json.Marshal(map[string]string{
			"text": fmt.Sprintf(":rotating_light: Portal *%s* needs attention: %s (%s)", code, reason, message),
		})
	}
	if err := a.post(ctx, payload); err != nil {
		a.logger.Warn().Err(err).Str("distributor", code).Msg("structural failure alert not delivered")
	}
}

// SendRunAlert sends an alert about a run's failed extractions.
func (a *Alerter) SendRunAlert(ctx context.Context, alert RunAlert) error {
	if !a.cfg.Enabled {
		a.logger.Debug().Msg("alerts disabled, skipping")
		return nil
	}

	if alert.FailedCount < a.cfg.MinFailuresBeforeAlert {
		a.logger.Debug().
			Int("failed", alert.FailedCount).
			Int("threshold", a.cfg.MinFailuresBeforeAlert).
			Msg("failures below threshold, skipping")
		return nil
	}

	var payload []byte
	var err error

	switch a.cfg.WebhookType {
	case "slack":
		payload, err = a.buildSlackPayload(alert)
	case "discord":
		payload, err = a.buildDiscordPayload(alert)
	default:
		payload, err = a.buildGenericPayload(alert)
	}

	if err != nil {
		return fmt.Errorf("build payload: %w", err)
	}

	if err := a.post(ctx, payload); err != nil {
		return err
	}

	a.logger.Info().Int("failed", alert.FailedCount).Msg("run alert sent")
	return nil
}

func (a *Alerter) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, "POST", a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (a *Alerter) buildSlackPayload(alert RunAlert) ([]byte, error) {
	var failedList strings.Builder
	for _, f := range alert.FailedDetails {
		failedList.WriteString(fmt.Sprintf("• *%s*: %s — %s (attempts: %d)\n", f.Distributor, f.Reason, f.Error, f.Attempts))
	}

	emoji := ":warning:"
	if alert.FailedCount == alert.TotalCount {
		emoji = ":x:"
	}

	payload := map[string]interface{}{
		"blocks": []map[string]interface{}{
			{
				"type": "header",
				"text": map[string]string{
					"type": "plain_text",
					"text": fmt.Sprintf("%s Extraction Run Alert", emoji),
				},
			},
			{
				"type": "section",
				"fields": []map[string]string{
					{"type": "mrkdwn", "text": fmt.Sprintf("*Status:*\n%d/%d failed", alert.FailedCount, alert.TotalCount)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Duration:*\n%s", alert.Duration.Round(time.Millisecond))},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Success:*\n%d", alert.SuccessCount)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Run:*\n%s", alert.RunID)},
				},
			},
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Failed Distributors:*\n%s", failedList.String()),
				},
			},
		},
	}

	return json.Marshal(payload)
}

func (a *Alerter) buildDiscordPayload(alert RunAlert) ([]byte, error) {
	var failedList strings.Builder
	for _, f := range alert.FailedDetails {
		failedList.WriteString(fmt.Sprintf("• **%s**: %s — %s (attempts: %d)\n", f.Distributor, f.Reason, f.Error, f.Attempts))
	}

	color := 16776960 // Yellow
	if alert.FailedCount == alert.TotalCount {
		color = 16711680 // Red
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       "Extraction Run Alert",
				"description": fmt.Sprintf("%d/%d distributors failed", alert.FailedCount, alert.TotalCount),
				"color":       color,
				"fields": []map[string]interface{}{
					{"name": "Success", "value": fmt.Sprintf("%d", alert.SuccessCount), "inline": true},
					{"name": "Failed", "value": fmt.Sprintf("%d", alert.FailedCount), "inline": true},
					{"name": "Duration", "value": alert.Duration.Round(time.Millisecond).String(), "inline": true},
					{"name": "Failed Distributors", "value": failedList.String(), "inline": false},
				},
				"timestamp": alert.Timestamp.Format(time.RFC3339),
			},
		},
	}

	return json.Marshal(payload)
}

func (a *Alerter) buildGenericPayload(alert RunAlert) ([]byte, error) {
	payload := map[string]interface{}{
		"alert_type":     "extraction_run_failure",
		"run_id":         alert.RunID,
		"total_count":    alert.TotalCount,
		"success_count":  alert.SuccessCount,
		"failed_count":   alert.FailedCount,
		"duration_ms":    alert.Duration.Milliseconds(),
		"timestamp":      alert.Timestamp.Format(time.RFC3339),
		"failed_details": alert.FailedDetails,
	}

	return json.Marshal(payload)
}
