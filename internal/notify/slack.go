package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nholik/restart-sentinel/internal/schedule"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

type SlackNotifier struct {
	logger     zerolog.Logger
	webhookURL string
	timing     timingConfig
	poster     *httpPoster
}

// SlackOption customizes SlackNotifier behavior.
type SlackOption func(*SlackNotifier)

// WithSlackTiming overrides timing parameters (primarily for testing).
func WithSlackTiming(rateInterval time.Duration, rateBurst int, backoffInitial, backoffMax, backoffMaxElapsed time.Duration) SlackOption {
	return func(s *SlackNotifier) {
		s.timing.rateInterval = rateInterval
		s.timing.rateBurst = rateBurst
		s.timing.backoffInitial = backoffInitial
		s.timing.backoffMax = backoffMax
		s.timing.backoffMaxElapsed = backoffMaxElapsed
	}
}

// NewSlackNotifier creates a Slack notifier or a noop notifier when the webhook is empty.
func NewSlackNotifier(logger zerolog.Logger, webhookURL string, opts ...SlackOption) Notifier {
	if webhookURL == "" {
		return NewNoop(logger, "slack webhook not configured; notifications disabled")
	}

	notifier := &SlackNotifier{
		logger:     logger,
		webhookURL: webhookURL,
		timing:     defaultTiming,
	}

	for _, opt := range opts {
		opt(notifier)
	}

	notifier.poster = newHTTPPoster(logger, "slack", webhookURL, "application/json", notifier.timing)

	return notifier
}

// Notify implements Notifier.
func (n *SlackNotifier) Notify(ctx context.Context, server string, events []schedule.Event) error {
	if len(events) == 0 {
		return nil
	}
	serverName := server
	if serverName == "" {
		serverName = "default"
	}
	if err := n.poster.waitForRateLimit(ctx, serverName); err != nil {
		return err
	}

	message := buildSlackMessage(serverName, events)
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}
	if err := n.poster.postWithRetry(ctx, payload); err != nil {
		return err
	}

	n.logger.Debug().
		Str("server", serverName).
		Int("events", len(events)).
		Msg("slack notification sent")

	return nil
}

func buildSlackMessage(server string, events []schedule.Event) slack.WebhookMessage {
	summary := fmt.Sprintf("Server %s: %s", server, describeEvent(events[len(events)-1]))

	header := slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", summary, false, false))
	contextBlock := slack.NewContextBlock("",
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Server: *%s*", server), false, false),
	)

	blocks := []slack.Block{header, contextBlock}
	for _, event := range events {
		blocks = append(blocks, buildEventBlock(event))
	}

	blockSet := slack.Blocks{BlockSet: blocks}
	return slack.WebhookMessage{
		Text:   summary,
		Blocks: &blockSet,
	}
}

func buildEventBlock(event schedule.Event) slack.Block {
	title := fmt.Sprintf("*%s*: %s", eventLabel(event), describeEvent(event))
	text := slack.NewTextBlockObject("mrkdwn", title, false, false)

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject("mrkdwn",
			fmt.Sprintf("*Scheduled:*\n%s", event.Target.Format("15:04 MST")), false, false),
	}
	if event.Kind == schedule.KindWarning {
		fields = append(fields, slack.NewTextBlockObject("mrkdwn",
			fmt.Sprintf("*Threshold:*\n%s", time.Duration(event.LeadTime)*time.Second), false, false))
	}

	return slack.NewSectionBlock(text, fields, nil)
}

func eventLabel(event schedule.Event) string {
	if event.Kind == schedule.KindArrival {
		return "RESTART"
	}
	return "WARNING"
}
