// Package notify delivers escalation notices to humans.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	slackapi "github.com/slack-go/slack"

	"github.com/soyeahso/switchboard/internal/domain"
	"github.com/soyeahso/switchboard/internal/hooks"
	"github.com/soyeahso/switchboard/internal/logging"
	"github.com/soyeahso/switchboard/internal/plugin"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackOpts holds parameters for creating a Slack notifier.
type SlackOpts struct {
	Token     string // xoxb-... bot token
	ChannelID string
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// Slack posts escalation notices to one channel.
type Slack struct {
	client    slackClient
	channelID string
	log       *logging.Logger
}

// NewSlack creates a Slack notifier.
func NewSlack(opts SlackOpts, log *logging.Logger) (*Slack, error) {
	if opts.ChannelID == "" {
		return nil, errors.New("slack: channel is required")
	}
	client := opts.Client
	if client == nil {
		if opts.Token == "" {
			return nil, errors.New("slack: bot token is required")
		}
		client = slackapi.New(opts.Token)
	}
	return &Slack{client: client, channelID: opts.ChannelID, log: log.Sub("notify.slack")}, nil
}

var _ plugin.Plugin = (*Slack)(nil)

func (s *Slack) ID() string   { return "slack" }
func (s *Slack) Name() string { return "Slack escalation notices" }

// Init subscribes the notifier through the plugin registry.
func (s *Slack) Init(_ context.Context, api plugin.API) error {
	s.Register(api.Hooks)
	return nil
}

// Close is a no-op; the Slack client holds no open connections.
func (s *Slack) Close() error { return nil }

// Register subscribes the notifier to escalation_created.
func (s *Slack) Register(h *hooks.Manager) {
	h.On(hooks.EventEscalationCreated, "slack", func(ctx context.Context, p hooks.Payload) error {
		rec, ok := p.Data[hooks.KeyEscalation].(domain.EscalationRecord)
		if !ok {
			return fmt.Errorf("slack: payload has no escalation record")
		}
		return s.Escalation(ctx, rec)
	})
}

// Escalation posts one escalation notice.
func (s *Slack) Escalation(ctx context.Context, rec domain.EscalationRecord) error {
	_, ts, err := s.client.PostMessageContext(ctx, s.channelID, escalationOptions(rec)...)
	if err != nil {
		return fmt.Errorf("slack: posting escalation %s: %w", rec.ID, err)
	}
	s.log.Info().Str("escalation", rec.ID).Str("callSid", rec.CallSid).Str("ts", ts).Msg("escalation posted")
	return nil
}

func escalationOptions(rec domain.EscalationRecord) []slackapi.MsgOption {
	color := "warning"
	if rec.Type == domain.EscalationEmergency {
		color = "danger"
	}
	text := fmt.Sprintf(":rotating_light: %s escalation on call %s", strings.ToUpper(string(rec.Type)), rec.CallSid)

	fields := []slackapi.AttachmentField{
		{Title: "Category", Value: rec.Category, Short: true},
		{Title: "Severity", Value: string(rec.Severity), Short: true},
		{Title: "Caller mood", Value: fmt.Sprintf("%s (%s)", rec.Analysis.PrimaryEmotion, rec.Analysis.Intensity), Short: true},
	}
	if rec.BusinessID != "" {
		fields = append(fields, slackapi.AttachmentField{Title: "Business", Value: rec.BusinessID, Short: true})
	}
	fields = append(fields, slackapi.AttachmentField{Title: "Trigger", Value: rec.TriggerReason})

	return []slackapi.MsgOption{
		slackapi.MsgOptionText(text, false),
		slackapi.MsgOptionAttachments(slackapi.Attachment{
			Color:  color,
			Fields: fields,
			Footer: "escalation " + rec.ID,
		}),
	}
}
