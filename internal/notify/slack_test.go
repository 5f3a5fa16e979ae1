package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/switchboard/internal/domain"
	"github.com/soyeahso/switchboard/internal/hooks"
	"github.com/soyeahso/switchboard/internal/logging"
)

// --- Mock Slack client ---

type mockSlackClient struct {
	mu      sync.Mutex
	posted  []postedMessage
	postErr error
}

type postedMessage struct {
	channelID string
	options   []slackapi.MsgOption
}

func (m *mockSlackClient) PostMessageContext(_ context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postErr != nil {
		return "", "", m.postErr
	}
	m.posted = append(m.posted, postedMessage{channelID: channelID, options: options})
	return channelID, "1234567890.123456", nil
}

func (m *mockSlackClient) postedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posted)
}

func testRecord() domain.EscalationRecord {
	return domain.EscalationRecord{
		ID: "esc-1", CallSid: "CA1", BusinessID: "acme",
		Type: domain.EscalationEmergency, Severity: domain.SeverityHigh, Category: "medical",
		TriggerReason: `detected medical escalation keyword "doctor"`,
		Analysis:      domain.EmotionalContext{PrimaryEmotion: domain.EmotionUrgency, Intensity: domain.IntensityHigh},
		CreatedAt:     time.Now(),
	}
}

func TestNewSlackRequiresChannelAndToken(t *testing.T) {
	log := logging.New(nil, "silent")
	_, err := NewSlack(SlackOpts{Token: "xoxb"}, log)
	assert.Error(t, err)
	_, err = NewSlack(SlackOpts{ChannelID: "C1"}, log)
	assert.Error(t, err)
	_, err = NewSlack(SlackOpts{ChannelID: "C1", Client: &mockSlackClient{}}, log)
	assert.NoError(t, err)
}

func TestEscalationPosts(t *testing.T) {
	client := &mockSlackClient{}
	s, err := NewSlack(SlackOpts{ChannelID: "C-ops", Client: client}, logging.New(nil, "silent"))
	require.NoError(t, err)

	require.NoError(t, s.Escalation(context.Background(), testRecord()))
	require.Equal(t, 1, client.postedCount())
	assert.Equal(t, "C-ops", client.posted[0].channelID)
	assert.Len(t, client.posted[0].options, 2)
}

func TestEscalationPostError(t *testing.T) {
	client := &mockSlackClient{postErr: errors.New("channel_not_found")}
	s, err := NewSlack(SlackOpts{ChannelID: "C-ops", Client: client}, logging.New(nil, "silent"))
	require.NoError(t, err)

	err = s.Escalation(context.Background(), testRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "esc-1")
}

func TestRegisterHandlesHookPayload(t *testing.T) {
	client := &mockSlackClient{}
	s, err := NewSlack(SlackOpts{ChannelID: "C-ops", Client: client}, logging.New(nil, "silent"))
	require.NoError(t, err)

	h := hooks.NewManager(logging.New(nil, "silent"))
	s.Register(h)
	assert.Equal(t, 1, h.Count(hooks.EventEscalationCreated))

	h.EmitAsync(context.Background(), hooks.EventEscalationCreated, map[string]any{
		hooks.KeyEscalation: testRecord(),
	})
	h.Emit(context.Background(), hooks.EventEscalationCreated, map[string]any{"other": 1})
	h.Wait()
	assert.Equal(t, 1, client.postedCount())
}
