package gateway

import (
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/switchboard/internal/agent"
	"github.com/soyeahso/switchboard/internal/domain"
	"github.com/soyeahso/switchboard/internal/llm"
	"github.com/soyeahso/switchboard/internal/telephony"
)

func (e *testEnv) streamURL(callSid string) string {
	return StreamURL(e.ts.URL, testSecret, callSid, "", time.Minute, e.clock.Now())
}

func dialStream(t *testing.T, u string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readOutbound(t *testing.T, conn *websocket.Conn) agent.Outbound {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg agent.Outbound
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestStreamURL(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	u := StreamURL("https://sb.example.com/", "s3cret", "CA1", "acme", 0, now)
	assert.True(t, strings.HasPrefix(u, "wss://sb.example.com/voice/stream?"), u)
	assert.Contains(t, u, "business=acme")
	assert.Contains(t, u, "callSid=CA1")

	assert.True(t, strings.HasPrefix(StreamURL("http://127.0.0.1:1", "s", "CA1", "", 0, now), "ws://127.0.0.1:1/"))
}

func TestDecodeInbound(t *testing.T) {
	msg := DecodeInbound([]byte(`{"type":"transcription","transcript":"hello"}`))
	assert.Equal(t, agent.TypeTranscription, msg.Type)
	assert.Equal(t, "hello", msg.Transcript)

	msg = DecodeInbound([]byte(`{"type":"booking_update","data":{"caller_name":"Dana"}}`))
	assert.Equal(t, "Dana", msg.Data["caller_name"])

	assert.Empty(t, DecodeInbound([]byte(`not json`)).Type)
	assert.Empty(t, DecodeInbound([]byte(`{"transcript":"hi"}`)).Type)
}

func TestStreamConversation(t *testing.T) {
	env := newTestEnv(t)
	env.llm.CompleteFunc = func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: "Sure, what is your name?"}, nil
	}
	conn := dialStream(t, env.streamURL("CA7"))

	require.NoError(t, conn.WriteJSON(agent.Inbound{Type: agent.TypeTranscription, Transcript: "my heater broke"}))
	msg := readOutbound(t, conn)
	assert.Equal(t, agent.TypeResponse, msg.Type)
	assert.Equal(t, "Sure, what is your name?", msg.Text)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{garbage")))
	msg = readOutbound(t, conn)
	assert.Equal(t, agent.TypeError, msg.Type)
	assert.Contains(t, msg.Message, "human representative")

	require.NoError(t, conn.WriteJSON(agent.Inbound{Type: agent.TypeTranscription, Transcript: "I need a doctor"}))
	msg = readOutbound(t, conn)
	assert.Equal(t, agent.ActionEscalate, msg.Action)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return env.srv.Streams().Count() == 0 }, 3*time.Second, 10*time.Millisecond)

	env.writer.Close()
	cl, err := env.store.CallLog(context.Background(), "CA7")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cl.ConversationSummary, "my heater broke | Sure, what is your name?"))
	require.NotNil(t, cl.FinalEmotionalContext)

	recs, err := env.store.Escalations(context.Background(), "CA7", 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.EscalationEmergency, recs[0].Type)
	assert.Equal(t, "acme", recs[0].BusinessID)
}

func TestStreamAuthentication(t *testing.T) {
	env := newTestEnv(t)
	base := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/voice/stream"
	valid := telephony.NewStreamToken(testSecret, "CA1", env.clock.Now().Add(time.Minute))

	tests := []struct {
		name  string
		query string
	}{
		{"no token", "?callSid=CA1"},
		{"forged token", "?callSid=CA1&token=" + telephony.NewStreamToken("other-secret", "CA1", env.clock.Now().Add(time.Minute))},
		{"token for another call", "?callSid=CA2&token=" + valid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(base+tt.query, nil)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}

	t.Run("expired", func(t *testing.T) {
		u := env.streamURL("CA3")
		env.clock.Advance(2 * time.Minute)
		_, resp, err := websocket.DefaultDialer.Dial(u, nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestStreamRejectsSecondConnection(t *testing.T) {
	env := newTestEnv(t)
	dialStream(t, env.streamURL("CA8"))
	require.Eventually(t, func() bool { return env.srv.Streams().Count() == 1 }, 3*time.Second, 10*time.Millisecond)

	_, resp, err := websocket.DefaultDialer.Dial(env.streamURL("CA8"), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestStreamUsesMenuBusiness(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.SaveBusiness(context.Background(), domain.Business{
		ID: "bolt", Name: "Bolt Electric", HumanNumber: "+15550009999",
	}))
	env.post(t, "/voice/frontdoor?business=bolt", callForm("CA9", "+15551230000"))

	systems := make(chan string, 1)
	env.llm.CompleteFunc = func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		systems <- req.System
		return &llm.CompletionResponse{Content: "Hello."}, nil
	}
	conn := dialStream(t, env.streamURL("CA9"))
	require.NoError(t, conn.WriteJSON(agent.Inbound{Type: agent.TypeTranscription, Transcript: "hi"}))
	readOutbound(t, conn)

	assert.Contains(t, <-systems, "Bolt Electric")
}

func TestShutdownFlushesOpenStreams(t *testing.T) {
	env := newTestEnv(t)
	env.llm.CompleteFunc = func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: "Happy to help."}, nil
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- env.srv.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	conn := dialStream(t, StreamURL(base, testSecret, "CA11", "", time.Minute, env.clock.Now()))
	require.NoError(t, conn.WriteJSON(agent.Inbound{Type: agent.TypeTranscription, Transcript: "my boiler is leaking"}))
	readOutbound(t, conn)

	cancel()
	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	// Serve has returned, so the final write is already queued.
	env.writer.Close()
	cl, err := env.store.CallLog(context.Background(), "CA11")
	require.NoError(t, err)
	assert.Contains(t, cl.ConversationSummary, "my boiler is leaking")
	require.NotNil(t, cl.FinalEmotionalContext)

	_, resp, err := websocket.DefaultDialer.Dial(StreamURL(base, testSecret, "CA12", "", time.Minute, env.clock.Now()), nil)
	require.Error(t, err)
	assert.Nil(t, resp, "listener is closed")
}
