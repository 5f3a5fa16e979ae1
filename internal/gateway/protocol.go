package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/soyeahso/switchboard/internal/agent"
	"github.com/soyeahso/switchboard/internal/telephony"
	"github.com/soyeahso/switchboard/internal/templates"
)

var errMissingType = errors.New("stream frame without type")

// DecodeInbound parses one stream frame. Unknown types are passed through
// for the session to ignore; undecodable frames become agent.Malformed.
func DecodeInbound(data []byte) agent.Inbound {
	var msg agent.Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return agent.Malformed(fmt.Errorf("decoding stream frame: %w", err))
	}
	if msg.Type == "" {
		return agent.Malformed(errMissingType)
	}
	return msg
}

// StreamURL is the websocket address the provider connects a call's media
// stream to. The token expires after ttl.
func StreamURL(baseURL, secret, callSid, businessID string, ttl time.Duration, now time.Time) string {
	if ttl <= 0 {
		ttl = telephony.DefaultStreamTokenTTL
	}
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	q := url.Values{}
	q.Set("callSid", callSid)
	if businessID != "" {
		q.Set("business", businessID)
	}
	q.Set("token", telephony.NewStreamToken(secret, callSid, now.Add(ttl)))
	return base + templates.PathStream + "?" + q.Encode()
}
