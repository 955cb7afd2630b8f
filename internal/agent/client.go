package agent

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// InboxEvent is one message delivered to the agent's inbox.
type InboxEvent struct {
	MessageID      string    `json:"message_id"`
	Type           string    `json:"type"`
	From           string    `json:"from"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Body           string    `json:"body"`
	Meta           any       `json:"meta,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Message is an outgoing bus message.
type Message struct {
	To             string         `json:"to"`
	From           string         `json:"from"`
	ConversationID string         `json:"conversation_id"`
	RequestID      string         `json:"request_id"`
	Type           string         `json:"type"`
	Body           string         `json:"body"`
	Meta           map[string]any `json:"meta,omitempty"`
}

// Bus is the subset of the agent bus the royalty agent talks to.
type Bus interface {
	Register(ctx context.Context, capabilities []string) error
	Poll(ctx context.Context, cursor, waitSec int) ([]InboxEvent, int, error)
	Ack(ctx context.Context, messageID, status, reason string) error
	Event(ctx context.Context, messageID, eventType, body string, meta map[string]any) error
	Send(ctx context.Context, msg Message) (string, error)
}

// Client is an HTTP Bus bound to one agent identity. Requests are signed
// with HMAC-SHA256 of the payload using the agent secret.
type Client struct {
	baseURL string
	agentID string
	secret  string
	http    *http.Client
}

func NewClient(baseURL, agentID, secret string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		agentID: agentID,
		secret:  secret,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, headers map[string]string) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	blob, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return blob, fmt.Errorf("%s %s failed status=%d body=%s", method, path, resp.StatusCode, string(blob))
	}
	return blob, nil
}

func (c *Client) signed(ctx context.Context, path string, payload any, extra map[string]string) ([]byte, error) {
	blob, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{"X-Bus-Signature": Sign(c.secret, blob)}
	for k, v := range extra {
		headers[k] = v
	}
	return c.do(ctx, http.MethodPost, path, blob, headers)
}

func (c *Client) Register(ctx context.Context, capabilities []string) error {
	blob, err := json.Marshal(struct {
		AgentID      string   `json:"agent_id"`
		Capabilities []string `json:"capabilities"`
		Mode         string   `json:"mode"`
		TTL          int      `json:"ttl"`
		Secret       string   `json:"secret"`
	}{c.agentID, capabilities, "pull", 120, c.secret})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/v1/agents/register", blob, nil)
	return err
}

func (c *Client) Poll(ctx context.Context, cursor, waitSec int) ([]InboxEvent, int, error) {
	q := url.Values{}
	q.Set("agent_id", c.agentID)
	q.Set("cursor", strconv.Itoa(cursor))
	q.Set("wait", strconv.Itoa(waitSec))
	raw := q.Encode()
	out, err := c.do(ctx, http.MethodGet, "/v1/inbox?"+raw, nil, map[string]string{"X-Bus-Signature": Sign(c.secret, []byte(raw))})
	if err != nil {
		return nil, cursor, err
	}
	var resp struct {
		Events []InboxEvent `json:"events"`
		Cursor string       `json:"cursor"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, cursor, err
	}
	next, err := strconv.Atoi(strings.TrimSpace(resp.Cursor))
	if err != nil {
		next = cursor
	}
	return resp.Events, next, nil
}

func (c *Client) Ack(ctx context.Context, messageID, status, reason string) error {
	_, err := c.signed(ctx, "/v1/acks", struct {
		AgentID   string `json:"agent_id"`
		MessageID string `json:"message_id"`
		Status    string `json:"status"`
		Reason    string `json:"reason"`
	}{c.agentID, messageID, status, reason}, nil)
	return err
}

func (c *Client) Event(ctx context.Context, messageID, eventType, body string, meta map[string]any) error {
	_, err := c.signed(ctx, "/v1/events", struct {
		MessageID string         `json:"message_id"`
		Type      string         `json:"type"`
		Body      string         `json:"body"`
		Meta      map[string]any `json:"meta,omitempty"`
	}{messageID, eventType, body, meta}, map[string]string{"X-Agent-ID": c.agentID})
	return err
}

func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	msg.From = c.agentID
	out, err := c.signed(ctx, "/v1/messages", msg, nil)
	if err != nil {
		return "", err
	}
	var resp struct {
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.MessageID) == "" {
		return "", fmt.Errorf("missing message_id in response")
	}
	return resp.MessageID, nil
}
