// Package api implements the HTTP half of the transport gateway for the
// chatinterface server. All operations return decoded payloads or an
// *Error; the session cookie issued at login lives in the client's jar.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/newguy103/chatterm/internal/chat"
	"github.com/newguy103/chatterm/internal/logging"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 4 << 10
)

// Client talks to the chatinterface HTTP API.
type Client struct {
	base *url.URL
	http *http.Client
	log  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client. A cookie jar is
// attached if the replacement has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https, got %q", baseURL)
	}

	client := &Client{
		base: parsed,
		http: &http.Client{Timeout: defaultTimeout},
		log:  logging.Component("api"),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		client.http.Jar = jar
	}
	return client, nil
}

// HTTPClient exposes the underlying client so the push channel can dial
// the websocket with the same session cookie.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// WebsocketURL returns the push channel endpoint derived from the base
// URL (http → ws, https → wss).
func (c *Client) WebsocketURL() string {
	ws := *c.base
	switch ws.Scheme {
	case "https":
		ws.Scheme = "wss"
	default:
		ws.Scheme = "ws"
	}
	ws.Path = strings.TrimRight(ws.Path, "/") + "/api/ws/chat"
	return ws.String()
}

// Login authenticates with the OAuth2 password form and stores the
// session cookie in the jar. A 401 surfaces as an HTTP rejection.
func (c *Client) Login(ctx context.Context, username, password string) error {
	form := url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost,
		c.endpoint("/api/token/"),
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return &Error{Kind: ErrorKindNetwork, Op: "login", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var body successBody
	if err := c.do(req, "login", &body); err != nil {
		return err
	}
	c.log.Info().Str("username", username).Msg("logged in")
	return nil
}

// SessionInfo returns the authenticated user's identity.
func (c *Client) SessionInfo(ctx context.Context) (chat.SessionInfo, error) {
	var info chat.SessionInfo
	err := c.get(ctx, "session-info", "/api/token/info", nil, &info)
	return info, err
}

// RevokeSession invalidates the current session server-side. The server
// also pushes auth.revoked to this session's open channels.
func (c *Client) RevokeSession(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/token/revoke"), nil)
	if err != nil {
		return &Error{Kind: ErrorKindNetwork, Op: "revoke-session", Err: err}
	}
	var body successBody
	return c.do(req, "revoke-session", &body)
}

// Recipients lists usernames with an existing conversation.
func (c *Client) Recipients(ctx context.Context) ([]string, error) {
	var recipients []string
	err := c.get(ctx, "recipients", "/api/chats/recipients", nil, &recipients)
	return recipients, err
}

// History fetches up to amount messages exchanged with recipient, newest
// first as served; callers reverse to oldest-first before display.
func (c *Client) History(ctx context.Context, recipient string, amount int) ([]chat.Message, error) {
	query := url.Values{
		"recipient": {recipient},
		"amount":    {strconv.Itoa(amount)},
	}
	var messages []chat.Message
	err := c.get(ctx, "history", "/api/chats/messages", query, &messages)
	return messages, err
}

// Message fetches a single message by id.
func (c *Client) Message(ctx context.Context, messageID string) (chat.Message, error) {
	var msg chat.Message
	err := c.get(ctx, "message", "/api/chats/message/"+url.PathEscape(messageID), nil, &msg)
	return msg, err
}

// UserExists checks whether a username is registered on the server.
func (c *Client) UserExists(ctx context.Context, username string) (bool, error) {
	query := url.Values{"username": {username}}
	var exists bool
	err := c.get(ctx, "user-exists", "/api/chats/user_exists", query, &exists)
	return exists, err
}

// Send posts a message into an existing conversation and returns the
// server-assigned message id. The local store is not mutated here: the
// server's self-notification push event is the single mutation path.
func (c *Client) Send(ctx context.Context, recipient, text string) (string, error) {
	return c.postMessage(ctx, "send", "/api/chats/message", recipient, text)
}

// Compose posts the first message of a brand-new conversation and returns
// the server-assigned message id.
func (c *Client) Compose(ctx context.Context, recipient, text string) (string, error) {
	return c.postMessage(ctx, "compose", "/api/chats/message/compose", recipient, text)
}

// Edit replaces a message's text server-side.
func (c *Client) Edit(ctx context.Context, messageID, text string) error {
	if err := chat.ValidateMessageData(text); err != nil {
		return &Error{Kind: ErrorKindDecode, Op: "edit", Err: err}
	}
	payload, err := json.Marshal(map[string]string{"message_data": text})
	if err != nil {
		return &Error{Kind: ErrorKindDecode, Op: "edit", Err: err}
	}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPatch,
		c.endpoint("/api/chats/message/"+url.PathEscape(messageID)),
		bytes.NewReader(payload),
	)
	if err != nil {
		return &Error{Kind: ErrorKindNetwork, Op: "edit", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	var body successBody
	return c.do(req, "edit", &body)
}

// Delete removes a message server-side.
func (c *Client) Delete(ctx context.Context, messageID string) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodDelete,
		c.endpoint("/api/chats/message/"+url.PathEscape(messageID)),
		nil,
	)
	if err != nil {
		return &Error{Kind: ErrorKindNetwork, Op: "delete", Err: err}
	}
	var body successBody
	return c.do(req, "delete", &body)
}

func (c *Client) postMessage(ctx context.Context, op, path, recipient, text string) (string, error) {
	if err := chat.ValidateUsername(recipient); err != nil {
		return "", &Error{Kind: ErrorKindDecode, Op: op, Err: err}
	}
	if err := chat.ValidateMessageData(text); err != nil {
		return "", &Error{Kind: ErrorKindDecode, Op: op, Err: err}
	}
	payload, err := json.Marshal(map[string]string{
		"recipient":    recipient,
		"message_data": text,
	})
	if err != nil {
		return "", &Error{Kind: ErrorKindDecode, Op: op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return "", &Error{Kind: ErrorKindNetwork, Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	var messageID string
	if err := c.do(req, op, &messageID); err != nil {
		return "", err
	}
	return messageID, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	endpoint := c.endpoint(path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &Error{Kind: ErrorKindNetwork, Op: op, Err: err}
	}
	return c.do(req, op, out)
}

// do executes a request and normalizes every failure into *Error.
func (c *Client) do(req *http.Request, op string, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Str("op", op).Err(err).Msg("request failed")
		return &Error{Kind: ErrorKindNetwork, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := readDetail(resp.Body)
		c.log.Debug().Str("op", op).Int("status", resp.StatusCode).Str("detail", detail).Msg("request rejected")
		return &Error{Kind: ErrorKindHTTP, Op: op, Status: resp.StatusCode, Detail: detail}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: ErrorKindNetwork, Op: op, Err: err}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: ErrorKindDecode, Op: op, Err: err}
	}
	if success, ok := out.(*successBody); ok && !success.Success {
		return &Error{Kind: ErrorKindHTTP, Op: op, Status: resp.StatusCode, Detail: "server reported failure"}
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

type successBody struct {
	Success bool `json:"success"`
}

// readDetail extracts FastAPI's {"detail": ...} error message when present.
func readDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Detail == "" {
		return strings.TrimSpace(logging.Redact(string(raw)))
	}
	return payload.Detail
}
