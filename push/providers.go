package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Gateway endpoints, variable so tests can point them at a local server.
var (
	serverChanEndpoint = "https://sctapi.ftqq.com/%s.send"
	pushPlusEndpoint   = "https://www.pushplus.plus/send"
	telegramEndpoint   = "https://api.telegram.org/bot%s/sendMessage"
	barkEndpoint       = "https://api.day.app/push"
)

// ServerChan pushes via the ServerChan Turbo API.
type ServerChan struct {
	client *http.Client
	logger *slog.Logger
}

// Send submits title and markdown body as a form post.
func (s *ServerChan) Send(ctx context.Context, token string, msg *Message) error {
	form := url.Values{
		"title": {msg.Title},
		"desp":  {msg.Content},
	}
	return postForm(ctx, s.client, s.logger, fmt.Sprintf(serverChanEndpoint, token), form)
}

// PushPlus pushes via the pushplus.plus JSON API.
type PushPlus struct {
	client *http.Client
	logger *slog.Logger
}

// Send submits a markdown-template push.
func (p *PushPlus) Send(ctx context.Context, token string, msg *Message) error {
	payload := map[string]string{
		"token":    token,
		"title":    msg.Title,
		"content":  msg.Content,
		"template": "markdown",
	}
	return postJSON(ctx, p.client, p.logger, pushPlusEndpoint, payload)
}

// Telegram pushes through a bot. The token carries both halves as
// "<botToken>#<chatID>".
type Telegram struct {
	client *http.Client
	logger *slog.Logger
}

// Send submits a sendMessage call to the bot API.
func (t *Telegram) Send(ctx context.Context, token string, msg *Message) error {
	botToken, chatID, ok := strings.Cut(token, "#")
	if !ok || chatID == "" {
		return fmt.Errorf("telegram token must be botToken#chatID")
	}
	payload := map[string]string{
		"chat_id": chatID,
		"text":    msg.Title + "\n\n" + msg.Content,
	}
	return postJSON(ctx, t.client, t.logger, fmt.Sprintf(telegramEndpoint, botToken), payload)
}

// Bark pushes to an iOS device via the Bark server, with the permalink
// attached for tap-to-open.
type Bark struct {
	client *http.Client
	logger *slog.Logger
}

// Send submits a device push.
func (b *Bark) Send(ctx context.Context, token string, msg *Message) error {
	payload := map[string]string{
		"device_key": token,
		"title":      msg.Title,
		"body":       msg.Content,
		"url":        msg.URL,
	}
	return postJSON(ctx, b.client, b.logger, barkEndpoint, payload)
}

func postJSON(ctx context.Context, client *http.Client, logger *slog.Logger, endpoint string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(client, logger, req)
}

func postForm(ctx context.Context, client *http.Client, logger *slog.Logger, endpoint string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(client, logger, req)
}

func do(client *http.Client, logger *slog.Logger, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}
