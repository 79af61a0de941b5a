// Package push delivers instant-message notifications through a
// configured channel/token pair, behind one provider interface.
package push

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"comment-notifier/content"
	"comment-notifier/email"
	"comment-notifier/pkg/comment"
)

// Message is a channel-independent push payload.
type Message struct {
	Title   string
	Content string // markdown-ish body
	URL     string // tap-to-open target, for providers that support it
}

// Provider delivers a message to one channel class.
type Provider interface {
	Send(ctx context.Context, token string, msg *Message) error
}

// Pusher selects a provider from the per-request configuration and
// formats the comment into a push message.
type Pusher struct {
	providers map[string]Provider
	logger    *slog.Logger
}

// New creates a pusher with the built-in channel providers.
func New(client *http.Client, logger *slog.Logger) *Pusher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Pusher{
		logger: logger,
		providers: map[string]Provider{
			"serverchan": &ServerChan{client: client, logger: logger},
			"pushplus":   &PushPlus{client: client, logger: logger},
			"telegram":   &Telegram{client: client, logger: logger},
			"bark":       &Bark{client: client, logger: logger},
		},
	}
}

// Configured reports whether both a push channel and a token are set.
func (p *Pusher) Configured(cfg comment.Config) bool {
	return cfg.Has("SC_PUSHOO_CHANNEL") && cfg.Has("SC_PUSHOO_PUSH_TOKEN")
}

// Send formats and delivers the new-comment push.
func (p *Pusher) Send(ctx context.Context, cfg comment.Config, c *comment.Comment) error {
	channel := strings.ToLower(cfg.Get("SC_PUSHOO_CHANNEL"))
	provider, ok := p.providers[channel]
	if !ok {
		return fmt.Errorf("unknown push channel %q", channel)
	}

	msg := Format(cfg, c)
	p.logger.Info("Sending push notification", "channel", channel, "nick", c.Nick)

	if err := provider.Send(ctx, cfg.Get("SC_PUSHOO_PUSH_TOKEN"), msg); err != nil {
		return fmt.Errorf("push via %s: %w", channel, err)
	}
	return nil
}

// maxBodyRunes caps the comment excerpt; push gateways reject or clip
// oversized bodies.
const maxBodyRunes = 200

// Format builds the push message: nickname, masked email link, IP, a
// tag-stripped excerpt of the comment body, and the permalink.
func Format(cfg comment.Config, c *comment.Comment) *Message {
	permalink := email.Permalink(cfg.Get("SITE_URL"), c.Href, c.URL, c.CommentID())

	var b strings.Builder
	b.WriteString("【评论者昵称】" + c.Nick + "\n")
	if c.Mail != "" {
		// Markdown link keeps the raw address out of the rendered text.
		b.WriteString("【评论者邮箱】[" + c.Mail + "](mailto:" + c.Mail + ")\n")
	}
	if c.IP != "" {
		b.WriteString("【评论者IP】" + c.IP + "\n")
	}
	b.WriteString("【评论内容】" + content.Excerpt(c.Comment, maxBodyRunes) + "\n")
	b.WriteString("【评论链接】" + permalink)

	title := cfg.Get("SITE_NAME") + " 上有新评论"
	return &Message{Title: title, Content: b.String(), URL: permalink}
}
