package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"

	"comment-notifier/pkg/comment"
)

// Sender composes and sends notification mails over the shared
// transport.
type Sender struct {
	transport *Transport
	logger    *slog.Logger
}

// NewSender creates a mail sender on top of a transport.
func NewSender(transport *Transport, logger *slog.Logger) *Sender {
	return &Sender{transport: transport, logger: logger}
}

// Ready reports whether the SMTP transport can be established with the
// given configuration. Failure is logged and treated as "no transport"
// rather than escalated.
func (s *Sender) Ready(ctx context.Context, cfg comment.Config) bool {
	if _, err := s.transport.Get(ctx, cfg); err != nil {
		s.logger.Warn("SMTP transport unavailable", "error", err)
		return false
	}
	return true
}

// NotifyOwner sends the new-comment mail to the blog owner, falling
// back to the sender address when no owner address is configured.
func (s *Sender) NotifyOwner(ctx context.Context, cfg comment.Config, c *comment.Comment) error {
	to := cfg.Get("BLOGGER_EMAIL")
	if to == "" {
		to = senderAddr(cfg)
	}

	subject, body := renderOwner(cfg.Get("MAIL_SUBJECT_ADMIN"), cfg.Get("MAIL_TEMPLATE_ADMIN"), &renderData{
		SiteURL:  cfg.Get("SITE_URL"),
		SiteName: cfg.Get("SITE_NAME"),
		Nick:     c.Nick,
		Avatar:   c.Avatar,
		IP:       c.IP,
		Mail:     c.Mail,
		Comment:  c.Comment,
		PostURL:  Permalink(cfg.Get("SITE_URL"), c.Href, c.URL, c.CommentID()),
	})

	return s.send(ctx, cfg, to, subject, body)
}

// NotifyReply sends the new-reply mail to the parent comment's author.
func (s *Sender) NotifyReply(ctx context.Context, cfg comment.Config, c, parent *comment.Comment) error {
	subject, body := renderReply(cfg.Get("MAIL_SUBJECT"), cfg.Get("MAIL_TEMPLATE"), &renderData{
		SiteURL:       cfg.Get("SITE_URL"),
		SiteName:      cfg.Get("SITE_NAME"),
		Nick:          c.Nick,
		Avatar:        c.Avatar,
		IP:            c.IP,
		Mail:          c.Mail,
		Comment:       c.Comment,
		PostURL:       Permalink(cfg.Get("SITE_URL"), c.Href, c.URL, c.CommentID()),
		ParentNick:    parent.Nick,
		ParentComment: parent.Comment,
	})

	return s.send(ctx, cfg, parent.Mail, subject, body)
}

// Test verifies connectivity end to end by sending a test mail. Unlike
// the notification paths, errors here propagate to the caller.
func (s *Sender) Test(ctx context.Context, cfg comment.Config, to string) error {
	siteName := cfg.Get("SITE_NAME")
	subject := fmt.Sprintf("来自「%s」的邮件服务测试", siteName)
	body := fmt.Sprintf("<p>这是一封测试邮件。</p><p>如果您收到了这封邮件，说明「%s」的邮件服务配置正确。</p>",
		escapeHTML(siteName))
	return s.send(ctx, cfg, to, subject, body)
}

func (s *Sender) send(ctx context.Context, cfg comment.Config, to, subject, body string) error {
	client, err := s.transport.Get(ctx, cfg)
	if err != nil {
		return fmt.Errorf("get transport: %w", err)
	}

	msg := mail.NewMsg()
	from := senderAddr(cfg)
	if name := cfg.Get("SENDER_NAME"); name != "" {
		err = msg.FromFormat(name, from)
	} else {
		err = msg.From(from)
	}
	if err != nil {
		return fmt.Errorf("set from %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	s.logger.Info("Sending mail", "to", to, "subject", subject)

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	s.logger.Info("Mail sent", "to", to)
	return nil
}

func senderAddr(cfg comment.Config) string {
	if addr := cfg.Get("SENDER_EMAIL"); addr != "" {
		return addr
	}
	return cfg.Get("SMTP_USER")
}
