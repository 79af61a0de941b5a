// Package email renders and sends the owner and reply notification
// mails over a lazily-verified SMTP transport.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/wneessen/go-mail"

	"comment-notifier/pkg/comment"
)

// smtpService is a named-service shortcut mirroring the well-known
// provider table the widget's configuration exposes.
type smtpService struct {
	host   string
	port   int
	secure bool // implicit TLS instead of STARTTLS
}

var smtpServices = map[string]smtpService{
	"qq":         {"smtp.qq.com", 465, true},
	"gmail":      {"smtp.gmail.com", 465, true},
	"163":        {"smtp.163.com", 465, true},
	"126":        {"smtp.126.com", 465, true},
	"outlook365": {"smtp.office365.com", 587, false},
	"yandex":     {"smtp.yandex.ru", 465, true},
	"zoho":       {"smtp.zoho.com", 465, true},
	"sendgrid":   {"smtp.sendgrid.net", 587, false},
}

// Transport is the process-wide SMTP handle. It starts uninitialized,
// transitions to verified after a successful live handshake, and is
// reused opportunistically across invocations until an explicit Reset.
type Transport struct {
	mu     sync.Mutex
	client *mail.Client
	logger *slog.Logger
}

// NewTransport creates an uninitialized transport.
func NewTransport(logger *slog.Logger) *Transport {
	return &Transport{logger: logger}
}

// Get returns the verified SMTP client, constructing and verifying it
// on first need. Construction is idempotent; concurrent first use may
// verify twice across a Reset, which both succeed identically or
// consistently fail.
func (t *Transport) Get(ctx context.Context, cfg comment.Config) (*mail.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		return t.client, nil
	}

	client, err := buildClient(cfg)
	if err != nil {
		return nil, err
	}

	// Live handshake so a bad password surfaces here, not mid-send.
	if err := client.DialWithContext(ctx); err != nil {
		return nil, fmt.Errorf("smtp handshake: %w", err)
	}
	if err := client.Close(); err != nil {
		t.logger.Warn("Failed to close verification connection", "error", err)
	}

	t.logger.Info("SMTP transport verified")
	t.client = client
	return client, nil
}

// Reset forces the transport back to uninitialized, bypassing any
// cached handle. Used by the explicit connectivity-test flow.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.client = nil
}

func buildClient(cfg comment.Config) (*mail.Client, error) {
	user := cfg.Get("SMTP_USER")
	pass := cfg.Get("SMTP_PASS")
	if user == "" || pass == "" {
		return nil, errors.New("smtp credentials not configured")
	}

	host := cfg.Get("SMTP_HOST")
	port := 0
	secure := cfg.Bool("SMTP_SECURE")

	if service := cfg.Get("SMTP_SERVICE"); service != "" {
		known, ok := smtpServices[strings.ToLower(service)]
		if !ok {
			return nil, fmt.Errorf("unknown smtp service %q", service)
		}
		host, port, secure = known.host, known.port, known.secure
	} else {
		if host == "" {
			return nil, errors.New("smtp host not configured")
		}
		p, err := strconv.Atoi(cfg.Get("SMTP_PORT"))
		if err != nil {
			return nil, fmt.Errorf("invalid smtp port %q", cfg.Get("SMTP_PORT"))
		}
		port = p
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(user),
		mail.WithPassword(pass),
	}
	if secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return client, nil
}
