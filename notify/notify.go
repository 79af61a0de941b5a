// Package notify fans a finalized comment out to the owner mail, the
// reply mail, and the instant-message push. The three attempts run
// concurrently, are individually guarded, and never fail the request.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"comment-notifier/pkg/comment"
)

// Mailer sends the two notification mails.
type Mailer interface {
	Ready(ctx context.Context, cfg comment.Config) bool
	NotifyOwner(ctx context.Context, cfg comment.Config, c *comment.Comment) error
	NotifyReply(ctx context.Context, cfg comment.Config, c, parent *comment.Comment) error
}

// Pusher sends the instant-message notification.
type Pusher interface {
	Configured(cfg comment.Config) bool
	Send(ctx context.Context, cfg comment.Config, c *comment.Comment) error
}

// Dispatcher runs the three-way notification fan-out.
type Dispatcher struct {
	mailer Mailer
	pusher Pusher
	logger *slog.Logger
}

// New creates a dispatcher.
func New(mailer Mailer, pusher Pusher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{mailer: mailer, pusher: pusher, logger: logger}
}

// Dispatch launches the three notification attempts and waits for all
// of them to settle. Spam comments are skipped entirely only when
// NOTIFY_SPAM is explicitly disabled; the default is to notify.
func (d *Dispatcher) Dispatch(ctx context.Context, c, parent *comment.Comment, cfg comment.Config) {
	if c.Flagged() && cfg.Get("NOTIFY_SPAM") == "false" {
		d.logger.Info("Skipping notifications for spam comment", "nick", c.Nick)
		return
	}

	var wg sync.WaitGroup
	for name, attempt := range map[string]func(context.Context, *comment.Comment, *comment.Comment, comment.Config){
		"owner": d.owner,
		"reply": d.reply,
		"push":  d.push,
	} {
		name, attempt := name, attempt
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Last-resort guard: an attempt's own error handling should
			// never let a panic escape, but one escaping must not take
			// down the request.
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("Notification attempt panicked", "attempt", name, "panic", r)
				}
			}()
			attempt(ctx, c, parent, cfg)
		}()
	}
	wg.Wait()
}

// owner mails the blog owner about a new comment.
func (d *Dispatcher) owner(ctx context.Context, c, _ *comment.Comment, cfg comment.Config) {
	if !d.mailer.Ready(ctx, cfg) {
		return
	}
	if comment.EqualEmail(c.Mail, cfg.OwnerEmail()) {
		d.logger.Debug("Owner commented, skipping owner mail")
		return
	}
	// Push takes priority over email unless double delivery is opted in.
	if d.pusher.Configured(cfg) && !cfg.Bool("SC_MAIL_NOTIFY") {
		d.logger.Debug("Push channel configured, skipping owner mail")
		return
	}

	if err := d.mailer.NotifyOwner(ctx, cfg, c); err != nil {
		d.logger.Warn("Owner notification failed", "error", err)
	}
}

// reply mails the parent comment's author about a new reply.
func (d *Dispatcher) reply(ctx context.Context, c, parent *comment.Comment, cfg comment.Config) {
	if !c.HasParent() || parent == nil {
		return
	}
	if comment.EqualEmail(parent.Mail, cfg.OwnerEmail()) {
		d.logger.Debug("Parent is the owner, reply covered by owner mail")
		return
	}
	if comment.EqualEmail(c.Mail, parent.Mail) {
		d.logger.Debug("Self-reply, skipping reply mail")
		return
	}

	if err := d.mailer.NotifyReply(ctx, cfg, c, parent); err != nil {
		d.logger.Warn("Reply notification failed", "error", err)
	}
}

// push sends the instant-message notification.
func (d *Dispatcher) push(ctx context.Context, c, _ *comment.Comment, cfg comment.Config) {
	if !d.pusher.Configured(cfg) {
		return
	}
	if comment.EqualEmail(c.Mail, cfg.OwnerEmail()) {
		return
	}

	if err := d.pusher.Send(ctx, cfg, c); err != nil {
		d.logger.Warn("Push notification failed", "error", err)
	}
}
