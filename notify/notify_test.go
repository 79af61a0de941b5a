package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"comment-notifier/pkg/comment"
)

type fakeMailer struct {
	mu          sync.Mutex
	ready       bool
	ownerCalls  int
	replyCalls  int
	replyParent *comment.Comment
}

func (m *fakeMailer) Ready(_ context.Context, _ comment.Config) bool { return m.ready }

func (m *fakeMailer) NotifyOwner(_ context.Context, _ comment.Config, _ *comment.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ownerCalls++
	return nil
}

func (m *fakeMailer) NotifyReply(_ context.Context, _ comment.Config, _, parent *comment.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replyCalls++
	m.replyParent = parent
	return nil
}

type fakePusher struct {
	mu         sync.Mutex
	configured bool
	sendCalls  int
}

func (p *fakePusher) Configured(_ comment.Config) bool { return p.configured }

func (p *fakePusher) Send(_ context.Context, _ comment.Config, _ *comment.Comment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendCalls++
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func boolPtr(b bool) *bool { return &b }

func TestDispatchOwnerMail(t *testing.T) {
	tests := []struct {
		name       string
		comment    *comment.Comment
		cfg        comment.Config
		ready      bool
		configured bool
		wantOwner  int
		wantPush   int
	}{
		{
			name:      "owner mailed when transport ready",
			comment:   &comment.Comment{Nick: "Bob", Mail: "bob@example.com"},
			cfg:       comment.Config{"BLOGGER_EMAIL": "owner@example.com"},
			ready:     true,
			wantOwner: 1,
		},
		{
			name:      "transport not ready skips owner mail",
			comment:   &comment.Comment{Nick: "Bob", Mail: "bob@example.com"},
			cfg:       comment.Config{"BLOGGER_EMAIL": "owner@example.com"},
			ready:     false,
			wantOwner: 0,
		},
		{
			name:      "owner commenting on own site gets nothing",
			comment:   &comment.Comment{Nick: "Owner", Mail: "Owner@Example.com"},
			cfg:       comment.Config{"BLOGGER_EMAIL": "owner@example.com"},
			ready:     true,
			wantOwner: 0,
		},
		{
			name:       "push displaces owner mail",
			comment:    &comment.Comment{Nick: "Bob", Mail: "bob@example.com"},
			cfg:        comment.Config{"BLOGGER_EMAIL": "owner@example.com"},
			ready:      true,
			configured: true,
			wantOwner:  0,
			wantPush:   1,
		},
		{
			name:    "SC_MAIL_NOTIFY keeps both channels",
			comment: &comment.Comment{Nick: "Bob", Mail: "bob@example.com"},
			cfg: comment.Config{
				"BLOGGER_EMAIL":  "owner@example.com",
				"SC_MAIL_NOTIFY": "true",
			},
			ready:      true,
			configured: true,
			wantOwner:  1,
			wantPush:   1,
		},
		{
			name:       "push also skipped for owner's own comment",
			comment:    &comment.Comment{Nick: "Owner", Mail: "owner@example.com"},
			cfg:        comment.Config{"BLOGGER_EMAIL": "owner@example.com"},
			ready:      true,
			configured: true,
			wantOwner:  0,
			wantPush:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &fakeMailer{ready: tt.ready}
			pusher := &fakePusher{configured: tt.configured}
			d := New(mailer, pusher, discardLogger())

			d.Dispatch(context.Background(), tt.comment, nil, tt.cfg)

			if mailer.ownerCalls != tt.wantOwner {
				t.Errorf("owner mails = %d, want %d", mailer.ownerCalls, tt.wantOwner)
			}
			if pusher.sendCalls != tt.wantPush {
				t.Errorf("pushes = %d, want %d", pusher.sendCalls, tt.wantPush)
			}
		})
	}
}

func TestDispatchReplyMail(t *testing.T) {
	tests := []struct {
		name      string
		comment   *comment.Comment
		parent    *comment.Comment
		wantReply int
	}{
		{
			name:      "reply mailed to parent author",
			comment:   &comment.Comment{Mail: "bob@example.com", PID: "p1"},
			parent:    &comment.Comment{Mail: "alice@example.com"},
			wantReply: 1,
		},
		{
			name:      "top-level comment has nobody to notify",
			comment:   &comment.Comment{Mail: "bob@example.com"},
			parent:    nil,
			wantReply: 0,
		},
		{
			name:      "parent id set but parent record missing",
			comment:   &comment.Comment{Mail: "bob@example.com", PID: "p1"},
			parent:    nil,
			wantReply: 0,
		},
		{
			name:      "parent is the owner, owner mail covers it",
			comment:   &comment.Comment{Mail: "bob@example.com", RID: "r1"},
			parent:    &comment.Comment{Mail: "owner@example.com"},
			wantReply: 0,
		},
		{
			name:      "self-reply is not announced",
			comment:   &comment.Comment{Mail: "bob@example.com", PID: "p1"},
			parent:    &comment.Comment{Mail: "Bob@Example.com"},
			wantReply: 0,
		},
	}

	cfg := comment.Config{"BLOGGER_EMAIL": "owner@example.com"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &fakeMailer{ready: true}
			d := New(mailer, &fakePusher{}, discardLogger())

			d.Dispatch(context.Background(), tt.comment, tt.parent, cfg)

			if mailer.replyCalls != tt.wantReply {
				t.Errorf("reply mails = %d, want %d", mailer.replyCalls, tt.wantReply)
			}
		})
	}
}

func TestDispatchSpamGate(t *testing.T) {
	tests := []struct {
		name     string
		isSpam   *bool
		cfg      comment.Config
		wantSent bool
	}{
		{
			name:     "spam still notifies by default",
			isSpam:   boolPtr(true),
			cfg:      comment.Config{},
			wantSent: true,
		},
		{
			name:     "NOTIFY_SPAM false silences spam",
			isSpam:   boolPtr(true),
			cfg:      comment.Config{"NOTIFY_SPAM": "false"},
			wantSent: false,
		},
		{
			name:     "clean comment unaffected by NOTIFY_SPAM",
			isSpam:   boolPtr(false),
			cfg:      comment.Config{"NOTIFY_SPAM": "false"},
			wantSent: true,
		},
		{
			name:     "undetermined verdict treated as clean",
			isSpam:   nil,
			cfg:      comment.Config{"NOTIFY_SPAM": "false"},
			wantSent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &fakeMailer{ready: true}
			d := New(mailer, &fakePusher{}, discardLogger())

			c := &comment.Comment{Mail: "bob@example.com", IsSpam: tt.isSpam}
			d.Dispatch(context.Background(), c, nil, tt.cfg)

			sent := mailer.ownerCalls > 0
			if sent != tt.wantSent {
				t.Errorf("owner mail sent = %v, want %v", sent, tt.wantSent)
			}
		})
	}
}

type panickyMailer struct{ fakeMailer }

func (m *panickyMailer) NotifyOwner(_ context.Context, _ comment.Config, _ *comment.Comment) error {
	panic("boom")
}

func TestDispatchSurvivesPanickingAttempt(t *testing.T) {
	mailer := &panickyMailer{fakeMailer{ready: true}}
	pusher := &fakePusher{configured: true}
	d := New(mailer, pusher, discardLogger())

	c := &comment.Comment{Mail: "bob@example.com", PID: "p1"}
	parent := &comment.Comment{Mail: "alice@example.com"}
	cfg := comment.Config{
		"BLOGGER_EMAIL":  "owner@example.com",
		"SC_MAIL_NOTIFY": "true",
	}

	d.Dispatch(context.Background(), c, parent, cfg)

	if mailer.replyCalls != 1 {
		t.Errorf("reply mails = %d, want 1 despite owner panic", mailer.replyCalls)
	}
	if pusher.sendCalls != 1 {
		t.Errorf("pushes = %d, want 1 despite owner panic", pusher.sendCalls)
	}
}
