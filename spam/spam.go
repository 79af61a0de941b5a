// Package spam classifies comments through an ordered cascade of
// pluggable providers. The first applicable strategy wins; provider
// failures leave the verdict undetermined rather than escalating.
package spam

import (
	"context"
	"log/slog"

	"comment-notifier/pkg/comment"
)

// checker is one candidate classification strategy.
type checker interface {
	name() string
	// applicable reports whether this strategy can run given the
	// comment and configuration.
	applicable(c *comment.Comment, cfg comment.Config) bool
	// classify returns the verdict; nil means undetermined.
	classify(ctx context.Context, c *comment.Comment, cfg comment.Config) (*bool, error)
}

// Classifier evaluates the cascade in fixed priority order.
type Classifier struct {
	logger   *slog.Logger
	checkers []checker
}

// New creates a classifier with the standard cascade: explicit flag,
// owner exemption, cloud content moderation, crowdsourced detection.
func New(logger *slog.Logger, tencent *TencentChecker, akismet *AkismetChecker) *Classifier {
	return &Classifier{
		logger:   logger,
		checkers: []checker{preflagged{}, ownerExempt{}, tencent, akismet},
	}
}

// Classify runs the cascade and writes a determined verdict back onto
// the comment. The return value is nil when no provider was configured
// or the selected provider failed. Nothing here ever propagates an
// error to the caller.
func (cl *Classifier) Classify(ctx context.Context, c *comment.Comment, cfg comment.Config) (verdict *bool) {
	defer func() {
		if r := recover(); r != nil {
			cl.logger.Error("Spam classification panicked", "panic", r)
			verdict = nil
		}
	}()

	for _, ch := range cl.checkers {
		if !ch.applicable(c, cfg) {
			continue
		}
		result, err := ch.classify(ctx, c, cfg)
		if err != nil {
			cl.logger.Warn("Spam check failed, verdict undetermined",
				"checker", ch.name(),
				"error", err)
			return nil
		}
		if result != nil {
			cl.logger.Info("Spam check completed",
				"checker", ch.name(),
				"is_spam", *result)
			c.IsSpam = result
		}
		return result
	}

	return nil
}

// preflagged honors an explicit spam flag already on the comment.
type preflagged struct{}

func (preflagged) name() string { return "preflagged" }

func (preflagged) applicable(c *comment.Comment, _ comment.Config) bool {
	return c.Flagged()
}

func (preflagged) classify(context.Context, *comment.Comment, comment.Config) (*bool, error) {
	spam := true
	return &spam, nil
}

// ownerExempt classifies comments by the blog owner as not-spam.
type ownerExempt struct{}

func (ownerExempt) name() string { return "owner-exempt" }

func (ownerExempt) applicable(c *comment.Comment, cfg comment.Config) bool {
	return comment.EqualEmail(c.Mail, cfg.OwnerEmail())
}

func (ownerExempt) classify(context.Context, *comment.Comment, comment.Config) (*bool, error) {
	spam := false
	return &spam, nil
}
