package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"comment-notifier/avatar"
	"comment-notifier/pkg/comment"
)

type postSubmitData struct {
	Comment       *comment.Comment `json:"comment"`
	ParentComment *comment.Comment `json:"parentComment"`
	Config        comment.Config   `json:"config"`
}

// postSubmit finalizes a freshly stored comment: resolve the avatar,
// classify spam, fan out notifications. Notification and classification
// failures never fail the request.
func (s *Server) postSubmit(ctx context.Context, logger *slog.Logger, raw json.RawMessage) *result {
	var data postSubmitData
	if err := json.Unmarshal(raw, &data); err != nil {
		logger.Warn("Malformed postSubmit data", "error", err)
		return &result{Code: comment.CodeFail, Message: "malformed postSubmit data"}
	}
	if data.Comment == nil {
		return &result{Code: comment.CodeFail, Message: "missing comment"}
	}

	c := data.Comment
	cfg := data.Config

	s.avatars.Resolve(ctx, c, cfg)

	verdict := s.spam.Classify(ctx, c, cfg)

	s.notifier.Dispatch(ctx, c, data.ParentComment, cfg)

	return &result{
		Code:   comment.CodeSuccess,
		IsSpam: verdict,
		Avatar: c.Avatar,
	}
}

type emailTestData struct {
	Event struct {
		Mail string `json:"mail"`
	} `json:"event"`
	Config  comment.Config `json:"config"`
	IsAdmin bool           `json:"isAdmin"`
}

// emailTest rebuilds the SMTP transport from scratch and sends a test
// mail. This is the one flow where transport errors reach the caller.
func (s *Server) emailTest(ctx context.Context, logger *slog.Logger, raw json.RawMessage) *result {
	var data emailTestData
	if err := json.Unmarshal(raw, &data); err != nil {
		logger.Warn("Malformed emailTest data", "error", err)
		return &result{Code: comment.CodeFail, Message: "malformed emailTest data"}
	}
	if !data.IsAdmin {
		return &result{Code: comment.CodeNeedLogin, Message: "admin login required"}
	}

	to := data.Event.Mail
	if to == "" {
		to = data.Config.Get("BLOGGER_EMAIL")
	}
	if to == "" {
		to = data.Config.Get("SENDER_EMAIL")
	}
	if to == "" {
		return &result{Code: comment.CodeFail, Message: "no test recipient configured"}
	}

	// Bypass any cached handle so the test exercises the configuration
	// as supplied.
	s.transport.Reset()

	if err := s.mailer.Test(ctx, data.Config, to); err != nil {
		logger.Warn("Email test failed", "error", err)
		return &result{Code: comment.CodeFail, Message: err.Error()}
	}

	logger.Info("Email test succeeded", "to", to)
	return &result{Code: comment.CodeSuccess, Result: true}
}

type qqAvatarData struct {
	Mail string `json:"mail"`
}

// qqAvatar looks up the avatar for a numeric-ID QQ address.
func (s *Server) qqAvatar(ctx context.Context, logger *slog.Logger, raw json.RawMessage) *result {
	var data qqAvatarData
	if err := json.Unmarshal(raw, &data); err != nil {
		logger.Warn("Malformed getQQAvatar data", "error", err)
		return &result{Code: comment.CodeFail, Message: "malformed getQQAvatar data"}
	}

	if !avatar.IsQQMail(data.Mail) {
		return &result{Code: comment.CodeFail, Message: "not a QQ mail address"}
	}

	url, err := s.avatars.LookupQQ(ctx, avatar.QQNumber(data.Mail))
	if err != nil {
		logger.Warn("QQ avatar lookup failed", "mail", data.Mail, "error", err)
		return &result{Code: comment.CodeFail, Message: "avatar lookup failed"}
	}

	return &result{Code: comment.CodeSuccess, Avatar: url}
}
