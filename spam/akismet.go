package spam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"comment-notifier/pkg/comment"
)

const (
	akismetVerifyURL   = "https://rest.akismet.com/1.1/verify-key"
	akismetCheckFormat = "https://%s.rest.akismet.com/1.1/comment-check"
)

// AkismetChecker classifies comments through the Akismet crowdsourced
// spam-detection API. The key is validated before any comment-check
// call; an invalid key aborts classification.
type AkismetChecker struct {
	client    *http.Client
	logger    *slog.Logger
	verifyURL string // overridable in tests
	checkURL  string // overridable in tests, format with key
}

// NewAkismetChecker creates the crowdsourced spam checker.
func NewAkismetChecker(client *http.Client, logger *slog.Logger) *AkismetChecker {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &AkismetChecker{
		client:    client,
		logger:    logger,
		verifyURL: akismetVerifyURL,
		checkURL:  akismetCheckFormat,
	}
}

func (*AkismetChecker) name() string { return "akismet" }

func (*AkismetChecker) applicable(_ *comment.Comment, cfg comment.Config) bool {
	return cfg.Has("AKISMET")
}

func (a *AkismetChecker) classify(ctx context.Context, c *comment.Comment, cfg comment.Config) (*bool, error) {
	key := cfg.Get("AKISMET")
	blog := cfg.Get("SITE_URL")

	valid, err := a.verifyKey(ctx, key, blog)
	if err != nil {
		return nil, fmt.Errorf("verify key: %w", err)
	}
	if !valid {
		return nil, errors.New("akismet key is invalid")
	}

	form := url.Values{
		"blog":                 {blog},
		"user_ip":              {c.IP},
		"user_agent":           {c.UA},
		"permalink":            {c.Href},
		"comment_type":         {"comment"},
		"comment_author":       {c.Nick},
		"comment_author_email": {c.Mail},
		"comment_author_url":   {c.Link},
		"comment_content":      {c.Comment},
	}

	body, err := a.post(ctx, fmt.Sprintf(a.checkURL, key), form)
	if err != nil {
		return nil, fmt.Errorf("comment check: %w", err)
	}

	a.logger.Info("Akismet verdict", "result", body, "nick", c.Nick)

	spam := body == "true"
	return &spam, nil
}

func (a *AkismetChecker) verifyKey(ctx context.Context, key, blog string) (bool, error) {
	body, err := a.post(ctx, a.verifyURL, url.Values{
		"key":  {key},
		"blog": {blog},
	})
	if err != nil {
		return false, err
	}
	return body == "valid", nil
}

func (a *AkismetChecker) post(ctx context.Context, endpoint string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			a.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
