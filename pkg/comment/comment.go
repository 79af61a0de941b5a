// Package comment contains the core domain types for the comment
// notification dispatcher.
package comment

import (
	"strconv"
	"strings"
)

// Response codes shared by every action handler.
const (
	CodeSuccess   = 0
	CodeFail      = 1000
	CodeNeedLogin = 1024
	CodeForbidden = 1403
)

// Comment is a single comment as supplied by the upstream comment store.
// The dispatcher mutates Avatar and IsSpam in place; persistence is the
// caller's responsibility.
type Comment struct {
	ID      string `json:"id"`
	UID     string `json:"_id"`
	Nick    string `json:"nick"`
	Mail    string `json:"mail"`
	MailMD5 string `json:"mailMd5"`
	IP      string `json:"ip"`
	UA      string `json:"ua"`
	Link    string `json:"link"`
	Avatar  string `json:"avatar"`
	Comment string `json:"comment"` // HTML-bearing body
	Href    string `json:"href"`    // absolute page URL
	URL     string `json:"url"`     // page path relative to the site URL
	PID     string `json:"pid"`     // parent comment id
	RID     string `json:"rid"`     // root comment id
	IsSpam  *bool  `json:"isSpam,omitempty"`
}

// CommentID returns the comment identifier, whichever field carries it.
func (c *Comment) CommentID() string {
	if c.ID != "" {
		return c.ID
	}
	return c.UID
}

// HasParent reports whether the comment is a reply.
func (c *Comment) HasParent() bool {
	return c.PID != "" || c.RID != ""
}

// Flagged reports whether the comment is explicitly marked as spam.
func (c *Comment) Flagged() bool {
	return c.IsSpam != nil && *c.IsSpam
}

// Config is the per-invocation site configuration, a flat mapping of
// named settings. It is supplied fresh with every request and never
// cached. Values may arrive as JSON strings, booleans, or numbers.
type Config map[string]any

// Get returns the trimmed string value for key, or "" when unset.
func (cfg Config) Get(key string) string {
	v, ok := cfg[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		// JSON numbers decode as float64; settings are small integers.
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// Bool reports whether key is set to a truthy value ("true", "1", or a
// JSON true).
func (cfg Config) Bool(key string) bool {
	switch cfg.Get(key) {
	case "true", "1":
		return true
	default:
		return false
	}
}

// Has reports whether key is present with a non-empty value.
func (cfg Config) Has(key string) bool {
	return cfg.Get(key) != ""
}

// OwnerEmail returns the configured blog-owner address, normalized for
// comparison against commenter addresses.
func (cfg Config) OwnerEmail() string {
	return strings.ToLower(cfg.Get("BLOGGER_EMAIL"))
}

// EqualEmail compares two addresses case-insensitively after trimming.
func EqualEmail(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}
