package email

import (
	"fmt"
	"strings"
)

// Default subjects, parameterized like the body templates. Overridable
// via MAIL_SUBJECT_ADMIN and MAIL_SUBJECT.
const (
	defaultOwnerSubject = "${SITE_NAME}上有新评论了"
	defaultReplySubject = "${PARENT_NICK}，您在『${SITE_NAME}』上的评论收到了回复"
)

// Fill substitutes every occurrence of each ${TOKEN} placeholder into a
// template. Tokens without a binding are left untouched.
func Fill(tpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "${"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// Permalink builds the URL whose click lands on the specific comment:
// the comment's own link (or site URL plus relative path) with any
// existing fragment replaced by the comment's identifier.
func Permalink(siteURL, href, path, id string) string {
	base := href
	if base == "" {
		base = strings.TrimSuffix(siteURL, "/") + path
	}
	if idx := strings.Index(base, "#"); idx != -1 {
		base = base[:idx]
	}
	if id == "" {
		return base
	}
	return base + "#" + id
}

// renderData collects the placeholder bindings for one notification.
type renderData struct {
	SiteURL       string
	SiteName      string
	Nick          string
	Avatar        string
	IP            string
	Mail          string
	Comment       string // HTML body, inserted as-is
	PostURL       string
	ParentNick    string
	ParentComment string
}

func (d *renderData) vars() map[string]string {
	return map[string]string{
		"SITE_URL":       d.SiteURL,
		"SITE_NAME":      d.SiteName,
		"NICK":           d.Nick,
		"IMG":            d.Avatar,
		"IP":             d.IP,
		"MAIL":           d.Mail,
		"COMMENT":        d.Comment,
		"POST_URL":       d.PostURL,
		"PARENT_NICK":    d.ParentNick,
		"PARENT_COMMENT": d.ParentComment,
	}
}

// renderOwner produces subject and body for the new-comment mail, from
// the configured template or the built-in layout.
func renderOwner(subjectTpl, bodyTpl string, d *renderData) (subject, body string) {
	if subjectTpl == "" {
		subjectTpl = defaultOwnerSubject
	}
	subject = Fill(subjectTpl, d.vars())

	if bodyTpl != "" {
		return subject, Fill(bodyTpl, d.vars())
	}
	return subject, ownerFallback(d)
}

// renderReply produces subject and body for the new-reply mail.
func renderReply(subjectTpl, bodyTpl string, d *renderData) (subject, body string) {
	if subjectTpl == "" {
		subjectTpl = defaultReplySubject
	}
	subject = Fill(subjectTpl, d.vars())

	if bodyTpl != "" {
		return subject, Fill(bodyTpl, d.vars())
	}
	return subject, replyFallback(d)
}

func ownerFallback(d *renderData) string {
	var b strings.Builder

	writeMailHead(&b)
	b.WriteString("<div class=\"header\">\n")
	b.WriteString(fmt.Sprintf("<h2><a href=\"%s\">%s</a> 上有新评论</h2>\n", escapeHTML(d.SiteURL), escapeHTML(d.SiteName)))
	b.WriteString("</div>\n")

	b.WriteString("<div class=\"meta\">\n")
	b.WriteString(fmt.Sprintf("<img class=\"avatar\" src=\"%s\" alt=\"\">\n", escapeHTML(d.Avatar)))
	b.WriteString(fmt.Sprintf("<span class=\"author\">%s</span>\n", escapeHTML(d.Nick)))
	if d.Mail != "" {
		b.WriteString(fmt.Sprintf("<span class=\"mail\"> &bull; %s</span>\n", escapeHTML(d.Mail)))
	}
	if d.IP != "" {
		b.WriteString(fmt.Sprintf("<span class=\"ip\"> &bull; %s</span>\n", escapeHTML(d.IP)))
	}
	b.WriteString("</div>\n")

	// Comment bodies arrive as sanitized HTML from the widget.
	b.WriteString("<div class=\"content\">\n")
	b.WriteString(d.Comment)
	b.WriteString("\n</div>\n")

	b.WriteString("<div class=\"footer\">\n")
	b.WriteString(fmt.Sprintf("<a href=\"%s\">查看评论</a>\n", escapeHTML(d.PostURL)))
	b.WriteString("</div>\n")
	writeMailFoot(&b)

	return b.String()
}

func replyFallback(d *renderData) string {
	var b strings.Builder

	writeMailHead(&b)
	b.WriteString("<div class=\"header\">\n")
	b.WriteString(fmt.Sprintf("<h2>%s，您在 <a href=\"%s\">%s</a> 上的评论收到了回复</h2>\n",
		escapeHTML(d.ParentNick), escapeHTML(d.SiteURL), escapeHTML(d.SiteName)))
	b.WriteString("</div>\n")

	b.WriteString("<div class=\"quote\">\n")
	b.WriteString(fmt.Sprintf("<p>%s 说：</p>\n", escapeHTML(d.ParentNick)))
	b.WriteString("<blockquote>\n")
	b.WriteString(d.ParentComment)
	b.WriteString("\n</blockquote>\n")
	b.WriteString("</div>\n")

	b.WriteString("<div class=\"content\">\n")
	b.WriteString(fmt.Sprintf("<p>%s 回复说：</p>\n", escapeHTML(d.Nick)))
	b.WriteString("<blockquote>\n")
	b.WriteString(d.Comment)
	b.WriteString("\n</blockquote>\n")
	b.WriteString("</div>\n")

	b.WriteString("<div class=\"footer\">\n")
	b.WriteString(fmt.Sprintf("<a href=\"%s\">查看回复</a>\n", escapeHTML(d.PostURL)))
	b.WriteString("</div>\n")
	writeMailFoot(&b)

	return b.String()
}

func writeMailHead(b *strings.Builder) {
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<style>\n")
	b.WriteString("body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 700px; margin: 0 auto; padding: 20px; }\n")
	b.WriteString(".header { border-bottom: 2px solid #3b82f6; padding-bottom: 10px; margin-bottom: 20px; }\n")
	b.WriteString(".avatar { width: 40px; height: 40px; border-radius: 50%; vertical-align: middle; margin-right: 8px; }\n")
	b.WriteString(".author { color: #3b82f6; font-weight: 600; }\n")
	b.WriteString(".mail, .ip { color: #7f8c8d; font-size: 0.9em; }\n")
	b.WriteString(".content, .quote { background: #f8f9fa; padding: 16px; border-radius: 8px; margin: 15px 0; }\n")
	b.WriteString("blockquote { border-left: 3px solid #ddd; padding-left: 12px; margin: 8px 0; color: #555; }\n")
	b.WriteString(".footer { margin-top: 20px; padding-top: 10px; border-top: 1px solid #ecf0f1; font-size: 0.9em; }\n")
	b.WriteString("a { color: #3b82f6; text-decoration: none; }\n")
	b.WriteString("</style>\n</head>\n<body>\n")
}

func writeMailFoot(b *strings.Builder) {
	b.WriteString("</body>\n</html>")
}

// escapeHTML escapes HTML special characters for security.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&#39;")
	return s
}
