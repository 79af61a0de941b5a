package avatar

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"comment-notifier/pkg/comment"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func md5Hex(s string) string {
	h := md5.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

func sha256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func TestIsQQMail(t *testing.T) {
	tests := []struct {
		mail string
		want bool
	}{
		{"12345@qq.com", true},
		{"987654321@qq.com", true},
		{" 12345@qq.com ", true},
		{"1234@qq.com", false},
		{"012345@qq.com", false},
		{"bob@qq.com", false},
		{"12345@gmail.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.mail, func(t *testing.T) {
			if got := IsQQMail(tt.mail); got != tt.want {
				t.Errorf("IsQQMail(%q) = %v, want %v", tt.mail, got, tt.want)
			}
		})
	}
}

func TestQQNumber(t *testing.T) {
	if got := QQNumber("12345@qq.com"); got != "12345" {
		t.Errorf("QQNumber() = %q, want 12345", got)
	}
}

func TestHashURL(t *testing.T) {
	tests := []struct {
		name    string
		comment *comment.Comment
		cfg     comment.Config
		want    string
	}{
		{
			name:    "default CDN uses MD5",
			comment: &comment.Comment{Mail: "Bob@Example.com "},
			cfg:     comment.Config{},
			want:    "https://cravatar.cn/avatar/" + md5Hex("bob@example.com") + "?d=mp",
		},
		{
			name:    "custom CDN uses SHA-256",
			comment: &comment.Comment{Mail: "bob@example.com"},
			cfg: comment.Config{
				"GRAVATAR_CDN":     "gravatar.com",
				"DEFAULT_GRAVATAR": "identicon",
			},
			want: "https://gravatar.com/avatar/" + sha256Hex("bob@example.com") + "?d=identicon",
		},
		{
			name:    "no mail falls back to nickname",
			comment: &comment.Comment{Nick: "Bob"},
			cfg:     comment.Config{},
			want:    "https://cravatar.cn/avatar/" + md5Hex("Bob") + "?d=mp",
		},
		{
			name:    "withheld mail uses the precomputed MD5",
			comment: &comment.Comment{Nick: "Bob", MailMD5: "D41D8CD98F00B204E9800998ECF8427E"},
			cfg:     comment.Config{},
			want:    "https://cravatar.cn/avatar/d41d8cd98f00b204e9800998ecf8427e?d=mp",
		},
		{
			name:    "precomputed MD5 unusable on a SHA-256 CDN",
			comment: &comment.Comment{Nick: "Bob", MailMD5: "d41d8cd98f00b204e9800998ecf8427e"},
			cfg:     comment.Config{"GRAVATAR_CDN": "gravatar.com"},
			want:    "https://gravatar.com/avatar/" + sha256Hex("Bob") + "?d=mp",
		},
		{
			name:    "mail present wins over the precomputed MD5",
			comment: &comment.Comment{Mail: "bob@example.com", MailMD5: "d41d8cd98f00b204e9800998ecf8427e"},
			cfg:     comment.Config{},
			want:    "https://cravatar.cn/avatar/" + md5Hex("bob@example.com") + "?d=mp",
		},
		{
			name:    "trailing slash on CDN trimmed",
			comment: &comment.Comment{Mail: "bob@example.com"},
			cfg:     comment.Config{"GRAVATAR_CDN": "cravatar.cn/"},
			want:    "https://cravatar.cn/avatar/" + md5Hex("bob@example.com") + "?d=mp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HashURL(tt.comment, tt.cfg); got != tt.want {
				t.Errorf("HashURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLookupQQ(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("uin"); got != "12345" {
			t.Errorf("uin = %q, want 12345", got)
		}
		w.Header().Set("Location", "https://thirdqq.qlogo.cn/g?b=sdk&k=abc&s=140")
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	orig := qqFaceEndpoint
	qqFaceEndpoint = srv.URL + "/pub/get_face?img_type=4&uin=%s"
	defer func() { qqFaceEndpoint = orig }()

	r := New(srv.Client(), discardLogger())
	got, err := r.LookupQQ(context.Background(), "12345")
	if err != nil {
		t.Fatalf("LookupQQ() error: %v", err)
	}
	if want := "https://thirdqq.qlogo.cn/g?b=sdk&k=abc&s=140"; got != want {
		t.Errorf("LookupQQ() = %q, want %q", got, want)
	}
}

func TestLookupQQNonRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	orig := qqFaceEndpoint
	qqFaceEndpoint = srv.URL + "/pub/get_face?img_type=4&uin=%s"
	defer func() { qqFaceEndpoint = orig }()

	r := New(srv.Client(), discardLogger())
	if _, err := r.LookupQQ(context.Background(), "12345"); err == nil {
		t.Fatal("want error on non-redirect response")
	}
}

func TestResolve(t *testing.T) {
	t.Run("existing avatar kept", func(t *testing.T) {
		r := New(nil, discardLogger())
		c := &comment.Comment{Mail: "bob@example.com", Avatar: "https://custom/pic.png"}
		r.Resolve(context.Background(), c, comment.Config{})
		if c.Avatar != "https://custom/pic.png" {
			t.Errorf("avatar = %q, want original kept", c.Avatar)
		}
	})

	t.Run("hash URL for regular mail", func(t *testing.T) {
		r := New(nil, discardLogger())
		c := &comment.Comment{Mail: "bob@example.com"}
		r.Resolve(context.Background(), c, comment.Config{})
		want := "https://cravatar.cn/avatar/" + md5Hex("bob@example.com") + "?d=mp"
		if c.Avatar != want {
			t.Errorf("avatar = %q, want %q", c.Avatar, want)
		}
	})

	t.Run("QQ mail goes through lookup", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Location", "https://thirdqq.qlogo.cn/face")
			w.WriteHeader(http.StatusFound)
		}))
		defer srv.Close()

		orig := qqFaceEndpoint
		qqFaceEndpoint = srv.URL + "?uin=%s"
		defer func() { qqFaceEndpoint = orig }()

		r := New(srv.Client(), discardLogger())
		c := &comment.Comment{Mail: "12345@qq.com"}
		r.Resolve(context.Background(), c, comment.Config{})
		if c.Avatar != "https://thirdqq.qlogo.cn/face" {
			t.Errorf("avatar = %q", c.Avatar)
		}
	})

	t.Run("failed QQ lookup leaves avatar empty", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		orig := qqFaceEndpoint
		qqFaceEndpoint = srv.URL + "?uin=%s"
		defer func() { qqFaceEndpoint = orig }()

		r := New(srv.Client(), discardLogger())
		c := &comment.Comment{Mail: "12345@qq.com"}
		r.Resolve(context.Background(), c, comment.Config{})
		if c.Avatar != "" {
			t.Errorf("avatar = %q, want empty", c.Avatar)
		}
	})
}

func TestHashURLFormatStable(t *testing.T) {
	c := &comment.Comment{Mail: "bob@example.com"}
	got := HashURL(c, comment.Config{"GRAVATAR_CDN": "cdn.example.com"})
	want := fmt.Sprintf("https://cdn.example.com/avatar/%s?d=mp", sha256Hex("bob@example.com"))
	if got != want {
		t.Errorf("HashURL() = %q, want %q", got, want)
	}
}
