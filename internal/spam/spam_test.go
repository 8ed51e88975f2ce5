package spam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHoneypotRejectsAnyValue(t *testing.T) {
	assert.Equal(t, "Honeypot triggered", Check("http://spam.example", "Hello there, interested in your services."))
	assert.Equal(t, "Honeypot triggered", Check("x", ""))
}

func TestCleanMessagePasses(t *testing.T) {
	assert.Empty(t, Check("", "Hello there, interested in your services."))
	assert.Empty(t, Check("", "Please call me back about the http://example.com listing."))
}

func TestSuspiciousPatterns(t *testing.T) {
	cases := []struct {
		name    string
		message string
	}{
		{"bbcode url", "check out [url=http://spam.example]this[/url]"},
		{"bbcode link", "[LINK=http://spam.example]"},
		{"anchor tag", `click <a href="http://spam.example">here</a>`},
		{"script tag", "<script>alert(1)</script>"},
		{"event handler", `<img src=x onerror=alert(1)>`},
		{"javascript scheme", "visit javascript:alert(1)"},
		{"keyword blocklist", "cheap VIAGRA for sale"},
		{"three urls", "http://a.example http://b.example http://c.example"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reason := Check("", tc.message)
			assert.NotEmpty(t, reason, "message %q should be flagged", tc.message)
			assert.Contains(t, reason, "Spam pattern detected: ")
		})
	}
}

func TestFirstMatchWins(t *testing.T) {
	// carries both a bbcode url and a script tag; the earlier pattern reports
	reason := Check("", "[url=x] <script>")
	assert.Equal(t, `Spam pattern detected: (?i)\[url=`, reason)
}
