// Package spam holds the bot and content heuristics applied to raw
// submissions before any field validation runs.
package spam

import "regexp"

// suspiciousPatterns is ordered: the first match wins and is reported to the
// security log. Kept as data so the blocklist can grow without touching the
// filter itself.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[url=`),
	regexp.MustCompile(`(?i)\[link=`),
	regexp.MustCompile(`(?i)<a href=`),
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)\b(viagra|cialis|casino|poker)\b`),
	regexp.MustCompile(`(?i)http.*http.*http`), // three or more URLs
}

// Check inspects the honeypot field and the raw message. It returns a
// human-readable reason when the submission looks automated, or "" when it
// passes.
func Check(honeypot, message string) string {
	if honeypot != "" {
		return "Honeypot triggered"
	}
	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(message) {
			return "Spam pattern detected: " + pattern.String()
		}
	}
	return ""
}
