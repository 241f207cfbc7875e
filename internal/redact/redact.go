// Package redact scrubs credential-like substrings and email addresses from
// free-form text before it is persisted or returned to clients.
package redact

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Marker replaces every redacted substring.
const Marker = "[REDACTED]"

// MaxLength bounds the length, in runes, of a redacted message.
const MaxLength = 1000

// tokenPatterns are anchored on a non-alphanumeric character (or the start of
// the text) captured as group 1, since `_` glued to a token defeats \b. The
// trailing character classes are greedy, so a glued suffix stays outside the
// match.
var tokenPatterns = []*regexp.Regexp{
	// GitHub classic and fine-grained tokens.
	guarded(`(?:ghp|gho|ghu|ghs|ghr)_[A-Za-z0-9]{20,}`),
	guarded(`github_pat_[A-Za-z0-9_]{20,}`),
	// OpenAI/Anthropic style secret keys.
	guarded(`sk-[A-Za-z0-9_\-]{16,}`),
	// Slack tokens.
	guarded(`xox[abprs]-[A-Za-z0-9\-]{10,}`),
	// AWS access key ids.
	guarded(`(?:AKIA|ASIA)[0-9A-Z]{16}`),
	// JWTs.
	guarded(`eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+`),
}

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

func guarded(token string) *regexp.Regexp {
	return regexp.MustCompile(`(^|[^A-Za-z0-9])` + token)
}

// Header and key=value secrets keep their prefix so the message stays readable.
var (
	bearerPattern = regexp.MustCompile(`(?i)\b(bearer|basic)\s+[A-Za-z0-9._~+/\-]+=*`)
	kvPattern     = regexp.MustCompile(`(?i)\b(password|passwd|pwd|secret|token|api[_\-]?key|access[_\-]?key|client[_\-]?secret|authorization)(\s*[=:]\s*)("[^"]*"|'[^']*'|[^\s,;&]+)`)
	dsnPattern    = regexp.MustCompile(`(://[^:/\s@]+:)[^@\s]+@`)
)

// String returns s with secrets replaced by Marker, truncated to MaxLength runes.
func String(s string) string {
	if s == "" {
		return s
	}
	out := dsnPattern.ReplaceAllString(s, "${1}"+Marker+"@")
	out = bearerPattern.ReplaceAllString(out, "${1} "+Marker)
	out = kvPattern.ReplaceAllString(out, "${1}${2}"+Marker)
	for _, p := range tokenPatterns {
		out = p.ReplaceAllString(out, "${1}"+Marker)
	}
	out = emailPattern.ReplaceAllString(out, Marker)
	return truncate(strings.TrimSpace(out), MaxLength)
}

// Error is a nil-safe helper for String(err.Error()).
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	const ellipsis = "..."
	runes := []rune(s)
	return string(runes[:limit-len(ellipsis)]) + ellipsis
}
