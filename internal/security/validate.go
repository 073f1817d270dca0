package security

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// maxLogValueLength bounds user-supplied strings written to logs
const maxLogValueLength = 256

// snowflakePattern matches a Discord user ID
var snowflakePattern = regexp.MustCompile(`^[0-9]{15,21}$`)

// ValidateWebhookURL ensures the webhook target is an absolute http(s) URL.
func ValidateWebhookURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("webhook URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("webhook URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("webhook URL has no host")
	}

	return nil
}

// ValidateMentionID checks that id looks like a Discord user snowflake.
// An empty id is valid and disables mentions.
func ValidateMentionID(id string) error {
	if id == "" {
		return nil
	}
	if !snowflakePattern.MatchString(id) {
		return fmt.Errorf("mention ID %q is not a Discord user ID", id)
	}
	return nil
}

// SanitizeLogValue strips control characters from client input and caps
// its length so it cannot forge or flood log lines.
func SanitizeLogValue(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	if len(cleaned) > maxLogValueLength {
		// Back off to a rune boundary
		cut := maxLogValueLength
		for cut > 0 && !isRuneStart(cleaned[cut]) {
			cut--
		}
		cleaned = cleaned[:cut] + "..."
	}

	return cleaned
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
