package validation

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Event types are producer-defined but must stay machine-friendly:
// uppercase snake case, bounded length.
var eventTypeRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]{1,63}$`)

func NormalizeEventType(eventType string) string {
	return strings.ToUpper(strings.TrimSpace(eventType))
}

func ValidateEventType(eventType string) bool {
	return eventTypeRe.MatchString(eventType)
}

// ValidateUserID accepts the string UUIDs the identity layer issues; it is
// deliberately loose since the core does not own the id format.
func ValidateUserID(id string) bool {
	id = strings.TrimSpace(id)
	return id != "" && len(id) <= 64
}

func MaxIdempotencyKeyLength() int {
	return 128
}

func ValidateIdempotencyKey(key string) bool {
	return key == "" || len(key) <= MaxIdempotencyKeyLength()
}

func MaxNotificationBodyLength() int {
	maxStr := os.Getenv("MAX_NOTIFICATION_BODY_LENGTH")
	if maxStr == "" {
		return 2000
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 2000
	}
	return max
}

// TrimAndLimit trims surrounding whitespace and truncates to at most max
// bytes without splitting a multi-byte rune.
func TrimAndLimit(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
