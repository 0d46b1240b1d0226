package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

// Keys passed through MaskField that may be logged verbatim.
var maskAllowlist = map[string]struct{}{
	"component":  {},
	"operation":  {},
	"idea":       {},
	"theme":      {},
	"caller":     {},
	"reason":     {},
	"request_id": {},
}

// Fragments that mark an attribute as secret wherever it is logged, e.g.
// "hmac_secret", "auth_token" or "keystore_passphrase".
var sensitiveFragments = []string{"secret", "token", "passphrase", "password", "authorization", "private_key"}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// IsAllowlisted reports whether MaskField leaves key's value readable.
func IsAllowlisted(key string) bool {
	_, ok := maskAllowlist[normalizeKey(key)]
	return ok
}

// IsSensitive reports whether key names a secret that the handler always
// redacts.
func IsSensitive(key string) bool {
	key = normalizeKey(key)
	for _, fragment := range sensitiveFragments {
		if strings.Contains(key, fragment) {
			return true
		}
	}
	return false
}

// MaskField redacts value unless key is allowlisted. Empty values pass
// through so that their absence stays visible.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// redactAttr is applied by the handler to every attribute.
func redactAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindGroup || !IsSensitive(attr.Key) {
		return attr
	}
	if attr.Value.Kind() == slog.KindString && strings.TrimSpace(attr.Value.String()) == "" {
		return attr
	}
	return slog.String(attr.Key, RedactedValue)
}
