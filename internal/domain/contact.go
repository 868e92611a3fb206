package domain

import (
	"log/slog"
	"strings"
)

// ContactRecord is a plaintext address-book entry. It only exists between a
// decrypt and the response that carries it back to its owner.
type ContactRecord struct {
	Key         string  `json:"key"`
	DisplayName string  `json:"name"`
	Address     string  `json:"address"`
	Notes       *string `json:"notes,omitempty"`
}

// NormalizeContactKey lowercases and trims a contact key.
func NormalizeContactKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// LogValue keeps plaintext out of logs if a record is ever passed to slog.
func (c ContactRecord) LogValue() slog.Value {
	return slog.StringValue("[contact redacted]")
}
