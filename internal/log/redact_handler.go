package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// identityKeys contains attribute keys whose values are always masked.
// These keys carry contributor identity or credentials for the upstream
// annotation platform.
var identityKeys = map[string]bool{
	// Contributor identity
	"contributor_uuid": true,
	"contributor":      true,
	"contributor_id":   true,
	"worker_id":        true,
	"email":            true,
	"email_address":    true,

	// Upstream platform credentials
	"password":     true,
	"secret":       true,
	"token":        true,
	"api_key":      true,
	"apikey":       true,
	"access_token": true,
	"credential":   true,
	"credentials":  true,
	"auth":         true,
}

// identityPatterns contains regex patterns that indicate identifying
// values. Values matching these patterns are masked regardless of key name.
var identityPatterns = []*regexp.Regexp{
	// UUIDs (contributor identifiers on the wire)
	regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`),

	// Email addresses
	regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`),

	// Bearer tokens
	regexp.MustCompile(`(?i)^bearer\s+.+`),
}

// MaskValue is the string used to replace masked values.
const MaskValue = "***REDACTED***"

// RedactHandler wraps an slog.Handler to mask contributor identity.
// It intercepts log records and redacts attribute values that match
// identifying key names or value patterns before passing them to the
// underlying handler.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because it integrates with standard slog APIs and works with any
// underlying handler (text, JSON, etc.).
type RedactHandler struct {
	// handler is the underlying slog handler that receives masked records.
	handler slog.Handler
}

// NewRedactHandler creates a RedactHandler wrapping the given handler.
// If handler is nil, the returned RedactHandler uses slog.Default().Handler().
func NewRedactHandler(handler slog.Handler) *RedactHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &RedactHandler{handler: handler}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and passes it to the underlying
// handler.
func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.redactAttr(a))
		return true
	})

	return h.handler.Handle(ctx, masked)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are masked before being added.
func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	maskedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		maskedAttrs[i] = h.redactAttr(a)
	}
	return &RedactHandler{handler: h.handler.WithAttrs(maskedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{handler: h.handler.WithGroup(name)}
}

// redactAttr masks a single attribute, recursively handling groups.
func (h *RedactHandler) redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		maskedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			maskedAttrs[i] = h.redactAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(maskedAttrs...)}
	}

	keyLower := strings.ToLower(a.Key)
	if identityKeys[keyLower] || containsIdentityKeyword(keyLower) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() == slog.KindString {
		if isIdentityValue(keyLower, a.Value.String()) {
			return slog.String(a.Key, MaskValue)
		}
	}

	return a
}

// containsIdentityKeyword checks if the key contains identifying keywords.
// The bare "uuid" keyword is excluded because task UUIDs are not PII and
// masking them would make run logs useless for correlation.
func containsIdentityKeyword(key string) bool {
	identityKeywords := []string{
		"contributor", "worker", "email", "password",
		"secret", "token", "auth", "credential",
	}

	for _, keyword := range identityKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// isIdentityValue checks if a value matches identifying patterns.
// Task identifiers are whitelisted by key: a UUID logged under a task key
// is deliberately left readable.
func isIdentityValue(key, value string) bool {
	if strings.Contains(key, "task") {
		return false
	}
	for _, pattern := range identityPatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// NewLogger creates an slog.Logger with identity redaction, writing text
// output to w. When verbose is true the level is Debug, otherwise Warn.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	textHandler := slog.NewTextHandler(w, opts)
	return slog.New(NewRedactHandler(textHandler))
}
