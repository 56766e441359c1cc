// Package log provides slant's slog setup. Document text and credentials
// never reach log output: attributes carrying either are masked by
// RedactingHandler before the underlying handler sees them.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaskValue replaces credential values
const MaskValue = "***REDACTED***"

// contentKeys hold analysed documents; their values are replaced by a length
var contentKeys = map[string]bool{
	"text":     true,
	"document": true,
	"body":     true,
	"content":  true,
	"context":  true,
	"prompt":   true,
}

// secretKeys hold credentials
var secretKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"api_key":             true,
	"apikey":              true,
	"api-key":             true,
	"x-api-key":           true,
	"password":            true,
	"secret":              true,
	"token":               true,
	"access_token":        true,
}

var secretKeywords = []string{"password", "secret", "token", "auth", "credential"}

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`^sk-[A-Za-z0-9_-]{16,}$`),
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
}

// RedactingHandler wraps an slog.Handler and masks sensitive attributes
type RedactingHandler struct {
	handler slog.Handler
}

// NewRedactingHandler wraps handler; nil wraps the default handler
func NewRedactingHandler(handler slog.Handler) *RedactingHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &RedactingHandler{handler: handler}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	redacted := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(redactAttr(a))
		return true
	})
	return h.handler.Handle(ctx, redacted)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = redactAttr(a)
	}
	return &RedactingHandler{handler: h.handler.WithAttrs(out)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{handler: h.handler.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			out[i] = redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	key := strings.ToLower(a.Key)
	if contentKeys[key] {
		if a.Value.Kind() == slog.KindString {
			return slog.String(a.Key, fmt.Sprintf("[%d chars redacted]", utf8.RuneCountInString(a.Value.String())))
		}
		return slog.String(a.Key, MaskValue)
	}
	if secretKeys[key] || containsSecretKeyword(key) {
		return slog.String(a.Key, MaskValue)
	}
	if a.Value.Kind() == slog.KindString && isSecretValue(a.Value.String()) {
		return slog.String(a.Key, MaskValue)
	}
	return a
}

func containsSecretKeyword(key string) bool {
	for _, kw := range secretKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

func isSecretValue(v string) bool {
	for _, p := range secretPatterns {
		if p.MatchString(v) {
			return true
		}
	}
	return false
}

// New creates a redacting text logger. Verbose enables debug output;
// otherwise only warnings and errors are written.
func New(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewRedactingHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level(verbose)})))
}

// NewJSON creates a redacting JSON logger
func NewJSON(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewRedactingHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level(verbose)})))
}

func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}
