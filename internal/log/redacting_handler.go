package log

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// secretKeys are attribute names whose whole value is withheld.
var secretKeys = map[string]bool{
	"secret":        true,
	"token":         true,
	"session_token": true,
	"password":      true,
	"api_key":       true,
	"key":           true,
	"authorization": true,
	"provider_id":   true,
}

// queryCredential matches credential query parameters inside any logged
// text. The QuickStats API key travels as key=... in the request URL, so
// request and transport errors carry it too.
var queryCredential = regexp.MustCompile(`(?i)([?&](?:key|api_key|token|session_token)=)[^&#\s"']+`)

// RedactingHandler scrubs records before they reach the wrapped handler:
// secret-named attributes lose their value, and credential query parameters
// are masked in URLs, errors and strings anywhere in the record.
type RedactingHandler struct {
	inner slog.Handler
}

func NewRedactingHandler(inner slog.Handler) *RedactingHandler {
	return &RedactingHandler{inner: inner}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, scrubText(record.Message), record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		clean.AddAttrs(scrubAttr(attr))
		return true
	})
	return h.inner.Handle(ctx, clean)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		clean[i] = scrubAttr(attr)
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(clean)}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name)}
}

func scrubAttr(attr slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(attr.Key)] {
		return slog.String(attr.Key, redacted)
	}
	return slog.Attr{Key: attr.Key, Value: scrubValue(attr.Value.Resolve())}
}

func scrubValue(v slog.Value) slog.Value {
	switch v.Kind() {
	case slog.KindString:
		return slog.StringValue(scrubText(v.String()))
	case slog.KindGroup:
		group := v.Group()
		clean := make([]slog.Attr, len(group))
		for i, nested := range group {
			clean[i] = scrubAttr(nested)
		}
		return slog.GroupValue(clean...)
	case slog.KindAny:
		switch x := v.Any().(type) {
		case *url.URL:
			if x != nil {
				return slog.StringValue(scrubText(x.String()))
			}
		case error:
			return slog.StringValue(scrubText(x.Error()))
		}
	}
	return v
}

func scrubText(s string) string {
	if !strings.Contains(s, "=") {
		return s
	}
	return queryCredential.ReplaceAllString(s, "${1}"+redacted)
}
