package logging

import (
	"context"
	"io"
	"log/slog"

	"github.com/hashicorp/go-hclog"
)

// hclogHandler forwards slog records to a go-hclog logger.
type hclogHandler struct {
	logger hclog.Logger
	prefix string
}

func newHCLogHandler(w io.Writer, level slog.Level, color bool) *hclogHandler {
	colorOpt := hclog.ColorOff
	if color {
		colorOpt = hclog.ForceColor
	}
	return &hclogHandler{
		logger: hclog.New(&hclog.LoggerOptions{
			Name:       "clipshuffle",
			Level:      toHCLevel(level),
			Output:     w,
			Color:      colorOpt,
			TimeFormat: "15:04:05.000",
		}),
	}
}

func toHCLevel(level slog.Level) hclog.Level {
	switch {
	case level < slog.LevelDebug:
		return hclog.Trace
	case level < slog.LevelInfo:
		return hclog.Debug
	case level < slog.LevelWarn:
		return hclog.Info
	case level < slog.LevelError:
		return hclog.Warn
	default:
		return hclog.Error
	}
}

func (h *hclogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return toHCLevel(level) >= h.logger.GetLevel()
}

func (h *hclogHandler) Handle(_ context.Context, r slog.Record) error {
	args := make([]interface{}, 0, r.NumAttrs()*2)
	r.Attrs(func(a slog.Attr) bool {
		args = appendAttr(args, h.prefix, a)
		return true
	})
	h.logger.Log(toHCLevel(r.Level), r.Message, args...)
	return nil
}

func (h *hclogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	args := make([]interface{}, 0, len(attrs)*2)
	for _, a := range attrs {
		args = appendAttr(args, h.prefix, a)
	}
	return &hclogHandler{logger: h.logger.With(args...), prefix: h.prefix}
}

func (h *hclogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &hclogHandler{logger: h.logger, prefix: h.prefix + name + "."}
}

// appendAttr flattens a into key/value pairs, joining group names with dots.
func appendAttr(args []interface{}, prefix string, a slog.Attr) []interface{} {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range v.Group() {
			args = appendAttr(args, p, ga)
		}
		return args
	}
	if a.Key == "" {
		return args
	}
	return append(args, prefix+a.Key, v.Any())
}
