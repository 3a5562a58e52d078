package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/term"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// MavenHandler is a slog.Handler that formats logs in Maven-style:
// [LEVEL] [SYSTEM] [HH:MM:SS] message key=value key=value
type MavenHandler struct {
	w              io.Writer
	level          slog.Leveler
	mu             *sync.Mutex
	system         string // e.g., "self", "cross", "api"
	showTimestamps bool
	useColors      bool
	prefix         string // Dotted group path for later attributes
	attrs          []string
}

// Compile-time check that MavenHandler implements slog.Handler
var _ slog.Handler = (*MavenHandler)(nil)

// NewMavenHandler creates a new Maven-style handler
func NewMavenHandler(w io.Writer, opts *slog.HandlerOptions) *MavenHandler {
	h := &MavenHandler{
		w:              w,
		level:          slog.LevelInfo,
		mu:             &sync.Mutex{},
		showTimestamps: true,
		useColors:      IsTerminal(w),
	}

	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}

	return h
}

// WithoutTimestamps returns a copy that omits the [HH:MM:SS] column
func (h *MavenHandler) WithoutTimestamps() *MavenHandler {
	c := h.clone()
	c.showTimestamps = false
	return c
}

// IsTerminal checks if the writer is a terminal
func IsTerminal(w any) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// Enabled reports whether the handler handles records at the given level.
func (h *MavenHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes a log record
func (h *MavenHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	// [LEVEL] with color
	h.colored(&buf, h.levelColor(r.Level), "["+levelString(r.Level)+"]")

	// [SYSTEM]
	if h.system != "" {
		buf.WriteString(" [")
		buf.WriteString(h.system)
		buf.WriteString("]")
	}

	// [HH:MM:SS] in gray
	if h.showTimestamps && !r.Time.IsZero() {
		buf.WriteString(" ")
		h.colored(&buf, colorGray, "["+r.Time.Format("15:04:05")+"]")
	}

	buf.WriteString(" ")
	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(a)
	}

	r.Attrs(func(a slog.Attr) bool {
		// Skip system attr, already shown in bracket
		if a.Key != "system" || h.prefix != "" {
			appendAttr(&buf, h.prefix, a)
		}
		return true
	})

	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, buf.String())
	return err
}

func (h *MavenHandler) colored(buf *strings.Builder, color, s string) {
	if h.useColors {
		buf.WriteString(color)
		buf.WriteString(s)
		buf.WriteString(colorReset)
		return
	}
	buf.WriteString(s)
}

// appendAttr appends key=value pairs, flattening groups into dotted keys
func appendAttr(buf *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range group {
			appendAttr(buf, p, ga)
		}
		return
	}

	buf.WriteString(" ")
	buf.WriteString(prefix)
	buf.WriteString(a.Key)
	buf.WriteString("=")
	buf.WriteString(formatValue(a.Value))
}

// formatValue quotes values that would otherwise be ambiguous on one line
func formatValue(v slog.Value) string {
	var s string
	if v.Kind() == slog.KindString {
		s = v.String()
	} else {
		s = fmt.Sprint(v.Any())
	}
	if s == "" || strings.ContainsAny(s, " =\"\t\n") {
		return strconv.Quote(s)
	}
	return s
}

func (h *MavenHandler) clone() *MavenHandler {
	c := *h
	c.attrs = append([]string(nil), h.attrs...)
	return &c
}

// WithAttrs returns a new handler with the given attributes added
func (h *MavenHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	for _, attr := range attrs {
		// Extract top-level "system" attribute into the bracket
		if attr.Key == "system" && h.prefix == "" {
			c.system = attr.Value.String()
			continue
		}
		var buf strings.Builder
		appendAttr(&buf, c.prefix, attr)
		c.attrs = append(c.attrs, buf.String())
	}
	return c
}

// WithGroup returns a new handler whose later attributes are keyed group.key
func (h *MavenHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.prefix = h.prefix + name + "."
	return c
}

// levelColor returns the ANSI color code for a log level (Maven-style)
func (h *MavenHandler) levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed
	case level >= slog.LevelWarn:
		return colorYellow
	case level >= slog.LevelInfo:
		return colorCyan
	default:
		return colorGray
	}
}

// levelString returns a short, uppercase string for the log level
func levelString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", level)
	}
}
