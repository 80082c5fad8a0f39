package collector

import (
	"context"
	"regexp"
	"strings"

	"worktrack/internal/event"
)

// Source yields the current foreground window on demand. A nil FocusInfo
// with a nil error means there is nothing usable to report right now.
type Source interface {
	Sample(ctx context.Context) (*event.FocusInfo, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context) (*event.FocusInfo, error)

func (f SourceFunc) Sample(ctx context.Context) (*event.FocusInfo, error) { return f(ctx) }

// None never reports a window. Used when no display is available.
var None Source = SourceFunc(func(context.Context) (*event.FocusInfo, error) { return nil, nil })

var (
	screenRe = regexp.MustCompile(`^screen \d+$`)
	urlRe    = regexp.MustCompile(`https?://[^\s"'<>()]+`)
)

// Usable reports whether a sample names a real window rather than the
// desktop, a whole-screen capture or an empty focus.
func Usable(info *event.FocusInfo) bool {
	if info == nil {
		return false
	}
	name := strings.ToLower(strings.TrimSpace(info.AppName))
	switch name {
	case "", "none", "unknown app", "desktop":
		return false
	}
	if strings.HasPrefix(name, "entire screen") || screenRe.MatchString(name) {
		return false
	}
	if strings.EqualFold(info.Title, "No Active Window") {
		return false
	}
	return true
}

// URLFromTitle returns the first http(s) URL embedded in a window title.
func URLFromTitle(title string) string {
	return urlRe.FindString(title)
}
