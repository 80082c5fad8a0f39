package x11

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"

	"worktrack/internal/collector"
	"worktrack/internal/event"
)

// Source reads the active window through EWMH.
type Source struct {
	X *xgbutil.XUtil
}

var _ collector.Source = (*Source)(nil)

func NewSource() (*Source, error) {
	X, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	// _NET_ACTIVE_WINDOW and _NET_WM_NAME need an EWMH window manager
	if _, err := ewmh.CurrentDesktopGet(X); err != nil {
		log.Printf("Warning: EWMH potentially not supported by Window Manager: %v", err)
	}

	return &Source{X: X}, nil
}

// Sample returns the focused window, or nil when nothing has focus.
// X round trips are short, but the context is honoured before and after.
func (s *Source) Sample(ctx context.Context) (*event.FocusInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	activeWinID, err := ewmh.ActiveWindowGet(s.X)
	if err != nil {
		return nil, fmt.Errorf("could not get active window ID: %w", err)
	}
	if activeWinID == 0 {
		return nil, nil
	}

	// _NET_WM_NAME preferred, WM_NAME as fallback
	title, err := ewmh.WmNameGet(s.X, activeWinID)
	if err != nil || title == "" {
		title, err = icccm.WmNameGet(s.X, activeWinID)
		if err != nil {
			title = ""
		}
	}

	appName := ""
	classHints, err := icccm.WmClassGet(s.X, activeWinID)
	if err == nil && classHints != nil {
		appName = classHints.Class
	}
	if appName == "" {
		appName = title
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &event.FocusInfo{
		AppName: strings.TrimSpace(appName),
		Title:   strings.TrimSpace(title),
		URL:     collector.URLFromTitle(title),
	}, nil
}

func (s *Source) Close() error {
	if s.X != nil {
		s.X.Conn().Close()
	}
	return nil
}
