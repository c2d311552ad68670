// Package platform provides desktop implementations of the notification
// primitives, shelling out to whatever the host OS offers. Every primitive
// degrades to a log line rather than an error when the host has no suitable
// tool; reminder delivery must never depend on one desktop environment.
package platform

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"go.uber.org/zap"

	"github.com/meetsentinel/meetsentinel/notify"
)

// Desktop implements the notifier, popup, badge and navigator primitives.
type Desktop struct {
	logger *zap.Logger
}

var (
	_ notify.Notifier     = (*Desktop)(nil)
	_ notify.PopupSurface = (*Desktop)(nil)
	_ notify.Badge        = (*Desktop)(nil)
	_ notify.Navigator    = (*Desktop)(nil)
)

func NewDesktop(logger *zap.Logger) *Desktop {
	return &Desktop{logger: logger}
}

// Notify posts an OS notification.
func (d *Desktop) Notify(ctx context.Context, n notify.Notification) error {
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", n.Body, n.Title)

		return exec.CommandContext(ctx, "osascript", "-e", script).Run()
	default:
		if _, err := exec.LookPath("notify-send"); err == nil {
			return exec.CommandContext(ctx, "notify-send", "--urgency=critical", n.Title, n.Body).Run()
		}

		d.logger.Info("os notification",
			zap.String("title", n.Title),
			zap.String("body", n.Body))

		return nil
	}
}

// ShowPopup raises a focus-stealing dialog near the active window.
func (d *Desktop) ShowPopup(ctx context.Context, p notify.Popup) error {
	if _, err := exec.LookPath("zenity"); err == nil {
		text := p.Body
		if p.Link != "" {
			text += "\n" + p.Link
		}

		return exec.CommandContext(ctx, "zenity", "--info", "--title", p.Title, "--text", text).Run()
	}

	// fall back to a plain notification
	return d.Notify(ctx, notify.Notification{Title: p.Title, Body: p.Body})
}

// SetState records the badge state. Without a tray surface the persistent
// urgent state is only visible in the log.
func (d *Desktop) SetState(_ context.Context, state notify.BadgeState) error {
	if state.Urgent {
		d.logger.Info("badge urgent",
			zap.String("color", state.Color),
			zap.String("text", state.Text))
	}

	return nil
}

// OpenURL opens the meeting link in the default browser.
func (d *Desktop) OpenURL(ctx context.Context, url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.CommandContext(ctx, "open", url).Run()
	case "windows":
		return exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url).Run()
	default:
		return exec.CommandContext(ctx, "xdg-open", url).Run()
	}
}
