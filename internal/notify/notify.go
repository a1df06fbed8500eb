// Package notify delivers desktop notifications for recording lifecycle
// events. Notifications are best-effort: delivery failures are logged and
// never interrupt the capture pipeline.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

// appName is the title shown on every notification.
const appName = "s2t"

// Notifier delivers short user-facing status messages.
type Notifier interface {
	// Notify shows a notification with the given message. Implementations
	// must not block on user interaction.
	Notify(message string)
}

// Desktop sends notifications through the platform notification daemon
// (D-Bus on Linux, toast notifications on Windows, Notification Center on
// macOS).
type Desktop struct {
	log *slog.Logger
}

var _ Notifier = (*Desktop)(nil)

// NewDesktop creates a desktop notifier. A nil logger falls back to
// [slog.Default].
func NewDesktop(log *slog.Logger) *Desktop {
	if log == nil {
		log = slog.Default()
	}
	return &Desktop{log: log}
}

// Notify shows a desktop notification. Failures are logged at debug level
// since a missing notification daemon is common on headless systems.
func (d *Desktop) Notify(message string) {
	if err := beeep.Notify(appName, message, ""); err != nil {
		d.log.Debug("desktop notification failed", "error", err)
	}
}

// Noop discards all notifications. Used in silent and headless modes.
type Noop struct{}

var _ Notifier = Noop{}

// Notify does nothing.
func (Noop) Notify(string) {}
