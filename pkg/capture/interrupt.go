package capture

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Bridge maps external cancellation sources onto a session's Stop: process
// termination signals, an optional maximum-duration timer, and manual stop
// calls. Whichever trigger fires first wins; the others become no-ops via
// Stop's idempotency. The bridge never touches the device or frame buffer
// directly.
type Bridge struct {
	session *Session

	mu      sync.Mutex
	sigCh   chan os.Signal
	timer   *time.Timer
	closed  bool
	stopped chan struct{}
}

// NewBridge creates a bridge for the given session. Call Close when the
// session ends to release signal registrations and timers.
func NewBridge(s *Session) *Bridge {
	return &Bridge{session: s, stopped: make(chan struct{})}
}

// WatchSignals registers for SIGINT and SIGTERM and stops the session when
// one arrives. The signal path flushes captured audio the same way a manual
// stop does; an interrupt must never discard a recording.
func (b *Bridge) WatchSignals() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.sigCh != nil {
		return
	}
	b.sigCh = make(chan os.Signal, 1)
	signal.Notify(b.sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-b.sigCh:
			slog.Info("received signal, stopping recording", "signal", sig)
			b.Stop()
		case <-b.stopped:
		case <-b.session.Done():
		}
	}()
}

// StopAfter arms a timer that stops the session once d has elapsed,
// independent of the silence gate. A non-positive d is ignored.
func (b *Bridge) StopAfter(d time.Duration) {
	if d <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.timer != nil {
		return
	}
	b.timer = time.AfterFunc(d, func() {
		slog.Info("maximum duration reached, stopping recording", "duration", d)
		b.Stop()
	})
}

// Stop is the manual trigger. It delegates to the session's idempotent Stop;
// calling it after another trigger already fired is a no-op.
func (b *Bridge) Stop() {
	if _, err := b.session.Stop(); err != nil {
		slog.Warn("stop via bridge", "err", err)
	}
}

// Close disarms the timer and unregisters the signal handler. It does not
// stop the session. Safe to call more than once.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.stopped)
	if b.sigCh != nil {
		signal.Stop(b.sigCh)
	}
	if b.timer != nil {
		b.timer.Stop()
	}
}
