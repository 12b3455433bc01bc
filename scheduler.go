package texsync

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultFrameInterval is one display frame at 60 Hz.
const DefaultFrameInterval = 16 * time.Millisecond

// UpdateScheduler batches "surface changed" signals into at most one mirror
// refresh plus one registry bulk-apply per display frame. RequestRefresh may
// be called once per pixel-level draw operation; the collapse is
// trailing-edge: the refresh that eventually runs sees the surface state as
// of the LAST request before the frame boundary, never a stale intermediate
// paint.
//
// The scheduler is driven by the host's per-frame callback via Tick. It is
// the single writer of the mirror; no other component refreshes it outside
// Flush.
type UpdateScheduler struct {
	surface  *RasterSurface
	mirror   *TextureMirror
	registry *MaterialRegistry
	interval time.Duration
	log      *zap.Logger

	pending bool
	next    time.Time
}

// NewUpdateScheduler wires a scheduler to its inputs. All three collaborators
// are required up front — the constructor fails fast with ErrInvalidArgument
// rather than polling for late-arriving dependencies. A non-positive
// interval uses DefaultFrameInterval.
func NewUpdateScheduler(surface *RasterSurface, mirror *TextureMirror, registry *MaterialRegistry, interval time.Duration, log *zap.Logger) (*UpdateScheduler, error) {
	if surface == nil || mirror == nil || registry == nil {
		return nil, fmt.Errorf("texsync: scheduler requires surface, mirror, and registry: %w", ErrInvalidArgument)
	}
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	registry.SetMirror(mirror)
	return &UpdateScheduler{
		surface:  surface,
		mirror:   mirror,
		registry: registry,
		interval: interval,
		log:      log,
	}, nil
}

// RequestRefresh records that the surface changed. Arbitrarily many calls
// within one frame window collapse into a single refresh at the next Tick.
func (u *UpdateScheduler) RequestRefresh() {
	u.pending = true
}

// Pending reports whether a refresh is queued for the next frame boundary.
func (u *UpdateScheduler) Pending() bool {
	return u.pending
}

// Tick runs at most one batched refresh if one is pending and the frame
// window has elapsed. The host calls this once per display frame with the
// current time. Reports whether a refresh ran. Errors propagate; the frame
// fails rather than retrying silently.
func (u *UpdateScheduler) Tick(now time.Time) (bool, error) {
	if !u.pending || now.Before(u.next) {
		return false, nil
	}
	if err := u.run(); err != nil {
		return false, err
	}
	u.pending = false
	u.next = now.Add(u.interval)
	return true, nil
}

// Flush forces an immediate synchronous refresh, bypassing the batching
// window. Required before any operation that must observe up-to-date pixels:
// thumbnails, scene serialization, quality changes.
func (u *UpdateScheduler) Flush() error {
	if err := u.run(); err != nil {
		return err
	}
	u.pending = false
	return nil
}

// SetMirror swaps in a replacement mirror (quality fallback recreates the
// mirror at a new resolution). The registry is retargeted as well; callers
// follow up with Flush to repopulate and re-apply.
func (u *UpdateScheduler) SetMirror(m *TextureMirror) error {
	if m == nil {
		return fmt.Errorf("texsync: scheduler requires a mirror: %w", ErrInvalidArgument)
	}
	u.mirror = m
	u.registry.SetMirror(m)
	return nil
}

// Mirror returns the mirror the scheduler currently refreshes.
func (u *UpdateScheduler) Mirror() *TextureMirror {
	return u.mirror
}

// Interval returns the configured frame window.
func (u *UpdateScheduler) Interval() time.Duration {
	return u.interval
}

func (u *UpdateScheduler) run() error {
	if err := u.mirror.Refresh(u.surface); err != nil {
		return err
	}
	res := u.registry.ApplyCurrentTexture()
	if res.Errors > 0 {
		u.log.Warn("refresh applied with material failures",
			zap.Int("applied", res.Applied),
			zap.Int("errors", res.Errors))
	}
	return nil
}
