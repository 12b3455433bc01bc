package ebitenhost

import (
	"fmt"
	"time"

	"github.com/tigerpresentations/texsync"
)

// Host drives a texsync session from ebiten's game loop. Call Step from your
// game's Update method; it ticks the session's schedulers and then uploads
// any material whose texture advanced, at most once per material per frame.
type Host struct {
	session *texsync.Session
	last    time.Time
}

// New wraps a session. The session must already be constructed — the host
// never polls for late dependencies.
func New(session *texsync.Session) (*Host, error) {
	if session == nil {
		return nil, fmt.Errorf("ebitenhost: host requires a session: %w", texsync.ErrInvalidArgument)
	}
	return &Host{session: session}, nil
}

// Session returns the wrapped session.
func (h *Host) Session() *texsync.Session {
	return h.session
}

// Step advances the session by one host frame and uploads stale materials.
// Returns the number of GPU uploads performed.
func (h *Host) Step() (int, error) {
	now := time.Now()
	var dt float64
	if !h.last.IsZero() {
		dt = now.Sub(h.last).Seconds()
	}
	h.last = now

	if err := h.session.Update(now, dt); err != nil {
		return 0, err
	}

	uploads := 0
	h.session.Root().Walk(func(n *texsync.Node) bool {
		for _, mat := range n.Materials {
			if hm, ok := mat.(*Material); ok && hm.Upload() {
				uploads++
			}
		}
		return true
	})
	return uploads, nil
}
