package texsync

import (
	"fmt"
	"image"
	"time"

	xdraw "golang.org/x/image/draw"
)

// Filter selects the resampling kernel used when refreshing a TextureMirror
// from a RasterSurface.
type Filter uint8

const (
	// FilterBilinear is the default; it gives the better quality when the
	// texture resolution differs from the display resolution.
	FilterBilinear Filter = iota
	// FilterNearest is an exact point sample, useful for tests and for
	// hosts that want hard pixel edges.
	FilterNearest
)

func (f Filter) interpolator() xdraw.Interpolator {
	if f == FilterNearest {
		return xdraw.NearestNeighbor
	}
	return xdraw.BiLinear
}

// TextureMirror is the GPU-facing copy of a RasterSurface, sized
// independently (typically larger, for quality) and refreshed on demand. Its
// pixel content is always a resampled copy of the surface as of the last
// Refresh; it never diverges once a refresh completes.
//
// The mirror is single-writer: only the Update Scheduler (or an explicit
// Flush path) refreshes it. Registered materials hold read-only references.
type TextureMirror struct {
	size   Size
	pix    *image.RGBA
	filter Filter

	version       uint64
	syncedVersion uint64
	lastSynced    time.Time
	dirty         bool
	disposed      bool
}

// NewTextureMirror allocates a blank mirror at the given texture resolution.
// Non-positive dimensions are ErrInvalidDimension.
func NewTextureMirror(width, height int, filter Filter) (*TextureMirror, error) {
	size, err := NewSize(width, height)
	if err != nil {
		return nil, err
	}
	return &TextureMirror{
		size:   size,
		pix:    image.NewRGBA(image.Rect(0, 0, width, height)),
		filter: filter,
	}, nil
}

// Size returns the current texture resolution.
func (m *TextureMirror) Size() Size {
	return m.size
}

// RGBA exposes the resampled buffer for GPU upload. Read-only for callers.
func (m *TextureMirror) RGBA() *image.RGBA {
	return m.pix
}

// Version returns the mirror's monotonic refresh counter.
func (m *TextureMirror) Version() uint64 {
	return m.version
}

// Stale reports whether the surface has been drawn since the last Refresh.
func (m *TextureMirror) Stale(surface *RasterSurface) bool {
	return surface != nil && m.syncedVersion < surface.Version()
}

// Refresh resamples the surface's current content into the mirror's buffer at
// the mirror's own resolution. On return the mirror's version is strictly
// greater than before and at least the surface's version at call time, so
// callers detect staleness by comparing versions, never by diffing pixels.
func (m *TextureMirror) Refresh(surface *RasterSurface) error {
	if m.disposed {
		return fmt.Errorf("texsync: refresh on disposed mirror: %w", ErrInvalidArgument)
	}
	if surface == nil {
		return fmt.Errorf("texsync: refresh requires a surface: %w", ErrInvalidArgument)
	}

	src := surface.RGBA()
	m.filter.interpolator().Scale(m.pix, m.pix.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	next := m.version + 1
	if sv := surface.Version(); next < sv {
		next = sv
	}
	m.version = next
	m.syncedVersion = surface.Version()
	m.lastSynced = time.Now()
	m.dirty = true
	return nil
}

// Resize reallocates the buffer at a new resolution. The new buffer is blank:
// Resize deliberately does NOT refresh, so quality-fallback logic can resize
// once and refresh once rather than paying for both on every step. Callers
// must Refresh (or Flush the scheduler) before the mirror is shown again.
func (m *TextureMirror) Resize(width, height int) error {
	if m.disposed {
		return fmt.Errorf("texsync: resize on disposed mirror: %w", ErrInvalidArgument)
	}
	size, err := NewSize(width, height)
	if err != nil {
		return err
	}
	m.size = size
	m.pix = image.NewRGBA(image.Rect(0, 0, width, height))
	m.syncedVersion = 0
	m.dirty = true
	return nil
}

// ConsumeDirty reports whether the mirror needs a GPU re-upload and clears
// the flag. Hosts call this once per frame after the scheduler tick.
func (m *TextureMirror) ConsumeDirty() bool {
	d := m.dirty
	m.dirty = false
	return d
}

// LastSynced returns the wall-clock time of the last completed Refresh.
func (m *TextureMirror) LastSynced() time.Time {
	return m.lastSynced
}

// Dispose releases the buffer. Further Refresh or Resize calls fail.
func (m *TextureMirror) Dispose() {
	m.pix = nil
	m.disposed = true
}

// IsDisposed reports whether Dispose has been called.
func (m *TextureMirror) IsDisposed() bool {
	return m.disposed
}
