package texsync

import (
	"fmt"

	"go.uber.org/zap"
)

// ConsistencyState describes whether every registered material is wired to a
// live texture mirror.
type ConsistencyState uint8

const (
	// Consistent: every registered material has the current mirror applied.
	Consistent ConsistencyState = iota
	// Inconsistent: validation found materials without a texture, or no
	// mirror exists at all. Reasons are carried in the ValidationReport.
	Inconsistent
	// Recovering: a scan + bulk apply is in progress.
	Recovering
	// RecoveryFailed: no live mirror could be established (no raster
	// surface available). Terminal until a caller supplies a new surface.
	RecoveryFailed
)

func (s ConsistencyState) String() string {
	switch s {
	case Consistent:
		return "consistent"
	case Inconsistent:
		return "inconsistent"
	case Recovering:
		return "recovering"
	case RecoveryFailed:
		return "recovery-failed"
	default:
		return "unknown"
	}
}

// ValidationReport is the outcome of a consistency check: the resulting
// state and, when inconsistent, the human-readable reasons. The core never
// renders user-facing text itself; a host UI shows these as diagnostics.
type ValidationReport struct {
	State   ConsistencyState
	Reasons []string
}

// RecoveryManager drives the validate/recover cycle over a registry and a
// scanner. Its main use is repairing scenes where objects were added
// out-of-band and never received the shared texture.
type RecoveryManager struct {
	registry *MaterialRegistry
	scanner  *Scanner
	log      *zap.Logger
	state    ConsistencyState
}

// NewRecoveryManager creates a manager in the Consistent state.
func NewRecoveryManager(registry *MaterialRegistry, scanner *Scanner, log *zap.Logger) (*RecoveryManager, error) {
	if registry == nil || scanner == nil {
		return nil, fmt.Errorf("texsync: recovery manager requires a registry and scanner: %w", ErrInvalidArgument)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RecoveryManager{registry: registry, scanner: scanner, log: log}, nil
}

// State returns the current consistency state.
func (r *RecoveryManager) State() ConsistencyState {
	return r.state
}

// Validate checks the registry against the given mirror and records the
// resulting state. It flags a missing mirror and any registered material
// whose texture slot does not hold the current mirror.
func (r *RecoveryManager) Validate(mirror *TextureMirror) ValidationReport {
	var reasons []string

	if mirror == nil || mirror.IsDisposed() {
		reasons = append(reasons, "no live texture mirror")
	} else {
		for _, m := range r.registry.Materials() {
			if m.Texture() == nil {
				reasons = append(reasons, fmt.Sprintf("material %q (%s) has no texture applied", m.Name(), m.UUID()))
				continue
			}
			if tex, ok := m.Texture().(*TextureMirror); ok && tex != mirror {
				reasons = append(reasons, fmt.Sprintf("material %q (%s) holds a stale mirror", m.Name(), m.UUID()))
			}
		}
	}

	if len(reasons) == 0 {
		r.state = Consistent
		return ValidationReport{State: Consistent}
	}
	r.state = Inconsistent
	r.log.Warn("scene consistency check failed", zap.Strings("reasons", reasons))
	return ValidationReport{State: Inconsistent, Reasons: reasons}
}

// Recover repairs an inconsistent scene: establish a live mirror (refreshing
// a replacement from surface if the given one is dead), scan the tree for
// unregistered materials, and bulk-apply the mirror to every registered
// material. On success the state is Consistent and the live mirror is
// returned.
//
// Without a usable mirror OR surface no texture source exists; the state
// becomes the terminal RecoveryFailed and ErrRecoveryFailed is returned. A
// later call with a valid surface may still succeed.
func (r *RecoveryManager) Recover(root *Node, surface *RasterSurface, mirror *TextureMirror) (*TextureMirror, ScanResult, error) {
	return r.RecoverSkipping(root, surface, mirror, nil)
}

// RecoverSkipping is Recover with a subtree filter forwarded to the scan:
// nodes skip reports true for stay out of this registry. Sessions use it so
// a shared-pipeline recovery never captures materials owned by a private
// instance pipeline.
func (r *RecoveryManager) RecoverSkipping(root *Node, surface *RasterSurface, mirror *TextureMirror, skip func(*Node) bool) (*TextureMirror, ScanResult, error) {
	r.state = Recovering

	if mirror == nil || mirror.IsDisposed() {
		if surface == nil {
			r.state = RecoveryFailed
			return nil, ScanResult{}, fmt.Errorf("texsync: no texture source available: %w", ErrRecoveryFailed)
		}
		// The replacement keeps the dead mirror's resolution and filter;
		// recovery must not degrade a quality-ladder choice as a side
		// effect. Only a missing mirror falls back to the surface size.
		size := surface.Size()
		filter := FilterBilinear
		if mirror != nil {
			size = mirror.Size()
			filter = mirror.filter
		}
		fresh, err := NewTextureMirror(size.Width, size.Height, filter)
		if err != nil {
			r.state = RecoveryFailed
			return nil, ScanResult{}, fmt.Errorf("texsync: cannot establish mirror: %w", ErrRecoveryFailed)
		}
		if err := fresh.Refresh(surface); err != nil {
			r.state = RecoveryFailed
			return nil, ScanResult{}, fmt.Errorf("texsync: cannot refresh replacement mirror: %w", ErrRecoveryFailed)
		}
		mirror = fresh
	}

	var res ScanResult
	if root != nil {
		var err error
		res, err = r.scanner.ScanSkipping(root, nil, mirror, skip)
		if err != nil {
			r.state = RecoveryFailed
			return nil, res, err
		}
	} else {
		r.registry.SetMirror(mirror)
	}

	apply := r.registry.ApplyCurrentTexture()
	r.state = Consistent
	r.log.Info("scene recovery complete",
		zap.Int("scanned", res.Processed),
		zap.Int("scanErrors", res.Errors),
		zap.Int("applied", apply.Applied),
		zap.Int("applyErrors", apply.Errors))
	return mirror, res, nil
}
