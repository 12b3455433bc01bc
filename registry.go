package texsync

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// registryEntry tracks one registered material. Set-semantics on UUID: the
// registry never holds two entries for the same identity.
type registryEntry struct {
	material     Material
	registeredAt time.Time
}

// ApplyResult summarizes a bulk texture apply: how many materials received
// the texture and how many failed. Per-material failures never abort the
// batch; the dominant failure mode is a few stale or disposed materials among
// many healthy ones, and fail-fast would make recovery useless.
type ApplyResult struct {
	Applied  int
	Errors   int
	Failures []*MaterialProcessingError
}

// MaterialRegistry is the deduplicated set of materials subscribed to the
// current TextureMirror. It replaces the ambient global material list of
// older designs: every code path that adds or removes materials goes through
// Register/Unregister, and bulk apply runs in O(registry size), never
// O(scene size).
type MaterialRegistry struct {
	entries map[string]*registryEntry
	order   []string // stable apply order: registration order
	mirror  *TextureMirror
	pred    MaterialPredicate
	log     *zap.Logger
}

// NewMaterialRegistry creates an empty registry using the given predicate
// (nil means NameContains(DefaultKeyword)).
func NewMaterialRegistry(pred MaterialPredicate, log *zap.Logger) *MaterialRegistry {
	if pred == nil {
		pred = NameContains(DefaultKeyword)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MaterialRegistry{
		entries: make(map[string]*registryEntry),
		pred:    pred,
		log:     log,
	}
}

// Matches applies the registry's predicate. The retroactive scanner reuses
// this exact logic so discovery and registration can never disagree about
// which materials qualify.
func (r *MaterialRegistry) Matches(m Material) bool {
	return r.pred(m)
}

// Register adds a material to the registry. Returns false without effect if
// the UUID is already present. A nil material is ErrInvalidArgument — callers
// filter before registering. On success the current mirror, if any, is
// applied to the material immediately.
func (r *MaterialRegistry) Register(m Material) (bool, error) {
	if m == nil {
		return false, fmt.Errorf("texsync: register requires a material: %w", ErrInvalidArgument)
	}
	id := m.UUID()
	if id == "" {
		return false, fmt.Errorf("texsync: register requires a material uuid: %w", ErrInvalidArgument)
	}
	if _, ok := r.entries[id]; ok {
		return false, nil
	}
	r.entries[id] = &registryEntry{material: m, registeredAt: time.Now()}
	r.order = append(r.order, id)

	if r.mirror != nil {
		if err := m.SetTexture(r.mirror); err != nil {
			r.log.Warn("texture apply on register failed",
				zap.String("uuid", id),
				zap.String("material", m.Name()),
				zap.Error(err))
		}
	}
	return true, nil
}

// Unregister removes a material by identity. Safe on nil, already-removed,
// or disposed materials; reports whether a removal occurred. The material's
// texture slot is left untouched — later bulk applies simply no longer
// reach it.
func (r *MaterialRegistry) Unregister(m Material) bool {
	if m == nil {
		return false
	}
	return r.UnregisterUUID(m.UUID())
}

// UnregisterUUID removes an entry by UUID, for callers that only kept the
// identity of a material that may already be gone.
func (r *MaterialRegistry) UnregisterUUID(uuid string) bool {
	if _, ok := r.entries[uuid]; !ok {
		return false
	}
	delete(r.entries, uuid)
	for i, id := range r.order {
		if id == uuid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// SetMirror swaps the shared texture reference. Called when the mirror is
// first established and when quality fallback recreates it. Materials pick up
// the new reference on the next ApplyCurrentTexture.
func (r *MaterialRegistry) SetMirror(m *TextureMirror) {
	r.mirror = m
}

// Mirror returns the current shared texture, or nil if none is established.
func (r *MaterialRegistry) Mirror() *TextureMirror {
	return r.mirror
}

// ApplyCurrentTexture pushes the current mirror onto every registered
// material's texture slot in registration order. Per-material failures are
// collected into the result, never thrown; the batch always completes.
func (r *MaterialRegistry) ApplyCurrentTexture() ApplyResult {
	var res ApplyResult
	if r.mirror == nil {
		return res
	}
	for _, id := range r.order {
		e := r.entries[id]
		if err := e.material.SetTexture(r.mirror); err != nil {
			res.Errors++
			res.Failures = append(res.Failures, &MaterialProcessingError{
				UUID: id,
				Name: e.material.Name(),
				Err:  err,
			})
			continue
		}
		res.Applied++
	}
	if res.Errors > 0 {
		r.log.Warn("bulk texture apply had failures",
			zap.Int("applied", res.Applied),
			zap.Int("errors", res.Errors))
	}
	return res
}

// Len returns the number of registered materials.
func (r *MaterialRegistry) Len() int {
	return len(r.entries)
}

// Contains reports whether a material with the given UUID is registered.
func (r *MaterialRegistry) Contains(uuid string) bool {
	_, ok := r.entries[uuid]
	return ok
}

// Materials returns the registered materials in registration order. The
// returned slice is a copy.
func (r *MaterialRegistry) Materials() []Material {
	out := make([]Material, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].material)
	}
	return out
}
