package texsync

import (
	"image"
	"strings"
)

// Texture is what a material's texture slot receives: read access to the
// current resampled pixels and a version for staleness checks. *TextureMirror
// is the canonical implementation.
type Texture interface {
	Size() Size
	RGBA() *image.RGBA
	Version() uint64
}

// Material is the minimal contract a scene-graph material must satisfy to be
// tracked by the registry. Materials are external objects — created by model
// loading, referenced here but never owned. UUID must be stable for the
// material's lifetime; Name is the human-readable label the predicate
// matches against.
//
// SetTexture may fail (for example on a disposed material); bulk operations
// count such failures per material instead of aborting.
type Material interface {
	UUID() string
	Name() string
	SetTexture(tex Texture) error
	Texture() Texture
}

// MaterialPredicate decides whether a material should receive the shared
// texture. The predicate is defined exactly once and shared by the normal
// registration path and the retroactive scanner, so the two paths can never
// drift apart.
type MaterialPredicate func(m Material) bool

// DefaultKeyword is the substring that marks a material as texture-receiving.
const DefaultKeyword = "image"

// NameContains returns the standard predicate: a case-insensitive substring
// test of the material name against keyword. An empty keyword falls back to
// DefaultKeyword.
func NameContains(keyword string) MaterialPredicate {
	if keyword == "" {
		keyword = DefaultKeyword
	}
	keyword = strings.ToLower(keyword)
	return func(m Material) bool {
		if m == nil {
			return false
		}
		return strings.Contains(strings.ToLower(m.Name()), keyword)
	}
}

// BasicMaterial is a plain in-memory Material. Hosts with their own material
// objects implement the Material interface directly; BasicMaterial covers
// tests, tools, and hosts that only need a texture slot.
type BasicMaterial struct {
	uuid     string
	name     string
	tex      Texture
	disposed bool
}

// NewBasicMaterial creates a material with the given stable identity and name.
func NewBasicMaterial(uuid, name string) *BasicMaterial {
	return &BasicMaterial{uuid: uuid, name: name}
}

// UUID returns the material's stable identity.
func (m *BasicMaterial) UUID() string { return m.uuid }

// Name returns the human-readable name used for predicate matching.
func (m *BasicMaterial) Name() string { return m.name }

// SetTexture points the texture slot at tex. Fails once disposed.
func (m *BasicMaterial) SetTexture(tex Texture) error {
	if m.disposed {
		return ErrMaterialDisposed
	}
	m.tex = tex
	return nil
}

// Texture returns the currently applied texture, or nil.
func (m *BasicMaterial) Texture() Texture { return m.tex }

// Dispose marks the material dead: SetTexture fails afterward. The texture
// slot keeps its last value so late bulk applies can be shown to leave it
// untouched.
func (m *BasicMaterial) Dispose() { m.disposed = true }

// IsDisposed reports whether Dispose has been called.
func (m *BasicMaterial) IsDisposed() bool { return m.disposed }
