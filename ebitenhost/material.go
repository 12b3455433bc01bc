// Package ebitenhost binds a texsync pipeline to [Ebitengine]: materials
// whose texture slots upload to ebiten images, and a host loop adapter that
// drives the session from ebiten's per-frame Update callback.
//
// It is the reference host integration: everything a real scene-graph
// binding needs sits behind the same three capabilities — a tree walk, a
// writable texture reference per material, and a mark-dirty-for-upload
// signal.
//
// [Ebitengine]: https://ebitengine.org
package ebitenhost

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/tigerpresentations/texsync"
)

// Material is a texsync.Material whose pixels land on an ebiten GPU image.
// SetTexture only swaps the reference and marks the material stale; the
// actual pixel upload happens in Upload, once per frame, version-gated so an
// unchanged mirror costs nothing.
type Material struct {
	uuid string
	name string

	tex      texsync.Texture
	gpu      *ebiten.Image
	uploaded uint64
	disposed bool
}

// NewMaterial creates a host material with the given stable identity and
// name. Materials named with the configured keyword (default "image") are
// the ones the registry and scanner pick up.
func NewMaterial(uuid, name string) *Material {
	return &Material{uuid: uuid, name: name}
}

// UUID returns the material's stable identity.
func (m *Material) UUID() string { return m.uuid }

// Name returns the name used for predicate matching.
func (m *Material) Name() string { return m.name }

// SetTexture points the texture slot at tex. Fails once disposed.
func (m *Material) SetTexture(tex texsync.Texture) error {
	if m.disposed {
		return texsync.ErrMaterialDisposed
	}
	m.tex = tex
	return nil
}

// Texture returns the currently applied texture, or nil.
func (m *Material) Texture() texsync.Texture { return m.tex }

// Upload pushes the current texture's pixels to the GPU image if the
// texture's version advanced since the last upload. The GPU image is
// (re)allocated when the texture resolution changed, e.g. after a quality
// fallback resize. Reports whether an upload happened.
func (m *Material) Upload() bool {
	if m.disposed || m.tex == nil {
		return false
	}
	if m.gpu != nil && m.uploaded == m.tex.Version() {
		return false
	}

	size := m.tex.Size()
	if m.gpu == nil || m.gpu.Bounds().Dx() != size.Width || m.gpu.Bounds().Dy() != size.Height {
		if m.gpu != nil {
			m.gpu.Deallocate()
		}
		m.gpu = ebiten.NewImage(size.Width, size.Height)
	}
	m.gpu.WritePixels(m.tex.RGBA().Pix)
	m.uploaded = m.tex.Version()
	return true
}

// Image returns the GPU image, or nil before the first Upload.
func (m *Material) Image() *ebiten.Image { return m.gpu }

// Dispose releases the GPU image. Further SetTexture calls fail, which bulk
// operations count per material and move on.
func (m *Material) Dispose() {
	m.disposed = true
	if m.gpu != nil {
		m.gpu.Deallocate()
		m.gpu = nil
	}
}
