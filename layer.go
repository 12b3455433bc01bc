package texsync

import "image"

// layerIDCounter is a plain counter (no atomic — texsync is single-threaded).
var layerIDCounter uint32

func nextLayerID() uint32 {
	layerIDCounter++
	return layerIDCounter
}

// Layer is a single draw command consumed by RasterSurface.DrawLayers: an
// image positioned in normalized space. The surface does not interpret layer
// semantics beyond an ordered sequence of paintable regions; z-order is the
// slice order passed to DrawLayers.
type Layer struct {
	ID   uint32
	Name string

	// Image is the source pixels. A nil Image marks the layer malformed;
	// DrawLayers skips it with a warning rather than failing the repaint.
	Image *image.RGBA

	// Placement positions the layer in normalized space so it stays valid
	// across display and texture resolution changes.
	Placement Placement

	// Opacity multiplies the layer's alpha. Range [0, 1].
	Opacity float64

	Visible bool
}

// NewLayer creates a visible, fully opaque layer centered on the surface and
// spanning it edge to edge.
func NewLayer(name string, img *image.RGBA) *Layer {
	return &Layer{
		ID:    nextLayerID(),
		Name:  name,
		Image: img,
		Placement: Placement{
			Center: UV{U: 0.5, V: 0.5},
			ScaleX: 1,
			ScaleY: 1,
		},
		Opacity: 1,
		Visible: true,
	}
}
