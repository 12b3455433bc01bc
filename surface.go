package texsync

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// RasterSurface is the display-resolution pixel buffer that is the editable
// source of pixel truth. Its dimensions are fixed at creation; every
// layer-space coordinate in the system is defined relative to it.
//
// The surface tracks a monotonic version counter bumped on every successful
// DrawLayers call, whether or not pixels actually differed. Callers that need
// delta detection compare versions, never pixel content.
type RasterSurface struct {
	size       Size
	pix        *image.RGBA
	background color.RGBA
	version    uint64
	log        *zap.Logger
}

// NewRasterSurface allocates a surface at the given display resolution with
// an opaque white background. Non-positive dimensions are ErrInvalidDimension.
func NewRasterSurface(width, height int, log *zap.Logger) (*RasterSurface, error) {
	size, err := NewSize(width, height)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RasterSurface{
		size:       size,
		pix:        image.NewRGBA(image.Rect(0, 0, width, height)),
		background: color.RGBA{R: 255, G: 255, B: 255, A: 255},
		log:        log,
	}, nil
}

// Size returns the fixed display resolution.
func (s *RasterSurface) Size() Size {
	return s.size
}

// Version returns the monotonic draw counter.
func (s *RasterSurface) Version() uint64 {
	return s.version
}

// RGBA exposes the backing buffer for direct reads (thumbnails, persistence).
// Callers must not mutate it; all writes go through DrawLayers.
func (s *RasterSurface) RGBA() *image.RGBA {
	return s.pix
}

// SetBackground changes the opaque fill painted beneath the layer stack on
// the next DrawLayers call.
func (s *RasterSurface) SetBackground(c color.RGBA) {
	c.A = 255
	s.background = c
}

// DrawLayers repaints the whole buffer from an ordered layer list: opaque
// background first, then each visible layer in slice order. The repaint is
// deterministic — identical layer state produces byte-identical output.
//
// A malformed layer (nil image) is skipped with a warning; partial rendering
// is preferred over blank output. The version counter increments on every
// successful call regardless of whether any pixel changed.
func (s *RasterSurface) DrawLayers(layers []*Layer) error {
	draw.Draw(s.pix, s.pix.Bounds(), image.NewUniform(s.background), image.Point{}, draw.Src)

	for _, l := range layers {
		if l == nil || !l.Visible {
			continue
		}
		if l.Image == nil {
			s.log.Warn("layer has no image data, skipping",
				zap.Uint32("layer", l.ID),
				zap.String("name", l.Name))
			continue
		}
		s.compose(l)
	}

	s.version++
	return nil
}

// compose draws one layer into the buffer using its normalized placement.
func (s *RasterSurface) compose(l *Layer) {
	src := l.Image
	srcW := float64(src.Bounds().Dx())
	srcH := float64(src.Bounds().Dy())
	if srcW == 0 || srcH == 0 {
		return
	}

	w := float64(s.size.Width)
	h := float64(s.size.Height)
	cx := l.Placement.Center.U * w
	cy := l.Placement.Center.V * h

	// ScaleX/ScaleY are extents relative to the surface: 1.0 spans the
	// full axis regardless of the source image's native size.
	sx := l.Placement.ScaleX * w / srcW
	sy := l.Placement.ScaleY * h / srcH

	cos := math.Cos(l.Placement.Rotation)
	sin := math.Sin(l.Placement.Rotation)

	a := sx * cos
	b := -sy * sin
	c := sx * sin
	d := sy * cos
	m := f64.Aff3{
		a, b, cx - a*srcW/2 - b*srcH/2,
		c, d, cy - c*srcW/2 - d*srcH/2,
	}

	var opts *xdraw.Options
	if l.Opacity < 1 {
		alpha := l.Opacity
		if alpha < 0 {
			alpha = 0
		}
		opts = &xdraw.Options{
			SrcMask: image.NewUniform(color.Alpha{A: uint8(math.Round(alpha * 255))}),
		}
	}
	xdraw.BiLinear.Transform(s.pix, m, src, src.Bounds(), xdraw.Over, opts)
}
