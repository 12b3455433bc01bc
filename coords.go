package texsync

// UV is a layer-space coordinate normalized to [0, 1] on both axes. Layer
// positions are stored in UV rather than pixels so they survive any change of
// display or texture resolution: converting to either pixel space is a pure
// multiplication and the normalized value itself is never rewritten.
type UV struct {
	U, V float64
}

// Size is a validated pixel resolution.
type Size struct {
	Width, Height int
}

// NewSize validates a resolution. Zero or negative dimensions are rejected
// with ErrInvalidDimension, never clamped.
func NewSize(width, height int) (Size, error) {
	if err := validDimensions(width, height); err != nil {
		return Size{}, err
	}
	return Size{Width: width, Height: height}, nil
}

// Placement positions a layer in normalized space: Center is the layer's
// midpoint in UV, ScaleX/ScaleY are extents relative to the full surface
// (1.0 spans the whole axis), Rotation is clockwise radians about Center.
type Placement struct {
	Center   UV
	ScaleX   float64
	ScaleY   float64
	Rotation float64
}

// Mapper converts between the three coordinate spaces: display-surface
// pixels, texture-surface pixels, and normalized layer space. It holds only
// the two current resolutions; every conversion is a pure function of them.
type Mapper struct {
	Display Size
	Texture Size
}

// NewMapper builds a Mapper for the given display and texture resolutions.
// Either resolution being non-positive is ErrInvalidDimension.
func NewMapper(display, texture Size) (Mapper, error) {
	if err := validDimensions(display.Width, display.Height); err != nil {
		return Mapper{}, err
	}
	if err := validDimensions(texture.Width, texture.Height); err != nil {
		return Mapper{}, err
	}
	return Mapper{Display: display, Texture: texture}, nil
}

// ToDisplayPixels converts a normalized coordinate to display-surface pixels.
func (m Mapper) ToDisplayPixels(c UV) (x, y float64) {
	return c.U * float64(m.Display.Width), c.V * float64(m.Display.Height)
}

// ToTexturePixels converts a normalized coordinate to texture-surface pixels.
func (m Mapper) ToTexturePixels(c UV) (x, y float64) {
	return c.U * float64(m.Texture.Width), c.V * float64(m.Texture.Height)
}

// FromDisplayPixels converts display-surface pixels back to normalized space.
func (m Mapper) FromDisplayPixels(x, y float64) UV {
	return UV{U: x / float64(m.Display.Width), V: y / float64(m.Display.Height)}
}

// FromTexturePixels converts texture-surface pixels back to normalized space.
func (m Mapper) FromTexturePixels(x, y float64) UV {
	return UV{U: x / float64(m.Texture.Width), V: y / float64(m.Texture.Height)}
}

// WithTexture returns a copy of the Mapper with a new texture resolution.
// Stored UV coordinates stay valid; only the conversion factor changes.
func (m Mapper) WithTexture(texture Size) (Mapper, error) {
	return NewMapper(m.Display, texture)
}
