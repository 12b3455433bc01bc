package texsync

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// TweenGroup animates up to 4 float64 fields on a Layer simultaneously.
// Create one via the convenience constructors (TweenCenter, TweenScale,
// TweenOpacity, TweenRotation) and call Update(dt) each frame. Update reports
// whether any field changed; when it did, the caller recomposes the surface
// and requests a scheduler refresh.
//
// There is no global animation manager — users call Update themselves.
type TweenGroup struct {
	tweens [4]*gween.Tween
	count  int
	fields [4]*float64
	Done   bool
}

// Update advances all tweens by dt seconds and writes values to the target
// fields. Returns true if any field was written this call.
func (g *TweenGroup) Update(dt float32) bool {
	if g.Done {
		return false
	}

	allDone := true
	for i := 0; i < g.count; i++ {
		val, finished := g.tweens[i].Update(dt)
		*g.fields[i] = float64(val)
		if !finished {
			allDone = false
		}
	}
	g.Done = allDone
	return true
}

// TweenCenter animates a layer's normalized center to the given UV over the
// specified duration using the easing function.
func TweenCenter(layer *Layer, to UV, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 2}
	g.tweens[0] = gween.New(float32(layer.Placement.Center.U), float32(to.U), duration, fn)
	g.tweens[1] = gween.New(float32(layer.Placement.Center.V), float32(to.V), duration, fn)
	g.fields[0] = &layer.Placement.Center.U
	g.fields[1] = &layer.Placement.Center.V
	return g
}

// TweenScale animates a layer's normalized extents to the given target values
// over the specified duration using the easing function.
func TweenScale(layer *Layer, toSX, toSY float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 2}
	g.tweens[0] = gween.New(float32(layer.Placement.ScaleX), float32(toSX), duration, fn)
	g.tweens[1] = gween.New(float32(layer.Placement.ScaleY), float32(toSY), duration, fn)
	g.fields[0] = &layer.Placement.ScaleX
	g.fields[1] = &layer.Placement.ScaleY
	return g
}

// TweenOpacity animates a layer's opacity to the target value over the
// specified duration using the easing function.
func TweenOpacity(layer *Layer, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 1}
	g.tweens[0] = gween.New(float32(layer.Opacity), float32(to), duration, fn)
	g.fields[0] = &layer.Opacity
	return g
}

// TweenRotation animates a layer's rotation to the target value (radians)
// over the specified duration using the easing function.
func TweenRotation(layer *Layer, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 1}
	g.tweens[0] = gween.New(float32(layer.Placement.Rotation), float32(to), duration, fn)
	g.fields[0] = &layer.Placement.Rotation
	return g
}
