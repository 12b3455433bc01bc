package texsync

import (
	"errors"
	"testing"
	"time"
)

// newTestPipeline wires a small surface/mirror/registry/scheduler set with a
// nearest-neighbor mirror so pixel assertions are exact.
func newTestPipeline(t *testing.T) (*RasterSurface, *TextureMirror, *MaterialRegistry, *UpdateScheduler) {
	t.Helper()
	surface, err := NewRasterSurface(32, 32, nil)
	if err != nil {
		t.Fatal(err)
	}
	mirror, err := NewTextureMirror(32, 32, FilterNearest)
	if err != nil {
		t.Fatal(err)
	}
	registry := NewMaterialRegistry(nil, nil)
	scheduler, err := NewUpdateScheduler(surface, mirror, registry, DefaultFrameInterval, nil)
	if err != nil {
		t.Fatal(err)
	}
	return surface, mirror, registry, scheduler
}

func TestSchedulerConstructorFailsFast(t *testing.T) {
	surface, _ := NewRasterSurface(8, 8, nil)
	mirror, _ := NewTextureMirror(8, 8, FilterNearest)
	registry := NewMaterialRegistry(nil, nil)

	if _, err := NewUpdateScheduler(nil, mirror, registry, 0, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil surface err = %v, want ErrInvalidArgument", err)
	}
	if _, err := NewUpdateScheduler(surface, nil, registry, 0, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil mirror err = %v, want ErrInvalidArgument", err)
	}
	if _, err := NewUpdateScheduler(surface, mirror, nil, 0, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil registry err = %v, want ErrInvalidArgument", err)
	}
}

func TestSchedulerEstablishesMirrorOnRegistry(t *testing.T) {
	_, mirror, registry, _ := newTestPipeline(t)
	if registry.Mirror() != mirror {
		t.Error("constructor should hand the mirror to the registry")
	}
}

func TestTickWithoutRequestDoesNothing(t *testing.T) {
	_, mirror, _, scheduler := newTestPipeline(t)
	ran, err := scheduler.Tick(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if ran {
		t.Error("Tick without RequestRefresh should not run")
	}
	if mirror.Version() != 0 {
		t.Error("mirror must stay untouched")
	}
}

// Any number of requests within one frame window collapse to a single
// refresh, executed with the surface state as of the LAST request
// (trailing-edge batching).
func TestTrailingEdgeBatching(t *testing.T) {
	surface, mirror, _, scheduler := newTestPipeline(t)

	if err := surface.DrawLayers([]*Layer{fullBleed("a", red)}); err != nil {
		t.Fatal(err)
	}
	scheduler.RequestRefresh()

	if err := surface.DrawLayers([]*Layer{fullBleed("b", blue)}); err != nil {
		t.Fatal(err)
	}
	scheduler.RequestRefresh()

	ran, err := scheduler.Tick(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Fatal("Tick with pending request should run")
	}
	colorNear(t, "mirror", mirror.RGBA().RGBAAt(16, 16), blue)

	if mirror.Version() < surface.Version() {
		t.Errorf("mirror version %d below surface version %d", mirror.Version(), surface.Version())
	}
}

func TestOneRefreshPerFrameWindow(t *testing.T) {
	surface, mirror, _, scheduler := newTestPipeline(t)
	if err := surface.DrawLayers(nil); err != nil {
		t.Fatal(err)
	}

	t0 := time.Now()
	scheduler.RequestRefresh()
	ran, err := scheduler.Tick(t0)
	if err != nil || !ran {
		t.Fatalf("first tick ran=%v err=%v", ran, err)
	}
	v1 := mirror.Version()

	// A new request inside the same window must wait for the boundary.
	scheduler.RequestRefresh()
	ran, err = scheduler.Tick(t0.Add(time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if ran {
		t.Error("second refresh inside the frame window should be deferred")
	}
	if mirror.Version() != v1 {
		t.Error("mirror refreshed inside the window")
	}

	ran, err = scheduler.Tick(t0.Add(scheduler.Interval()))
	if err != nil || !ran {
		t.Fatalf("boundary tick ran=%v err=%v", ran, err)
	}
	if mirror.Version() <= v1 {
		t.Error("boundary tick should refresh")
	}
}

func TestTickAppliesTextureToRegistry(t *testing.T) {
	surface, mirror, registry, scheduler := newTestPipeline(t)
	m := NewBasicMaterial("a", "Image_A")
	if _, err := registry.Register(m); err != nil {
		t.Fatal(err)
	}

	if err := surface.DrawLayers(nil); err != nil {
		t.Fatal(err)
	}
	scheduler.RequestRefresh()
	if _, err := scheduler.Tick(time.Now()); err != nil {
		t.Fatal(err)
	}
	if m.Texture() != Texture(mirror) {
		t.Error("tick should bulk-apply the mirror")
	}
}

func TestFlushBypassesWindow(t *testing.T) {
	surface, mirror, _, scheduler := newTestPipeline(t)

	t0 := time.Now()
	scheduler.RequestRefresh()
	if _, err := scheduler.Tick(t0); err != nil {
		t.Fatal(err)
	}
	v1 := mirror.Version()

	// Inside the window: Tick would defer, Flush must not.
	if err := surface.DrawLayers([]*Layer{fullBleed("b", blue)}); err != nil {
		t.Fatal(err)
	}
	scheduler.RequestRefresh()
	if err := scheduler.Flush(); err != nil {
		t.Fatal(err)
	}
	if mirror.Version() <= v1 {
		t.Error("flush should refresh immediately")
	}
	colorNear(t, "mirror", mirror.RGBA().RGBAAt(16, 16), blue)
	if scheduler.Pending() {
		t.Error("flush should clear the pending request")
	}
}

func TestFlushPropagatesRefreshErrors(t *testing.T) {
	_, mirror, _, scheduler := newTestPipeline(t)
	mirror.Dispose()
	if err := scheduler.Flush(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument from disposed mirror", err)
	}
}

func TestSetMirrorRetargetsRegistry(t *testing.T) {
	_, _, registry, scheduler := newTestPipeline(t)
	replacement := newTestMirror(t, 64)

	if err := scheduler.SetMirror(replacement); err != nil {
		t.Fatal(err)
	}
	if scheduler.Mirror() != replacement || registry.Mirror() != replacement {
		t.Error("SetMirror should retarget both scheduler and registry")
	}
	if err := scheduler.SetMirror(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetMirror(nil) err = %v, want ErrInvalidArgument", err)
	}
}
