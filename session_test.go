package texsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Canvas.DisplaySize = 32
	cfg.Canvas.TextureSize = 64
	cfg.Canvas.Filter = "nearest"
	return cfg
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(testConfig(), nil)
	require.NoError(t, err)
	return s
}

func TestNewSessionRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Canvas.DisplaySize = 0
	_, err := NewSession(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestNewSessionWiring(t *testing.T) {
	s := newTestSession(t)
	require.NotNil(t, s.Pipeline())
	assert.NotNil(t, s.Pipeline().Surface)
	assert.NotNil(t, s.Pipeline().Mirror)
	assert.NotNil(t, s.Pipeline().Registry)
	assert.NotNil(t, s.Pipeline().Scheduler)
	assert.NotNil(t, s.Pipeline().Scanner)
	assert.NotNil(t, s.Root())
	assert.NotNil(t, s.Quality())
	assert.Equal(t, Consistent, s.ConsistencyState())

	m := s.Mapper()
	assert.Equal(t, Size{Width: 32, Height: 32}, m.Display)
	assert.Equal(t, Size{Width: 64, Height: 64}, m.Texture)
}

func TestSessionConfiguredBackground(t *testing.T) {
	cfg := testConfig()
	cfg.Canvas.Background = "#102030"
	s, err := NewSession(cfg, nil)
	require.NoError(t, err)

	require.NoError(t, s.SetLayers(nil))
	got := s.Pipeline().Surface.RGBA().RGBAAt(16, 16)
	assert.Equal(t, uint8(0x10), got.R)
	assert.Equal(t, uint8(0x20), got.G)
	assert.Equal(t, uint8(0x30), got.B)
}

func TestSessionComposeAndFlushSyncsPixels(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.SetLayers([]*Layer{fullBleed("fill", red)}))
	require.NoError(t, s.Flush())

	got := s.Pipeline().Mirror.RGBA().RGBAAt(32, 32)
	colorNear(t, "mirror center", got, red)
	assert.False(t, s.Pipeline().Mirror.Stale(s.Pipeline().Surface))
}

func TestSessionUpdateTicksScheduler(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.SetLayers([]*Layer{fullBleed("fill", blue)}))

	now := time.Now()
	require.NoError(t, s.Update(now, 0))

	got := s.Pipeline().Mirror.RGBA().RGBAAt(32, 32)
	colorNear(t, "mirror center after tick", got, blue)
}

func TestSessionAddModelRegistersMatching(t *testing.T) {
	s := newTestSession(t)
	inst, err := NewModelInstance("stand-1", buildModel("stand-1", "Image_Front", "Backer", "image_side"))
	require.NoError(t, err)

	res, err := s.AddModel(inst)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Zero(t, res.Errors)
	assert.Equal(t, 2, s.Pipeline().Registry.Len())
	assert.Len(t, inst.MaterialIDs(), 2)
	assert.Same(t, inst, s.Instance("stand-1"))

	// Registration applies the current mirror immediately.
	for _, id := range inst.MaterialIDs() {
		assert.True(t, s.Pipeline().Registry.Contains(id))
	}
}

func TestSessionAddModelRejectsDuplicate(t *testing.T) {
	s := newTestSession(t)
	inst, err := NewModelInstance("dup", buildModel("dup", "Image_A"))
	require.NoError(t, err)
	_, err = s.AddModel(inst)
	require.NoError(t, err)

	again, err := NewModelInstance("dup", buildModel("dup", "Image_B"))
	require.NoError(t, err)
	_, err = s.AddModel(again)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSessionAddModelNil(t *testing.T) {
	s := newTestSession(t)
	_, err := s.AddModel(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSessionRemoveModel(t *testing.T) {
	s := newTestSession(t)
	inst, err := NewModelInstance("stand-1", buildModel("stand-1", "Image_Front", "Image_Back"))
	require.NoError(t, err)
	_, err = s.AddModel(inst)
	require.NoError(t, err)
	require.Equal(t, 2, s.Pipeline().Registry.Len())

	require.NoError(t, s.RemoveModel("stand-1"))
	assert.Equal(t, 0, s.Pipeline().Registry.Len())
	assert.Nil(t, s.Instance("stand-1"))
	assert.True(t, inst.Root.IsDisposed())

	assert.ErrorIs(t, s.RemoveModel("stand-1"), ErrInvalidArgument)
}

func TestSessionRemoveModelUnregistersLateMaterials(t *testing.T) {
	s := newTestSession(t)
	inst, err := NewModelInstance("stand-1", buildModel("stand-1", "Image_Front"))
	require.NoError(t, err)
	_, err = s.AddModel(inst)
	require.NoError(t, err)

	// A material entering the subtree after AddModel is registered by a
	// later recovery scan, so the add-time snapshot does not know it.
	late := NewBasicMaterial("m-late", "image_late")
	inst.Root.AddChild(NewMeshNode("late-panel", late))
	_, err = s.Recover()
	require.NoError(t, err)
	require.True(t, s.Pipeline().Registry.Contains("m-late"))

	require.NoError(t, s.RemoveModel("stand-1"))
	assert.False(t, s.Pipeline().Registry.Contains("m-late"))
	assert.Equal(t, 0, s.Pipeline().Registry.Len())
}

func TestSessionRecoverSkipsPrivateInstances(t *testing.T) {
	s := newTestSession(t)
	inst, err := NewModelInstance("solo", buildModel("solo", "Image_Panel"))
	require.NoError(t, err)
	inst.Private = true
	_, err = s.AddModel(inst)
	require.NoError(t, err)

	private := inst.Pipeline()
	require.NotNil(t, private)
	require.Equal(t, 1, private.Registry.Len())
	mat := private.Registry.Materials()[0]
	require.Same(t, private.Mirror, mat.Texture())

	// One rogue shared material next to the private subtree: recovery
	// registers only the rogue, leaving the private instance untouched.
	rogue := NewBasicMaterial("rogue-1", "image_side")
	s.Root().AddChild(NewMeshNode("rogue-mesh", rogue))

	res, err := s.Recover()
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.True(t, s.Pipeline().Registry.Contains("rogue-1"))
	assert.False(t, s.Pipeline().Registry.Contains(mat.UUID()))
	assert.Same(t, private.Mirror, mat.Texture())
}

func TestSessionPrivatePipeline(t *testing.T) {
	s := newTestSession(t)
	inst, err := NewModelInstance("solo", buildModel("solo", "Image_Panel"))
	require.NoError(t, err)
	inst.Private = true

	res, err := s.AddModel(inst)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)

	private := inst.Pipeline()
	require.NotNil(t, private)
	assert.NotSame(t, s.Pipeline(), private)
	// The material went into the private registry, not the shared one.
	assert.Equal(t, 0, s.Pipeline().Registry.Len())
	assert.Equal(t, 1, private.Registry.Len())

	mirror := private.Mirror
	require.NoError(t, s.RemoveModel("solo"))
	assert.True(t, mirror.IsDisposed())
	assert.Nil(t, inst.Pipeline())
}

func TestSessionSetTextureSize(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.SetLayers([]*Layer{fullBleed("fill", red)}))

	require.NoError(t, s.SetTextureSize(128))
	assert.Equal(t, Size{Width: 128, Height: 128}, s.Pipeline().Mirror.Size())
	// SetTextureSize flushes, so the resized mirror carries current pixels.
	colorNear(t, "resized mirror", s.Pipeline().Mirror.RGBA().RGBAAt(64, 64), red)

	assert.ErrorIs(t, s.SetTextureSize(0), ErrInvalidDimension)
}

func TestSessionQualityStepResizesTexture(t *testing.T) {
	cfg := testConfig()
	cfg.Quality.Ladder = []int{64, 16}
	s, err := NewSession(cfg, nil)
	require.NoError(t, err)

	// A full window of 20 FPS frames steps the ladder down; Update applies
	// the new size to the mirror.
	now := time.Now()
	for i := 0; i < defaultQualityWindow; i++ {
		require.NoError(t, s.Update(now, 1.0/20.0))
	}
	assert.Equal(t, Size{Width: 16, Height: 16}, s.Pipeline().Mirror.Size())
}

func TestSessionThumbnail(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.SetLayers([]*Layer{fullBleed("fill", blue)}))

	thumb, err := s.Thumbnail(8, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, thumb.Bounds().Dx())
	assert.Equal(t, 8, thumb.Bounds().Dy())
	colorNear(t, "thumb center", thumb.RGBAAt(4, 4), blue)

	_, err = s.Thumbnail(0, 8)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestSessionValidateConsistent(t *testing.T) {
	s := newTestSession(t)
	inst, err := NewModelInstance("stand-1", buildModel("stand-1", "Image_Front"))
	require.NoError(t, err)
	_, err = s.AddModel(inst)
	require.NoError(t, err)

	report := s.Validate()
	assert.Equal(t, Consistent, report.State)
	assert.Empty(t, report.Reasons)
}

func TestSessionRecoverFromDisposedMirror(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.SetLayers([]*Layer{fullBleed("fill", red)}))
	require.NoError(t, s.Flush())
	inst, err := NewModelInstance("stand-1", buildModel("stand-1", "Image_Front"))
	require.NoError(t, err)
	_, err = s.AddModel(inst)
	require.NoError(t, err)

	old := s.Pipeline().Mirror
	old.Dispose()
	assert.Equal(t, Inconsistent, s.Validate().State)

	_, err = s.Recover()
	require.NoError(t, err)
	assert.Equal(t, Consistent, s.ConsistencyState())

	replaced := s.Pipeline().Mirror
	require.NotSame(t, old, replaced)
	colorNear(t, "rebuilt mirror", replaced.RGBA().RGBAAt(16, 16), red)

	// The scheduler follows the replacement: a later flush refreshes it.
	require.NoError(t, s.SetLayers([]*Layer{fullBleed("fill", blue)}))
	require.NoError(t, s.Flush())
	colorNear(t, "mirror after swap", replaced.RGBA().RGBAAt(16, 16), blue)
}

func TestSessionRecoverPicksUpOutOfBandMaterials(t *testing.T) {
	s := newTestSession(t)

	// A material attached outside AddModel is invisible to the registry
	// until a retroactive scan finds it.
	rogue := NewBasicMaterial("rogue-1", "image_side_9")
	s.Root().AddChild(NewMeshNode("rogue-mesh", rogue))
	require.Equal(t, 0, s.Pipeline().Registry.Len())

	res, err := s.Recover()
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.True(t, s.Pipeline().Registry.Contains("rogue-1"))
	assert.Same(t, s.Pipeline().Mirror, rogue.Texture())
}
