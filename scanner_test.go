package texsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildModel returns an instance subtree with the given material names, one
// mesh node per material.
func buildModel(instanceID string, names ...string) *Node {
	root := NewInstanceRoot("model-"+instanceID, instanceID)
	for i, name := range names {
		uuid := instanceID + "-mat-" + string(rune('a'+i))
		root.AddChild(NewMeshNode("mesh", NewBasicMaterial(uuid, name)))
	}
	return root
}

func newTestScanner(t *testing.T) (*Scanner, *MaterialRegistry) {
	t.Helper()
	reg := NewMaterialRegistry(nil, nil)
	sc, err := NewScanner(reg, nil)
	require.NoError(t, err)
	return sc, reg
}

func TestScannerRequiresRegistry(t *testing.T) {
	_, err := NewScanner(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestScanRequiresRoot(t *testing.T) {
	sc, _ := newTestScanner(t)
	_, err := sc.Scan(nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestScanRegistersMatchingMaterials(t *testing.T) {
	sc, reg := newTestScanner(t)
	mirror := newTestMirror(t, 16)

	scene := NewGroup("scene")
	scene.AddChild(buildModel("m1", "Image_Front", "Backer", "image_side"))

	res, err := sc.Scan(scene, nil, mirror)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed, "only the two image-named materials qualify")
	assert.Equal(t, 0, res.Errors)
	assert.Equal(t, 2, reg.Len())

	for _, m := range reg.Materials() {
		assert.Same(t, mirror, m.Texture(), "scan applies the mirror immediately")
	}
}

func TestScanIdempotent(t *testing.T) {
	sc, _ := newTestScanner(t)
	mirror := newTestMirror(t, 16)

	scene := NewGroup("scene")
	scene.AddChild(buildModel("m1", "Image_A", "Image_B"))

	first, err := sc.Scan(scene, nil, mirror)
	require.NoError(t, err)
	assert.Positive(t, first.Processed)

	second, err := sc.Scan(scene, nil, mirror)
	require.NoError(t, err)
	assert.Zero(t, second.Processed, "repeat scan over unchanged scene registers nothing")
	assert.Zero(t, second.Errors)
}

// A single material referenced by several meshes is processed once per pass.
func TestScanDeduplicatesWithinPass(t *testing.T) {
	sc, reg := newTestScanner(t)
	shared := NewBasicMaterial("shared", "Image_Shared")

	scene := NewGroup("scene")
	scene.AddChild(NewMeshNode("mesh1", shared))
	scene.AddChild(NewMeshNode("mesh2", shared, shared))

	res, err := sc.Scan(scene, nil, newTestMirror(t, 16))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, reg.Len())
}

func TestScanCollectsErrorsAndContinues(t *testing.T) {
	sc, reg := newTestScanner(t)

	scene := NewGroup("scene")
	scene.AddChild(NewMeshNode("broken", nil))                                // nil material reference
	scene.AddChild(NewMeshNode("anon", NewBasicMaterial("", "Image_NoID")))   // missing uuid
	scene.AddChild(NewMeshNode("good", NewBasicMaterial("ok", "Image_Good"))) // healthy

	res, err := sc.Scan(scene, nil, newTestMirror(t, 16))
	require.NoError(t, err, "per-material failures must not abort the walk")
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 2, res.Errors)
	assert.Len(t, res.Failures, 2)
	assert.True(t, reg.Contains("ok"))
}

func TestScanCustomPredicateOverride(t *testing.T) {
	sc, reg := newTestScanner(t)

	scene := NewGroup("scene")
	scene.AddChild(NewMeshNode("mesh",
		NewBasicMaterial("a", "Image_A"),
		NewBasicMaterial("b", "Canvas_B")))

	res, err := sc.Scan(scene, NameContains("canvas"), newTestMirror(t, 16))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.True(t, reg.Contains("b"))
	assert.False(t, reg.Contains("a"))
}

func TestScanSkippingExcludesSubtree(t *testing.T) {
	sc, reg := newTestScanner(t)
	scene := NewGroup("scene")
	scene.AddChild(buildModel("keep", "Image_A"))
	scene.AddChild(buildModel("omit", "Image_B"))

	res, err := sc.ScanSkipping(scene, nil, newTestMirror(t, 8), func(n *Node) bool {
		return n.InstanceID == "omit"
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.True(t, reg.Contains("keep-mat-a"))
	assert.False(t, reg.Contains("omit-mat-a"))
}

func TestScanInstanceRestrictsToSubtree(t *testing.T) {
	sc, reg := newTestScanner(t)
	mirror := newTestMirror(t, 16)

	scene := NewGroup("scene")
	scene.AddChild(buildModel("first", "Image_A"))
	scene.AddChild(buildModel("second", "Image_B", "Image_C"))

	res, err := sc.ScanInstance(scene, "second", nil, mirror)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.False(t, reg.Contains("first-mat-a"), "first instance must be untouched")
}

func TestScanInstanceUnknownIDIsError(t *testing.T) {
	sc, _ := newTestScanner(t)
	_, err := sc.ScanInstance(NewGroup("scene"), "nope", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

// Two model instances, one registered through the normal path and one added
// out-of-band: a full-scene scan processes exactly the second instance's
// matching materials, and a repeat scan processes none.
func TestScanRecoversOutOfBandInstanceOnly(t *testing.T) {
	sc, reg := newTestScanner(t)
	mirror := newTestMirror(t, 16)

	scene := NewGroup("scene")
	normal := buildModel("normal", "Image_A", "Image_B")
	scene.AddChild(normal)
	if _, err := sc.Scan(normal, nil, mirror); err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 2, reg.Len())

	outOfBand := buildModel("rogue", "Image_X", "Backer", "image_y")
	scene.AddChild(outOfBand)

	res, err := sc.Scan(scene, nil, mirror)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed, "exactly the rogue instance's matching materials")
	assert.Equal(t, 4, reg.Len())

	again, err := sc.Scan(scene, nil, mirror)
	require.NoError(t, err)
	assert.Zero(t, again.Processed)
}
