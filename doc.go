// Package texsync keeps a 2D paint canvas mirrored onto the materials of a
// 3D scene: one raster surface of pixel truth, a GPU-facing texture mirror at
// an independent resolution, a deduplicated registry of subscribed materials,
// and a frame-driven scheduler that batches any number of paint operations
// into one refresh and one bulk apply per display frame.
//
// # Pipeline
//
// Layer compositing writes into the [RasterSurface]; the [UpdateScheduler]
// collapses change signals and repaints the [TextureMirror] from it at the
// next frame boundary; the [MaterialRegistry] pushes the refreshed mirror to
// every registered material and marks them for re-upload. The [Scanner]
// walks the scene graph on demand to pick up materials that entered the
// scene outside the normal add path, and [RecoveryManager] drives the
// validate/repair cycle over it.
//
// The usual entry point is [Session], which owns one wired set of all of the
// above plus model-instance bookkeeping, adaptive texture quality, and scene
// persistence:
//
//	cfg := texsync.DefaultConfig()
//	sess, err := texsync.NewSession(cfg, logger)
//	if err != nil { ... }
//	sess.SetLayers(layers)
//	// per host frame:
//	sess.Update(time.Now(), dt)
//
// # Coordinates
//
// Layer positions are stored exclusively in normalized [UV] space. Both
// pixel spaces (display and texture) are derived by pure multiplication via
// [Mapper], so changing the texture resolution never rewrites a stored
// coordinate.
//
// # Threading
//
// texsync is single-threaded by design: all mutation happens on the host's
// per-frame callback. The mirror has a single writer (the scheduler); the
// registry only swaps read-only references.
package texsync
