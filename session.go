package texsync

import (
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
)

// Session is the editor-session context object owning the whole
// canvas-to-texture pipeline: raster surface, texture mirror, material
// registry, update scheduler, retroactive scanner, recovery manager, and
// quality monitor. Every component is reached through the session instead of
// ambient globals, so a new code path cannot forget to update a shared list —
// there is no shared list outside the registry.
//
// A session is single-threaded: all calls happen on the host's frame
// callback thread.
type Session struct {
	cfg Config
	log *zap.Logger

	pipeline *Pipeline
	recovery *RecoveryManager
	quality  *QualityMonitor

	root      *Node
	layers    []*Layer
	instances map[string]*ModelInstance
}

// NewSession constructs a fully wired session. Construction fails fast with
// a validation error when the config is unusable — there is no polling or
// deferred readiness; by the time NewSession returns, every dependency
// exists.
func NewSession(cfg Config, log *zap.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	pred := NameContains(cfg.Canvas.PredicateKeyword)
	pipeline, err := NewPipeline(cfg.Canvas.DisplaySize, cfg.Canvas.TextureSize,
		time.Duration(cfg.Canvas.FrameInterval), pred, cfg.Canvas.filter(), log)
	if err != nil {
		return nil, err
	}
	if cfg.Canvas.Background != "" {
		pipeline.Surface.SetBackground(cfg.Canvas.background())
	}
	recovery, err := NewRecoveryManager(pipeline.Registry, pipeline.Scanner, log)
	if err != nil {
		return nil, err
	}
	quality := NewQualityMonitor(cfg.Quality.Ladder, log)
	if cfg.Quality.MinFPS > 0 {
		quality.MinFPS = cfg.Quality.MinFPS
	}
	if cfg.Quality.RecoverFPS > 0 {
		quality.RecoverFPS = cfg.Quality.RecoverFPS
	}

	return &Session{
		cfg:       cfg,
		log:       log,
		pipeline:  pipeline,
		recovery:  recovery,
		quality:   quality,
		root:      NewGroup("scene"),
		instances: make(map[string]*ModelInstance),
	}, nil
}

// Root returns the scene root all model instances hang from.
func (s *Session) Root() *Node {
	return s.root
}

// Pipeline returns the shared surface/mirror/registry/scheduler set.
func (s *Session) Pipeline() *Pipeline {
	return s.pipeline
}

// Quality returns the adaptive quality monitor.
func (s *Session) Quality() *QualityMonitor {
	return s.quality
}

// Mapper returns a coordinate mapper for the current display and texture
// resolutions. Rebuilt per call; it holds no state beyond the two sizes.
func (s *Session) Mapper() Mapper {
	return Mapper{Display: s.pipeline.Surface.Size(), Texture: s.pipeline.Mirror.Size()}
}

// Layers returns the current layer stack in z-order.
func (s *Session) Layers() []*Layer {
	return s.layers
}

// SetLayers replaces the layer stack and recomposes the surface.
func (s *Session) SetLayers(layers []*Layer) error {
	s.layers = layers
	return s.Compose()
}

// Compose repaints the raster surface from the current layer stack and
// queues a batched mirror refresh. Call after any layer mutation; repeated
// calls within one frame still cost only one refresh.
func (s *Session) Compose() error {
	if err := s.pipeline.Surface.DrawLayers(s.layers); err != nil {
		return err
	}
	s.pipeline.Scheduler.RequestRefresh()
	return nil
}

// Update is the host's per-frame entry point: ticks the shared scheduler,
// any private instance schedulers, and feeds the quality monitor. dt is the
// previous frame's duration in seconds (0 to skip quality sampling).
func (s *Session) Update(now time.Time, dt float64) error {
	if _, err := s.pipeline.Scheduler.Tick(now); err != nil {
		return err
	}
	for _, inst := range s.instances {
		if inst.pipeline != nil {
			if _, err := inst.pipeline.Scheduler.Tick(now); err != nil {
				return err
			}
		}
	}

	if changed, size := s.quality.ObserveFrame(dt); changed {
		if err := s.SetTextureSize(size); err != nil {
			return err
		}
	}
	return nil
}

// Flush forces the surface, mirror, and all registered materials into sync
// immediately. Required before reading pixels for thumbnails or persistence.
func (s *Session) Flush() error {
	return s.pipeline.Scheduler.Flush()
}

// SetTextureSize moves the shared mirror to a new resolution: one resize,
// one flush. Registered materials keep their mirror reference; the flush
// re-applies it and marks them for re-upload.
func (s *Session) SetTextureSize(size int) error {
	if err := s.pipeline.Mirror.Resize(size, size); err != nil {
		return err
	}
	if err := s.pipeline.Scheduler.Flush(); err != nil {
		return err
	}
	s.quality.Reset()
	s.log.Info("texture size changed", zap.Int("size", size))
	return nil
}

// AddModel attaches a model instance to the scene and registers its matching
// materials through the same predicate the retroactive scanner uses — the
// normal add path and the recovery path cannot drift apart. Returns the scan
// result for the instance subtree.
func (s *Session) AddModel(inst *ModelInstance) (ScanResult, error) {
	if inst == nil {
		return ScanResult{}, fmt.Errorf("texsync: add model requires an instance: %w", ErrInvalidArgument)
	}
	if _, ok := s.instances[inst.ID]; ok {
		return ScanResult{}, fmt.Errorf("texsync: instance %q already added: %w", inst.ID, ErrInvalidArgument)
	}

	pipeline := s.pipeline
	if inst.Private {
		p, err := NewPipeline(s.cfg.Canvas.DisplaySize, s.cfg.Canvas.TextureSize,
			time.Duration(s.cfg.Canvas.FrameInterval), NameContains(s.cfg.Canvas.PredicateKeyword),
			s.cfg.Canvas.filter(), s.log)
		if err != nil {
			return ScanResult{}, err
		}
		inst.pipeline = p
		pipeline = p
	}

	s.root.AddChild(inst.Root)
	inst.addedAt = time.Now()

	res, err := pipeline.Scanner.Scan(inst.Root, nil, pipeline.Mirror)
	if err != nil {
		return res, err
	}
	inst.materialIDs = collectRegistered(inst.Root, pipeline.Registry)
	s.instances[inst.ID] = inst

	s.log.Info("model added",
		zap.String("instance", inst.ID),
		zap.Bool("private", inst.Private),
		zap.Int("materials", len(inst.materialIDs)))
	return res, nil
}

// RemoveModel detaches a model instance, unregisters its materials, and
// disposes any private mirror. Removal is explicit — nothing here relies on
// the collector noticing dead materials.
func (s *Session) RemoveModel(id string) error {
	inst, ok := s.instances[id]
	if !ok {
		return fmt.Errorf("texsync: instance %q not found: %w", id, ErrInvalidArgument)
	}

	registry := s.pipeline.Registry
	if inst.pipeline != nil {
		registry = inst.pipeline.Registry
	}
	// The add-time snapshot misses materials a later retroactive scan
	// registered inside this subtree; the current walk misses materials
	// detached out-of-band since then. Unregister the union.
	ids := make(map[string]bool, len(inst.materialIDs))
	for _, uuid := range inst.materialIDs {
		ids[uuid] = true
	}
	for _, uuid := range collectRegistered(inst.Root, registry) {
		ids[uuid] = true
	}
	for uuid := range ids {
		registry.UnregisterUUID(uuid)
	}
	if inst.pipeline != nil {
		inst.pipeline.Dispose()
		inst.pipeline = nil
	}
	inst.Root.Dispose()
	delete(s.instances, id)

	s.log.Info("model removed", zap.String("instance", id))
	return nil
}

// Instance returns a previously added model instance, or nil.
func (s *Session) Instance(id string) *ModelInstance {
	return s.instances[id]
}

// Validate runs a consistency check over the shared registry and mirror.
func (s *Session) Validate() ValidationReport {
	return s.recovery.Validate(s.pipeline.Mirror)
}

// Recover repairs the scene after out-of-band changes: re-establishes the
// mirror if necessary, scans the graph minus private-pipeline subtrees, and
// re-applies the texture to every registered material.
func (s *Session) Recover() (ScanResult, error) {
	mirror, res, err := s.recovery.RecoverSkipping(s.root, s.pipeline.Surface, s.pipeline.Mirror, s.privateSubtree)
	if err != nil {
		return res, err
	}
	if mirror != s.pipeline.Mirror {
		s.pipeline.Mirror = mirror
		if err := s.pipeline.Scheduler.SetMirror(mirror); err != nil {
			return res, err
		}
	}
	return res, nil
}

// privateSubtree reports whether n roots an instance with its own pipeline.
// Shared-pipeline scans must not descend into such subtrees: their materials
// belong to the private registry and mirror.
func (s *Session) privateSubtree(n *Node) bool {
	if n.InstanceID == "" {
		return false
	}
	inst, ok := s.instances[n.InstanceID]
	return ok && inst.Private
}

// ConsistencyState returns the recovery manager's current state.
func (s *Session) ConsistencyState() ConsistencyState {
	return s.recovery.State()
}

// Thumbnail flushes the pipeline and returns a downscaled copy of the
// surface's current pixels.
func (s *Session) Thumbnail(width, height int) (*image.RGBA, error) {
	if err := validDimensions(width, height); err != nil {
		return nil, err
	}
	if err := s.Flush(); err != nil {
		return nil, err
	}
	src := s.pipeline.Surface.RGBA()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// collectRegistered walks a subtree and records the UUIDs of its materials
// that ended up in the registry.
func collectRegistered(root *Node, registry *MaterialRegistry) []string {
	var ids []string
	seen := make(map[string]bool)
	root.Walk(func(n *Node) bool {
		for _, m := range n.Materials {
			if m == nil {
				continue
			}
			id := m.UUID()
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			if registry.Contains(id) {
				ids = append(ids, id)
			}
		}
		return true
	})
	return ids
}
