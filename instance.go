package texsync

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ModelInstance is one loaded model in the scene: an instance ID, the root
// node of its subtree, and the set of material UUIDs discovered for it at
// add time or by a retroactive scan. Instances share the session's pipeline
// by default; setting Private gives the instance its own
// surface/mirror/registry/scheduler so it can carry an independent canvas.
type ModelInstance struct {
	ID   string
	Root *Node

	// Private requests a per-instance pipeline instead of the shared one.
	Private bool

	// materialIDs are the UUIDs registered for this instance, recorded so
	// removal can unregister them even after the materials are disposed.
	materialIDs []string

	pipeline *Pipeline
	addedAt  time.Time
}

// NewModelInstance wraps a loaded model subtree. The root's InstanceID is
// set to id so subtree-restricted scans can find it.
func NewModelInstance(id string, root *Node) (*ModelInstance, error) {
	if id == "" || root == nil {
		return nil, fmt.Errorf("texsync: model instance requires an id and root: %w", ErrInvalidArgument)
	}
	root.InstanceID = id
	return &ModelInstance{ID: id, Root: root}, nil
}

// Pipeline returns the instance's private pipeline, or nil when it shares
// the session's.
func (mi *ModelInstance) Pipeline() *Pipeline {
	return mi.pipeline
}

// MaterialIDs returns the UUIDs registered for this instance.
func (mi *ModelInstance) MaterialIDs() []string {
	return append([]string(nil), mi.materialIDs...)
}

// Pipeline bundles one surface/mirror/registry/scheduler set. The session
// owns a shared pipeline; a ModelInstance marked Private owns another. The
// per-instance case is just one more instantiation of the same four parts.
type Pipeline struct {
	Surface   *RasterSurface
	Mirror    *TextureMirror
	Registry  *MaterialRegistry
	Scheduler *UpdateScheduler
	Scanner   *Scanner
}

// NewPipeline builds a complete pipeline. Fails fast on bad dimensions; no
// component is constructed until all its inputs exist.
func NewPipeline(displaySize, textureSize int, interval time.Duration, pred MaterialPredicate, filter Filter, log *zap.Logger) (*Pipeline, error) {
	surface, err := NewRasterSurface(displaySize, displaySize, log)
	if err != nil {
		return nil, err
	}
	mirror, err := NewTextureMirror(textureSize, textureSize, filter)
	if err != nil {
		return nil, err
	}
	registry := NewMaterialRegistry(pred, log)
	scheduler, err := NewUpdateScheduler(surface, mirror, registry, interval, log)
	if err != nil {
		return nil, err
	}
	scanner, err := NewScanner(registry, log)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Surface:   surface,
		Mirror:    mirror,
		Registry:  registry,
		Scheduler: scheduler,
		Scanner:   scanner,
	}, nil
}

// Dispose releases the pipeline's mirror. The surface and registry hold no
// GPU-facing resources.
func (p *Pipeline) Dispose() {
	if p.Mirror != nil {
		p.Mirror.Dispose()
	}
}
