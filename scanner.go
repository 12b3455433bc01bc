package texsync

import (
	"fmt"

	"go.uber.org/zap"
)

// ScanResult summarizes one retroactive scan pass.
type ScanResult struct {
	// Processed counts materials newly registered by this pass. A repeat
	// scan over an unchanged scene processes zero.
	Processed int

	// Errors counts materials that matched the predicate but could not be
	// processed. The walk continues past them; the scanner exists to
	// repair inconsistent scenes, and aborting on the first bad object
	// would defeat that.
	Errors int

	Failures []*MaterialProcessingError
}

// Scanner walks a scene graph on demand to discover and register materials
// that entered the scene outside the normal add-path: out-of-band model
// loads, scene restores, recovery passes. It shares the registry's predicate
// logic, so it can never disagree with the normal path about which materials
// qualify.
type Scanner struct {
	registry *MaterialRegistry
	log      *zap.Logger
}

// NewScanner creates a scanner registering into the given registry.
func NewScanner(registry *MaterialRegistry, log *zap.Logger) (*Scanner, error) {
	if registry == nil {
		return nil, fmt.Errorf("texsync: scanner requires a registry: %w", ErrInvalidArgument)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{registry: registry, log: log}, nil
}

// Scan walks the whole tree rooted at root, visiting every node's materials,
// deduplicating by UUID within this single pass (one mesh may reference an
// array of materials, and meshes may share materials), applying pred to each
// unseen material, and registering matches with the given mirror applied
// immediately.
//
// A nil pred uses the registry's predicate. A non-nil mirror becomes the
// registry's current mirror before registration, so newly registered
// materials receive it at once. Running Scan twice on an unchanged scene
// registers nothing the second time.
func (sc *Scanner) Scan(root *Node, pred MaterialPredicate, mirror *TextureMirror) (ScanResult, error) {
	return sc.ScanSkipping(root, pred, mirror, nil)
}

// ScanSkipping is Scan with a subtree filter: any node skip reports true for
// is not visited and not descended into. Recovery passes use it to keep
// materials belonging to instances with their own pipeline out of the shared
// registry.
func (sc *Scanner) ScanSkipping(root *Node, pred MaterialPredicate, mirror *TextureMirror, skip func(*Node) bool) (ScanResult, error) {
	var res ScanResult
	if root == nil {
		return res, fmt.Errorf("texsync: scan requires a scene root: %w", ErrInvalidArgument)
	}
	if pred == nil {
		pred = sc.registry.Matches
	}
	if mirror != nil {
		sc.registry.SetMirror(mirror)
	}

	seen := make(map[string]bool)
	var visit func(n *Node)
	visit = func(n *Node) {
		if skip != nil && skip(n) {
			return
		}
		for _, m := range n.Materials {
			sc.scanMaterial(m, n, pred, seen, &res)
		}
		for _, child := range n.Children() {
			visit(child)
		}
	}
	visit(root)

	if res.Processed > 0 || res.Errors > 0 {
		sc.log.Info("retroactive scan complete",
			zap.Int("processed", res.Processed),
			zap.Int("errors", res.Errors))
	}
	return res, nil
}

// ScanInstance is Scan restricted to the subtree of one model instance,
// avoiding full-scene cost when only a newly added model needs processing.
// An unknown instance ID is an error, not an empty result: the caller asked
// to repair a specific model and silence would mask the miss.
func (sc *Scanner) ScanInstance(root *Node, instanceID string, pred MaterialPredicate, mirror *TextureMirror) (ScanResult, error) {
	if root == nil {
		return ScanResult{}, fmt.Errorf("texsync: scan requires a scene root: %w", ErrInvalidArgument)
	}
	sub := root.FindInstance(instanceID)
	if sub == nil {
		return ScanResult{}, fmt.Errorf("texsync: instance %q not found in scene: %w", instanceID, ErrInvalidArgument)
	}
	return sc.Scan(sub, pred, mirror)
}

// scanMaterial processes one material reference during a walk. Failures are
// collected, never propagated; the walk must continue past corrupt objects.
func (sc *Scanner) scanMaterial(m Material, n *Node, pred MaterialPredicate, seen map[string]bool, res *ScanResult) {
	if m == nil {
		res.Errors++
		res.Failures = append(res.Failures, &MaterialProcessingError{
			Name: n.Name,
			Err:  fmt.Errorf("nil material on node %q: %w", n.Name, ErrInvalidArgument),
		})
		return
	}
	id := m.UUID()
	if id == "" {
		res.Errors++
		res.Failures = append(res.Failures, &MaterialProcessingError{
			Name: m.Name(),
			Err:  fmt.Errorf("material on node %q has no uuid: %w", n.Name, ErrInvalidArgument),
		})
		return
	}
	if seen[id] {
		return
	}
	seen[id] = true

	if !pred(m) {
		return
	}

	added, err := sc.registry.Register(m)
	if err != nil {
		res.Errors++
		res.Failures = append(res.Failures, &MaterialProcessingError{UUID: id, Name: m.Name(), Err: err})
		return
	}
	if added {
		res.Processed++
	}
}
