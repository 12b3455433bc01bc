package texsync

// nodeIDCounter is a plain counter (no atomic — texsync is single-threaded).
var nodeIDCounter uint32

func nextNodeID() uint32 {
	nodeIDCounter++
	return nodeIDCounter
}

// Node is the scene-graph element the core traverses. The host's real scene
// graph is mirrored into (or adapted to) this tree: group nodes for
// structure, mesh nodes carrying the materials the renderer created for
// them, and instance roots marking where one loaded model begins.
//
// A single flat struct is used for all node kinds to avoid interface
// dispatch during traversal.
type Node struct {
	ID   uint32
	Name string

	// InstanceID is non-empty on the root node of a model instance. The
	// retroactive scanner uses it to restrict a scan to one model.
	InstanceID string

	// Materials are the material handles attached to this node's mesh.
	// Empty for group nodes. A single mesh may reference several
	// materials, possibly sharing UUIDs with other meshes.
	Materials []Material

	Parent   *Node
	children []*Node
	disposed bool
}

// NewGroup creates a structural node with no materials.
func NewGroup(name string) *Node {
	return &Node{ID: nextNodeID(), Name: name}
}

// NewMeshNode creates a leaf node carrying the given materials.
func NewMeshNode(name string, materials ...Material) *Node {
	return &Node{ID: nextNodeID(), Name: name, Materials: materials}
}

// NewInstanceRoot creates the root node for one model instance.
func NewInstanceRoot(name, instanceID string) *Node {
	return &Node{ID: nextNodeID(), Name: name, InstanceID: instanceID}
}

// AddChild appends child to this node's children.
// If child already has a parent, it is removed from that parent first.
// Panics if child is nil or child is an ancestor of this node (cycle).
func (n *Node) AddChild(child *Node) {
	if child == nil {
		panic("texsync: cannot add nil child")
	}
	if isAncestor(child, n) {
		panic("texsync: adding child would create a cycle")
	}
	if child.Parent != nil {
		child.Parent.removeChildByPtr(child)
	}
	child.Parent = n
	n.children = append(n.children, child)
}

// RemoveChild detaches child from this node.
// Panics if child.Parent != n.
func (n *Node) RemoveChild(child *Node) {
	if child.Parent != n {
		panic("texsync: child's parent is not this node")
	}
	n.removeChildByPtr(child)
	child.Parent = nil
}

// RemoveFromParent detaches this node from its parent.
// No-op if this node has no parent.
func (n *Node) RemoveFromParent() {
	if n.Parent == nil {
		return
	}
	n.Parent.RemoveChild(n)
}

// Children returns the node's children. The slice is shared; treat as
// read-only.
func (n *Node) Children() []*Node {
	return n.children
}

// Walk visits n and every descendant in depth-first pre-order. Returning
// false from fn stops the walk.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, child := range n.children {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}

// FindInstance returns the subtree root whose InstanceID matches, or nil.
func (n *Node) FindInstance(instanceID string) *Node {
	var found *Node
	n.Walk(func(node *Node) bool {
		if node.InstanceID == instanceID {
			found = node
			return false
		}
		return true
	})
	return found
}

// Dispose removes this node from its parent, marks it as disposed,
// and recursively disposes all descendants. Material handles are external
// objects and are NOT disposed here — unregister them from the registry
// explicitly before dropping the subtree.
func (n *Node) Dispose() {
	if n.disposed {
		return
	}
	n.RemoveFromParent()
	n.dispose()
}

func (n *Node) dispose() {
	n.disposed = true
	n.ID = 0
	for _, child := range n.children {
		child.Parent = nil
		child.dispose()
	}
	n.children = nil
	n.Parent = nil
	n.Materials = nil
}

// IsDisposed returns true if this node has been disposed.
func (n *Node) IsDisposed() bool {
	return n.disposed
}

// isAncestor reports whether candidate is an ancestor of node.
func isAncestor(candidate, node *Node) bool {
	for p := node; p != nil; p = p.Parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from n.children without clearing child.Parent.
// Uses copy+nil to avoid retaining a dangling pointer in the backing array.
func (n *Node) removeChildByPtr(child *Node) {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}
