// Package scene holds the retained scene graph the streaming clients reconcile against: nodes that
// can hold children, frame tracking attachments and the entity lifecycle shared by every client.
package scene

import (
	"sync"

	"go.viam.com/rosscene/spatialmath"
)

// Node is an element of the scene graph. Renderable objects produced by geometry builders are
// nodes too; Dispose frees whatever GPU resident buffers they own.
type Node interface {
	Name() string
	// Add attaches child. Adding a node that is already a child is a no-op.
	Add(child Node)
	// Remove detaches child and reports whether it was attached.
	Remove(child Node) bool
	Children() []Node
	Pose() spatialmath.Pose
	SetPose(pose spatialmath.Pose)
	Visible() bool
	SetVisible(visible bool)
	// Dispose releases the resources owned by the node. It does not detach the node.
	Dispose()
}

// NodeBase implements Node and is meant to be embedded, by pointer, in concrete node types. It is
// safe for concurrent use since a root container is usually shared between several clients.
type NodeBase struct {
	mu        sync.RWMutex
	name      string
	children  []Node
	pose      spatialmath.Pose
	visible   bool
	disposals int
}

// NewNodeBase returns a visible NodeBase with an identity pose.
func NewNodeBase(name string) *NodeBase {
	return &NodeBase{name: name, pose: spatialmath.NewZeroPose(), visible: true}
}

// Name returns the name of the node.
func (nb *NodeBase) Name() string {
	return nb.name
}

// Add implements Node.
func (nb *NodeBase) Add(child Node) {
	if child == nil {
		return
	}
	nb.mu.Lock()
	defer nb.mu.Unlock()
	for _, c := range nb.children {
		if c == child {
			return
		}
	}
	nb.children = append(nb.children, child)
}

// Remove implements Node.
func (nb *NodeBase) Remove(child Node) bool {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	for i, c := range nb.children {
		if c == child {
			nb.children = append(nb.children[:i], nb.children[i+1:]...)
			return true
		}
	}
	return false
}

// Children returns a copy of the child list.
func (nb *NodeBase) Children() []Node {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	out := make([]Node, len(nb.children))
	copy(out, nb.children)
	return out
}

// Pose implements Node.
func (nb *NodeBase) Pose() spatialmath.Pose {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	return nb.pose
}

// SetPose implements Node.
func (nb *NodeBase) SetPose(pose spatialmath.Pose) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	nb.pose = pose
}

// Visible implements Node.
func (nb *NodeBase) Visible() bool {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	return nb.visible
}

// SetVisible implements Node.
func (nb *NodeBase) SetVisible(visible bool) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	nb.visible = visible
}

// Dispose records the disposal. Types that own buffers override it and call through.
func (nb *NodeBase) Dispose() {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	nb.disposals++
}

// Disposals returns how many times Dispose was called.
func (nb *NodeBase) Disposals() int {
	nb.mu.RLock()
	defer nb.mu.RUnlock()
	return nb.disposals
}

// Group collects nodes without rendering anything itself. It is the default root container.
type Group struct {
	*NodeBase
}

// NewGroup returns an empty group.
func NewGroup(name string) *Group {
	return &Group{NodeBase: NewNodeBase(name)}
}

// Walk calls fn for node and every descendant, depth first. Returning false from fn skips the
// children of that node.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for _, child := range node.Children() {
		Walk(child, fn)
	}
}

// Count returns the number of nodes below root, root excluded.
func Count(root Node) int {
	n := -1
	Walk(root, func(Node) bool {
		n++
		return true
	})
	return n
}
