// Package octree holds occupancy octrees as published by octomap: decoding of the binary and full
// serializations and conversion of the occupied (or free) leaves into renderable voxels.
package octree

import (
	"image/color"
	"math"

	"github.com/golang/geo/r3"
)

// Each node in the octree is either an internal node linking to further nodes, or a leaf that is
// free or occupied depending on its log-odds value.
const (
	InternalNode = NodeType(iota)
	LeafNodeFree
	LeafNodeOccupied
)

// NodeType represents the possible types of nodes in an octree.
type NodeType uint8

const (
	// MaxDepth is the depth of the leaves at the finest resolution.
	MaxDepth = 16
	// LogOddsFree and LogOddsOccupied are the clamping thresholds octomap uses for leaves stored
	// in the binary format.
	LogOddsFree     = float32(-2)
	LogOddsOccupied = float32(3.5)
	// OccupancyThreshold is the log-odds above which a node counts as occupied.
	OccupancyThreshold = float32(0)
)

// Node is one cell of the tree. Leaves have no children.
type Node struct {
	LogOdds  float32
	Color    color.RGBA
	Children [8]*Node
}

// Type classifies the node.
func (n *Node) Type() NodeType {
	if n.HasChildren() {
		return InternalNode
	}
	if n.Occupied() {
		return LeafNodeOccupied
	}
	return LeafNodeFree
}

// HasChildren reports whether any child exists.
func (n *Node) HasChildren() bool {
	for _, c := range n.Children {
		if c != nil {
			return true
		}
	}
	return false
}

// Occupied reports whether the node's log-odds exceed OccupancyThreshold.
func (n *Node) Occupied() bool {
	return n.LogOdds > OccupancyThreshold
}

// Probability converts the node's log-odds into an occupancy probability.
func (n *Node) Probability() float64 {
	return 1 - 1/(1+math.Exp(float64(n.LogOdds)))
}

// maxChildLogOdds is what octomap assigns to inner nodes.
func (n *Node) maxChildLogOdds() float32 {
	maxLogOdds := float32(math.Inf(-1))
	for _, c := range n.Children {
		if c != nil && c.LogOdds > maxLogOdds {
			maxLogOdds = c.LogOdds
		}
	}
	return maxLogOdds
}

// Tree is a decoded occupancy octree centred on the origin.
type Tree struct {
	Resolution float64
	// Colored is set for trees decoded from a ColorOcTree.
	Colored bool
	Root    *Node
}

// SideLength is the edge length of the root cell.
func (t *Tree) SideLength() float64 {
	return t.Resolution * float64(uint32(1)<<MaxDepth)
}

// Size returns the number of nodes in the tree.
func (t *Tree) Size() int {
	var count func(n *Node) int
	count = func(n *Node) int {
		if n == nil {
			return 0
		}
		total := 1
		for _, c := range n.Children {
			total += count(c)
		}
		return total
	}
	return count(t.Root)
}

// childCenter returns the centre of child i of a cell centred at center with the given side length.
// Bit 0 of i selects +x, bit 1 +y and bit 2 +z.
func childCenter(center r3.Vector, side float64, i int) r3.Vector {
	offset := side / 4
	axis := func(bit int) float64 {
		if i&bit != 0 {
			return offset
		}
		return -offset
	}
	return r3.Vector{X: center.X + axis(1), Y: center.Y + axis(2), Z: center.Z + axis(4)}
}

// Leaves calls fn with the centre, side length and node of every leaf, depth first. Returning
// false stops the walk.
func (t *Tree) Leaves(fn func(center r3.Vector, side float64, n *Node) bool) {
	if t.Root == nil {
		return
	}
	var walk func(n *Node, center r3.Vector, side float64) bool
	walk = func(n *Node, center r3.Vector, side float64) bool {
		if !n.HasChildren() {
			return fn(center, side, n)
		}
		for i, c := range n.Children {
			if c == nil {
				continue
			}
			if !walk(c, childCenter(center, side, i), side/2) {
				return false
			}
		}
		return true
	}
	walk(t.Root, r3.Vector{}, t.SideLength())
}
