package octree

import (
	"bytes"
	"encoding/binary"
	"image/color"
	"io"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/rosscene/msgs"
)

// Kind selects the decoder for an octomap payload.
type Kind string

// Known payload kinds. Full maps are named by their tree class.
const (
	KindBinary      = Kind("binary")
	KindOcTree      = Kind("OcTree")
	KindColorOcTree = Kind("ColorOcTree")
)

// ErrUnknownTreeType is returned for full maps whose tree class has no decoder.
var ErrUnknownTreeType = errors.New("unknown octree type")

type decoderFunc func(r *bytes.Reader, tree *Tree) error

var decoders = map[Kind]decoderFunc{
	KindBinary:      readBinary,
	KindOcTree:      fullReader(false),
	KindColorOcTree: fullReader(true),
}

// KindOf returns the payload kind of m: binary maps always use the binary decoder, full maps are
// dispatched on their id.
func KindOf(m msgs.Octomap) Kind {
	if m.Binary {
		return KindBinary
	}
	return Kind(m.ID)
}

// Decode builds a Tree from an octomap message.
func Decode(m msgs.Octomap) (*Tree, error) {
	kind := KindOf(m)
	decode, ok := decoders[kind]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownTreeType, "%q", m.ID)
	}
	if m.Resolution <= 0 || math.IsNaN(m.Resolution) || math.IsInf(m.Resolution, 0) {
		return nil, errors.Errorf("invalid resolution %v", m.Resolution)
	}
	tree := &Tree{Resolution: m.Resolution, Colored: kind == KindColorOcTree}
	data := m.Bytes()
	if len(data) == 0 {
		return tree, nil
	}
	r := bytes.NewReader(data)
	if err := decode(r, tree); err != nil {
		return nil, errors.Wrapf(err, "decoding %s octree", kind)
	}
	if r.Len() != 0 {
		return nil, errors.Errorf("%d trailing bytes after %s octree", r.Len(), kind)
	}
	return tree, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.New("payload is truncated")
	}
	return err
}

// readBinary reads the compact encoding: two bytes per inner node holding a 2 bit code per child.
// 01 marks a free leaf, 10 an occupied leaf and 11 a child with children of its own.
func readBinary(r *bytes.Reader, tree *Tree) error {
	tree.Root = &Node{}
	return readBinaryNode(r, tree.Root, 0)
}

func readBinaryNode(r *bytes.Reader, n *Node, depth int) error {
	if depth >= MaxDepth {
		return errors.Errorf("tree deeper than %d levels", MaxDepth)
	}
	var codes [2]byte
	if _, err := io.ReadFull(r, codes[:]); err != nil {
		return truncated(err)
	}

	var inner []int
	for i := 0; i < 8; i++ {
		bits := codes[i/4] >> (2 * uint(i%4)) & 0x3
		switch bits {
		case 0x1:
			n.Children[i] = &Node{LogOdds: LogOddsFree}
		case 0x2:
			n.Children[i] = &Node{LogOdds: LogOddsOccupied}
		case 0x3:
			n.Children[i] = &Node{}
			inner = append(inner, i)
		}
	}
	for _, i := range inner {
		if err := readBinaryNode(r, n.Children[i], depth+1); err != nil {
			return err
		}
	}
	n.LogOdds = n.maxChildLogOdds()
	return nil
}

// fullReader returns the decoder of the full encoding: every node stores its float32 log-odds,
// its colour for colour trees, and a byte flagging which children follow.
func fullReader(colored bool) decoderFunc {
	return func(r *bytes.Reader, tree *Tree) error {
		tree.Root = &Node{}
		return readFullNode(r, tree.Root, colored, 0)
	}
}

func readFullNode(r *bytes.Reader, n *Node, colored bool, depth int) error {
	if depth > MaxDepth {
		return errors.Errorf("tree deeper than %d levels", MaxDepth)
	}
	if err := binary.Read(r, binary.LittleEndian, &n.LogOdds); err != nil {
		return truncated(err)
	}
	if colored {
		var rgb [3]byte
		if _, err := io.ReadFull(r, rgb[:]); err != nil {
			return truncated(err)
		}
		n.Color = color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
	}
	children, err := r.ReadByte()
	if err != nil {
		return truncated(err)
	}
	for i := 0; i < 8; i++ {
		if children&(1<<uint(i)) == 0 {
			continue
		}
		n.Children[i] = &Node{}
		if err := readFullNode(r, n.Children[i], colored, depth+1); err != nil {
			return err
		}
	}
	return nil
}
