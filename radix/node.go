package radix

import "fmt"

// Pair is a handle to the storage of one route: a leaf and the branch
// that is spliced into the tree when the route's key is new.
type Pair int32

// NoPair selects no particular pair.
const NoPair Pair = -1

// Ref addresses a single node slot in a NodePool.
type Ref int32

const nilRef Ref = -1

func (p Pair) leaf() Ref   { return Ref(p) << 1 }
func (p Pair) branch() Ref { return Ref(p)<<1 | 1 }
func (r Ref) pair() Pair   { return Pair(r >> 1) }

type kind uint8

const (
	kindLeaf kind = iota
	kindBranch
)

const (
	flagRoot   uint8 = 1 << iota // tree-top sentinel, never handed out
	flagActive                   // the slot is linked into a tree
	flagNormal                   // the mask is a contiguous run of ones
)

// node is either a leaf or a branch, as told by kind.
type node struct {
	kind  kind
	flags uint8
	// parent is the tree parent of a branch or of the head of a
	// duped-key chain; other chain members keep nilRef.
	parent Ref
	mklist *radixMask

	// branch
	bit   int  // absolute index of the tested bit
	off   int  // byte holding the tested bit
	bmask byte // the tested bit within that byte
	left  Ref
	right Ref

	// leaf
	key      []byte
	mask     *Mask
	mbit     int // index of the first zero bit of mask
	dupedkey Ref
	val      any
	prio     uint8
}

func (n *node) String() string {
	if n == nil {
		return "node(nil)"
	}
	if n.kind == kindBranch {
		return fmt.Sprintf("<BRANCH bit=%v off=%v mask=%08b>", n.bit, n.off, n.bmask)
	}
	if n.mask == nil {
		return fmt.Sprintf("<LEAF key=%x>", n.key)
	}
	return fmt.Sprintf("<LEAF key=%x mask=%x prio=%v>", n.key, n.mask.bytes, n.prio)
}

// radixMask is a mask annotation hoisted onto a branch. Normal masks
// reference the leaf that carries them, others reference the mask itself.
type radixMask struct {
	bit   int
	flags uint8
	next  *radixMask
	leaf  Ref
	mask  *Mask
	refs  int
}

func (h *Head) at(r Ref) *node {
	return &h.pool.Nodes[r]
}

// maskOf returns the canonical mask an annotation stands for.
func (h *Head) maskOf(m *radixMask) *Mask {
	if m.flags&flagNormal != 0 {
		return h.at(m.leaf).mask
	}
	return m.mask
}

// newPair initializes the pair as a fresh leaf for key hanging off
// a branch testing bit b.
func (h *Head) newPair(key []byte, b int, p Pair) (tt, t Ref) {
	tt, t = p.leaf(), p.branch()
	*h.at(tt) = node{
		kind:     kindLeaf,
		flags:    flagActive,
		parent:   t,
		key:      key,
		left:     nilRef,
		right:    nilRef,
		dupedkey: nilRef,
	}
	*h.at(t) = node{
		kind:     kindBranch,
		flags:    flagActive,
		parent:   nilRef,
		bit:      b,
		off:      b >> 3,
		bmask:    0x80 >> (b & 7),
		left:     tt,
		right:    nilRef,
		dupedkey: nilRef,
	}
	return
}

// replaceChild points whichever child of parent refers to old at nw.
func (h *Head) replaceChild(parent, old, nw Ref) {
	pn := h.at(parent)
	if pn.left == old {
		pn.left = nw
	} else {
		pn.right = nw
	}
}

// relocate moves the active branch at from into the free slot to.
func (h *Head) relocate(from, to Ref) {
	*h.at(to) = *h.at(from)
	tn := h.at(to)
	h.at(tn.left).parent = to
	h.at(tn.right).parent = to
	h.replaceChild(tn.parent, from, to)
	fn := h.at(from)
	fn.flags &^= flagActive
	fn.mklist = nil
}
