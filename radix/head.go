package radix

import (
	"reflect"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	// ErrExists is returned when the key, mask (and, for multipath
	// tables, priority and payload) are already present.
	ErrExists = errors.New("route already exists")
	// ErrNotFound is returned when the key or key+mask is absent.
	ErrNotFound = errors.New("route not found")
	// ErrNoMemory is returned when a mask or mask annotation can't be
	// allocated. The table is left unchanged.
	ErrNoMemory = errors.New("out of mask memory")
	// ErrInconsistent reports a corrupted table.
	ErrInconsistent = errors.New("inconsistent radix tree")
	// ErrPairInUse is returned when a pair handed to AddRoute is still
	// linked into a tree, or is not a pair of this table.
	ErrPairInUse = errors.New("node pair in use")
)

// Config holds the table settings.
type Config struct {
	// Offset is the number of leading key bits never compared. The
	// default of 8 skips the length byte.
	Offset int
	// Multipath allows several entries for one key and mask, kept in
	// priority order.
	Multipath bool
	// SameRoute tells multipath entries of equal priority apart. The
	// default compares comparable payloads with ==.
	SameRoute func(a, b any) bool
	// MaxRadixMasks bounds the mask annotations in use (0 is unlimited).
	MaxRadixMasks int
	// MaxMasks bounds the distinct masks of a private mask tree.
	MaxMasks int
	// Masks lets tables of one address family share interned masks.
	Masks *MaskTree
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
	// Debug turns detected corruption into a panic.
	Debug bool
}

// Head is a routing table: a radix tree of node pairs with mask
// annotations for longest-prefix matching. It does no locking; the
// caller serializes mutations against each other and against lookups.
type Head struct {
	pool  *NodePool
	top   Ref
	masks *MaskTree
	rm    maskPool
	cfg   Config
	log   *zap.Logger
	size  int
}

// Entry is a snapshot of one route.
type Entry struct {
	Pair     Pair
	Key      []byte
	Mask     []byte // nil for host routes
	Val      any
	Priority uint8
	// Bits is the prefix length of the mask past the skipped key
	// bytes, -1 for host routes.
	Bits int
}

// New returns an empty table.
func New(cfg Config) *Head {
	if cfg.Offset <= 0 {
		cfg.Offset = 8
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.SameRoute == nil {
		cfg.SameRoute = samePayload
	}
	h := newHead(cfg.Offset, cfg.Logger)
	h.cfg = cfg
	h.rm.limit = cfg.MaxRadixMasks
	h.masks = cfg.Masks
	if h.masks == nil {
		h.masks = NewMaskTree(cfg.MaxMasks, cfg.Logger)
	}
	return h
}

// newHead builds the tree top: a branch at bit off between the all-zeros
// and the all-ones sentinel leaves.
func newHead(off int, log *zap.Logger) *Head {
	h := &Head{
		pool: NewNodePool(0),
		log:  log,
	}
	left, right := h.pool.GetPair(), h.pool.GetPair()
	tt, t := h.newPair(zeros, off, left)
	ttt := right.leaf()
	*h.at(ttt) = *h.at(tt)
	h.at(ttt).key = ones
	h.at(ttt).flags |= flagRoot
	h.at(tt).flags |= flagRoot
	tn := h.at(t)
	tn.right = ttt
	tn.parent = t
	tn.flags |= flagRoot
	h.top = t
	return h
}

func samePayload(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	return ta == tb && ta.Comparable() && a == b
}

// Len returns the number of routes.
func (h *Head) Len() int {
	return h.size
}

// Masks returns the mask tree the table interns into.
func (h *Head) Masks() *MaskTree {
	return h.masks
}

// AllocPair returns storage for one route.
func (h *Head) AllocPair() Pair {
	return h.pool.GetPair()
}

// FreePair gives back a pair that is not linked into the tree.
func (h *Head) FreePair(p Pair) error {
	if !h.pool.valid(p) || p < 2 || h.active(p) {
		return errors.Wrapf(ErrPairInUse, "pair %d", p)
	}
	h.pool.PutPair(p)
	return nil
}

func (h *Head) active(p Pair) bool {
	return h.at(p.leaf()).flags&flagActive != 0 || h.at(p.branch()).flags&flagActive != 0
}

// skip is the first key byte that takes part in comparisons.
func (h *Head) skip() int {
	return h.at(h.top).off
}

// Entry returns the route stored in pair p.
func (h *Head) Entry(p Pair) (Entry, bool) {
	if !h.pool.valid(p) {
		return Entry{}, false
	}
	n := h.at(p.leaf())
	if n.flags&flagActive == 0 || n.flags&flagRoot != 0 {
		return Entry{}, false
	}
	return h.entry(p.leaf()), true
}

func (h *Head) entry(r Ref) Entry {
	n := h.at(r)
	e := Entry{
		Pair:     r.pair(),
		Key:      n.key,
		Val:      n.val,
		Priority: n.prio,
		Bits:     -1,
	}
	if n.mask != nil {
		e.Mask = n.mask.bytes
		e.Bits = n.mask.Ones() - 8*max(h.skip()-1, 0)
	}
	return e
}

// corrupt reports a broken invariant; in debug mode it does not return.
func (h *Head) corrupt(msg string, key []byte) error {
	h.log.Error(msg, zap.Binary("key", key))
	if h.cfg.Debug {
		panic(errors.Wrap(ErrInconsistent, msg))
	}
	return errors.Wrapf(ErrInconsistent, "%s: key %x", msg, key)
}
