package radix

import (
	"bytes"
	"math/bits"

	"github.com/hideo55/go-popcount"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Mask is an interned netmask. Equal masks share one *Mask, so masks
// are compared by pointer.
type Mask struct {
	bytes  []byte // normalized: first byte is the length, no trailing zeros
	bit    int    // index of the first zero bit
	normal bool
	refs   int
	pair   Pair
}

// Bytes returns the normalized mask. It must not be modified.
func (m *Mask) Bytes() []byte { return m.bytes }

// Bit returns the index of the first zero bit of the mask.
func (m *Mask) Bit() int { return m.bit }

// Normal reports whether the mask is a contiguous run of ones.
func (m *Mask) Normal() bool { return m.normal }

// Ones counts the set bits past the length byte.
func (m *Mask) Ones() int {
	n := 0
	for _, b := range m.bytes[min(1, len(m.bytes)):] {
		n += int(popcount.Count(uint64(b)))
	}
	return n
}

// MaskTree interns masks for one or more tables of a single address
// family. It is itself a radix tree keyed by the normalized masks.
type MaskTree struct {
	head  *Head
	zero  *Mask
	limit int
	count int
	log   *zap.Logger
}

// NewMaskTree returns an empty mask tree holding at most limit distinct
// masks (0 is unlimited).
func NewMaskTree(limit int, log *zap.Logger) *MaskTree {
	if log == nil {
		log = zap.NewNop()
	}
	mt := &MaskTree{
		head:  newHead(0, log),
		limit: limit,
		log:   log,
	}
	// the all-zero mask is the tree's left sentinel
	root := mt.head.at(mt.head.top).left
	mt.zero = &Mask{bytes: []byte{0}, pair: root.pair()}
	mt.head.at(root).val = mt.zero
	return mt
}

// Len returns the number of distinct masks held, the zero mask excluded.
func (mt *MaskTree) Len() int {
	return mt.count
}

// Zero returns the canonical all-zero mask.
func (mt *MaskTree) Zero() *Mask {
	return mt.zero
}

// normalize copies mask, forcing the bytes below skip to ones and
// trimming trailing zeros. It returns nil when nothing past skip is set.
func normalize(mask []byte, skip int) []byte {
	mlen := min(keyLen(mask), maxKeyLen-1, len(mask))
	if skip == 0 {
		skip = 1
	}
	if mlen <= skip {
		return nil
	}
	var scratch [maxKeyLen]byte
	copy(scratch[1:skip], ones)
	copy(scratch[skip:mlen], mask[skip:mlen])
	for mlen > 0 && scratch[mlen-1] == 0 {
		mlen--
	}
	if mlen <= skip {
		return nil
	}
	scratch[0] = byte(mlen)
	return append([]byte(nil), scratch[:mlen]...)
}

// Intern returns the canonical mask for mask, with bytes below the skip
// byte taken as ones. When findOnly is set a missing mask yields nil.
func (mt *MaskTree) Intern(mask []byte, skip int, findOnly bool) (*Mask, error) {
	key := normalize(mask, skip)
	if key == nil {
		return mt.zero, nil
	}
	h := mt.head
	x := h.search(key, h.top)
	if xn := h.at(x); xn.flags&flagRoot == 0 && len(xn.key) >= len(key) && bytes.Equal(key, xn.key[:len(key)]) {
		return xn.val.(*Mask), nil
	}
	if findOnly {
		return nil, nil
	}
	if mt.limit > 0 && mt.count >= mt.limit {
		return nil, errors.Wrapf(ErrNoMemory, "mask %x", key)
	}
	m := &Mask{bytes: key, normal: true}
	m.pair = h.pool.GetPair()
	tt, dup := h.insert(key, m.pair)
	if dup {
		h.pool.PutPair(m.pair)
		if old, ok := h.at(tt).val.(*Mask); ok {
			return old, nil
		}
		mt.log.Error("mask collides with a sentinel", zap.Binary("mask", key))
		return nil, errors.Wrapf(ErrInconsistent, "mask %x", key)
	}
	h.at(tt).val = m

	// Find the first byte with a zero bit; since trailing zeros are
	// trimmed, any bits after it make the mask non-contiguous.
	mlen := len(key)
	i := max(skip, 1)
	for i < mlen && key[i] == 0xff {
		i++
	}
	if i != mlen {
		m.bit = bits.LeadingZeros8(^key[i])
		if !contiguous(key[i]) || i != mlen-1 {
			m.normal = false
		}
	}
	m.bit += i << 3
	mt.count++
	return m, nil
}

// Release drops one reference to m, removing it from the tree at zero.
func (mt *MaskTree) Release(m *Mask) {
	if m == nil || m == mt.zero {
		return
	}
	if m.refs--; m.refs > 0 {
		return
	}
	h := mt.head
	tt := m.pair.leaf()
	head := h.search(m.bytes, h.top)
	if head != tt {
		mt.log.Error("interned mask not found", zap.Binary("mask", m.bytes))
		return
	}
	if err := h.unlink(tt, head); err != nil {
		mt.log.Error("mask tree corrupted", zap.Binary("mask", m.bytes), zap.Error(err))
	}
	h.pool.PutPair(m.pair)
	m.refs = 0
	mt.count--
}

// retain is the counterpart of Release for a freshly cited mask.
func (mt *MaskTree) retain(m *Mask) {
	if m != nil && m != mt.zero {
		m.refs++
	}
}

// drop releases a mask nobody cites, as after a failed insert.
func (mt *MaskTree) drop(m *Mask) {
	if m != nil && m != mt.zero && m.refs == 0 {
		m.refs = 1
		mt.Release(m)
	}
}
